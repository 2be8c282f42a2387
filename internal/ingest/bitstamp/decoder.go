package bitstamp

import (
	"bytes"
	"strings"

	"tickerfeed/internal/obs"
	"tickerfeed/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Kind is the decoded event category.
type Kind uint8

const (
	KindUnrecognized Kind = iota
	KindTrade
	KindSubscriptionAck
)

func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindSubscriptionAck:
		return "subscription_ack"
	default:
		return "unrecognized"
	}
}

// Trade is a complete trade from a live trades channel.
type Trade struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp int64
}

// Event is one decoded feed frame. Trade is set only for KindTrade.
type Event struct {
	Kind    Kind
	Name    string
	Channel string
	Trade   Trade
}

var nullLiteral = []byte("null")

// Decoder turns raw feed frames into events.
type Decoder struct {
	prefix  string
	metrics *obs.Metrics
}

// NewDecoder creates a decoder deriving symbols by stripping prefix from channel names.
func NewDecoder(prefix string, metrics *obs.Metrics) *Decoder {
	return &Decoder{
		prefix:  prefix,
		metrics: metrics,
	}
}

// Decode parses payload and logs every frame that yields no event.
// It never returns an error; ok is false when the frame must be skipped.
func (d *Decoder) Decode(payload []byte) (Event, bool) {
	event, err := d.Parse(payload)
	if err == nil {
		return event, true
	}

	switch {
	case errors.Is(err, exception.ErrDecodeTradeIncomplete):
		d.metrics.IncDrop(obs.DropIncomplete)
		logs.Debugf("incomplete trade data, err: %v, raw: %s", err, payload)
	case errors.Is(err, exception.ErrDecodeTradeNoData):
		d.metrics.IncDrop(obs.DropIncomplete)
		logs.Warnf("missing data in trade message: %s", payload)
	default:
		d.metrics.IncDrop(obs.DropMalformed)
		logs.Warnf("failed to parse feed message, err: %v, raw: %s", err, payload)
	}
	return Event{}, false
}

// Parse decodes payload into an event.
//
// Errors wrap exception.ErrDecodeMalformed, exception.ErrDecodeTradeNoData or
// exception.ErrDecodeTradeIncomplete.
func (d *Decoder) Parse(payload []byte) (Event, error) {
	var msg message
	if err := sonic.ConfigStd.Unmarshal(payload, &msg); err != nil {
		if errors.Is(err, exception.ErrDecodeMalformed) {
			return Event{}, err
		}
		return Event{}, errors.Wrap(exception.ErrDecodeMalformed, err.Error())
	}
	if msg.Event == "" {
		return Event{}, errors.Wrap(exception.ErrDecodeMalformed, "missing event")
	}

	event := Event{
		Name:    msg.Event,
		Channel: msg.Channel,
	}

	if _, ok := ackEvents[msg.Event]; ok {
		event.Kind = KindSubscriptionAck
		return event, nil
	}
	if msg.Event != EventTrade {
		event.Kind = KindUnrecognized
		return event, nil
	}

	trade, err := d.trade(msg)
	if err != nil {
		return Event{}, err
	}
	event.Kind = KindTrade
	event.Trade = trade
	return event, nil
}

func (d *Decoder) trade(msg message) (Trade, error) {
	raw := bytes.TrimSpace(msg.Data)
	if len(raw) == 0 || bytes.Equal(raw, nullLiteral) {
		return Trade{}, errors.Wrap(exception.ErrDecodeTradeNoData, "trade").With("channel", msg.Channel)
	}
	var data tradeData
	if err := sonic.ConfigStd.Unmarshal(raw, &data); err != nil {
		if errors.Is(err, exception.ErrDecodeMalformed) {
			return Trade{}, err
		}
		return Trade{}, errors.Wrap(exception.ErrDecodeMalformed, err.Error())
	}

	symbol := d.Symbol(msg.Channel)
	if symbol == "" || !data.Price.present() || !data.Timestamp.present() {
		return Trade{}, errors.Wrap(exception.ErrDecodeTradeIncomplete, "trade").
			With("symbol", symbol).
			With("has_price", data.Price.present()).
			With("has_timestamp", data.Timestamp.present())
	}

	price, err := data.Price.decimal()
	if err != nil {
		return Trade{}, err
	}
	ts, err := data.Timestamp.int64()
	if err != nil {
		return Trade{}, err
	}

	return Trade{
		Symbol:    symbol,
		Price:     price,
		Timestamp: ts,
	}, nil
}

// Symbol strips the channel prefix, e.g. live_trades_btcusd -> btcusd.
func (d *Decoder) Symbol(channel string) string {
	return strings.TrimSpace(strings.TrimPrefix(channel, d.prefix))
}

// Channel is the inverse of Symbol.
func (d *Decoder) Channel(symbol string) string {
	return d.prefix + symbol
}
