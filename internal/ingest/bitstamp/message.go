package bitstamp

import (
	"encoding/json"
	"strconv"
	"strings"

	"tickerfeed/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

const (
	DefaultChannelPrefix  = "live_trades_"
	DefaultSubscribeEvent = "bts:subscribe"

	EventTrade = "trade"

	// maxExponent bounds the decimal exponent of a price so formatting stays cheap.
	maxExponent = 32
)

// ackEvents are the event names treated as a subscription acknowledgement.
var ackEvents = map[string]struct{}{
	"bts:subscription_succeeded": {},
	"subscription acknowledged":  {},
}

// message is an inbound frame. Data is decoded only for trade frames, other
// events carry objects or plain strings there.
type message struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type tradeData struct {
	ID        *numeric `json:"id"`
	Timestamp *numeric `json:"timestamp"`
	Amount    *numeric `json:"amount"`
	Price     *numeric `json:"price"`
}

// numeric holds the literal text of a JSON number or numeric string.
// The feed sends timestamps as strings and prices as numbers.
type numeric string

func (n *numeric) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return errors.Wrap(exception.ErrDecodeMalformed, "unquote numeric").With("value", s)
		}
		s = strings.TrimSpace(unquoted)
	}
	if s == "" || !isNumberLiteral(s) {
		return errors.Wrap(exception.ErrDecodeMalformed, "not a number").With("value", s)
	}
	*n = numeric(s)
	return nil
}

func (n *numeric) present() bool {
	return n != nil && *n != ""
}

func (n *numeric) int64() (int64, error) {
	v, err := strconv.ParseInt(string(*n), 10, 64)
	if err != nil {
		return 0, errors.Wrap(exception.ErrDecodeMalformed, "parse integer").With("value", string(*n))
	}
	return v, nil
}

func (n *numeric) decimal() (decimal.Decimal, error) {
	s := string(*n)
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		exp, err := strconv.ParseInt(s[i+1:], 10, 32)
		if err != nil || exp > maxExponent || exp < -maxExponent {
			return decimal.Decimal{}, errors.Wrap(exception.ErrDecodeMalformed, "exponent out of range").With("value", s)
		}
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(exception.ErrDecodeMalformed, "parse decimal").With("value", s)
	}
	return v, nil
}

func isNumberLiteral(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	return true
}
