package ingest

import (
	"context"
	"sync"
	"time"

	"tickerfeed/internal/cache"
	"tickerfeed/internal/feed"
	"tickerfeed/internal/ingest/bitstamp"
	"tickerfeed/internal/model"
	"tickerfeed/internal/obs"
	"tickerfeed/pkg/exception"
	"tickerfeed/pkg/websocket"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// InstrumentSource yields the tracked instruments of the exchange catalog.
// An empty result is a valid answer.
type InstrumentSource interface {
	Available(ctx context.Context) []model.Instrument
}

// Option defines the ingestion runtime configuration.
type Option struct {
	// ChannelPrefix maps a symbol to its trade channel. Optional; default bitstamp.DefaultChannelPrefix.
	ChannelPrefix string
	// SubscribeEvent is the subscribe frame event name. Optional; default bitstamp.DefaultSubscribeEvent.
	SubscribeEvent string
	// ReconnectDelay is passed to the feed connection. Optional; default 5s.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is passed to the feed connection. Optional; default 0 (fixed).
	MaxReconnectDelay time.Duration
	// Metrics receives ingestion counters. Optional; default nil.
	Metrics *obs.Metrics
}

// Usecase seeds the cache from the catalog and runs the feed into the pipeline.
type Usecase struct {
	dialer  websocket.Dialer
	source  InstrumentSource
	cache   cache.PriceCache
	tickers model.TickerSet
	opt     Option

	mu   sync.Mutex
	conn *feed.Connection
}

// NewUsecase creates an ingestion usecase. Nothing runs until Start.
func NewUsecase(dialer websocket.Dialer, source InstrumentSource, c cache.PriceCache, tickers model.TickerSet, option ...Option) *Usecase {
	var opt Option
	if len(option) != 0 {
		opt = option[0]
	}
	if opt.ChannelPrefix == "" {
		opt.ChannelPrefix = bitstamp.DefaultChannelPrefix
	}
	if opt.SubscribeEvent == "" {
		opt.SubscribeEvent = bitstamp.DefaultSubscribeEvent
	}
	return &Usecase{
		dialer:  dialer,
		source:  source,
		cache:   c,
		tickers: tickers,
		opt:     opt,
	}
}

// Start fetches the catalog once, seeds instrument metadata and starts the feed.
// A second call is a no-op.
func (use *Usecase) Start(ctx context.Context) error {
	if use == nil || use.source == nil || use.cache == nil {
		return exception.ErrNilInstance
	}

	use.mu.Lock()
	defer use.mu.Unlock()
	if use.conn != nil {
		logs.Warn("ingestion already started")
		return nil
	}

	instruments := use.source.Available(ctx)
	if len(instruments) != 0 {
		use.cache.PutInstruments(instruments)
	} else {
		logs.Debug("no available markets found")
	}
	for _, ins := range instruments {
		logs.Infof(" - available ticker: %s (%s)", ins.Name, ins.Symbol)
	}

	decoder := bitstamp.NewDecoder(use.opt.ChannelPrefix, use.opt.Metrics)
	pipeline := NewPipeline(use.cache, use.tickers, use.opt.Metrics)
	handler := NewFrameHandler(decoder, pipeline, use.opt.Metrics)

	channels := make([]string, 0, len(instruments))
	for _, ins := range instruments {
		channels = append(channels, decoder.Channel(ins.Symbol))
	}

	conn, err := feed.New(use.dialer, bitstamp.NewEncoder(use.opt.SubscribeEvent), handler, channels, feed.Option{
		ReconnectDelay:    use.opt.ReconnectDelay,
		MaxReconnectDelay: use.opt.MaxReconnectDelay,
		Metrics:           use.opt.Metrics,
	})
	if err != nil {
		return errors.Wrap(err, "create feed connection")
	}
	use.conn = conn
	conn.Start(ctx)
	return nil
}

// Stop stops the feed and waits for it to release the transport.
func (use *Usecase) Stop() {
	use.mu.Lock()
	conn := use.conn
	use.mu.Unlock()
	if conn != nil {
		conn.Stop()
	}
}

// State returns the feed state; Disconnected before Start.
func (use *Usecase) State() feed.State {
	use.mu.Lock()
	conn := use.conn
	use.mu.Unlock()
	if conn == nil {
		return feed.StateDisconnected
	}
	return conn.State()
}

// Channels returns the subscription list; empty before Start.
func (use *Usecase) Channels() []string {
	use.mu.Lock()
	conn := use.conn
	use.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Channels()
}
