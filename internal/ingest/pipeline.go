package ingest

import (
	"time"

	"tickerfeed/internal/cache"
	"tickerfeed/internal/model"
	"tickerfeed/internal/obs"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"
)

// Pipeline applies trades of tracked instruments to the price cache.
type Pipeline struct {
	cache   cache.PriceCache
	tickers model.TickerSet
	metrics *obs.Metrics
	now     func() time.Time
}

// NewPipeline builds a pipeline accepting only symbols in tickers.
func NewPipeline(c cache.PriceCache, tickers model.TickerSet, metrics *obs.Metrics) *Pipeline {
	return &Pipeline{
		cache:   c,
		tickers: tickers,
		metrics: metrics,
		now:     time.Now,
	}
}

// OnTrade rounds price down to the instrument precision and stores it.
// It reports whether the cache was written.
func (p *Pipeline) OnTrade(symbol string, price decimal.Decimal, timestamp int64) bool {
	if !p.tickers.Has(symbol) {
		p.metrics.IncDrop(obs.DropUntracked)
		logs.Warnf("attempted to update price for unknown market symbol '%s'", symbol)
		return false
	}

	ins, ok := p.cache.GetInstrument(symbol)
	if !ok {
		p.metrics.IncDrop(obs.DropNoInstrument)
		logs.Debugf("ticker data for market symbol '%s' not found", symbol)
		return false
	}

	rounded := ins.RoundDown(price)
	observed := model.ObservedAt(timestamp)
	p.cache.PutPrice(symbol, rounded, observed)
	p.metrics.ObserveTrade(observed, p.now())
	logs.Infof("ticker price for %s has been updated to %s at %s", symbol, ins.FormatPrice(rounded), observed.Format(time.RFC3339))
	return true
}
