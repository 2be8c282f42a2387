package catalog

import (
	"context"

	"tickerfeed/internal/model"
)

// Fetcher lists exchange markets.
type Fetcher interface {
	Markets(ctx context.Context) ([]model.Instrument, error)
}

// Service narrows the exchange catalog to the allow-list.
type Service struct {
	fetcher Fetcher
	tickers model.TickerSet
}

// NewService creates a catalog service.
func NewService(fetcher Fetcher, tickers model.TickerSet) *Service {
	return &Service{
		fetcher: fetcher,
		tickers: tickers,
	}
}

// Available returns the tracked instruments in catalog order.
// A failed fetch, already logged by the fetcher, yields an empty list.
func (s *Service) Available(ctx context.Context) []model.Instrument {
	markets, err := s.fetcher.Markets(ctx)
	if err != nil {
		return []model.Instrument{}
	}
	return Filter(markets, s.tickers)
}

// Filter keeps instruments whose symbol is in tickers, preserving order.
func Filter(instruments []model.Instrument, tickers model.TickerSet) []model.Instrument {
	filtered := make([]model.Instrument, 0, len(tickers))
	for _, ins := range instruments {
		if tickers.Has(ins.Symbol) {
			filtered = append(filtered, ins)
		}
	}
	return filtered
}
