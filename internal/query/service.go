package query

import (
	"regexp"
	"strings"
	"time"

	"tickerfeed/internal/cache"
	"tickerfeed/internal/model"
	"tickerfeed/pkg/exception"

	"github.com/yanun0323/errors"
)

var symbolPattern = regexp.MustCompile(`(?i)^[A-Z0-9]{3,4}-[A-Z0-9]{3,4}$`)

// Quote is the latest price of an instrument formatted at its counter precision.
type Quote struct {
	Symbol    string
	Price     string
	Timestamp time.Time
}

// Service answers price queries straight from the cache.
type Service struct {
	cache cache.PriceCache
}

// NewService creates a query service reading c.
func NewService(c cache.PriceCache) *Service {
	return &Service{cache: c}
}

// ValidSymbol reports whether symbol has the BASE-COUNTER shape, e.g. BTC-USD.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

// Normalize maps BTC-USD to the cache key btcusd.
func Normalize(symbol string) string {
	return strings.ToLower(strings.ReplaceAll(symbol, "-", ""))
}

// Price validates and normalizes symbol, then looks it up.
//
// Errors wrap exception.ErrInvalidSymbol or exception.ErrPriceNotFound.
func (s *Service) Price(symbol string) (Quote, error) {
	if !ValidSymbol(symbol) {
		return Quote{}, errors.Wrap(exception.ErrInvalidSymbol, "price").With("symbol", symbol)
	}
	quote, ok := s.Lookup(Normalize(symbol))
	if !ok {
		return Quote{}, errors.Wrap(exception.ErrPriceNotFound, "price").With("symbol", symbol)
	}
	return quote, nil
}

// Lookup reads a canonical symbol. Both instrument metadata and an observation must exist.
func (s *Service) Lookup(canonical string) (Quote, bool) {
	ins, ok := s.cache.GetInstrument(canonical)
	if !ok {
		return Quote{}, false
	}
	obs, ok := s.cache.GetPrice(canonical)
	if !ok {
		return Quote{}, false
	}
	return quoteOf(ins, obs), true
}

func quoteOf(ins model.Instrument, obs model.PriceObservation) Quote {
	return Quote{
		Symbol:    obs.Symbol,
		Price:     ins.FormatPrice(obs.Price),
		Timestamp: obs.Timestamp.UTC(),
	}
}
