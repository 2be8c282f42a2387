package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Instrument is a tradeable pair as listed by the exchange catalog.
type Instrument struct {
	Name            string `json:"name"`
	Symbol          string `json:"market_symbol"`
	BaseCurrency    string `json:"base_currency"`
	BaseDecimals    int32  `json:"base_decimals"`
	CounterCurrency string `json:"counter_currency"`
	CounterDecimals int32  `json:"counter_decimals"`
}

// RoundDown truncates price toward zero at the counter currency precision.
func (i Instrument) RoundDown(price decimal.Decimal) decimal.Decimal {
	return price.Truncate(i.CounterDecimals)
}

// FormatPrice renders price with exactly CounterDecimals fraction digits.
func (i Instrument) FormatPrice(price decimal.Decimal) string {
	return price.StringFixed(i.CounterDecimals)
}

// TickerSet is the operator configured allow-list of market symbols.
type TickerSet map[string]struct{}

// NewTickerSet normalizes symbols to lower case and drops blanks.
func NewTickerSet(symbols ...string) TickerSet {
	set := make(TickerSet, len(symbols))
	for _, s := range symbols {
		s = NormalizeTicker(s)
		if s == "" {
			continue
		}
		set[s] = struct{}{}
	}
	return set
}

// Has reports whether symbol is tracked.
func (s TickerSet) Has(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

// List returns the tracked symbols in no particular order.
func (s TickerSet) List() []string {
	list := make([]string, 0, len(s))
	for k := range s {
		list = append(list, k)
	}
	return list
}

// NormalizeTicker lowercases and trims a market symbol.
func NormalizeTicker(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
