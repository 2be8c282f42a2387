package cache

import (
	"time"

	"tickerfeed/internal/model"

	"github.com/shopspring/decimal"
)

// PriceCache stores instrument metadata and the latest observation per symbol.
//
// Implementations are safe for concurrent use and never expose locking to callers.
type PriceCache interface {
	// PutInstruments replaces the metadata of every listed symbol. Observations are untouched.
	PutInstruments(instruments []model.Instrument)
	// GetInstrument returns the metadata of symbol.
	GetInstrument(symbol string) (model.Instrument, bool)
	// PutPrice overwrites the observation of symbol unconditionally.
	PutPrice(symbol string, price decimal.Decimal, timestamp time.Time)
	// GetPrice returns the latest observation of symbol.
	GetPrice(symbol string) (model.PriceObservation, bool)
}
