package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceObservation is the latest applied trade price of an instrument.
//
// Timestamp comes from the feed with second resolution, not from the time of receipt.
type PriceObservation struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// ObservedAt converts feed epoch seconds into an observation timestamp.
func ObservedAt(epochSeconds int64) time.Time {
	return time.Unix(epochSeconds, 0).UTC()
}
