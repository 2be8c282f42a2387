package cache

import (
	"sync"
	"time"

	"tickerfeed/internal/model"

	"github.com/shopspring/decimal"
)

// Memory is the in-process PriceCache.
type Memory struct {
	insMu       sync.RWMutex
	instruments map[string]model.Instrument

	priceMu sync.RWMutex
	prices  map[string]model.PriceObservation
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		instruments: make(map[string]model.Instrument),
		prices:      make(map[string]model.PriceObservation),
	}
}

func (m *Memory) PutInstruments(instruments []model.Instrument) {
	m.insMu.Lock()
	for _, ins := range instruments {
		m.instruments[ins.Symbol] = ins
	}
	m.insMu.Unlock()
}

func (m *Memory) GetInstrument(symbol string) (model.Instrument, bool) {
	m.insMu.RLock()
	ins, ok := m.instruments[symbol]
	m.insMu.RUnlock()
	return ins, ok
}

func (m *Memory) PutPrice(symbol string, price decimal.Decimal, timestamp time.Time) {
	m.priceMu.Lock()
	m.prices[symbol] = model.PriceObservation{
		Symbol:    symbol,
		Price:     price,
		Timestamp: timestamp,
	}
	m.priceMu.Unlock()
}

func (m *Memory) GetPrice(symbol string) (model.PriceObservation, bool) {
	m.priceMu.RLock()
	obs, ok := m.prices[symbol]
	m.priceMu.RUnlock()
	return obs, ok
}
