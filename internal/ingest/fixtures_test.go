package ingest

import (
	"context"

	"tickerfeed/internal/model"
)

var (
	BTCUSD = model.Instrument{Name: "BTC/USD", Symbol: "btcusd", BaseCurrency: "BTC", BaseDecimals: 8, CounterCurrency: "USD", CounterDecimals: 0}
	ETHUSD = model.Instrument{Name: "ETH/USD", Symbol: "ethusd", BaseCurrency: "ETH", BaseDecimals: 8, CounterCurrency: "USD", CounterDecimals: 1}
	ETHBTC = model.Instrument{Name: "ETH/BTC", Symbol: "ethbtc", BaseCurrency: "ETH", BaseDecimals: 8, CounterCurrency: "BTC", CounterDecimals: 8}
	XRPUSD = model.Instrument{Name: "XRP/USD", Symbol: "xrpusd", BaseCurrency: "XRP", BaseDecimals: 8, CounterCurrency: "USD", CounterDecimals: 5}
)

type staticSource []model.Instrument

func (s staticSource) Available(context.Context) []model.Instrument {
	return append([]model.Instrument(nil), s...)
}
