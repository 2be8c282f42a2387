package ingest

import (
	"fmt"
	"testing"

	"tickerfeed/internal/cache"
	"tickerfeed/internal/ingest/bitstamp"
	"tickerfeed/internal/model"
	"tickerfeed/internal/obs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(instruments ...model.Instrument) (*FrameHandler, *cache.Memory, *obs.Metrics) {
	c := cache.NewMemory()
	c.PutInstruments(instruments)
	metrics := obs.NewMetrics()
	pipeline := NewPipeline(c, model.NewTickerSet("btcusd", "ethbtc"), metrics)
	decoder := bitstamp.NewDecoder(bitstamp.DefaultChannelPrefix, metrics)
	return NewFrameHandler(decoder, pipeline, metrics), c, metrics
}

func TestFrameHandlerAppliesTrades(t *testing.T) {
	h, c, _ := newTestHandler(BTCUSD, ETHBTC)

	for i := 0; i < 300; i++ {
		h.HandleFrame([]byte(fmt.Sprintf(
			`{"event":"trade","channel":"live_trades_ethbtc","data":{"id":%d,"timestamp":"%d","amount":1,"price":%d.00}}`,
			i, 1234567890+i, 100+i)))
	}

	got, ok := c.GetPrice("ethbtc")
	require.True(t, ok)
	assert.Equal(t, "399.00000000", ETHBTC.FormatPrice(got.Price))
	assert.Equal(t, int64(1234567890+299), got.Timestamp.Unix())
}

func TestFrameHandlerNeverForwardsIncompleteTrades(t *testing.T) {
	h, c, metrics := newTestHandler(BTCUSD)

	h.HandleFrame([]byte(`{"event":"trade","channel":"live_trades_btcusd","data":{"price":"100"}}`))
	h.HandleFrame([]byte(`{"event":"trade","channel":"live_trades_btcusd","data":{"timestamp":"1"}}`))
	h.HandleFrame([]byte(`{"event":"trade","channel":"live_trades_","data":{"timestamp":"1","price":"1"}}`))
	h.HandleFrame([]byte(`{"event":"trade","channel":"live_trades_btcusd"}`))
	h.HandleFrame([]byte(`garbage`))

	_, ok := c.GetPrice("btcusd")
	assert.False(t, ok)
	snap := metrics.Snapshot()
	assert.Zero(t, snap.TradesApplied)
	assert.Equal(t, map[string]uint64{"incomplete": 4, "malformed": 1}, snap.Drops)
}

func TestFrameHandlerCountsAcks(t *testing.T) {
	h, c, metrics := newTestHandler(BTCUSD)

	h.HandleFrame([]byte(`{"event":"bts:subscription_succeeded","channel":"live_trades_btcusd","data":{}}`))
	h.HandleFrame([]byte(`{"event":"bts:request_reconnect","channel":"","data":""}`))

	_, ok := c.GetPrice("btcusd")
	assert.False(t, ok)
	assert.Equal(t, uint64(1), metrics.Snapshot().Acks)
}
