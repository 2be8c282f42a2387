package cache

import (
	"testing"
	"time"

	"tickerfeed/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test"), srv
}

func TestRedis(t *testing.T) {
	c, _ := newTestRedis(t)
	testPriceCache(t, c)
}

func TestRedisKeyLayout(t *testing.T) {
	c, srv := newTestRedis(t)
	c.PutInstruments([]model.Instrument{ethbtc})
	c.PutPrice("ethbtc", decimal.RequireFromString("0.02277230"), time.Unix(946684800, 0).UTC())

	assert.True(t, srv.Exists("test:instrument:ethbtc"))
	assert.True(t, srv.Exists("test:price:ethbtc"))

	obs, ok := c.GetPrice("ethbtc")
	require.True(t, ok)
	assert.Equal(t, "0.0227723", obs.Price.String())
	assert.Equal(t, int64(946684800), obs.Timestamp.Unix())
}

func TestRedisUnavailable(t *testing.T) {
	c, srv := newTestRedis(t)
	srv.Close()

	c.PutInstruments([]model.Instrument{btcusd})
	c.PutPrice("btcusd", decimal.NewFromInt(1), time.Unix(1, 0))

	_, ok := c.GetInstrument("btcusd")
	assert.False(t, ok)
	_, ok = c.GetPrice("btcusd")
	assert.False(t, ok)
}
