package catalog

import (
	"context"
	"net/http"
	"testing"
	"time"

	"tickerfeed/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

type fetcherFunc func(ctx context.Context) ([]model.Instrument, error)

func (f fetcherFunc) Markets(ctx context.Context) ([]model.Instrument, error) {
	return f(ctx)
}

func TestServiceAvailableFilters(t *testing.T) {
	srv := newMarketsServer(t, http.StatusOK, marketsBody)
	svc := NewService(NewClient(srv.Client(), srv.URL+"/api/v2/markets/", time.Second), model.NewTickerSet("ethbtc", "btcusd", "xrpusd"))

	available := svc.Available(context.Background())
	require.Len(t, available, 2)
	assert.Equal(t, "btcusd", available[0].Symbol)
	assert.Equal(t, "ethbtc", available[1].Symbol)
}

func TestServiceAvailableEmptyOnFailure(t *testing.T) {
	svc := NewService(fetcherFunc(func(context.Context) ([]model.Instrument, error) {
		return nil, errors.New("boom")
	}), model.NewTickerSet("btcusd"))

	available := svc.Available(context.Background())
	assert.NotNil(t, available)
	assert.Empty(t, available)
}

func TestFilter(t *testing.T) {
	list := []model.Instrument{{Symbol: "xrpusd"}, {Symbol: "btcusd"}, {Symbol: "ltcusd"}}
	got := Filter(list, model.NewTickerSet("btcusd", "xrpusd"))
	assert.Equal(t, []model.Instrument{{Symbol: "xrpusd"}, {Symbol: "btcusd"}}, got)
	assert.Empty(t, Filter(list, model.NewTickerSet()))
	assert.Empty(t, Filter(nil, model.NewTickerSet("btcusd")))
}
