package cache

import (
	"context"
	"time"

	"tickerfeed/internal/model"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const defaultRedisTimeout = 500 * time.Millisecond

// Redis is a PriceCache shared through a redis server.
//
// Redis failures are logged and reported as absent values so the ingestion
// and query paths keep their non-failing contract.
type Redis struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewRedis wraps client. Keys are namespaced by prefix.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{
		client:  client,
		prefix:  prefix,
		timeout: defaultRedisTimeout,
	}
}

func (r *Redis) instrumentKey(symbol string) string {
	return r.prefix + ":instrument:" + symbol
}

func (r *Redis) priceKey(symbol string) string {
	return r.prefix + ":price:" + symbol
}

func (r *Redis) PutInstruments(instruments []model.Instrument) {
	if len(instruments) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, ins := range instruments {
			payload, err := sonic.ConfigStd.Marshal(ins)
			if err != nil {
				return errors.Wrap(err, "marshal instrument").With("symbol", ins.Symbol)
			}
			pipe.Set(ctx, r.instrumentKey(ins.Symbol), payload, 0)
		}
		return nil
	})
	if err != nil {
		logs.Errorf("redis put instruments, err: %+v", err)
	}
}

func (r *Redis) GetInstrument(symbol string) (model.Instrument, bool) {
	var ins model.Instrument
	if !r.get(r.instrumentKey(symbol), &ins) {
		return model.Instrument{}, false
	}
	return ins, true
}

func (r *Redis) PutPrice(symbol string, price decimal.Decimal, timestamp time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	payload, err := sonic.ConfigStd.Marshal(model.PriceObservation{
		Symbol:    symbol,
		Price:     price,
		Timestamp: timestamp,
	})
	if err != nil {
		logs.Errorf("marshal price observation %s, err: %+v", symbol, err)
		return
	}
	if err := r.client.Set(ctx, r.priceKey(symbol), payload, 0).Err(); err != nil {
		logs.Errorf("redis put price %s, err: %+v", symbol, err)
	}
}

func (r *Redis) GetPrice(symbol string) (model.PriceObservation, bool) {
	var obs model.PriceObservation
	if !r.get(r.priceKey(symbol), &obs) {
		return model.PriceObservation{}, false
	}
	return obs, true
}

func (r *Redis) get(key string, dst any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logs.Errorf("redis get %s, err: %+v", key, err)
		}
		return false
	}
	if err := sonic.ConfigStd.Unmarshal(payload, dst); err != nil {
		logs.Errorf("unmarshal %s, err: %+v", key, err)
		return false
	}
	return true
}
