package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"

	"tickerfeed/internal/api"
	"tickerfeed/internal/cache"
	"tickerfeed/internal/catalog"
	"tickerfeed/internal/ingest"
	"tickerfeed/internal/obs"
	"tickerfeed/internal/ops"
	"tickerfeed/internal/query"
	"tickerfeed/pkg/websocket"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

func main() {
	if err := run(); err != nil {
		log.Printf("pricefeed: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "config file path (optional)")
	flag.Parse()

	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if err := setupLogger(cfg.LogLevel); err != nil {
		return err
	}

	if cfg.Profiler.Enabled {
		profiler, err := startProfiler(cfg.Profiler)
		if err != nil {
			return err
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		logs.Info("shutdown signal received")
		cancel()
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.server.Run(ctx); err != nil {
		return err
	}
	logs.Info("pricefeed stopped")
	return nil
}

func setupLogger(name string) error {
	level, err := ops.ParseLevel(name)
	if err != nil {
		return err
	}
	logs.SetDefault(logs.New(level))
	return nil
}

// app is the wired service: ingestion running into the cache and the HTTP
// front reading it.
type app struct {
	ingest     *ingest.Usecase
	router     http.Handler
	server     *api.Server
	closeCache func()
}

// newApp builds every component from cfg and starts ingestion. The HTTP
// server is created but not started.
func newApp(ctx context.Context, cfg ops.Config) (*app, error) {
	priceCache, closeCache, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metrics := obs.NewMetrics()
	source := catalog.NewService(catalog.NewClient(nil, cfg.Catalog.URL, cfg.Catalog.Timeout), cfg.Tickers)
	dialer := websocket.NewDialer(cfg.Feed.URL, websocket.DialerOption{
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		PingInterval:     cfg.Feed.PingInterval,
		IdleTimeout:      cfg.Feed.IdleTimeout,
	})

	use := ingest.NewUsecase(dialer, source, priceCache, cfg.Tickers, ingest.Option{
		ChannelPrefix:     cfg.Feed.ChannelPrefix,
		SubscribeEvent:    cfg.Feed.SubscribeEvent,
		ReconnectDelay:    cfg.Feed.ReconnectDelay,
		MaxReconnectDelay: cfg.Feed.MaxReconnectDelay,
		Metrics:           metrics,
	})
	if err := use.Start(ctx); err != nil {
		closeCache()
		return nil, errors.Wrap(err, "start ingestion")
	}

	handler := api.NewPriceHandler(query.NewService(priceCache), func() string {
		return use.State().String()
	}, metrics)
	router := api.NewRouter(handler)

	return &app{
		ingest:     use,
		router:     router,
		server:     api.NewServer(cfg.HTTPAddr, router),
		closeCache: closeCache,
	}, nil
}

func (a *app) close() {
	a.ingest.Stop()
	a.closeCache()
}

func newCache(ctx context.Context, cfg ops.Config) (cache.PriceCache, func(), error) {
	switch cfg.Cache.Backend {
	case ops.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errors.Wrap(err, "ping redis").With("addr", cfg.Redis.Addr)
		}
		logs.Infof("using redis cache at %s", cfg.Redis.Addr)
		return cache.NewRedis(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
	default:
		return cache.NewMemory(), func() {}, nil
	}
}

func startProfiler(cfg ops.ProfilerConfig) (*pyroscope.Profiler, error) {
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.App,
		ServerAddress:   cfg.Server,
		Logger:          profilerLogger{},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "start pyroscope").With("server", cfg.Server)
	}
	return profiler, nil
}

type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (profilerLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (profilerLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
