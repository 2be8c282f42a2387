package ops

import (
	"os"
	"strings"
	"time"

	"tickerfeed/internal/model"
	"tickerfeed/pkg/exception"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const EnvPrefix = "PRICEFEED"

const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the resolved runtime configuration.
type Config struct {
	LogLevel string
	HTTPAddr string
	Tickers  model.TickerSet
	Feed     FeedConfig
	Catalog  CatalogConfig
	Cache    CacheConfig
	Redis    RedisConfig
	Profiler ProfilerConfig
}

type FeedConfig struct {
	URL               string
	ChannelPrefix     string
	SubscribeEvent    string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HandshakeTimeout  time.Duration
	PingInterval      time.Duration
	IdleTimeout       time.Duration
}

type CatalogConfig struct {
	URL     string
	Timeout time.Duration
}

type CacheConfig struct {
	Backend string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type ProfilerConfig struct {
	Enabled bool
	Server  string
	App     string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":8080")

	v.SetDefault("feed.url", "wss://ws.bitstamp.net")
	v.SetDefault("feed.channel_prefix", "live_trades_")
	v.SetDefault("feed.subscribe_event", "bts:subscribe")
	v.SetDefault("feed.reconnect_delay", 5*time.Second)
	v.SetDefault("feed.max_reconnect_delay", time.Duration(0))
	v.SetDefault("feed.handshake_timeout", 10*time.Second)
	v.SetDefault("feed.ping_interval", 15*time.Second)
	v.SetDefault("feed.idle_timeout", 60*time.Second)

	v.SetDefault("catalog.url", "https://www.bitstamp.net/api/v2/markets/")
	v.SetDefault("catalog.timeout", 15*time.Second)

	v.SetDefault("tickers", "btcusd,ethusd,ethbtc,xrpusd")

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "pricefeed")

	v.SetDefault("profiler.enabled", false)
	v.SetDefault("profiler.server", "http://localhost:4040")
	v.SetDefault("profiler.app", "pricefeed")
}

// Load resolves configuration from defaults, an optional file, a .env file
// and PRICEFEED_ prefixed environment variables, in increasing priority.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logs.Warnf("load .env, err: %+v", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "read config file").With("path", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{
		LogLevel: strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
		HTTPAddr: v.GetString("http.addr"),
		Tickers:  model.NewTickerSet(tickerList(v)...),
		Feed: FeedConfig{
			URL:               strings.TrimSpace(v.GetString("feed.url")),
			ChannelPrefix:     v.GetString("feed.channel_prefix"),
			SubscribeEvent:    v.GetString("feed.subscribe_event"),
			ReconnectDelay:    v.GetDuration("feed.reconnect_delay"),
			MaxReconnectDelay: v.GetDuration("feed.max_reconnect_delay"),
			HandshakeTimeout:  v.GetDuration("feed.handshake_timeout"),
			PingInterval:      v.GetDuration("feed.ping_interval"),
			IdleTimeout:       v.GetDuration("feed.idle_timeout"),
		},
		Catalog: CatalogConfig{
			URL:     strings.TrimSpace(v.GetString("catalog.url")),
			Timeout: v.GetDuration("catalog.timeout"),
		},
		Cache: CacheConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("cache.backend"))),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			Prefix:   v.GetString("redis.prefix"),
		},
		Profiler: ProfilerConfig{
			Enabled: v.GetBool("profiler.enabled"),
			Server:  v.GetString("profiler.server"),
			App:     v.GetString("profiler.app"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (cfg Config) Validate() error {
	if cfg.Feed.URL == "" {
		return errors.Wrap(exception.ErrConfigInvalid, "empty feed url").With("key", "feed.url")
	}
	if cfg.Catalog.URL == "" {
		return errors.Wrap(exception.ErrConfigInvalid, "empty catalog url").With("key", "catalog.url")
	}
	if cfg.Feed.ReconnectDelay <= 0 {
		return errors.Wrap(exception.ErrConfigInvalid, "non-positive reconnect delay").
			With("key", "feed.reconnect_delay").
			With("value", cfg.Feed.ReconnectDelay)
	}
	if cfg.Feed.IdleTimeout > 0 && cfg.Feed.PingInterval >= cfg.Feed.IdleTimeout {
		return errors.Wrap(exception.ErrConfigInvalid, "ping interval not below idle timeout").
			With("key", "feed.ping_interval").
			With("value", cfg.Feed.PingInterval)
	}
	if len(cfg.Tickers) == 0 {
		return errors.Wrap(exception.ErrConfigEmptyTickers, "validate").With("key", "tickers")
	}
	switch cfg.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return errors.Wrap(exception.ErrConfigUnknownCache, "validate").With("backend", cfg.Cache.Backend)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a logs level.
func ParseLevel(level string) (logs.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logs.LevelDebug, nil
	case "", "info":
		return logs.LevelInfo, nil
	case "warn", "warning":
		return logs.LevelWarn, nil
	case "error":
		return logs.LevelError, nil
	default:
		return logs.LevelInfo, errors.Wrap(exception.ErrConfigUnknownLevel, "parse level").With("level", level)
	}
}

// tickerList accepts a list in a config file or a comma separated string.
func tickerList(v *viper.Viper) []string {
	switch raw := v.Get("tickers").(type) {
	case []any:
		return v.GetStringSlice("tickers")
	case []string:
		return raw
	default:
		return splitList(v.GetString("tickers"))
	}
}

func splitList(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	return parts
}
