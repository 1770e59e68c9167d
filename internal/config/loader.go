package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FEEDSIM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			// A missing file is fine; defaults plus env are a complete
			// configuration for this service.
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FEEDSIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty).
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "FEEDSIM_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // compatibility alias
	setStringSlice(&cfg.Server.CORSOrigins, "FEEDSIM_SERVER_CORS_ORIGINS")

	// ── Feed ──
	setInt(&cfg.Feed.BufferCapacity, "FEEDSIM_FEED_BUFFER_CAPACITY")
	setFloat64(&cfg.Feed.InitialPrice, "FEEDSIM_FEED_INITIAL_PRICE")
	setInt(&cfg.Feed.SeedCandles, "FEEDSIM_FEED_SEED_CANDLES")
	setInt(&cfg.Feed.CandleIntervalMs, "FEEDSIM_FEED_CANDLE_INTERVAL_MS")
	setInt(&cfg.Feed.BookIntervalMs, "FEEDSIM_FEED_BOOK_INTERVAL_MS")
	setInt(&cfg.Feed.TradeIntervalMs, "FEEDSIM_FEED_TRADE_INTERVAL_MS")
	setInt(&cfg.Feed.TradeBatch, "FEEDSIM_FEED_TRADE_BATCH")
	setInt(&cfg.Feed.HistoryPageLimit, "FEEDSIM_FEED_HISTORY_PAGE_LIMIT")

	// ── Client ──
	setStr(&cfg.Client.ServerURL, "FEEDSIM_CLIENT_SERVER_URL")
	setInt(&cfg.Client.SeriesCapacity, "FEEDSIM_CLIENT_SERIES_CAPACITY")
	setInt(&cfg.Client.TradeLogCapacity, "FEEDSIM_CLIENT_TRADE_LOG_CAPACITY")
	setInt(&cfg.Client.FlushIntervalMs, "FEEDSIM_CLIENT_FLUSH_INTERVAL_MS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FEEDSIM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FEEDSIM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FEEDSIM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FEEDSIM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FEEDSIM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FEEDSIM_REDIS_TLS_ENABLED")

	// ── Top-level ──
	setStr(&cfg.Mode, "FEEDSIM_MODE")
	setStr(&cfg.LogLevel, "FEEDSIM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				cleaned = append(cleaned, t)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
