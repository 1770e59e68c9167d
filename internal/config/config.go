// Package config defines the top-level configuration for the feed simulator
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FEEDSIM_* environment
// variables.
type Config struct {
	Server   ServerConfig `toml:"server"`
	Feed     FeedConfig   `toml:"feed"`
	Client   ClientConfig `toml:"client"`
	Redis    RedisConfig  `toml:"redis"`
	Mode     string       `toml:"mode"`
	LogLevel string       `toml:"log_level"`
}

// ServerConfig holds the HTTP + WebSocket listener parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// FeedConfig holds the synthetic feed parameters shared by every session.
type FeedConfig struct {
	// BufferCapacity bounds each session's candle ring store.
	BufferCapacity int `toml:"buffer_capacity"`

	// InitialPrice seeds the reference price of every new generator.
	InitialPrice float64 `toml:"initial_price"`

	// SeedCandles is the number of one-minute candles generated into the
	// ring when a session starts, so viewers get immediate history.
	SeedCandles int `toml:"seed_candles"`

	// Emission cadences, in milliseconds.
	CandleIntervalMs int `toml:"candle_interval_ms"`
	BookIntervalMs   int `toml:"book_interval_ms"`
	TradeIntervalMs  int `toml:"trade_interval_ms"`

	// TradeBatch is the number of prints emitted per trade tick.
	TradeBatch int `toml:"trade_batch"`

	// HistoryPageLimit is the default (and clamp target) for history pages
	// on both the WS request channel and the HTTP endpoint.
	HistoryPageLimit int `toml:"history_page_limit"`
}

// ClientConfig holds viewer-mode parameters.
type ClientConfig struct {
	// ServerURL is the WebSocket endpoint the viewer dials.
	ServerURL string `toml:"server_url"`

	// SeriesCapacity bounds the viewer's local candle series.
	SeriesCapacity int `toml:"series_capacity"`

	// TradeLogCapacity bounds the rolling trade-print log after each flush.
	TradeLogCapacity int `toml:"trade_log_capacity"`

	// FlushIntervalMs is the display-refresh cadence: queued trade prints
	// are drained into the log at most once per interval.
	FlushIntervalMs int `toml:"flush_interval_ms"`
}

// RedisConfig holds the optional feed-mirror bus parameters. An empty Addr
// disables the mirror entirely.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// CandleInterval returns the candle emission cadence as a duration.
func (f FeedConfig) CandleInterval() time.Duration {
	return time.Duration(f.CandleIntervalMs) * time.Millisecond
}

// BookInterval returns the order-book emission cadence as a duration.
func (f FeedConfig) BookInterval() time.Duration {
	return time.Duration(f.BookIntervalMs) * time.Millisecond
}

// TradeInterval returns the trade-print emission cadence as a duration.
func (f FeedConfig) TradeInterval() time.Duration {
	return time.Duration(f.TradeIntervalMs) * time.Millisecond
}

// FlushInterval returns the viewer flush cadence as a duration.
func (c ClientConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        3001,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Feed: FeedConfig{
			BufferCapacity:   1000,
			InitialPrice:     10000.00,
			SeedCandles:      60,
			CandleIntervalMs: 100,
			BookIntervalMs:   100,
			TradeIntervalMs:  200,
			TradeBatch:       1,
			HistoryPageLimit: 60,
		},
		Client: ClientConfig{
			ServerURL:        "ws://localhost:3001/ws",
			SeriesCapacity:   1000,
			TradeLogCapacity: 100,
			FlushIntervalMs:  16,
		},
		Redis: RedisConfig{
			Addr:       "",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true,
	"view":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, view)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if c.Feed.BufferCapacity < 1 {
		errs = append(errs, "feed: buffer_capacity must be >= 1")
	}
	if c.Feed.InitialPrice <= 0 {
		errs = append(errs, "feed: initial_price must be positive")
	}
	if c.Feed.SeedCandles < 0 {
		errs = append(errs, "feed: seed_candles must be >= 0")
	}
	if c.Feed.SeedCandles > c.Feed.BufferCapacity {
		errs = append(errs, "feed: seed_candles must not exceed buffer_capacity")
	}
	if c.Feed.CandleIntervalMs < 1 || c.Feed.BookIntervalMs < 1 || c.Feed.TradeIntervalMs < 1 {
		errs = append(errs, "feed: emission intervals must be >= 1ms")
	}
	if c.Feed.TradeBatch < 1 {
		errs = append(errs, "feed: trade_batch must be >= 1")
	}
	if c.Feed.HistoryPageLimit < 1 {
		errs = append(errs, "feed: history_page_limit must be >= 1")
	}

	if strings.ToLower(c.Mode) == "view" {
		if strings.TrimSpace(c.Client.ServerURL) == "" {
			errs = append(errs, "client: server_url must be set for view mode")
		}
	}
	if c.Client.SeriesCapacity < 1 {
		errs = append(errs, "client: series_capacity must be >= 1")
	}
	if c.Client.TradeLogCapacity < 1 {
		errs = append(errs, "client: trade_log_capacity must be >= 1")
	}
	if c.Client.FlushIntervalMs < 1 {
		errs = append(errs, "client: flush_interval_ms must be >= 1")
	}

	if c.Redis.Addr != "" {
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.MaxRetries < 0 {
			errs = append(errs, "redis: max_retries must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
