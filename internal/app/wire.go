package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	busredis "github.com/alanyoungcy/feedsim/internal/bus/redis"
	"github.com/alanyoungcy/feedsim/internal/config"
	"github.com/alanyoungcy/feedsim/internal/domain"
	"github.com/alanyoungcy/feedsim/internal/feed"
	"github.com/alanyoungcy/feedsim/internal/server/ws"
)

// Dependencies bundles everything serve mode needs. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	// HouseFeed is the process-wide feed session that backs the HTTP
	// pagination endpoint and, when Redis is configured, the mirror bus.
	// Per-connection WebSocket sessions get their own publishers from Hub.
	HouseFeed *feed.Publisher

	// Hub accepts WebSocket viewers.
	Hub *ws.Hub

	// Bus is the optional Redis mirror; nil when redis.addr is empty.
	Bus domain.FeedBus

	// StartedAt is the wire time, reported by the stats endpoint.
	StartedAt time.Time
}

// feedConfig translates the TOML feed section into the publisher's
// configuration.
func feedConfig(cfg config.FeedConfig) feed.Config {
	return feed.Config{
		BufferCapacity:   cfg.BufferCapacity,
		InitialPrice:     cfg.InitialPrice,
		SeedCandles:      cfg.SeedCandles,
		CandleInterval:   cfg.CandleInterval(),
		BookInterval:     cfg.BookInterval(),
		TradeInterval:    cfg.TradeInterval(),
		TradeBatch:       cfg.TradeBatch,
		HistoryPageLimit: cfg.HistoryPageLimit,
	}
}

// mirrorFrame is one encoded house-feed frame queued for the mirror bus.
type mirrorFrame struct {
	channel string
	data    []byte
}

// mirrorQueueSize bounds the frames waiting on the bus; beyond it frames
// are dropped, same discipline as a session's send buffer.
const mirrorQueueSize = 256

// mirrorSink returns a feed.Sink that encodes every house-feed frame and
// hands it to a publishing goroutine. The emission loop never waits on
// Redis: a full queue drops the frame, and publish failures only log. The
// goroutine exits when ctx is cancelled.
func mirrorSink(ctx context.Context, bus domain.FeedBus, logger *slog.Logger) feed.Sink {
	frames := make(chan mirrorFrame, mirrorQueueSize)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case f := <-frames:
				pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				err := bus.Publish(pubCtx, f.channel, f.data)
				cancel()
				if err != nil {
					logger.Warn("mirror publish failed",
						slog.String("channel", f.channel),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	}()

	return feed.SinkFunc(func(channel string, payload any) {
		data, err := feed.Encode(channel, payload)
		if err != nil {
			logger.Error("mirror encode failed",
				slog.String("channel", channel),
				slog.String("error", err.Error()),
			)
			return
		}
		select {
		case frames <- mirrorFrame{channel: channel, data: data}:
		default:
			logger.Warn("mirror frame dropped, queue full",
				slog.String("channel", channel),
			)
		}
	})
}

// discardSink swallows house-feed frames when no mirror is configured. The
// house feed still runs so the HTTP endpoint always has candles to page.
func discardSink() feed.Sink {
	return feed.SinkFunc(func(string, any) {})
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{StartedAt: time.Now().UTC()}

	fc := feedConfig(cfg.Feed)

	// --- Redis mirror (only when an address is configured) ---
	if cfg.Redis.Addr != "" {
		client, err := busredis.New(ctx, busredis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}

		bus := busredis.NewFeedBus(client, logger)
		closers = append(closers, func() { _ = bus.Close() })
		deps.Bus = bus
	}

	// --- House feed ---
	sink := discardSink()
	if deps.Bus != nil {
		sink = mirrorSink(ctx, deps.Bus, logger)
	}
	deps.HouseFeed = feed.NewPublisher(fc, sink, logger.With(slog.String("session", "house")))
	closers = append(closers, deps.HouseFeed.Stop)

	// --- WebSocket hub ---
	deps.Hub = ws.NewHub(fc, logger)

	return deps, cleanup, nil
}
