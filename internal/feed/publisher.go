// Package feed implements the per-connection market data publisher: a
// generator-driven emission loop that seeds a viewer with recent history and
// then streams candles, order-book snapshots, and trade prints on independent
// cadences.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/feedsim/internal/domain"
	"github.com/alanyoungcy/feedsim/internal/gen"
	"github.com/alanyoungcy/feedsim/internal/ring"
)

// Sink receives emitted messages. Delivery is fire-and-forget: a Sink must
// never block and has no way to report failure back into the emission loop.
type Sink interface {
	Send(channel string, payload any)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(channel string, payload any)

// Send calls f.
func (f SinkFunc) Send(channel string, payload any) { f(channel, payload) }

// Config holds the per-publisher feed parameters.
type Config struct {
	BufferCapacity   int
	InitialPrice     float64
	SeedCandles      int
	CandleInterval   time.Duration
	BookInterval     time.Duration
	TradeInterval    time.Duration
	TradeBatch       int
	HistoryPageLimit int
}

// Publisher owns one connection's generator state and ring store and drives
// the three emission cadences from a single goroutine, so the emitters never
// run concurrently with each other within one connection. Multiple
// publishers interleave arbitrarily.
type Publisher struct {
	cfg      Config
	gen      *gen.Generator
	store    *ring.Store[domain.Candle]
	sink     Sink
	logger   *slog.Logger
	requests chan domain.HistoryRequest

	stopOnce sync.Once
	done     chan struct{}
}

// NewPublisher creates a Publisher with its own generator and empty ring
// store. Nothing is emitted until Run is called.
func NewPublisher(cfg Config, sink Sink, logger *slog.Logger) *Publisher {
	if cfg.HistoryPageLimit <= 0 {
		cfg.HistoryPageLimit = 60
	}
	if cfg.TradeBatch <= 0 {
		cfg.TradeBatch = 1
	}
	return &Publisher{
		cfg:      cfg,
		gen:      gen.New(cfg.InitialPrice),
		store:    ring.New[domain.Candle](cfg.BufferCapacity),
		sink:     sink,
		logger:   logger.With(slog.String("component", "publisher")),
		requests: make(chan domain.HistoryRequest, 8),
		done:     make(chan struct{}),
	}
}

// newPublisherWithGen is used by tests to inject a seeded generator.
func newPublisherWithGen(cfg Config, g *gen.Generator, sink Sink, logger *slog.Logger) *Publisher {
	p := NewPublisher(cfg, sink, logger)
	p.gen = g
	return p
}

// Run seeds the ring store, emits the connect snapshot, and then services the
// three emission tickers and inbound history requests until ctx is cancelled
// or Stop is called. It always returns nil after a clean teardown; there are
// no fatal errors in the emission path.
func (p *Publisher) Run(ctx context.Context) error {
	p.seed(time.Now())

	// Connect snapshot: recent history plus a fresh book.
	p.sink.Send(ChanHistorical, p.Recent(p.cfg.HistoryPageLimit))
	p.sink.Send(ChanBookSnapshot, p.gen.BookLevels())

	candleTick := time.NewTicker(p.cfg.CandleInterval)
	bookTick := time.NewTicker(p.cfg.BookInterval)
	tradeTick := time.NewTicker(p.cfg.TradeInterval)
	defer candleTick.Stop()
	defer bookTick.Stop()
	defer tradeTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.done:
			return nil

		case <-candleTick.C:
			c := p.gen.NextCandle(time.Now().UnixMilli())
			p.store.Push(c)
			p.sink.Send(ChanCandleUpdate, c)

		case <-bookTick.C:
			p.sink.Send(ChanBookUpdate, p.gen.BookLevels())

		case <-tradeTick.C:
			p.sink.Send(ChanTrades, p.gen.TradePrints(p.cfg.TradeBatch))

		case req := <-p.requests:
			p.sink.Send(ChanHistoryReply, p.page(req))
		}
	}
}

// Stop cancels the emission loop. Safe to call multiple times and from any
// goroutine; after the first call no further emission occurs.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() { close(p.done) })
}

// Request enqueues an inbound history request for the emission loop to
// answer. If the request buffer is full the request is dropped; the viewer
// can simply ask again.
func (p *Publisher) Request(req domain.HistoryRequest) {
	select {
	case p.requests <- req:
	default:
		p.logger.Warn("history request dropped, queue full",
			slog.Int("limit", req.Limit),
		)
	}
}

// Recent returns the most recent limit candles, oldest first. A non-positive
// limit clamps to the configured page limit.
func (p *Publisher) Recent(limit int) []domain.Candle {
	if limit <= 0 {
		limit = p.cfg.HistoryPageLimit
	}
	return p.store.Latest(limit)
}

// RecentBefore returns the most recent limit candles strictly older than the
// before timestamp (epoch ms), oldest first. A zero before behaves like
// Recent.
func (p *Publisher) RecentBefore(limit int, before int64) []domain.Candle {
	if before <= 0 {
		return p.Recent(limit)
	}
	if limit <= 0 {
		limit = p.cfg.HistoryPageLimit
	}

	all := p.store.All()
	// Entries are in insertion order; find the cut point for the page.
	end := len(all)
	for end > 0 && all[end-1].Time >= before {
		end--
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return all[start:end]
}

// page answers one history request under the pagination contract: clamp the
// limit, honor the before cursor when present.
func (p *Publisher) page(req domain.HistoryRequest) []domain.Candle {
	if req.Before > 0 {
		return p.RecentBefore(req.Limit, req.Before)
	}
	return p.Recent(req.Limit)
}

// StoreLen reports how many candles the ring currently holds.
func (p *Publisher) StoreLen() int {
	return p.store.Len()
}

// seed fills the ring with one-minute candles ending at now so a fresh
// viewer has a full page of history the moment it connects.
func (p *Publisher) seed(now time.Time) {
	p.store.Clear()

	ts := now.Add(-time.Duration(p.cfg.SeedCandles) * time.Minute).UnixMilli()
	for i := 0; i < p.cfg.SeedCandles; i++ {
		ts += time.Minute.Milliseconds()
		p.store.Push(p.gen.NextCandle(ts))
	}
}

// Compile-time interface check.
var _ domain.HistoryProvider = (*Publisher)(nil)
