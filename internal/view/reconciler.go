package view

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/feedsim/internal/domain"
)

// Config holds the viewer-side capacities and cadences.
type Config struct {
	// SeriesCapacity bounds the local candle series.
	SeriesCapacity int

	// TradeLogCapacity bounds the rendered trade log.
	TradeLogCapacity int

	// FlushInterval is the display-refresh cadence; queued trade prints are
	// drained into the log at most once per interval.
	FlushInterval time.Duration
}

// Stats is a point-in-time view of the reconciler's counters.
type Stats struct {
	PrintsPerSecond int64
	TotalPrints     int64
	SeriesLen       int
	TradeLogLen     int
	LatestClose     float64
}

// Reconciler maintains one coherent, display-ready projection from the feed's
// message streams: the candle series, the order-book working set, and the
// trade log. Inbound handlers may be called from the socket goroutine while
// the refresh loop flushes; a mutex serializes all state access.
type Reconciler struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	series   *Series
	book     []domain.BookLevel
	log      *TradeLog
	pending  []domain.TradePrint
	flushSet bool
	seeded   bool

	counter RateCounter
}

// NewReconciler creates a Reconciler with empty state.
func NewReconciler(cfg Config, logger *slog.Logger) *Reconciler {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 16 * time.Millisecond
	}
	return &Reconciler{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "reconciler")),
		series: NewSeries(cfg.SeriesCapacity),
		log:    NewTradeLog(cfg.TradeLogCapacity),
	}
}

// OnSnapshot ingests the initial history sent on connect. It merges rather
// than replaces, so a reconnect snapshot folds into whatever survived.
func (r *Reconciler) OnSnapshot(candles []domain.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series.Merge(candles)
	r.seeded = true
}

// OnHistoryPage ingests a paginated history response using the same merge
// rule as the snapshot; re-delivered pages are idempotent.
func (r *Reconciler) OnHistoryPage(candles []domain.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.seeded {
		// A page can arrive before the snapshot on a slow connect; merging
		// is still safe, just worth a trace.
		r.logger.Debug("history page before snapshot")
	}
	r.series.Merge(candles)
}

// OnCandle ingests a single live candle update.
func (r *Reconciler) OnCandle(c domain.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series.Apply(c)
}

// OnBook replaces the order-book working set wholesale. No historical book
// state is retained.
func (r *Reconciler) OnBook(levels []domain.BookLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.book = levels
}

// OnTrades queues an inbound print batch for the next flush and counts the
// items immediately. If a flush is already scheduled the batch just extends
// the pending queue; it never schedules a second flush.
func (r *Reconciler) OnTrades(prints []domain.TradePrint) {
	if len(prints) == 0 {
		return
	}
	r.counter.Add(len(prints))

	r.mu.Lock()
	r.pending = append(r.pending, prints...)
	r.flushSet = true
	r.mu.Unlock()
}

// Flush drains the entire pending queue into the trade log in arrival order
// and clears the scheduled flag. It returns the number of prints applied;
// zero means no flush was due.
func (r *Reconciler) Flush() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.flushSet {
		return 0
	}
	n := len(r.pending)
	r.log.Append(r.pending)
	r.pending = r.pending[:0]
	r.flushSet = false
	return n
}

// Run drives the display-refresh loop: one flush opportunity per interval
// and a once-per-second throughput rollover. It returns when ctx is
// cancelled, after cancelling any pending flush.
func (r *Reconciler) Run(ctx context.Context) error {
	refresh := time.NewTicker(r.cfg.FlushInterval)
	second := time.NewTicker(time.Second)
	defer refresh.Stop()
	defer second.Stop()

	for {
		select {
		case <-ctx.Done():
			// Drop whatever was queued; the session is over.
			r.mu.Lock()
			r.pending = nil
			r.flushSet = false
			r.mu.Unlock()
			return ctx.Err()

		case <-refresh.C:
			r.Flush()

		case <-second.C:
			rate := r.counter.Rollover()
			stats := r.Stats()
			r.logger.Info("throughput",
				slog.Int64("prints_per_second", rate),
				slog.Int64("total_prints", stats.TotalPrints),
				slog.Float64("latest_close", stats.LatestClose),
				slog.Int("series_len", stats.SeriesLen),
			)
		}
	}
}

// Series returns a copy of the local candle series, oldest first.
func (r *Reconciler) Series() []domain.Candle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.series.Candles()
}

// Book returns the current order-book working set.
func (r *Reconciler) Book() []domain.BookLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.BookLevel, len(r.book))
	copy(out, r.book)
	return out
}

// TradeLog returns the rendered prints, newest first.
func (r *Reconciler) TradeLog() []domain.TradePrint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.log.Newest()
}

// Stats reports the reconciler's current counters.
func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		PrintsPerSecond: r.counter.Rate(),
		TotalPrints:     r.counter.Total(),
		SeriesLen:       r.series.Len(),
		TradeLogLen:     r.log.Len(),
	}
	if latest, ok := r.series.Latest(); ok {
		s.LatestClose = latest.Close
	}
	return s
}
