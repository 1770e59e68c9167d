// Package view implements the viewer side of the feed: merging snapshot,
// incremental, and paginated history messages into one bounded,
// time-ordered local series, plus the rolling trade log and its
// refresh-aligned flush machinery.
package view

import (
	"sort"

	"github.com/alanyoungcy/feedsim/internal/domain"
)

// Series is a viewer-local ordered set of candles keyed by time: sorted
// ascending, deduplicated, and capacity-bounded. It is maintained
// independently of any server-side store and reconciled purely from
// received messages. Not safe for concurrent use; the Reconciler serializes
// access.
type Series struct {
	capacity int
	candles  []domain.Candle
}

// NewSeries creates an empty Series bounded to capacity entries.
func NewSeries(capacity int) *Series {
	if capacity < 1 {
		capacity = 1
	}
	return &Series{capacity: capacity}
}

// Merge folds an incoming batch into the series: concatenate, stable-sort by
// time, deduplicate. On duplicate timestamps the incoming value wins — a
// repeated time represents a refresh of that bucket, not a conflict.
// Merging the same batch twice is a no-op the second time.
func (s *Series) Merge(batch []domain.Candle) {
	if len(batch) == 0 {
		return
	}

	merged := make([]domain.Candle, 0, len(s.candles)+len(batch))
	merged = append(merged, s.candles...)
	merged = append(merged, batch...)

	// Stable sort keeps incoming entries after existing ones for equal
	// times, so keeping the last occurrence per time is newest-wins.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Time < merged[j].Time
	})

	deduped := merged[:0]
	for _, c := range merged {
		if n := len(deduped); n > 0 && deduped[n-1].Time == c.Time {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}

	s.candles = deduped
	s.trim()
}

// Apply ingests a single live candle. When its time is at or past the
// current maximum (the expected case for live ticks) it appends or
// overwrites in place; an out-of-order candle falls back to a full merge.
func (s *Series) Apply(c domain.Candle) {
	n := len(s.candles)
	switch {
	case n == 0 || c.Time > s.candles[n-1].Time:
		s.candles = append(s.candles, c)
		s.trim()
	case c.Time == s.candles[n-1].Time:
		s.candles[n-1] = c
	default:
		s.Merge([]domain.Candle{c})
	}
}

// Candles returns a copy of the series, oldest first.
func (s *Series) Candles() []domain.Candle {
	out := make([]domain.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Latest returns the most recent candle, if any.
func (s *Series) Latest() (domain.Candle, bool) {
	if len(s.candles) == 0 {
		return domain.Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Len returns the number of candles held.
func (s *Series) Len() int {
	return len(s.candles)
}

// trim drops the oldest entries when over capacity; the most recent data is
// what the viewer renders.
func (s *Series) trim() {
	if over := len(s.candles) - s.capacity; over > 0 {
		s.candles = append(s.candles[:0], s.candles[over:]...)
	}
}
