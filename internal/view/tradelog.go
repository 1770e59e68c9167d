package view

import (
	"sort"

	"github.com/alanyoungcy/feedsim/internal/domain"
)

// TradeLog is the rendered, bounded sequence of trade prints: newest
// appended, oldest trimmed. Display order is newest first. Not safe for
// concurrent use; the Reconciler serializes access.
type TradeLog struct {
	capacity int
	prints   []domain.TradePrint
}

// NewTradeLog creates an empty TradeLog bounded to capacity prints.
func NewTradeLog(capacity int) *TradeLog {
	if capacity < 1 {
		capacity = 1
	}
	return &TradeLog{capacity: capacity}
}

// Append adds a flushed batch in arrival order and trims the oldest entries
// beyond capacity.
func (l *TradeLog) Append(batch []domain.TradePrint) {
	l.prints = append(l.prints, batch...)
	if over := len(l.prints) - l.capacity; over > 0 {
		l.prints = append(l.prints[:0], l.prints[over:]...)
	}
}

// Newest returns the retained prints sorted by timestamp descending, the
// order the viewer renders them in.
func (l *TradeLog) Newest() []domain.TradePrint {
	out := make([]domain.TradePrint, len(l.prints))
	copy(out, l.prints)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

// Len returns the number of retained prints.
func (l *TradeLog) Len() int {
	return len(l.prints)
}
