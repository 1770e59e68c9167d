package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// SessionCounter reports the number of live streaming sessions. Declared
// locally so the handler package does not depend on the ws package.
type SessionCounter interface {
	SessionCount() int
}

// RingLener reports how many candles the house feed currently retains.
type RingLener interface {
	StoreLen() int
}

// StatsHandler serves runtime counters for dashboards and smoke tests.
type StatsHandler struct {
	sessions  SessionCounter
	house     RingLener
	startedAt time.Time
	logger    *slog.Logger
}

// NewStatsHandler creates a StatsHandler. startedAt anchors the uptime field.
func NewStatsHandler(sessions SessionCounter, house RingLener, startedAt time.Time, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		sessions:  sessions,
		house:     house,
		startedAt: startedAt,
		logger:    logger,
	}
}

// GetStats returns session count, house-feed retention, and uptime.
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	uptime := int64(time.Since(h.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":       h.sessions.SessionCount(),
		"house_candles":  h.house.StoreLen(),
		"uptime_seconds": uptime,
	})
}
