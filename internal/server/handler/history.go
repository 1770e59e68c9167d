package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/feedsim/internal/domain"
)

// HistoryHandler serves paginated candle history for non-streaming consumers.
// It reads from the process-wide house feed; per-connection ring stores are
// private to their WebSocket sessions.
type HistoryHandler struct {
	history      domain.HistoryProvider
	defaultLimit int
	logger       *slog.Logger
}

// NewHistoryHandler creates a HistoryHandler over the given provider. A
// non-positive defaultLimit falls back to 60.
func NewHistoryHandler(history domain.HistoryProvider, defaultLimit int, logger *slog.Logger) *HistoryHandler {
	if defaultLimit <= 0 {
		defaultLimit = 60
	}
	return &HistoryHandler{
		history:      history,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
}

// GetHistory returns the most recent candles as a JSON array. Non-positive
// or malformed limits clamp to the default; an optional before cursor
// (epoch ms) pages further back.
// GET /api/historical-data?limit=60&before=1700000000000
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", h.defaultLimit)
	if limit <= 0 {
		limit = h.defaultLimit
	}

	before := queryInt64(r, "before", 0)

	var candles []domain.Candle
	if before > 0 {
		candles = h.history.RecentBefore(limit, before)
	} else {
		candles = h.history.Recent(limit)
	}

	writeJSON(w, http.StatusOK, candles)
}
