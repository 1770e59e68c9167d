package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedsim/internal/domain"
)

// fakeHistory serves a fixed ascending series of minute candles.
type fakeHistory struct {
	candles []domain.Candle
}

func newFakeHistory(n int) *fakeHistory {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{
			Time:  base + int64(i)*60_000,
			Open:  100 + float64(i),
			Close: 101 + float64(i),
			High:  102 + float64(i),
			Low:   99 + float64(i),
		}
	}
	return &fakeHistory{candles: out}
}

func (f *fakeHistory) Recent(limit int) []domain.Candle {
	if limit > len(f.candles) {
		limit = len(f.candles)
	}
	return f.candles[len(f.candles)-limit:]
}

func (f *fakeHistory) RecentBefore(limit int, before int64) []domain.Candle {
	end := len(f.candles)
	for end > 0 && f.candles[end-1].Time >= before {
		end--
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return f.candles[start:end]
}

func getHistory(t *testing.T, h *HistoryHandler, target string) []domain.Candle {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.GetHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var got []domain.Candle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got
}

func TestHistoryHandler_DefaultLimit(t *testing.T) {
	hist := newFakeHistory(120)
	h := NewHistoryHandler(hist, 60, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got := getHistory(t, h, "/api/historical-data")
	assert.Len(t, got, 60)
	assert.Equal(t, hist.candles[60:], got)
}

func TestHistoryHandler_ExplicitLimit(t *testing.T) {
	hist := newFakeHistory(120)
	h := NewHistoryHandler(hist, 60, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got := getHistory(t, h, "/api/historical-data?limit=10")
	assert.Len(t, got, 10)
	assert.Equal(t, hist.candles[110:], got)
}

func TestHistoryHandler_MalformedLimitClamps(t *testing.T) {
	hist := newFakeHistory(120)
	h := NewHistoryHandler(hist, 60, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for _, target := range []string{
		"/api/historical-data?limit=oops",
		"/api/historical-data?limit=-3",
		"/api/historical-data?limit=0",
	} {
		got := getHistory(t, h, target)
		assert.Len(t, got, 60, "target %s", target)
	}
}

func TestHistoryHandler_BeforeCursor(t *testing.T) {
	hist := newFakeHistory(120)
	h := NewHistoryHandler(hist, 60, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cursor := hist.candles[100].Time
	got := getHistory(t, h, "/api/historical-data?limit=20&before="+strconv.FormatInt(cursor, 10))

	require.Len(t, got, 20)
	for _, c := range got {
		assert.Less(t, c.Time, cursor)
	}
	assert.Equal(t, hist.candles[80:100], got)
}
