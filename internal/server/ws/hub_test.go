package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedsim/internal/domain"
	"github.com/alanyoungcy/feedsim/internal/feed"
)

// quietFeedConfig keeps the tickers effectively silent so tests only see the
// frames they cause.
func quietFeedConfig() feed.Config {
	return feed.Config{
		BufferCapacity:   1000,
		InitialPrice:     10000,
		SeedCandles:      60,
		CandleInterval:   time.Hour,
		BookInterval:     time.Hour,
		TradeInterval:    time.Hour,
		TradeBatch:       1,
		HistoryPageLimit: 60,
	}
}

func startHub(t *testing.T, cfg feed.Config) (*Hub, string, func()) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	return hub, url, func() {
		cancel()
		srv.Close()
	}
}

// readFrame reads one frame and decodes the envelope.
func readFrame(t *testing.T, conn *websocket.Conn) feed.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := feed.Decode(data)
	require.NoError(t, err)
	return env
}

func TestHandleWSSendsConnectSnapshot(t *testing.T) {
	_, url, stop := startHub(t, quietFeedConfig())
	defer stop()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	env := readFrame(t, conn)
	require.Equal(t, feed.ChanHistorical, env.Type)

	var candles []domain.Candle
	require.NoError(t, json.Unmarshal(env.Payload, &candles))
	assert.Len(t, candles, 60)
	for i := 1; i < len(candles); i++ {
		assert.Less(t, candles[i-1].Time, candles[i].Time)
	}

	env = readFrame(t, conn)
	require.Equal(t, feed.ChanBookSnapshot, env.Type)

	var levels []domain.BookLevel
	require.NoError(t, json.Unmarshal(env.Payload, &levels))
	assert.Len(t, levels, 20)
}

func TestHandleWSRepliesToHistoryRequest(t *testing.T) {
	_, url, stop := startHub(t, quietFeedConfig())
	defer stop()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Drain the connect snapshot.
	readFrame(t, conn)
	readFrame(t, conn)

	req, err := feed.Encode(feed.ChanHistoryRequest, domain.HistoryRequest{Limit: 10})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, req))

	env := readFrame(t, conn)
	require.Equal(t, feed.ChanHistoryReply, env.Type)

	var candles []domain.Candle
	require.NoError(t, json.Unmarshal(env.Payload, &candles))
	assert.Len(t, candles, 10)
}

func TestHandleWSIgnoresMalformedFrames(t *testing.T) {
	_, url, stop := startHub(t, quietFeedConfig())
	defer stop()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readFrame(t, conn)
	readFrame(t, conn)

	// Garbage must not kill the session.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	req, err := feed.Encode(feed.ChanHistoryRequest, domain.HistoryRequest{Limit: 5})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, req))

	env := readFrame(t, conn)
	assert.Equal(t, feed.ChanHistoryReply, env.Type)
}

func TestSessionCountTracksConnections(t *testing.T) {
	hub, url, stop := startHub(t, quietFeedConfig())
	defer stop()

	assert.Equal(t, 0, hub.SessionCount())

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return hub.SessionCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn2, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn2.Close()

	assert.Eventually(t, func() bool { return hub.SessionCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.SessionCount() == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestSessionsAreIndependent(t *testing.T) {
	_, url, stop := startHub(t, quietFeedConfig())
	defer stop()

	connA, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer connA.Close()
	connB, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer connB.Close()

	for _, conn := range []*websocket.Conn{connA, connB} {
		readFrame(t, conn)
		readFrame(t, conn)
	}

	// A history request on one session must not produce a frame on the other.
	req, err := feed.Encode(feed.ChanHistoryRequest, domain.HistoryRequest{Limit: 3})
	require.NoError(t, err)
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, req))

	env := readFrame(t, connA)
	assert.Equal(t, feed.ChanHistoryReply, env.Type)

	require.NoError(t, connB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "session B should stay silent")
}

func TestLiveUpdatesFlowAfterSnapshot(t *testing.T) {
	cfg := quietFeedConfig()
	cfg.CandleInterval = 5 * time.Millisecond
	cfg.BookInterval = 5 * time.Millisecond
	cfg.TradeInterval = 5 * time.Millisecond

	_, url, stop := startHub(t, cfg)
	defer stop()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readFrame(t, conn)
	readFrame(t, conn)

	seen := map[string]bool{}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && (!seen[feed.ChanCandleUpdate] || !seen[feed.ChanBookUpdate] || !seen[feed.ChanTrades]) {
		env := readFrame(t, conn)
		seen[env.Type] = true
	}

	assert.True(t, seen[feed.ChanCandleUpdate], "expected candlestick updates")
	assert.True(t, seen[feed.ChanBookUpdate], "expected book updates")
	assert.True(t, seen[feed.ChanTrades], "expected trade updates")
}
