package view

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/feedsim/internal/domain"
	"github.com/alanyoungcy/feedsim/internal/feed"
)

// reconnectDelay is the pause between dial attempts after a disconnect.
const reconnectDelay = 2 * time.Second

// Socket dials the feed server, decodes wire envelopes, and drives a
// Reconciler with each inbound message. It reconnects on disconnect until
// the context is cancelled or Close is called.
type Socket struct {
	url    string
	rec    *Reconciler
	logger *slog.Logger

	writeMu   sync.Mutex
	conn      *websocket.Conn
	closeOnce sync.Once
	done      chan struct{}
}

// NewSocket creates a Socket that feeds the given Reconciler.
func NewSocket(url string, rec *Reconciler, logger *slog.Logger) *Socket {
	return &Socket{
		url:    url,
		rec:    rec,
		logger: logger.With(slog.String("component", "socket")),
		done:   make(chan struct{}),
	}
}

// Run connects and dispatches messages until ctx is cancelled or Close is
// called. Reconnects with a fixed delay on disconnect; the reconciler's
// merge rules make the repeated connect snapshot harmless.
func (s *Socket) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		if err := s.runConnection(ctx); err == nil {
			return nil
		} else if ctx.Err() != nil {
			return ctx.Err()
		} else {
			s.logger.Warn("disconnected, reconnecting",
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// RequestHistory asks the server for a page of older candles. limit <= 0
// lets the server apply its default; before == 0 means "most recent".
func (s *Socket) RequestHistory(limit int, before int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.conn == nil {
		return domain.ErrWSDisconnect
	}

	data, err := feed.Encode(feed.ChanHistoryRequest, domain.HistoryRequest{
		Limit:  limit,
		Before: before,
	})
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close stops the socket. Safe to call multiple times.
func (s *Socket) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// runConnection dials once and reads until the connection drops or the
// context ends. Returns nil only on a deliberate shutdown.
func (s *Socket) runConnection(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
	defer func() {
		s.writeMu.Lock()
		s.conn = nil
		s.writeMu.Unlock()
	}()

	s.logger.Info("connected", slog.String("url", s.url))

	// Close the connection on shutdown so the blocked read returns
	// promptly.
	connDone := make(chan struct{})
	defer close(connDone)
	go func() {
		select {
		case <-s.done:
			conn.Close()
		case <-ctx.Done():
			conn.Close()
		case <-connDone:
		}
	}()

	for {
		select {
		case <-s.done:
			return nil
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			return err
		}
		s.dispatch(message)
	}
}

// dispatch routes one wire frame into the reconciler. Malformed frames and
// payloads degrade to a log line; the viewer keeps its last good state.
func (s *Socket) dispatch(message []byte) {
	env, err := feed.Decode(message)
	if err != nil {
		s.logger.Debug("ignoring malformed frame", slog.String("error", err.Error()))
		return
	}

	switch env.Type {
	case feed.ChanHistorical:
		var candles []domain.Candle
		if err := json.Unmarshal(env.Payload, &candles); err != nil {
			s.logPayloadErr(env.Type, err)
			return
		}
		s.rec.OnSnapshot(candles)
		s.backfill(candles)

	case feed.ChanHistoryReply:
		var candles []domain.Candle
		if err := json.Unmarshal(env.Payload, &candles); err != nil {
			s.logPayloadErr(env.Type, err)
			return
		}
		s.rec.OnHistoryPage(candles)

	case feed.ChanCandleUpdate:
		var c domain.Candle
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			s.logPayloadErr(env.Type, err)
			return
		}
		s.rec.OnCandle(c)

	case feed.ChanBookSnapshot, feed.ChanBookUpdate:
		var levels []domain.BookLevel
		if err := json.Unmarshal(env.Payload, &levels); err != nil {
			s.logPayloadErr(env.Type, err)
			return
		}
		s.rec.OnBook(levels)

	case feed.ChanTrades:
		var prints []domain.TradePrint
		if err := json.Unmarshal(env.Payload, &prints); err != nil {
			s.logPayloadErr(env.Type, err)
			return
		}
		s.rec.OnTrades(prints)

	default:
		s.logger.Debug("ignoring unknown channel", slog.String("channel", env.Type))
	}
}

// backfill requests one page of candles older than the snapshot, using the
// oldest received time as the cursor. Runs once per connect; the merge rules
// make a repeat after reconnect harmless.
func (s *Socket) backfill(snapshot []domain.Candle) {
	if len(snapshot) == 0 {
		return
	}
	if err := s.RequestHistory(0, snapshot[0].Time); err != nil {
		s.logger.Debug("backfill request failed", slog.String("error", err.Error()))
	}
}

func (s *Socket) logPayloadErr(channel string, err error) {
	s.logger.Warn("ignoring malformed payload",
		slog.String("channel", channel),
		slog.String("error", err.Error()),
	)
}
