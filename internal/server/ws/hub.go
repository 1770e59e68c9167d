// Package ws exposes the streaming side of the feed server. Each WebSocket
// connection gets its own feed.Publisher, ring store, and generator state;
// the hub only tracks live sessions so they can be counted and torn down
// together on shutdown.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/feedsim/internal/domain"
	"github.com/alanyoungcy/feedsim/internal/feed"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 4096

	// sendBufferSize is the channel buffer for outgoing messages per session.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins. In production, restrict this to known origins.
		return true
	},
}

// session represents a single WebSocket connection together with the
// publisher that feeds it.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	pub  *feed.Publisher
	send chan []byte

	cancel context.CancelFunc
}

// Hub accepts WebSocket connections and owns the set of live sessions. It
// does not broadcast: every session has its own publisher, so there is no
// shared order book or shared ring store across viewers.
type Hub struct {
	feedCfg    feed.Config
	sessions   map[*session]bool
	register   chan *session
	unregister chan *session
	done       chan struct{}
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a hub that starts one publisher per connection using the
// given feed configuration.
func NewHub(feedCfg feed.Config, logger *slog.Logger) *Hub {
	return &Hub{
		feedCfg:    feedCfg,
		sessions:   make(map[*session]bool),
		register:   make(chan *session),
		unregister: make(chan *session),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "ws")),
	}
}

// Run starts the hub's registry loop. It should be called in a goroutine.
// The loop exits when the provided context is cancelled, closing every
// remaining session on the way out.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Unblocks any pump still trying to register or unregister.
			close(h.done)
			h.mu.Lock()
			for s := range h.sessions {
				s.teardown()
				delete(h.sessions, s)
			}
			h.mu.Unlock()
			return ctx.Err()

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = true
			h.mu.Unlock()
			h.logger.Info("client connected",
				slog.Int("total_clients", h.SessionCount()),
			)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				s.teardown()
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected",
				slog.Int("total_clients", h.SessionCount()),
			)
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection, registers the
// session, and starts its dedicated publisher.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		cancel: cancel,
	}
	s.pub = feed.NewPublisher(h.feedCfg, s, h.logger)

	select {
	case h.register <- s:
	case <-h.done:
		cancel()
		conn.Close()
		return
	}

	// The publisher goroutine is the only sender on s.send, so it closes the
	// channel once the emission loop has fully stopped.
	go func() {
		_ = s.pub.Run(ctx)
		close(s.send)
	}()
	go s.writePump()
	go s.readPump()
}

// SessionCount returns the number of currently connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Send implements feed.Sink. It encodes the message and hands it to the
// write pump without blocking; when the session's buffer is full the message
// is dropped, never queued against the emission loop.
func (s *session) Send(channel string, payload any) {
	data, err := feed.Encode(channel, payload)
	if err != nil {
		s.hub.logger.Error("encode failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case s.send <- data:
	default:
		s.hub.logger.Warn("dropping message for slow client",
			slog.String("channel", channel),
		)
	}
}

// teardown cancels the session's publisher. Stop is idempotent, so racing a
// context cancel is harmless; the publisher goroutine closes the send
// channel on its way out, which in turn ends the write pump.
func (s *session) teardown() {
	s.cancel()
	s.pub.Stop()
}

// readPump reads messages from the WebSocket connection and dispatches
// history requests to the session's publisher. A read error of any kind ends
// the session.
func (s *session) readPump() {
	defer func() {
		select {
		case s.hub.unregister <- s:
		case <-s.hub.done:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Warn("unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		env, err := feed.Decode(message)
		if err != nil {
			// Malformed frames degrade to a log line, not a disconnect.
			s.hub.logger.Debug("ignoring malformed frame",
				slog.String("error", err.Error()),
			)
			continue
		}

		switch env.Type {
		case feed.ChanHistoryRequest:
			var req domain.HistoryRequest
			if err := json.Unmarshal(env.Payload, &req); err != nil {
				s.hub.logger.Debug("ignoring malformed history request",
					slog.String("error", err.Error()),
				)
				continue
			}
			s.pub.Request(req)

		default:
			s.hub.logger.Debug("ignoring unknown channel",
				slog.String("channel", env.Type),
			)
		}
	}
}

// writePump pumps messages from the publisher to the WebSocket connection as
// JSON text frames, with periodic ping frames for keepalive.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
