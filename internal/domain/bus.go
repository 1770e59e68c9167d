package domain

import "context"

// FeedBus mirrors feed emissions to an external pub/sub system so processes
// other than the HTTP/WebSocket viewers can tap the stream. The port is
// publish-only: consumers live outside this process and subscribe with their
// own clients. Implementations must be safe for concurrent use.
type FeedBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

// HistoryProvider serves bounded pages of recent candles. The HTTP pagination
// handler reads through this interface so it does not depend on a concrete
// feed session.
type HistoryProvider interface {
	Recent(limit int) []Candle
	RecentBefore(limit int, before int64) []Candle
}
