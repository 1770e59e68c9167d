package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/feedsim/internal/domain"
)

// channelPrefix namespaces all mirrored feed channels in Redis so that
// several simulator instances can share one server without collisions.
const channelPrefix = "feed:"

// FeedBus mirrors feed frames onto Redis Pub/Sub channels. It implements
// domain.FeedBus and is safe for concurrent use.
type FeedBus struct {
	client *Client
	logger *slog.Logger
}

// NewFeedBus creates a FeedBus backed by the given client.
func NewFeedBus(client *Client, logger *slog.Logger) *FeedBus {
	return &FeedBus{
		client: client,
		logger: logger.With("component", "feed_bus"),
	}
}

// Publish sends payload to the named feed channel. Subscribers that are
// not listening simply miss the message; delivery is best effort.
func (b *FeedBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.rdb.Publish(ctx, channelPrefix+channel, payload).Err(); err != nil {
		return fmt.Errorf("feed bus: publish %s: %w", channel, err)
	}
	return nil
}

// Close releases the underlying client connection.
func (b *FeedBus) Close() error {
	return b.client.Close()
}

// Compile-time interface check.
var _ domain.FeedBus = (*FeedBus)(nil)
