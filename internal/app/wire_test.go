package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/feedsim/internal/config"
	"github.com/alanyoungcy/feedsim/internal/domain"
	"github.com/alanyoungcy/feedsim/internal/feed"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingBus captures published frames.
type recordingBus struct {
	mu     sync.Mutex
	frames []mirrorFrame
}

func (b *recordingBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, mirrorFrame{channel: channel, data: payload})
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) snapshot() []mirrorFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]mirrorFrame(nil), b.frames...)
}

// stuckBus blocks every Publish until its context is cancelled.
type stuckBus struct{}

func (stuckBus) Publish(ctx context.Context, _ string, _ []byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func (stuckBus) Close() error { return nil }

func TestMirrorSinkPublishesEncodedFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := &recordingBus{}
	sink := mirrorSink(ctx, bus, testLogger())

	c := domain.Candle{Time: 1700000000000, Open: 100, Close: 101, High: 102, Low: 99}
	sink.Send(feed.ChanCandleUpdate, c)

	require.Eventually(t, func() bool {
		return len(bus.snapshot()) == 1
	}, time.Second, time.Millisecond)

	f := bus.snapshot()[0]
	assert.Equal(t, feed.ChanCandleUpdate, f.channel)

	env, err := feed.Decode(f.data)
	require.NoError(t, err)
	assert.Equal(t, feed.ChanCandleUpdate, env.Type)
}

func TestMirrorSinkNeverBlocksTheEmitter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := mirrorSink(ctx, stuckBus{}, testLogger())

	// Far more sends than the queue holds; every one must return
	// immediately even though the bus never completes a publish.
	start := time.Now()
	for i := 0; i < 4*mirrorQueueSize; i++ {
		sink.Send(feed.ChanTrades, []domain.TradePrint{{ID: "x", Price: 1}})
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestFeedConfigTranslation(t *testing.T) {
	cfg := feedConfig(config.Defaults().Feed)
	assert.Equal(t, 1000, cfg.BufferCapacity)
	assert.Equal(t, 100*time.Millisecond, cfg.CandleInterval)
	assert.Equal(t, 200*time.Millisecond, cfg.TradeInterval)
	assert.Equal(t, 60, cfg.HistoryPageLimit)
}
