package view

import "sync"

// RateCounter tracks trade-print throughput: a running count of items since
// the last one-second rollover plus a monotonically increasing total. It
// counts items received, not flush operations, so burst arrivals are
// reported exactly. Safe for concurrent use.
type RateCounter struct {
	mu       sync.Mutex
	window   int64
	total    int64
	lastRate int64
}

// Add records n received items.
func (c *RateCounter) Add(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.window += int64(n)
	c.total += int64(n)
	c.mu.Unlock()
}

// Rollover publishes the current window as the per-second rate and resets
// the window to zero. Called once per second by the refresh loop.
func (c *RateCounter) Rollover() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRate = c.window
	c.window = 0
	return c.lastRate
}

// Rate returns the most recently published per-second rate.
func (c *RateCounter) Rate() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRate
}

// Total returns the all-time received item count.
func (c *RateCounter) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
