// Package ring implements a fixed-capacity, insertion-ordered circular buffer.
// It is the single source of truth for "recent history" on a feed session:
// once full, every push overwrites the logically oldest slot.
package ring

import "sync"

// Store is a bounded FIFO-overwrite buffer of T. It is safe for concurrent
// use; pushes from a feed session and reads from the pagination handler may
// interleave freely and always observe a consistent snapshot.
type Store[T any] struct {
	buf   []T
	head  int // next write position
	tail  int // logically oldest element
	count int
	mu    sync.RWMutex
}

// New creates a Store with the given capacity. A non-positive capacity yields
// a store that silently drops every push; callers validate capacity through
// config, so this is a guard, not an API.
func New[T any](capacity int) *Store[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Store[T]{
		buf: make([]T, capacity),
	}
}

// Push appends item, evicting the oldest element when the buffer is full.
// It always succeeds and never grows the backing storage.
func (s *Store[T]) Push(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 {
		return
	}

	s.buf[s.head] = item
	s.head = (s.head + 1) % len(s.buf)

	if s.count == len(s.buf) {
		s.tail = (s.tail + 1) % len(s.buf)
	} else {
		s.count++
	}
}

// All returns every stored item in insertion order, oldest first. The
// returned slice is a copy and safe to mutate.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, s.count)
	for i, cur := 0, s.tail; i < s.count; i++ {
		out = append(out, s.buf[cur])
		cur = (cur + 1) % len(s.buf)
	}
	return out
}

// Latest returns the min(n, Len) most recently pushed items, oldest first.
func (s *Store[T]) Latest(n int) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.count {
		n = s.count
	}
	if n <= 0 {
		return []T{}
	}

	out := make([]T, n)
	for i := 0; i < n; i++ {
		idx := (s.head - n + i + len(s.buf)) % len(s.buf)
		out[i] = s.buf[idx]
	}
	return out
}

// Clear resets the store to empty without releasing the backing storage.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.head = 0
	s.tail = 0
	s.count = 0
}

// Len returns the number of stored items.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Cap returns the fixed capacity of the store.
func (s *Store[T]) Cap() int {
	return len(s.buf)
}
