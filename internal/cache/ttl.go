// Package cache implements a generic, thread-safe TTL cache.
//
// Entries are immutable once written: a lookup after expiry is a miss and
// the slot is reclaimed lazily on the next write. Used as the in-process
// tier for search-result memoization when no remote cache is configured.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	val    V
	expiry time.Time
}

// TTL is a generic, thread-safe cache with per-entry expiry.
// K must be comparable (map key constraint), V can be any type.
type TTL[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]entry[V]
	now      func() time.Time
}

// New creates a TTL cache bounded to capacity entries.
// Panics if capacity < 1.
func New[K comparable, V any](capacity int) *TTL[K, V] {
	if capacity < 1 {
		panic("cache: capacity must be >= 1")
	}
	return &TTL[K, V]{
		capacity: capacity,
		items:    make(map[K]entry[V], capacity),
		now:      time.Now,
	}
}

// Get retrieves a live value by key. An expired entry is a miss.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok || c.now().After(e.expiry) {
		var zero V
		return zero, false
	}
	return e.val, true
}

// Put inserts or replaces a value with the given time-to-live. When the
// cache is full, expired entries are evicted first; if none are expired
// an arbitrary entry is dropped to make room.
func (c *TTL[K, V]) Put(key K, val V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.capacity {
		c.evictLocked()
	}
	c.items[key] = entry[V]{val: val, expiry: c.now().Add(ttl)}
}

// Len returns the number of live entries.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	now := c.now()
	for _, e := range c.items {
		if !now.After(e.expiry) {
			n++
		}
	}
	return n
}

// Clear removes all entries.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]entry[V], c.capacity)
}

// evictLocked frees one slot. Caller must hold the lock.
func (c *TTL[K, V]) evictLocked() {
	now := c.now()
	for k, e := range c.items {
		if now.After(e.expiry) {
			delete(c.items, k)
			return
		}
	}
	for k := range c.items {
		delete(c.items, k)
		return
	}
}

// SetClock overrides the time source. Test hook.
func (c *TTL[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
