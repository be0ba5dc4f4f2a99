package marketdata

import (
	"sync"
	"time"
)

// cacheEntry pairs a value with the time it was stored. Entries are never
// mutated in place; Set replaces them wholesale.
type cacheEntry[T any] struct {
	value    T
	storedAt time.Time
}

// ttlCache is a small in-process cache with lazy per-read expiry. There is
// no background sweeper: an entry older than the TTL is simply ignored on
// Get. Memory stays bounded by the number of distinct symbols requested
// in-process, so stale entries lingering until the next Get is acceptable.
type ttlCache[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry[T]
}

func newTTLCache[T any](ttl time.Duration, now func() time.Time) *ttlCache[T] {
	if now == nil {
		now = time.Now
	}
	return &ttlCache[T]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry[T]),
	}
}

// Get returns the value cached under key when present and not expired.
func (c *ttlCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, replacing any previous entry.
func (c *ttlCache[T]) Set(key string, value T) {
	c.mu.Lock()
	c.entries[key] = cacheEntry[T]{value: value, storedAt: c.now()}
	c.mu.Unlock()
}
