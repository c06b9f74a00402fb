// Package cache provides a typed TTL cache with explicit invalidation for the
// hot chat read paths. Expired entries are rejected on lookup; the periodic
// sweep is advisory cleanup so memory does not grow between reads.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a generic time-bounded cache keyed by string. The three chat caches
// are three configurations of this one type. The janitor of the underlying
// store is disabled; sweeping is scheduled externally.
type Cache[V any] struct {
	store *gocache.Cache
}

// New creates a cache whose entries expire ttl after being set.
func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{store: gocache.New(ttl, 0)}
}

// Get returns the cached value when present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	if v, ok := c.store.Get(key); ok {
		return v.(V), true
	}
	var zero V
	return zero, false
}

// Set stores the value, overwriting any existing entry for the key.
func (c *Cache[V]) Set(key string, value V) {
	c.store.SetDefault(key, value)
}

// Invalidate removes the entry for the key, if any.
func (c *Cache[V]) Invalidate(key string) {
	c.store.Delete(key)
}

// GetOrCompute is the read-through path: cached value when fresh, otherwise the
// computed value is stored and returned. Concurrent misses within the same TTL
// window may each recompute; that is acceptable at this write fan-out.
func (c *Cache[V]) GetOrCompute(key string, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// DeleteExpired drops expired entries. Correctness does not depend on it.
func (c *Cache[V]) DeleteExpired() {
	c.store.DeleteExpired()
}

// Len returns the number of entries, expired ones included.
func (c *Cache[V]) Len() int {
	return c.store.ItemCount()
}
