package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/lborres/fumble/core"
)

// InMemoryCache is a process-local cache with per-entry expiry and a size cap.
// A full cache evicts the entry written longest ago.
type InMemoryCache[V any] struct {
	entries *simplelru.LRU[string, *entry[V]]
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time

	// counters
	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

var _ core.CacheWithStats[string] = (*InMemoryCache[string])(nil)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache[V any](c core.CacheConfig) *InMemoryCache[V] {
	if c.TTL == 0 {
		c.TTL = 5 * time.Minute
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 500
	}

	// only fails for a non-positive size
	entries, _ := simplelru.NewLRU[string, *entry[V]](c.MaxSize, nil)

	return &InMemoryCache[V]{
		entries: entries,
		ttl:     c.TTL,
		now:     time.Now,
	}
}

// Get returns the value for key, or core.ErrCacheNotFound when absent or expired.
// Reads do not refresh an entry's place in the eviction order.
func (c *InMemoryCache[V]) Get(key string) (V, error) {
	var zero V

	c.mu.RLock()
	e, ok := c.entries.Peek(key)
	c.mu.RUnlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return zero, core.ErrCacheNotFound
	}

	if c.now().Sub(e.storedAt) > c.ttl {
		atomic.AddInt64(&c.misses, 1)
		c.mu.Lock()
		// another writer may have replaced it in between
		if cur, ok := c.entries.Peek(key); ok && cur == e {
			c.entries.Remove(key)
			atomic.AddInt64(&c.evictions, 1)
		}
		c.mu.Unlock()
		return zero, core.ErrCacheNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	return e.value, nil
}

// Take returns the value for key and removes it, so a value can be consumed once.
func (c *InMemoryCache[V]) Take(key string) (V, error) {
	var zero V

	c.mu.Lock()
	e, ok := c.entries.Peek(key)
	if ok {
		c.entries.Remove(key)
	}
	c.mu.Unlock()

	if !ok || c.now().Sub(e.storedAt) > c.ttl {
		atomic.AddInt64(&c.misses, 1)
		return zero, core.ErrCacheNotFound
	}

	atomic.AddInt64(&c.hits, 1)
	atomic.AddInt64(&c.deletes, 1)
	return e.value, nil
}

// Set stores value under key. Rewriting a key makes it the newest entry.
func (c *InMemoryCache[V]) Set(key string, value V) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if evicted := c.entries.Add(key, &entry[V]{value: value, storedAt: c.now()}); evicted {
		atomic.AddInt64(&c.evictions, 1)
	}

	atomic.AddInt64(&c.sets, 1)
	return nil
}

// Delete removes key from the cache
func (c *InMemoryCache[V]) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries.Remove(key) {
		atomic.AddInt64(&c.deletes, 1)
	}
	return nil
}

// Clear removes all entries
func (c *InMemoryCache[V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryCache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.Len()
}

// Stats returns cache statistics
func (c *InMemoryCache[V]) Stats() core.CacheStats {
	return core.CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
		Size:      c.Len(),
		TTL:       c.ttl,
	}
}
