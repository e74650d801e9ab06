// Package cache memoizes price lookups per (symbol, day) for the life of a process.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"trade-outcome-lab/internal/domain"
	"trade-outcome-lab/internal/observability"
)

// Key identifies a cached value. Symbols are compared case-insensitively
// and dates by calendar day.
type Key struct {
	Symbol string
	Date   time.Time
}

func (k Key) String() string {
	return strings.ToUpper(k.Symbol) + "|" + domain.Day(k.Date).Format("2006-01-02")
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Cache is a concurrency-safe memo table. Concurrent misses for the same key
// share a single load. Failed loads are not stored.
type Cache[V any] struct {
	mu     sync.RWMutex
	data   map[string]V
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{data: make(map[string]V)}
}

// Get returns the cached value for key, if any.
func (c *Cache[V]) Get(key Key) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key.String()]
	return v, ok
}

// GetOrLoad returns the cached value for key, calling load on a miss.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key Key, load func(ctx context.Context) (V, error)) (V, error) {
	k := key.String()

	c.mu.RLock()
	v, ok := c.data[k]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		observability.RecordCacheHit()
		return v, nil
	}
	c.misses.Add(1)
	observability.RecordCacheMiss()

	res, err, _ := c.group.Do(k, func() (any, error) {
		// Another caller may have filled the slot between our check and Do.
		c.mu.RLock()
		cached, ok := c.data[k]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.data[k] = loaded
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Stats returns a snapshot of hit/miss counters and size.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.Len(),
	}
}

// Purge drops every cached entry. Counters are kept.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]V)
}
