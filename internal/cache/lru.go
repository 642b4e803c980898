// internal/cache/lru.go
//
// Expiring LRU cache shared by the settings provider and the XSLT adapter.
//
// Context
// -------
// A thin generic wrapper around hashicorp/golang-lru/v2/expirable that
// counts hits and misses per named cache in internal/metrics.  The
// underlying cache is safe for concurrent use, and so is this wrapper.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yanizio/oairepo/internal/metrics"
)

// LRU is a size-bounded cache whose entries expire after a fixed TTL.
type LRU[K comparable, V any] struct {
	name string
	lru  *expirable.LRU[K, V]
}

// New returns an LRU named name (the metrics label) holding at most size
// entries for ttl each.  Panics on size < 1.
func New[K comparable, V any](name string, size int, ttl time.Duration, onEvict func(K, V)) *LRU[K, V] {
	if size < 1 {
		panic("cache: size must be >= 1")
	}
	return &LRU[K, V]{
		name: name,
		lru:  expirable.NewLRU[K, V](size, onEvict, ttl),
	}
}

// Get retrieves a value and records a hit or miss.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		metrics.CacheHits.WithLabelValues(c.name).Inc()
	} else {
		metrics.CacheMisses.WithLabelValues(c.name).Inc()
	}
	return v, ok
}

// Add inserts or replaces a value.
func (c *LRU[K, V]) Add(key K, val V) { c.lru.Add(key, val) }

// Remove drops key if present.
func (c *LRU[K, V]) Remove(key K) { c.lru.Remove(key) }

// Purge drops every entry, firing the eviction callback for each.
func (c *LRU[K, V]) Purge() { c.lru.Purge() }

// Len reports current size.
func (c *LRU[K, V]) Len() int { return c.lru.Len() }
