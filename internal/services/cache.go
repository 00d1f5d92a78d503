package services

import (
	"sync"
	"sync/atomic"
	"time"
)

// Generic in-memory cache with type safety. A zero TTL keeps entries until they are
// deleted, which is how the session caches use it.
type Cache[K comparable, V any] struct {
	mu     sync.RWMutex
	items  map[K]*cacheItem[V]
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

// CacheStats is a snapshot of a cache's counters.
type CacheStats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]*cacheItem[V]),
		ttl:   ttl,
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.Peek(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Peek is Get without touching the hit/miss counters.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || c.expired(item) {
		var zero V
		return zero, false
	}

	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem[V]{value: value}
	if c.ttl > 0 {
		item.expiration = time.Now().Add(c.ttl)
	}
	c.items[key] = item
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeleteFunc drops every entry whose key matches and returns how many were dropped.
func (c *Cache[K, V]) DeleteFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.items {
		if match(key) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Clear drops every entry. Counters are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*cacheItem[V])
}

func (c *Cache[K, V]) Stats() CacheStats {
	c.mu.RLock()
	entries := 0
	for _, item := range c.items {
		if !c.expired(item) {
			entries++
		}
	}
	c.mu.RUnlock()

	return CacheStats{
		Entries: entries,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

func (c *Cache[K, V]) expired(item *cacheItem[V]) bool {
	return c.ttl > 0 && time.Now().After(item.expiration)
}
