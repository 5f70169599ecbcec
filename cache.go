package auraclient

import (
	"sync"
	"time"
)

// CacheEntry is a cached response with its expiry.
type CacheEntry struct {
	Response  *Response
	ExpiresAt time.Time
}

// Cache stores successful read responses for reuse within a TTL.
type Cache interface {
	Get(key string) (*CacheEntry, bool)
	Set(key string, entry *CacheEntry, ttl time.Duration)
	Delete(key string)
	Clear()
}

// InMemoryCache is a simple in-memory Cache implementation.
type InMemoryCache struct {
	mu    sync.RWMutex
	store map[string]*CacheEntry
	clock Clock
}

// NewInMemoryCache creates an empty cache.
func NewInMemoryCache(clock Clock) *InMemoryCache {
	if clock == nil {
		clock = systemClock{}
	}
	return &InMemoryCache{
		store: make(map[string]*CacheEntry),
		clock: clock,
	}
}

// Get retrieves a cached entry, expiring it lazily.
func (c *InMemoryCache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.store[key]
	if !exists {
		return nil, false
	}
	if c.clock.Now().After(entry.ExpiresAt) {
		delete(c.store, key)
		return nil, false
	}
	return entry, true
}

// Set stores an entry with the given TTL.
func (c *InMemoryCache) Set(key string, entry *CacheEntry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry.ExpiresAt = c.clock.Now().Add(ttl)
	c.store[key] = entry
}

// Delete removes one entry.
func (c *InMemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

// Clear removes all entries.
func (c *InMemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]*CacheEntry)
}

// Len returns the number of stored entries, expired or not.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// DefaultCacheKeyFunc keys cached responses by method and URL.
func DefaultCacheKeyFunc(method, url string) string {
	return method + ":" + url
}
