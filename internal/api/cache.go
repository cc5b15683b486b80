package api

import (
	"os"
	"strconv"
	"sync"
)

// OutputCache is a thread-safe LRU cache for stored output tables.
// Outputs never change once a run completes, so entries are not invalidated.
type OutputCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string][]byte
	order   []string // oldest first
}

// NewOutputCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 64.
func NewOutputCache(maxSize int) *OutputCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &OutputCache{
		maxSize: maxSize,
		entries: make(map[string][]byte),
	}
}

// NewOutputCacheFromEnv creates a cache with size from OUTPUT_CACHE_SIZE env var.
func NewOutputCacheFromEnv() *OutputCache {
	size := 64
	if v := os.Getenv("OUTPUT_CACHE_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}
	return NewOutputCache(size)
}

func cacheKey(runID, name string) string { return runID + "/" + name }

// Get returns a cached table, or nil if not found.
func (c *OutputCache) Get(runID, name string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(runID, name)
	data, ok := c.entries[key]
	if !ok {
		return nil
	}
	c.moveToEnd(key)
	return data
}

// Put adds a table to the cache, evicting the oldest if full.
func (c *OutputCache) Put(runID, name string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(runID, name)
	if _, ok := c.entries[key]; ok {
		c.entries[key] = data
		c.moveToEnd(key)
		return
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = data
	c.order = append(c.order, key)
}

// Len returns the number of cached tables.
func (c *OutputCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *OutputCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}
