package cache

import (
	"sync"
	"time"

	"dealscope.dev/dealscope/internal/globaltime"
)

// Cache is a bounded in-memory TTL cache. Entries expire ttl after creation
// (writes do not refresh age), and when the cache is full the entry with the
// oldest creation time is evicted to make room.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	maxSize int
	ttl     time.Duration

	hits   uint64
	misses uint64
}

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size       int     `json:"size"`
	MaxSize    int     `json:"max_size"`
	TTLSeconds float64 `json:"ttl_seconds"`
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		entries: make(map[string]entry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached value for key. Expired entries are removed on
// access and reported as misses.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if globaltime.Since(e.createdAt) > e.ttl {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return e.value, true
}

// Set stores value under key with the cache's default TTL, evicting the
// oldest entry when the cache is at capacity and key is not already present.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key with a per-entry lifetime. A non-positive
// ttl falls back to the cache default.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = entry{value: value, createdAt: globaltime.Now(), ttl: ttl}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// CleanupExpired drops every expired entry and reports how many were removed.
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if globaltime.Since(e.createdAt) > e.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Size:       len(c.entries),
		MaxSize:    c.maxSize,
		TTLSeconds: c.ttl.Seconds(),
		Hits:       c.hits,
		Misses:     c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

func (c *Cache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for key, e := range c.entries {
		if first || e.createdAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = e.createdAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
