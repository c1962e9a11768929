// Package cache provides a caller-owned TTL cache for boundary reference
// sets. The cache is injected, never global, so the analytical core stays
// free of hidden shared state.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

// BoundaryCache is a concurrent-safe LRU cache for boundary sets with TTL
// expiration, keyed by country and admin level.
type BoundaryCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type cacheEntry struct {
	records   []model.BoundaryRecord
	createdAt time.Time
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewBoundaryCache creates a BoundaryCache with the given capacity and TTL.
func NewBoundaryCache(maxEntries int, ttl time.Duration) *BoundaryCache {
	return &BoundaryCache{
		entries:    make(map[string]*cacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func cacheKey(countryISO3 string, level model.AdminLevel) string {
	return fmt.Sprintf("%s/%s", strings.ToUpper(countryISO3), level)
}

// Get retrieves a cached boundary set. Returns nil on miss or expiration.
func (c *BoundaryCache) Get(countryISO3 string, level model.AdminLevel) []model.BoundaryRecord {
	key := cacheKey(countryISO3, level)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return nil
	}

	if time.Since(entry.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses.Add(1)
		return nil
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return entry.records
}

// Put stores a boundary set, evicting the oldest entry if at capacity.
func (c *BoundaryCache) Put(countryISO3 string, level model.AdminLevel, records []model.BoundaryRecord) {
	key := cacheKey(countryISO3, level)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = &cacheEntry{records: records, createdAt: time.Now()}
		c.removeFromOrder(key)
		c.order = append(c.order, key)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = &cacheEntry{records: records, createdAt: time.Now()}
	c.order = append(c.order, key)
}

// Invalidate removes all cached levels for a country.
func (c *BoundaryCache) Invalidate(countryISO3 string) {
	prefix := strings.ToUpper(countryISO3) + "/"

	c.mu.Lock()
	defer c.mu.Unlock()

	var remaining []string
	for _, key := range c.order {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		} else {
			remaining = append(remaining, key)
		}
	}
	c.order = remaining
}

// Stats returns cache performance statistics.
func (c *BoundaryCache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *BoundaryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
