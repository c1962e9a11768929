package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relief-analytics/vulnassess-cli/internal/model"
)

func boundarySet(codes ...string) []model.BoundaryRecord {
	recs := make([]model.BoundaryRecord, len(codes))
	for i, c := range codes {
		recs[i] = model.BoundaryRecord{PCode: c, Level: model.ADM2}
	}
	return recs
}

func TestBoundaryCache_BasicGetPut(t *testing.T) {
	c := NewBoundaryCache(100, time.Hour)

	// Miss on empty cache.
	assert.Nil(t, c.Get("PHL", model.ADM2))

	recs := boundarySet("PH0101", "PH0102")
	c.Put("PHL", model.ADM2, recs)
	assert.Equal(t, recs, c.Get("PHL", model.ADM2))

	// Different level is still a miss.
	assert.Nil(t, c.Get("PHL", model.ADM1))
}

func TestBoundaryCache_KeyCaseInsensitiveCountry(t *testing.T) {
	c := NewBoundaryCache(100, time.Hour)

	c.Put("phl", model.ADM2, boundarySet("PH0101"))
	assert.NotNil(t, c.Get("PHL", model.ADM2))
}

func TestBoundaryCache_TTLExpiration(t *testing.T) {
	c := NewBoundaryCache(100, 50*time.Millisecond)

	c.Put("PHL", model.ADM2, boundarySet("PH0101"))
	assert.NotNil(t, c.Get("PHL", model.ADM2))

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, c.Get("PHL", model.ADM2))

	// Expired entry should be removed from the map.
	c.mu.RLock()
	_, exists := c.entries[cacheKey("PHL", model.ADM2)]
	c.mu.RUnlock()
	assert.False(t, exists)
}

func TestBoundaryCache_LRUEviction(t *testing.T) {
	c := NewBoundaryCache(3, time.Hour)

	c.Put("AAA", model.ADM1, boundarySet("A1"))
	c.Put("BBB", model.ADM1, boundarySet("B1"))
	c.Put("CCC", model.ADM1, boundarySet("C1"))

	// Cache is full. Adding a fourth should evict AAA (oldest).
	c.Put("DDD", model.ADM1, boundarySet("D1"))

	assert.Nil(t, c.Get("AAA", model.ADM1))
	assert.NotNil(t, c.Get("BBB", model.ADM1))
	assert.NotNil(t, c.Get("CCC", model.ADM1))
	assert.NotNil(t, c.Get("DDD", model.ADM1))
}

func TestBoundaryCache_LRUEviction_AccessOrder(t *testing.T) {
	c := NewBoundaryCache(3, time.Hour)

	c.Put("AAA", model.ADM1, boundarySet("A1"))
	c.Put("BBB", model.ADM1, boundarySet("B1"))
	c.Put("CCC", model.ADM1, boundarySet("C1"))

	// Access AAA to move it to back.
	c.Get("AAA", model.ADM1)

	// Now BBB is the oldest. Adding DDD should evict it.
	c.Put("DDD", model.ADM1, boundarySet("D1"))

	assert.NotNil(t, c.Get("AAA", model.ADM1))
	assert.Nil(t, c.Get("BBB", model.ADM1))
	assert.NotNil(t, c.Get("CCC", model.ADM1))
	assert.NotNil(t, c.Get("DDD", model.ADM1))
}

func TestBoundaryCache_Invalidate(t *testing.T) {
	c := NewBoundaryCache(100, time.Hour)

	c.Put("PHL", model.ADM1, boundarySet("PH01"))
	c.Put("PHL", model.ADM2, boundarySet("PH0101"))
	c.Put("BGD", model.ADM2, boundarySet("BD1004"))

	c.Invalidate("phl")

	assert.Nil(t, c.Get("PHL", model.ADM1))
	assert.Nil(t, c.Get("PHL", model.ADM2))
	assert.NotNil(t, c.Get("BGD", model.ADM2))

	c.mu.RLock()
	assert.Len(t, c.entries, 1)
	c.mu.RUnlock()
}

func TestBoundaryCache_Stats(t *testing.T) {
	c := NewBoundaryCache(100, time.Hour)

	c.Put("PHL", model.ADM2, boundarySet("PH0101"))
	c.Put("BGD", model.ADM2, boundarySet("BD1004"))

	c.Get("PHL", model.ADM2) // hit
	c.Get("BGD", model.ADM2) // hit
	c.Get("KEN", model.ADM2) // miss

	stats := c.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, 100, stats.MaxEntries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	require.InDelta(t, 0.6667, stats.HitRate, 0.01)
}

func TestBoundaryCache_UpdateExistingKey(t *testing.T) {
	c := NewBoundaryCache(100, time.Hour)

	c.Put("PHL", model.ADM2, boundarySet("OLD"))
	c.Put("PHL", model.ADM2, boundarySet("NEW"))

	got := c.Get("PHL", model.ADM2)
	require.Len(t, got, 1)
	assert.Equal(t, "NEW", got[0].PCode)

	c.mu.RLock()
	assert.Len(t, c.entries, 1)
	c.mu.RUnlock()
}

func TestBoundaryCache_ConcurrentAccess(t *testing.T) {
	c := NewBoundaryCache(1000, time.Hour)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			country := fmt.Sprintf("C%02d", n)
			c.Put(country, model.ADM2, boundarySet("X1"))
			c.Get(country, model.ADM2)
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Entries, 1000)
	assert.True(t, stats.Hits+stats.Misses > 0)
}
