package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/maypok86/otter"
	"github.com/shopspring/decimal"

	"github.com/rafaeljc/recommender/internal/observability"
)

// Compile-time check to verify that MemoryQueryCache implements QueryCache.
var _ QueryCache = (*MemoryQueryCache)(nil)

// MemoryQueryCache is the L1 tier. It is bounded in size (S3-FIFO eviction)
// and every entry expires after the configured TTL.
type MemoryQueryCache struct {
	store otter.Cache[QueryKey, decimal.Decimal]
}

// NewMemoryQueryCache builds the L1 cache.
// capacity: Max number of entries.
// ttl: Time-To-Live of each entry, the bound on staleness.
func NewMemoryQueryCache(capacity int, ttl time.Duration) (*MemoryQueryCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %s", ttl)
	}

	store, err := otter.MustBuilder[QueryKey, decimal.Decimal](capacity).
		WithTTL(ttl).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build memory cache: %w", err)
	}

	return &MemoryQueryCache{store: store}, nil
}

// Get returns the cached aggregate. The lookup is recorded as an L1 hit or miss.
func (c *MemoryQueryCache) Get(_ context.Context, key QueryKey) (decimal.Decimal, bool) {
	v, ok := c.store.Get(key)
	if ok {
		observability.QueryCacheRequests.WithLabelValues("l1", "hit").Inc()
	} else {
		observability.QueryCacheRequests.WithLabelValues("l1", "miss").Inc()
	}
	return v, ok
}

// Set stores the aggregate with the cache TTL.
func (c *MemoryQueryCache) Set(_ context.Context, key QueryKey, value decimal.Decimal) {
	c.store.Set(key, value)
}

// Clear drops every entry.
func (c *MemoryQueryCache) Clear(context.Context) error {
	c.store.Clear()
	return nil
}

// ClearUser drops every entry of one user.
func (c *MemoryQueryCache) ClearUser(_ context.Context, userID string) error {
	// Keys are collected first; the cache is not mutated during Range.
	var keys []QueryKey
	c.store.Range(func(k QueryKey, _ decimal.Decimal) bool {
		if k.UserID == userID {
			keys = append(keys, k)
		}
		return true
	})
	for _, k := range keys {
		c.store.Delete(k)
	}
	return nil
}

// Len returns the number of live entries.
func (c *MemoryQueryCache) Len() int {
	return c.store.Size()
}

// RunMetricsCollector publishes the entry count every interval until ctx is done.
func (c *MemoryQueryCache) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.QueryCacheItems.Set(float64(c.store.Size()))
		}
	}
}

// Close stops the cache's background goroutines.
func (c *MemoryQueryCache) Close() {
	c.store.Close()
}
