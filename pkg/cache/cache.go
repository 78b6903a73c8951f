// Package cache implements the response cache: content-addressed key
// derivation and the cache-aside controller deciding hit versus miss.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"emberhq/ember/pkg/metrics"
	"emberhq/ember/pkg/store"
)

// Controller performs cache-aside lookups against the durable store.
//
// Expiration is lazy: a stale entry is treated as absent and left in place
// until the next successful generation for its key overwrites it.
type Controller struct {
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	// ttl in nanoseconds; atomic so config hot reload can retune it.
	ttl atomic.Int64
}

// NewController creates a cache controller with the given freshness TTL.
func NewController(s store.Store, ttl time.Duration, m *metrics.Metrics) *Controller {
	c := &Controller{
		store:   s,
		metrics: m,
		logger:  slog.Default().With("component", "cache"),
	}
	c.ttl.Store(int64(ttl))
	return c
}

// TTL returns the current freshness TTL.
func (c *Controller) TTL() time.Duration {
	return time.Duration(c.ttl.Load())
}

// SetTTL changes the freshness TTL at runtime.
func (c *Controller) SetTTL(ttl time.Duration) {
	c.ttl.Store(int64(ttl))
}

// Lookup returns the fresh entry for key, if any, and records the hit or
// miss. Absent, stale, and unreadable entries are all misses: the cache is
// opportunistic and a store failure must not fail the request.
func (c *Controller) Lookup(ctx context.Context, key string) (*store.CacheEntry, bool) {
	entry, err := c.store.GetCacheEntry(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		c.metrics.IncCacheMisses()
		return nil, false
	}

	if time.Since(entry.CreatedAt) >= c.TTL() {
		c.metrics.IncCacheMisses()
		return nil, false
	}

	c.metrics.IncCacheHits()
	return entry, true
}

// Commit writes a completed generation into the cache, overwriting any
// prior entry for the key. Only call this after a successful completion
// signal; failed or aborted generations must never be cached.
func (c *Controller) Commit(ctx context.Context, key string, tokens []string) error {
	return c.store.PutCacheEntry(ctx, &store.CacheEntry{
		Key:       key,
		Tokens:    tokens,
		CreatedAt: time.Now(),
	})
}

// Keys returns all cached keys, fresh or stale.
func (c *Controller) Keys(ctx context.Context) ([]string, error) {
	return c.store.ListCacheKeys(ctx)
}

// Clear removes every cache entry.
func (c *Controller) Clear(ctx context.Context) error {
	return c.store.ClearCache(ctx)
}
