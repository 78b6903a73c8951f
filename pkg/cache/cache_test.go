package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"emberhq/ember/pkg/config"
	"emberhq/ember/pkg/metrics"
	"emberhq/ember/pkg/store"
)

func newTestController(t *testing.T, ttl time.Duration) (*Controller, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(config.MetricsConfig{Enabled: true})
	return NewController(store.NewMemoryStore(), ttl, m), m
}

func TestController_MissThenHit(t *testing.T) {
	ctx := context.Background()
	c, m := newTestController(t, time.Hour)

	if _, ok := c.Lookup(ctx, "key-1"); ok {
		t.Fatal("Expected miss on empty cache")
	}

	tokens := []string{"Hello", ", ", "world"}
	if err := c.Commit(ctx, "key-1", tokens); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	entry, ok := c.Lookup(ctx, "key-1")
	if !ok {
		t.Fatal("Expected hit after commit")
	}
	if len(entry.Tokens) != len(tokens) {
		t.Fatalf("Expected %d tokens, got %d", len(tokens), len(entry.Tokens))
	}
	for i, token := range tokens {
		if entry.Tokens[i] != token {
			t.Errorf("Token %d: expected %q, got %q", i, token, entry.Tokens[i])
		}
	}

	snap := m.Snapshot()
	if snap.CacheMisses != 1 {
		t.Errorf("Expected 1 miss, got %d", snap.CacheMisses)
	}
	if snap.CacheHits != 1 {
		t.Errorf("Expected 1 hit, got %d", snap.CacheHits)
	}
}

func TestController_StaleEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, m := newTestController(t, 50*time.Millisecond)

	if err := c.Commit(ctx, "key-1", []string{"token"}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if _, ok := c.Lookup(ctx, "key-1"); !ok {
		t.Fatal("Expected hit inside the TTL")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := c.Lookup(ctx, "key-1"); ok {
		t.Fatal("Expected miss after TTL elapsed")
	}

	// Lazy expiration: the stale entry stays in the store.
	keys, err := c.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("Expected stale entry to remain in store, got %d keys", len(keys))
	}

	snap := m.Snapshot()
	if snap.CacheMisses != 1 {
		t.Errorf("Expected 1 miss, got %d", snap.CacheMisses)
	}
}

func TestController_CommitOverwrites(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t, time.Hour)

	if err := c.Commit(ctx, "key-1", []string{"old"}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := c.Commit(ctx, "key-1", []string{"new"}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	entry, ok := c.Lookup(ctx, "key-1")
	if !ok {
		t.Fatal("Expected hit")
	}
	if len(entry.Tokens) != 1 || entry.Tokens[0] != "new" {
		t.Errorf("Expected overwritten tokens, got %v", entry.Tokens)
	}
}

func TestController_SetTTLAppliesToExistingEntries(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t, time.Hour)

	if err := c.Commit(ctx, "key-1", []string{"token"}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	c.SetTTL(0)
	if _, ok := c.Lookup(ctx, "key-1"); ok {
		t.Error("Expected miss with zero TTL")
	}

	c.SetTTL(time.Hour)
	if _, ok := c.Lookup(ctx, "key-1"); !ok {
		t.Error("Expected hit after restoring TTL")
	}
}

func TestController_Clear(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestController(t, time.Hour)

	if err := c.Commit(ctx, "key-1", []string{"a"}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := c.Commit(ctx, "key-2", []string{"b"}); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, err := c.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Expected empty cache, got %d keys", len(keys))
	}
	if _, ok := c.Lookup(ctx, "key-1"); ok {
		t.Error("Expected miss after clear")
	}
}

// failingStore wraps a store and fails every cache read.
type failingStore struct {
	store.Store
}

func (s *failingStore) GetCacheEntry(ctx context.Context, key string) (*store.CacheEntry, error) {
	return nil, errors.New("disk on fire")
}

func TestController_ReadErrorIsMiss(t *testing.T) {
	ctx := context.Background()
	m := metrics.New(config.MetricsConfig{Enabled: true})
	c := NewController(&failingStore{Store: store.NewMemoryStore()}, time.Hour, m)

	if _, ok := c.Lookup(ctx, "key-1"); ok {
		t.Fatal("Expected store read failure to present as a miss")
	}
	if got := m.Snapshot().CacheMisses; got != 1 {
		t.Errorf("Expected 1 miss, got %d", got)
	}
}
