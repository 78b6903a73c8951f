package store

import (
	"context"
	"fmt"
	"time"

	"emberhq/ember/pkg/config"
)

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single transcript entry. Turns are immutable once appended and
// their order within a session is the chronological append order.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Session is a chat transcript. It is mutated only by appending turns and
// destroyed only by whole-session deletion.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"createdAt"`
}

// CacheEntry is a completed generation keyed by its request content hash.
// Freshness is decided by the cache layer; the store only persists entries.
type CacheEntry struct {
	Key       string    `json:"key"`
	Tokens    []string  `json:"tokens"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is durable key-value persistence for the two independent
// collections Ember needs: sessions and cache entries.
//
// Implementations must be safe for concurrent use and must serialize
// writes within each collection; record-level lost updates between
// distinct keys are acceptable (last writer wins).
type Store interface {
	// PutSession inserts a new session.
	PutSession(ctx context.Context, s *Session) error

	// GetSession returns the session with the given id, or ErrNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// ListSessions returns all sessions in creation order.
	ListSessions(ctx context.Context) ([]*Session, error)

	// DeleteSession removes a session and its turns. Deleting an absent
	// id is a success no-op.
	DeleteSession(ctx context.Context, id string) error

	// AppendTurn appends a turn to an existing session. Returns
	// ErrNotFound if the session does not exist.
	AppendTurn(ctx context.Context, sessionID string, t Turn) error

	// GetCacheEntry returns the entry for key, or ErrNotFound.
	GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error)

	// PutCacheEntry inserts or overwrites the entry for its key.
	PutCacheEntry(ctx context.Context, e *CacheEntry) error

	// ListCacheKeys returns all cache keys.
	ListCacheKeys(ctx context.Context) ([]string, error)

	// ClearCache removes all cache entries.
	ClearCache(ctx context.Context) error

	// PruneCacheBefore deletes entries created before cutoff and returns
	// how many were removed. Used only by the optional retention pruner.
	PruneCacheBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases store resources.
	Close() error
}

// New creates a store from configuration.
func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		return NewSQLiteStore(&SQLiteConfig{
			Driver:      cfg.Driver,
			DataDir:     cfg.DataDir,
			BusyTimeout: cfg.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
