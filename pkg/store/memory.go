package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory maps. It is used by tests
// and by deployments that do not need transcripts or cached responses to
// survive a restart.
type MemoryStore struct {
	sessions     map[string]*Session
	sessionOrder []string
	cache        map[string]*CacheEntry

	sessionsMu sync.RWMutex
	cacheMu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		cache:    make(map[string]*CacheEntry),
	}
}

// PutSession inserts a new session.
func (s *MemoryStore) PutSession(ctx context.Context, sess *Session) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	cp := copySession(sess)
	if _, exists := s.sessions[sess.ID]; !exists {
		s.sessionOrder = append(s.sessionOrder, sess.ID)
	}
	s.sessions[sess.ID] = cp
	return nil
}

// GetSession returns a copy of the session, or ErrNotFound.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

// ListSessions returns copies of all sessions in creation order.
func (s *MemoryStore) ListSessions(ctx context.Context) ([]*Session, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	sessions := make([]*Session, 0, len(s.sessionOrder))
	for _, id := range s.sessionOrder {
		if sess, ok := s.sessions[id]; ok {
			sessions = append(sessions, copySession(sess))
		}
	}
	return sessions, nil
}

// DeleteSession removes a session. Idempotent.
func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return nil
	}
	delete(s.sessions, id)
	for i, sid := range s.sessionOrder {
		if sid == id {
			s.sessionOrder = append(s.sessionOrder[:i], s.sessionOrder[i+1:]...)
			break
		}
	}
	return nil
}

// AppendTurn appends a turn to an existing session.
func (s *MemoryStore) AppendTurn(ctx context.Context, sessionID string, t Turn) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	sess.Turns = append(sess.Turns, t)
	return nil
}

// GetCacheEntry returns a copy of the entry for key, or ErrNotFound.
func (s *MemoryStore) GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	entry, ok := s.cache[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEntry(entry), nil
}

// PutCacheEntry inserts or overwrites the entry for its key.
func (s *MemoryStore) PutCacheEntry(ctx context.Context, e *CacheEntry) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache[e.Key] = copyEntry(e)
	return nil
}

// ListCacheKeys returns all cache keys.
func (s *MemoryStore) ListCacheKeys(ctx context.Context) ([]string, error) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()

	keys := make([]string, 0, len(s.cache))
	for key := range s.cache {
		keys = append(keys, key)
	}
	return keys, nil
}

// ClearCache removes all cache entries.
func (s *MemoryStore) ClearCache(ctx context.Context) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache = make(map[string]*CacheEntry)
	return nil
}

// PruneCacheBefore deletes entries created before cutoff.
func (s *MemoryStore) PruneCacheBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	var n int64
	for key, entry := range s.cache {
		if entry.CreatedAt.Before(cutoff) {
			delete(s.cache, key)
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

func copySession(sess *Session) *Session {
	cp := *sess
	cp.Turns = make([]Turn, len(sess.Turns))
	copy(cp.Turns, sess.Turns)
	return &cp
}

func copyEntry(e *CacheEntry) *CacheEntry {
	cp := *e
	cp.Tokens = make([]string, len(e.Tokens))
	copy(cp.Tokens, e.Tokens)
	return &cp
}
