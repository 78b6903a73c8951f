package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // cgo driver "sqlite3"
	_ "modernc.org/sqlite"          // pure Go driver "sqlite"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Driver is the database/sql driver name: "sqlite3" (cgo) or
	// "sqlite" (pure Go). Default: "sqlite3".
	Driver string

	// DataDir is the directory holding the database file. It is created
	// if missing. Default: "data".
	DataDir string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:      "sqlite3",
		DataDir:     "data",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStore implements Store on an embedded SQLite database.
//
// WAL mode allows concurrent readers alongside the writer. Writes within
// each collection are additionally serialized with a per-collection mutex
// so concurrent requests cannot interleave read-modify-write sequences.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger

	sessionsMu sync.Mutex
	cacheMu    sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and applies the schema.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if cfg.Driver == "" {
		cfg.Driver = "sqlite3"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "store.sqlite")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, NewStorageError("sqlite", "mkdir", err)
	}

	path := filepath.Join(cfg.DataDir, "ember.db")
	db, err := sql.Open(cfg.Driver, path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store initialized",
		"path", path,
		"driver", cfg.Driver,
	)

	return s, nil
}

// initialize enables WAL mode, sets the busy timeout, and creates the schema.
func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return NewStorageError("sqlite", "enable_wal", err)
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	return nil
}

// PutSession inserts a new session.
func (s *SQLiteStore) PutSession(ctx context.Context, sess *Session) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, title, created_at) VALUES (?, ?, ?)",
		sess.ID, sess.Title, sess.CreatedAt.UnixNano(),
	)
	if err != nil {
		return NewStorageError("sqlite", "put_session", err)
	}
	return nil
}

// GetSession returns a session with its turns in append order.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var sess Session
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT id, title, created_at FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &sess.Title, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "get_session", err)
	}
	sess.CreatedAt = time.Unix(0, createdAt)

	turns, err := s.loadTurns(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Turns = turns

	return &sess, nil
}

// ListSessions returns all sessions with their turns in creation order.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at FROM sessions ORDER BY created_at, id",
	)
	if err != nil {
		return nil, NewStorageError("sqlite", "list_sessions", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		var createdAt int64
		if err := rows.Scan(&sess.ID, &sess.Title, &createdAt); err != nil {
			return nil, NewStorageError("sqlite", "list_sessions", err)
		}
		sess.CreatedAt = time.Unix(0, createdAt)
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list_sessions", err)
	}

	for _, sess := range sessions {
		turns, err := s.loadTurns(ctx, sess.ID)
		if err != nil {
			return nil, err
		}
		sess.Turns = turns
	}

	return sessions, nil
}

// DeleteSession removes a session and its turns. Idempotent.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("sqlite", "delete_session", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", id); err != nil {
		return NewStorageError("sqlite", "delete_session", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return NewStorageError("sqlite", "delete_session", err)
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("sqlite", "delete_session", err)
	}
	return nil
}

// AppendTurn appends a turn to an existing session. The sequence number is
// assigned inside the transaction so appends never reorder.
func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, t Turn) error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError("sqlite", "append_turn", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", sessionID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return NewStorageError("sqlite", "append_turn", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, seq, role, text)
		 VALUES (?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE session_id = ?), ?, ?)`,
		sessionID, sessionID, string(t.Role), t.Text,
	)
	if err != nil {
		return NewStorageError("sqlite", "append_turn", err)
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError("sqlite", "append_turn", err)
	}
	return nil
}

// GetCacheEntry returns the entry for key, or ErrNotFound.
func (s *SQLiteStore) GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error) {
	var entry CacheEntry
	var tokensJSON string
	var createdAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT key, tokens, created_at FROM cache_entries WHERE key = ?", key,
	).Scan(&entry.Key, &tokensJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, NewStorageError("sqlite", "get_cache_entry", err)
	}

	if err := json.Unmarshal([]byte(tokensJSON), &entry.Tokens); err != nil {
		return nil, NewStorageError("sqlite", "decode_tokens", err)
	}
	entry.CreatedAt = time.Unix(0, createdAt)

	return &entry, nil
}

// PutCacheEntry inserts or overwrites the entry for its key.
func (s *SQLiteStore) PutCacheEntry(ctx context.Context, e *CacheEntry) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	tokensJSON, err := json.Marshal(e.Tokens)
	if err != nil {
		return NewStorageError("sqlite", "encode_tokens", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, tokens, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET tokens = excluded.tokens, created_at = excluded.created_at`,
		e.Key, string(tokensJSON), e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return NewStorageError("sqlite", "put_cache_entry", err)
	}
	return nil
}

// ListCacheKeys returns all cache keys.
func (s *SQLiteStore) ListCacheKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM cache_entries ORDER BY created_at, key")
	if err != nil {
		return nil, NewStorageError("sqlite", "list_cache_keys", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, NewStorageError("sqlite", "list_cache_keys", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "list_cache_keys", err)
	}
	return keys, nil
}

// ClearCache removes all cache entries.
func (s *SQLiteStore) ClearCache(ctx context.Context) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries"); err != nil {
		return NewStorageError("sqlite", "clear_cache", err)
	}
	return nil
}

// PruneCacheBefore deletes entries created before cutoff.
func (s *SQLiteStore) PruneCacheBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE created_at < ?", cutoff.UnixNano(),
	)
	if err != nil {
		return 0, NewStorageError("sqlite", "prune_cache", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "prune_cache", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// loadTurns loads a session's turns ordered by sequence number.
func (s *SQLiteStore) loadTurns(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, text FROM turns WHERE session_id = ? ORDER BY seq", sessionID,
	)
	if err != nil {
		return nil, NewStorageError("sqlite", "load_turns", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var role, text string
		if err := rows.Scan(&role, &text); err != nil {
			return nil, NewStorageError("sqlite", "load_turns", err)
		}
		turns = append(turns, Turn{Role: Role(role), Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "load_turns", err)
	}
	return turns, nil
}
