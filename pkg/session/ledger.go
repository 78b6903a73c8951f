// Package session implements the append-only chat transcript ledger.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"emberhq/ember/pkg/store"
)

// Ledger records chat transcripts in the durable store. Sessions are
// created explicitly, mutated only by appending turns, and removed only by
// whole-session deletion.
type Ledger struct {
	store  store.Store
	logger *slog.Logger
}

// NewLedger creates a ledger over the given store.
func NewLedger(s store.Store) *Ledger {
	return &Ledger{
		store:  s,
		logger: slog.Default().With("component", "session.ledger"),
	}
}

// Create generates a unique session id, persists an empty session with the
// given title, and returns it.
func (l *Ledger) Create(ctx context.Context, title string) (*store.Session, error) {
	sess := &store.Session{
		ID:        uuid.NewString(),
		Title:     title,
		Turns:     []store.Turn{},
		CreatedAt: time.Now(),
	}

	if err := l.store.PutSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	l.logger.Debug("session created", "session_id", sess.ID)
	return sess, nil
}

// Append appends a turn to the session. A missing session is a silent
// no-op: a client-supplied id for a deleted session must not abort an
// otherwise-successful chat stream.
func (l *Ledger) Append(ctx context.Context, sessionID string, role store.Role, text string) error {
	if sessionID == "" {
		return nil
	}

	err := l.store.AppendTurn(ctx, sessionID, store.Turn{Role: role, Text: text})
	if errors.Is(err, store.ErrNotFound) {
		l.logger.Debug("append to unknown session skipped", "session_id", sessionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// Get returns the session with the given id, or store.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	return l.store.GetSession(ctx, sessionID)
}

// Delete removes a session. Deleting an absent id succeeds.
func (l *Ledger) Delete(ctx context.Context, sessionID string) error {
	return l.store.DeleteSession(ctx, sessionID)
}

// List returns all sessions in creation order.
func (l *Ledger) List(ctx context.Context) ([]*store.Session, error) {
	return l.store.ListSessions(ctx)
}
