package session

import (
	"context"
	"errors"
	"testing"

	"emberhq/ember/pkg/store"
)

func TestLedger_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemoryStore())

	sess, err := l.Create(ctx, "my chat")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.ID == "" {
		t.Error("Expected a generated session id")
	}
	if sess.Title != "my chat" {
		t.Errorf("Expected title %q, got %q", "my chat", sess.Title)
	}
	if len(sess.Turns) != 0 {
		t.Errorf("Expected empty transcript, got %d turns", len(sess.Turns))
	}

	got, err := l.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("Expected id %s, got %s", sess.ID, got.ID)
	}
}

func TestLedger_CreateUniqueIDs(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemoryStore())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		sess, err := l.Create(ctx, "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if seen[sess.ID] {
			t.Fatalf("Duplicate session id %s", sess.ID)
		}
		seen[sess.ID] = true
	}
}

func TestLedger_AppendRecordsTurns(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemoryStore())

	sess, err := l.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := l.Append(ctx, sess.ID, store.RoleUser, "hello"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := l.Append(ctx, sess.ID, store.RoleAssistant, "hi"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	got, err := l.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Turns) != 2 {
		t.Fatalf("Expected 2 turns, got %d", len(got.Turns))
	}
	if got.Turns[0].Role != store.RoleUser || got.Turns[0].Text != "hello" {
		t.Errorf("Unexpected first turn: %+v", got.Turns[0])
	}
	if got.Turns[1].Role != store.RoleAssistant || got.Turns[1].Text != "hi" {
		t.Errorf("Unexpected second turn: %+v", got.Turns[1])
	}
}

func TestLedger_AppendUnknownSessionIsNoOp(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemoryStore())

	if err := l.Append(ctx, "deleted-session", store.RoleUser, "hello"); err != nil {
		t.Errorf("Expected silent no-op for unknown session, got %v", err)
	}
}

func TestLedger_AppendEmptySessionIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemoryStore())

	if err := l.Append(ctx, "", store.RoleUser, "hello"); err != nil {
		t.Errorf("Expected no-op for empty session id, got %v", err)
	}
}

func TestLedger_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemoryStore())

	sess, err := l.Create(ctx, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := l.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := l.Get(ctx, sess.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := l.Delete(ctx, sess.ID); err != nil {
		t.Errorf("Expected idempotent delete, got %v", err)
	}
}

func TestLedger_ListCreationOrder(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(store.NewMemoryStore())

	var ids []string
	for i := 0; i < 3; i++ {
		sess, err := l.Create(ctx, "")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, sess.ID)
	}

	sessions, err := l.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	for i, sess := range sessions {
		if sess.ID != ids[i] {
			t.Errorf("Position %d: expected %s, got %s", i, ids[i], sess.ID)
		}
	}
}
