package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testSession(id string) Session {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	return Session{
		ID:             id,
		JobDescription: "Senior Go engineer, Kubernetes experience required.",
		History:        []Turn{{Role: RoleAssistant, Content: "Hello!"}},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TestMemStore_PutGet checks the roundtrip.
func TestMemStore_PutGet(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	want := testSession("abc")
	if err := s.Put(ctx, want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.JobDescription != want.JobDescription {
		t.Errorf("unexpected job description: %q", got.JobDescription)
	}
	if len(got.History) != 1 || got.History[0].Content != "Hello!" {
		t.Errorf("unexpected history: %+v", got.History)
	}
}

// TestMemStore_GetUnknown checks the sentinel error.
func TestMemStore_GetUnknown(t *testing.T) {
	s := NewMemStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

// TestMemStore_CopyIsolation checks that mutating a returned session does not
// leak into the store.
func TestMemStore_CopyIsolation(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	if err := s.Put(ctx, testSession("abc")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.History[0].Content = "mutated"
	got.History = append(got.History, Turn{Role: RoleUser, Content: "extra"})

	again, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(again.History) != 1 || again.History[0].Content != "Hello!" {
		t.Errorf("store state was mutated through a returned copy: %+v", again.History)
	}
}

// TestMemStore_PutOverwrites checks Put replaces an existing session.
func TestMemStore_PutOverwrites(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	sess := testSession("abc")
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("put: %v", err)
	}
	sess.History = append(sess.History, Turn{Role: RoleUser, Content: "Tell me more."})
	if err := s.Put(ctx, sess); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.History) != 2 {
		t.Errorf("expected 2 turns after overwrite, got %d", len(got.History))
	}
}

// TestMemStore_Delete checks removal and the unknown-id error.
func TestMemStore_Delete(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	if err := s.Put(ctx, testSession("abc")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "abc"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "abc"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for second delete, got %v", err)
	}
}

// TestMemStore_ZeroValue checks the zero value accepts Put.
func TestMemStore_ZeroValue(t *testing.T) {
	var s MemStore
	if err := s.Put(context.Background(), testSession("abc")); err != nil {
		t.Fatalf("put on zero value: %v", err)
	}
	if _, err := s.Get(context.Background(), "abc"); err != nil {
		t.Fatalf("get on zero value: %v", err)
	}
}
