package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/guardline/guardline/models"
)

func TestEnsureSessionCreatesWithFreshID(t *testing.T) {
	store := NewStore()
	sess, err := store.EnsureSession(context.Background(), "", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID() == "" {
		t.Fatalf("expected a generated session ID")
	}
}

func TestEnsureSessionReusesLive(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	first, _ := store.EnsureSession(ctx, "abc", time.Hour)
	first.AppendTurns(models.Turn{Role: models.RoleUser, Content: "hi"})

	again, err := store.EnsureSession(ctx, "abc", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != first {
		t.Fatalf("expected the same live session back")
	}
	if len(again.Turns()) != 1 {
		t.Fatalf("conversation lost on reuse")
	}
}

func TestEnsureSessionReplacesExpired(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	old, _ := store.EnsureSession(ctx, "abc", -time.Minute)
	old.AppendTurns(models.Turn{Role: models.RoleUser, Content: "hi"})

	fresh, err := store.EnsureSession(ctx, "abc", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fresh.Turns()) != 0 {
		t.Fatalf("expired session should be replaced, not reused")
	}
}

func TestGetSessionAbsent(t *testing.T) {
	store := NewStore()
	sess, err := store.GetSession(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil for absent session")
	}
}

func TestClearSession(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	if _, err := store.EnsureSession(ctx, "abc", time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ClearSession(ctx, "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sess, _ := store.GetSession(ctx, "abc")
	if sess != nil {
		t.Fatalf("cleared session should be gone")
	}
}
