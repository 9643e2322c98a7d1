package session

import (
	"sync"
	"testing"
	"time"

	"github.com/guardline/guardline/models"
)

func TestTryAcquireIsExclusive(t *testing.T) {
	sess := NewSession("s1", time.Hour)
	if !sess.TryAcquire() {
		t.Fatalf("fresh session should be acquirable")
	}
	if sess.TryAcquire() {
		t.Fatalf("second acquire must fail while a turn is in flight")
	}
	sess.Release()
	if !sess.TryAcquire() {
		t.Fatalf("session should be acquirable after release")
	}
	sess.Release()
}

func TestTryAcquireUnderContention(t *testing.T) {
	sess := NewSession("s1", time.Hour)
	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	won := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if sess.TryAcquire() {
				won <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(won)
	count := 0
	for range won {
		count++
	}
	if count != 1 {
		t.Fatalf("exactly one goroutine should win, got %d", count)
	}
}

func TestAppendTurnsAndCopy(t *testing.T) {
	sess := NewSession("s1", time.Hour)
	sess.AppendTurns(
		models.Turn{Role: models.RoleUser, Content: "hi"},
		models.Turn{Role: models.RoleAssistant, Content: "hello"},
	)
	turns := sess.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	turns[0].Content = "mutated"
	if sess.Turns()[0].Content != "hi" {
		t.Fatalf("Turns must return a copy")
	}
}

func TestReset(t *testing.T) {
	sess := NewSession("s1", time.Hour)
	sess.AppendTurns(models.Turn{Role: models.RoleUser, Content: "hi"})
	sess.Reset()
	if len(sess.Turns()) != 0 {
		t.Fatalf("reset should drop all turns")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	sess := NewSession("s1", time.Hour)
	sess.AppendTurns(
		models.Turn{Role: models.RoleUser, Content: "hi"},
		models.Turn{Role: models.RoleAssistant, ToolCall: &models.ToolCall{ID: "c1", Name: "lookup"}},
	)
	restored := FromSnapshot(sess.Snapshot())
	if restored.ID() != "s1" {
		t.Fatalf("snapshot lost the session ID")
	}
	turns := restored.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 restored turns, got %d", len(turns))
	}
	if turns[1].ToolCall == nil || turns[1].ToolCall.Name != "lookup" {
		t.Fatalf("tool call turn lost in round trip: %+v", turns[1])
	}
	if !restored.TryAcquire() {
		t.Fatalf("restored session must be acquirable")
	}
	restored.Release()
}

func TestExpiry(t *testing.T) {
	sess := NewSession("s1", -time.Minute)
	if !sess.Expired() {
		t.Fatalf("session with past deadline should be expired")
	}
	sess.Expire(time.Hour)
	if sess.Expired() {
		t.Fatalf("extended session should not be expired")
	}
}

func TestParseStoreType(t *testing.T) {
	if _, err := ParseStoreType("inmemory"); err != nil {
		t.Fatalf("inmemory should parse: %v", err)
	}
	if _, err := ParseStoreType("redis"); err != nil {
		t.Fatalf("redis should parse: %v", err)
	}
	if _, err := ParseStoreType("etcd"); err == nil {
		t.Fatalf("unknown store type should fail")
	}
}
