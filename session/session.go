// Package session owns per-user conversation state. A session is mutated by
// at most one orchestrator loop at a time; a second turn arriving while one
// is in flight is rejected with ErrBusy rather than interleaved.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/guardline/guardline/models"
)

// ErrBusy signals that a turn is already in flight for the session.
var ErrBusy = errors.New("session busy: a turn is already being processed")

// Store manages session lifecycle.
type Store interface {
	// EnsureSession returns the session for id, creating it if needed. An
	// empty id creates a session under a fresh key.
	EnsureSession(ctx context.Context, id string, ttl time.Duration) (*Session, error)
	// GetSession returns the session for id, or nil when absent.
	GetSession(ctx context.Context, id string) (*Session, error)
	// SaveSession persists the session snapshot (no-op for purely
	// in-memory stores).
	SaveSession(ctx context.Context, sess *Session) error
	// ClearSession drops the session and its conversation state.
	ClearSession(ctx context.Context, id string) error
}

// Session holds one conversation. Turns are append-only except for Reset.
type Session struct {
	id        string
	mu        sync.Mutex
	turns     []models.Turn
	expiresAt time.Time
	inFlight  chan struct{}
}

// Snapshot is the serializable form of a session.
type Snapshot struct {
	ID        string        `json:"id"`
	Turns     []models.Turn `json:"turns"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// NewSession creates an empty session.
func NewSession(id string, ttl time.Duration) *Session {
	return &Session{
		id:        id,
		expiresAt: time.Now().Add(ttl),
		inFlight:  make(chan struct{}, 1),
	}
}

// FromSnapshot restores a session from its serialized form.
func FromSnapshot(snap Snapshot) *Session {
	s := NewSession(snap.ID, time.Until(snap.ExpiresAt))
	s.turns = append(s.turns, snap.Turns...)
	s.expiresAt = snap.ExpiresAt
	return s
}

// ID returns the session key.
func (s *Session) ID() string { return s.id }

// Expire pushes the expiry deadline forward.
func (s *Session) Expire(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresAt = time.Now().Add(ttl)
}

// Expired reports whether the session passed its deadline.
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().After(s.expiresAt)
}

// TryAcquire claims the session for one turn. It fails immediately when a
// turn is already running; callers surface that as a busy signal.
func (s *Session) TryAcquire() bool {
	select {
	case s.inFlight <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the session after a turn.
func (s *Session) Release() {
	select {
	case <-s.inFlight:
	default:
	}
}

// Turns returns a copy of the conversation history.
func (s *Session) Turns() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// AppendTurns commits completed turns to the conversation. The orchestrator
// appends a whole user turn (message, tool call/result pairs, answer)
// atomically so a cancelled turn never leaves partial state behind.
func (s *Session) AppendTurns(turns ...models.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
}

// Reset drops the conversation history.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// Snapshot returns the serializable state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]models.Turn, len(s.turns))
	copy(turns, s.turns)
	return Snapshot{ID: s.id, Turns: turns, ExpiresAt: s.expiresAt}
}

// StoreType selects the session store backend.
type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
	RedisStore    StoreType = "redis"
)

// ParseStoreType validates a configured backend name.
func ParseStoreType(s string) (StoreType, error) {
	switch StoreType(s) {
	case InMemoryStore, RedisStore:
		return StoreType(s), nil
	}
	return "", fmt.Errorf("unsupported session store type: %s", s)
}
