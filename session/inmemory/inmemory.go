package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guardline/guardline/session"
)

// Store keeps sessions in process memory.
type Store struct {
	sessions map[string]*session.Session
	mu       sync.RWMutex
}

// NewStore builds an in-memory session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session.Session)}
}

func (store *Store) EnsureSession(_ context.Context, id string, ttl time.Duration) (*session.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if id != "" {
		if sess, ok := store.sessions[id]; ok && !sess.Expired() {
			sess.Expire(ttl)
			return sess, nil
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	sess := session.NewSession(id, ttl)
	store.sessions[id] = sess
	return sess, nil
}

func (store *Store) GetSession(_ context.Context, id string) (*session.Session, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	sess, ok := store.sessions[id]
	if !ok || sess.Expired() {
		return nil, nil
	}
	return sess, nil
}

func (store *Store) SaveSession(context.Context, *session.Session) error { return nil }

func (store *Store) ClearSession(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.sessions, id)
	return nil
}
