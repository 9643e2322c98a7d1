// Package redisstore persists session snapshots to Redis so conversations
// survive a process restart. Live sessions stay resident in memory because
// the in-flight turn lock is process-local; the snapshot is write-through.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/guardline/guardline/session"
)

const sessionKeyPrefix = "session:"

// Store is a Redis-backed session store.
type Store struct {
	client *redis.Client
	live   map[string]*session.Session
	mu     sync.Mutex
}

// Conn opens and pings a Redis connection.
func Conn(ctx context.Context, host, port, password string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    password,
		DB:          db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s:%s): %w", host, port, err)
	}
	return client, nil
}

// NewStore builds a Redis session store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, live: make(map[string]*session.Session)}
}

func (store *Store) EnsureSession(ctx context.Context, id string, ttl time.Duration) (*session.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if id != "" {
		if sess, ok := store.live[id]; ok && !sess.Expired() {
			sess.Expire(ttl)
			return sess, nil
		}
		sess, err := store.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			sess.Expire(ttl)
			store.live[id] = sess
			return sess, nil
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	sess := session.NewSession(id, ttl)
	store.live[id] = sess
	return sess, nil
}

func (store *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	if sess, ok := store.live[id]; ok && !sess.Expired() {
		return sess, nil
	}
	return store.load(ctx, id)
}

// SaveSession writes the session snapshot through to Redis with the
// session TTL.
func (store *Store) SaveSession(ctx context.Context, sess *session.Session) error {
	snap := sess.Snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshalling session snapshot: %w", err)
	}
	ttl := time.Until(snap.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	return store.client.Set(ctx, sessionKeyPrefix+sess.ID(), data, ttl).Err()
}

func (store *Store) ClearSession(ctx context.Context, id string) error {
	store.mu.Lock()
	delete(store.live, id)
	store.mu.Unlock()
	if err := store.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (store *Store) load(ctx context.Context, id string) (*session.Session, error) {
	val, err := store.client.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	var snap session.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("unmarshalling session %s: %w", id, err)
	}
	return session.FromSnapshot(snap), nil
}
