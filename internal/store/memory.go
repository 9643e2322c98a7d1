package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryCaseStore keeps case records in process memory.
type MemoryCaseStore struct {
	mu    sync.RWMutex
	cases map[string]CaseRecord
}

// NewMemoryCaseStore builds an in-memory case store.
func NewMemoryCaseStore() *MemoryCaseStore {
	return &MemoryCaseStore{cases: make(map[string]CaseRecord)}
}

func (m *MemoryCaseStore) SaveCase(_ context.Context, rec CaseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.cases[rec.ID]; dup {
		return fmt.Errorf("case %s already exists", rec.ID)
	}
	m.cases[rec.ID] = rec
	return nil
}

func (m *MemoryCaseStore) CasesBySession(_ context.Context, sessionID string) ([]CaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CaseRecord
	for _, rec := range m.cases {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryCaseStore) MarkAcknowledged(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.cases[id]
	if !ok {
		return fmt.Errorf("case %s not found", id)
	}
	rec.Status = CaseStatusAcknowledged
	m.cases[id] = rec
	return nil
}
