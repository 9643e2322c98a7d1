// Package store persists case records. The Postgres implementation backs
// durable deployments; the in-memory one covers unconfigured setups and
// tests.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Case record statuses.
const (
	CaseStatusSubmitted    = "submitted"
	CaseStatusAcknowledged = "acknowledged"
)

// CaseRecord is one persisted incident report. The ID is issued locally at
// creation and never reused; acknowledgment by the intake backend flips the
// status.
type CaseRecord struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Description   string    `json:"description"`
	Location      string    `json:"location"`
	Urgency       string    `json:"urgency"`
	ContactMethod string    `json:"contact_method"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// CaseStore persists case records.
type CaseStore interface {
	SaveCase(ctx context.Context, rec CaseRecord) error
	CasesBySession(ctx context.Context, sessionID string) ([]CaseRecord, error)
	MarkAcknowledged(ctx context.Context, id string) error
}

// Store is the Postgres-backed case store.
type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a Postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) SaveCase(ctx context.Context, rec CaseRecord) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO cases (id, session_id, description, location, urgency, contact_method, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, rec.ID, rec.SessionID, rec.Description, rec.Location, rec.Urgency, rec.ContactMethod, rec.Status, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving case %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) CasesBySession(ctx context.Context, sessionID string) ([]CaseRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, session_id, description, location, urgency, contact_method, status, created_at
FROM cases WHERE session_id = $1 ORDER BY created_at
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing cases for session %s: %w", sessionID, err)
	}
	defer rows.Close()
	var out []CaseRecord
	for rows.Next() {
		var rec CaseRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Description, &rec.Location, &rec.Urgency, &rec.ContactMethod, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) MarkAcknowledged(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE cases SET status = $1 WHERE id = $2`, CaseStatusAcknowledged, id)
	if err != nil {
		return fmt.Errorf("acknowledging case %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("case %s not found", id)
	}
	return nil
}
