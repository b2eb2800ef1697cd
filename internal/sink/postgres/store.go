// Package postgres persists audit events in PostgreSQL. Rows are append-only;
// the engine never updates or deletes audit records.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"auditflow/internal/emission"
)

// Store implements emission.Sink over a PostgreSQL table.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with the given DSN and verifies the connection.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing connection pool, for callers that manage their own.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is the table the store writes to. Applied by migrations outside
// this package; kept here so integration tests can bootstrap.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id            BIGSERIAL PRIMARY KEY,
	invocation_id UUID        NOT NULL,
	operation     TEXT        NOT NULL,
	symbol        TEXT        NOT NULL,
	seq           INT         NOT NULL,
	emitted_at    TIMESTAMPTZ NOT NULL,
	details       JSONB,
	UNIQUE (invocation_id, seq)
);
CREATE INDEX IF NOT EXISTS audit_events_invocation_idx ON audit_events (invocation_id);
`

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) Record(ctx context.Context, ev emission.Event, inv emission.Invocation) error {
	var details []byte
	if ev.Details != nil {
		var err error
		details, err = json.Marshal(ev.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (invocation_id, operation, symbol, seq, emitted_at, details)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.ExecContext(ctx, query,
		inv.ID,
		inv.Operation,
		string(ev.Symbol),
		ev.Seq,
		ev.Timestamp.UTC().Format(time.RFC3339Nano),
		details,
	); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// CountByInvocation returns how many events one invocation produced. Used by
// integration tests; query/reporting APIs are otherwise out of scope.
func (s *Store) CountByInvocation(ctx context.Context, invocationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_events WHERE invocation_id = $1`, invocationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
