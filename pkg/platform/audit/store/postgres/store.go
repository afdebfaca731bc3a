package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "dcaf/pkg/platform/audit"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver
)

// Schema creates the audit_events table when it does not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id              UUID PRIMARY KEY,
	category        TEXT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	subject         TEXT NOT NULL DEFAULT '',
	action          TEXT NOT NULL,
	decision        TEXT NOT NULL DEFAULT '',
	reason          TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	request_id      TEXT NOT NULL DEFAULT '',
	error_code      TEXT NOT NULL DEFAULT '',
	subject_id_hash TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON audit_events (subject, timestamp);
`

// Store implements audit.Store on PostgreSQL. Forensic login failure records
// land here so they survive process restarts.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store over an open handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

// Append inserts an audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	query := `
		INSERT INTO audit_events (
			id, category, timestamp, subject, action,
			decision, reason, email, request_id, error_code, subject_id_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		event.Subject,
		event.Action,
		event.Decision,
		event.Reason,
		event.Email,
		event.RequestID,
		event.ErrorCode,
		event.SubjectIDHash,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns events for a subject in chronological order.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, subject, action, decision, reason,
			   email, request_id, error_code, subject_id_hash
		FROM audit_events
		WHERE subject = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns up to limit events, most recent last.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT category, timestamp, subject, action, decision, reason,
			   email, request_id, error_code, subject_id_hash
		FROM (
			SELECT * FROM audit_events ORDER BY timestamp DESC LIMIT $1
		) recent
		ORDER BY timestamp ASC
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			category string
			event    audit.Event
		)
		err := rows.Scan(
			&category,
			&event.Timestamp,
			&event.Subject,
			&event.Action,
			&event.Decision,
			&event.Reason,
			&event.Email,
			&event.RequestID,
			&event.ErrorCode,
			&event.SubjectIDHash,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
