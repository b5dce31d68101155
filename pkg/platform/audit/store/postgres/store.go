package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ballotledger/pkg/platform/audit"
	txcontext "ballotledger/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const aggregateType = "election"

// Store implements audit.Store as an outbox table that the relay drains to
// Kafka, so a broker outage never blocks or fails an election mutation.
// The election service emits after its mutation commits, so the row is
// written in its own statement and an event can be lost if the process dies
// in between. Append joins a transaction only when a caller puts one on the
// context.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the outbox table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create outbox schema: %w", err)
	}
	return nil
}

// OutboxRecord is one pending row.
type OutboxRecord struct {
	ID        uuid.UUID
	EventType string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		aggregateType,
		event.Actor.String(),
		string(event.Type),
		payload,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest events, newest first, whether or not they
// have been relayed.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT payload FROM outbox
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		var event audit.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("decode outbox payload: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

// ListPending returns up to limit unpublished rows in creation order.
func (s *Store) ListPending(ctx context.Context, limit int) ([]OutboxRecord, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var out []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.Key, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending outbox: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending outbox: %w", err)
	}
	return out, nil
}

// MarkPublished stamps a row as relayed. Already published rows are left alone.
func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE outbox SET published_at = $2 WHERE id = $1 AND published_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
