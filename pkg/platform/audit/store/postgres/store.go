package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	audit "ballotgate/pkg/platform/audit"
	txcontext "ballotgate/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table, in the caller's transaction when one
// is in context, and published to Kafka by the outbox relay.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	row, err := audit.NewOutboxRow(event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		row.ID,
		row.AggregateType,
		row.AggregateID,
		row.EventType,
		row.Payload,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListBySubject reads a voter's events back out of the outbox.
func (s *Store) ListBySubject(ctx context.Context, subjectDigest string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM outbox
		WHERE aggregate_type = 'voter' AND aggregate_id = $1
		ORDER BY created_at ASC
	`, subjectDigest)
	if err != nil {
		return nil, fmt.Errorf("list outbox by subject: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		event, err := audit.DecodeOutboxPayload(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}
