// Package sqlite keeps the audit outbox in the single-node vote database so a
// vote_cast event commits or rolls back with the vote it describes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	audit "ballotgate/pkg/platform/audit"
	txcontext "ballotgate/pkg/platform/tx"
)

// Store implements audit.Store over the outbox table. The database runs with a
// single connection, so writes inside a claim must use the transaction from
// context.
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

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	row, err := audit.NewOutboxRow(event)
	if err != nil {
		return err
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		row.ID.String(),
		row.AggregateType,
		row.AggregateID,
		row.EventType,
		string(row.Payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListBySubject returns a voter's events in insertion order.
func (s *Store) ListBySubject(ctx context.Context, subjectDigest string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM outbox
		WHERE aggregate_type = 'voter' AND aggregate_id = ?
		ORDER BY rowid
	`, subjectDigest)
	if err != nil {
		return nil, fmt.Errorf("list outbox by subject: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		event, err := audit.DecodeOutboxPayload([]byte(raw))
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
