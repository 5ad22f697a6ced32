package worker

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLiteOutbox reads the outbox table of the single-node vote database. It
// holds no transaction while producing: the database has one connection and
// votes must not wait on Kafka. One relay runs per database, so a batch is
// only re-sent when marking it published fails.
type SQLiteOutbox struct {
	db *sql.DB
}

func NewSQLiteOutbox(db *sql.DB) *SQLiteOutbox {
	return &SQLiteOutbox{db: db}
}

func (o *SQLiteOutbox) WithPending(ctx context.Context, limit int, fn func([]Entry) error) (int, error) {
	entries, err := o.pending(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := fn(entries); err != nil {
		return 0, fmt.Errorf("publish outbox batch: %w", err)
	}

	args := make([]any, 0, len(entries)+1)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for _, e := range entries {
		args = append(args, e.ID.String())
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(entries)), ",")
	if _, err := o.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = ? WHERE id IN (`+placeholders+`)`, args...,
	); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	return len(entries), nil
}

func (o *SQLiteOutbox) pending(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY rowid
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			id      string
			payload string
		)
		if err := rows.Scan(&id, &e.AggregateID, &e.EventType, &payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("outbox entry id %q: %w", id, err)
		}
		e.Payload = []byte(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}
