package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// OpenPostgres connects with lib/pq, verifies the connection, and applies the
// schema. Safe to call on an already migrated database.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return db, nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS vote_records (
    identity_digest TEXT PRIMARY KEY,
    format_version  INTEGER NOT NULL,
    kiosk_id        TEXT NOT NULL,
    session_id      TEXT NOT NULL DEFAULT '',
    cast_at         TIMESTAMPTZ NOT NULL
);

ALTER TABLE vote_records ADD COLUMN IF NOT EXISTS session_id TEXT NOT NULL DEFAULT '';

CREATE TABLE IF NOT EXISTS outbox (
    id             UUID PRIMARY KEY,
    aggregate_type TEXT NOT NULL,
    aggregate_id   TEXT NOT NULL,
    event_type     TEXT NOT NULL,
    payload        JSONB NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    published_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_outbox_unpublished ON outbox(created_at) WHERE published_at IS NULL;
`
