package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ballotgate/internal/registry/models"
	"ballotgate/pkg/platform/sentinel"
	txcontext "ballotgate/pkg/platform/tx"
)

// Store persists vote records in PostgreSQL. Inserts join a transaction from
// context when present so the compliance outbox row commits with the vote.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Insert(ctx context.Context, rec *models.VoteRecord) error {
	result, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO vote_records (identity_digest, format_version, kiosk_id, session_id, cast_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_digest) DO NOTHING
	`, rec.IdentityDigest, rec.FormatVersion, rec.KioskID, rec.SessionID, rec.CastAt)
	if err != nil {
		return fmt.Errorf("insert vote record: %w: %w", sentinel.ErrUnavailable, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert vote record rows affected: %w: %w", sentinel.ErrUnavailable, err)
	}
	if rows == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *Store) Find(ctx context.Context, identityDigest string) (*models.VoteRecord, error) {
	var rec models.VoteRecord
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT identity_digest, format_version, kiosk_id, session_id, cast_at
		FROM vote_records
		WHERE identity_digest = $1
	`, identityDigest).Scan(&rec.IdentityDigest, &rec.FormatVersion, &rec.KioskID, &rec.SessionID, &rec.CastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find vote record: %w: %w", sentinel.ErrUnavailable, err)
	}
	if err := rec.CheckVersion(); err != nil {
		return nil, err
	}
	return &rec, nil
}
