package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	txcontext "ballotgate/pkg/platform/tx"
)

// registrySQLTx bounds each vote transaction so a stalled database surfaces
// as a storage error instead of holding a kiosk indefinitely. It serves both
// SQL backends: the vote row and its outbox row share one commit.
type registrySQLTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRegistrySQLTx(db *sql.DB, timeout time.Duration) *registrySQLTx {
	return &registrySQLTx{db: db, timeout: timeout}
}

func (t *registrySQLTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return txcontext.RunInTx(ctx, t.db, fn)
}
