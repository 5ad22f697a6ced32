//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotgate/internal/registry/models"
	"ballotgate/pkg/platform/sentinel"
	txcontext "ballotgate/pkg/platform/tx"
	"ballotgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = New(s.pg.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) record(digest string) *models.VoteRecord {
	rec, err := models.NewVoteRecord(digest, "kiosk-1", time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	s.Require().NoError(err)
	return rec
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()

	s.Require().NoError(s.store.Insert(ctx, s.record("a")))
	s.ErrorIs(s.store.Insert(ctx, s.record("a")), sentinel.ErrAlreadyUsed)

	rec, err := s.store.Find(ctx, "a")
	s.Require().NoError(err)
	s.Equal(models.FormatVersion, rec.FormatVersion)
	s.Equal("kiosk-1", rec.KioskID)
	s.True(rec.CastAt.Equal(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)))

	_, err = s.store.Find(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSessionIsStored() {
	ctx := context.Background()
	rec := s.record("a")
	rec.SessionID = "sess-1"
	s.Require().NoError(s.store.Insert(ctx, rec))

	got, err := s.store.Find(ctx, "a")
	s.Require().NoError(err)
	s.True(got.CastBy("sess-1"))
}

func (s *PostgresStoreSuite) TestRolledBackTransactionWritesNothing() {
	ctx := context.Background()
	boom := errors.New("outbox write failed")

	err := txcontext.RunInTx(ctx, s.pg.DB, func(txCtx context.Context) error {
		_, ok := txcontext.From(txCtx)
		s.True(ok)
		s.Require().NoError(s.store.Insert(txCtx, s.record("rolled-back")))
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.Find(ctx, "rolled-back")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUnknownFormatVersionIsCorrupt() {
	ctx := context.Background()
	_, err := s.pg.DB.ExecContext(ctx, `
		INSERT INTO vote_records (identity_digest, format_version, kiosk_id, cast_at)
		VALUES ('future', 99, 'kiosk-9', NOW())
	`)
	s.Require().NoError(err)

	_, err = s.store.Find(ctx, "future")
	s.ErrorIs(err, sentinel.ErrCorrupt)
}

func (s *PostgresStoreSuite) TestConcurrentInsertSameDigest() {
	ctx := context.Background()
	const goroutines = 32

	var wg sync.WaitGroup
	var accepted, rejected atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Insert(ctx, s.record("race"))
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), accepted.Load())
	s.Equal(int32(goroutines-1), rejected.Load())
}

func (s *PostgresStoreSuite) TestDistinctDigestsAllAccepted() {
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.Insert(ctx, s.record(fmt.Sprintf("voter-%d", i))))
		}()
	}
	wg.Wait()

	var n int
	s.Require().NoError(s.pg.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM vote_records`).Scan(&n))
	s.Equal(16, n)
}
