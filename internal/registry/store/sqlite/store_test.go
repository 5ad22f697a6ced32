package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotgate/internal/platform/database"
	"ballotgate/internal/registry/models"
	"ballotgate/pkg/platform/audit"
	auditsqlite "ballotgate/pkg/platform/audit/store/sqlite"
	"ballotgate/pkg/platform/sentinel"
	txcontext "ballotgate/pkg/platform/tx"
)

type SQLiteStoreSuite struct {
	suite.Suite
	path  string
	store *Store
	close func()
}

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, new(SQLiteStoreSuite))
}

func (s *SQLiteStoreSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "votes.db")
	db, err := database.OpenSQLite(context.Background(), s.path)
	s.Require().NoError(err)
	s.store = New(db)
	s.close = func() { _ = db.Close() }
}

func (s *SQLiteStoreSuite) TearDownTest() {
	s.close()
}

func record(digest string) *models.VoteRecord {
	rec, _ := models.NewVoteRecord(digest, "kiosk-1", time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	return rec
}

func (s *SQLiteStoreSuite) TestInsertThenConflict() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, record("a")))
	s.ErrorIs(s.store.Insert(ctx, record("a")), sentinel.ErrAlreadyUsed)
	s.NoError(s.store.Insert(ctx, record("b")))
}

func (s *SQLiteStoreSuite) TestFind() {
	ctx := context.Background()
	_, err := s.store.Find(ctx, "a")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Insert(ctx, record("a")))
	rec, err := s.store.Find(ctx, "a")
	s.Require().NoError(err)
	s.Equal(models.FormatVersion, rec.FormatVersion)
	s.True(rec.CastAt.Equal(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)))
	s.Empty(rec.SessionID)
}

func (s *SQLiteStoreSuite) TestSessionIsStored() {
	ctx := context.Background()
	rec := record("a")
	rec.SessionID = "sess-1"
	s.Require().NoError(s.store.Insert(ctx, rec))

	got, err := s.store.Find(ctx, "a")
	s.Require().NoError(err)
	s.True(got.CastBy("sess-1"))
}

func (s *SQLiteStoreSuite) TestVoteAndAuditShareTransaction() {
	ctx := context.Background()
	auditStore := auditsqlite.New(s.store.db)
	castEvent := audit.Event{
		Timestamp:     time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		Action:        string(audit.EventVoteCast),
		SubjectDigest: "a",
		Decision:      "accepted",
	}

	s.Run("audit failure rolls the vote back", func() {
		err := txcontext.RunInTx(ctx, s.store.db, func(txCtx context.Context) error {
			if err := s.store.Insert(txCtx, record("a")); err != nil {
				return err
			}
			if err := auditStore.Append(txCtx, castEvent); err != nil {
				return err
			}
			return errors.New("outbox write failed")
		})
		s.Require().Error(err)

		_, err = s.store.Find(ctx, "a")
		s.ErrorIs(err, sentinel.ErrNotFound)
		events, err := auditStore.ListBySubject(ctx, "a")
		s.Require().NoError(err)
		s.Empty(events)
	})

	s.Run("vote and audit commit together", func() {
		err := txcontext.RunInTx(ctx, s.store.db, func(txCtx context.Context) error {
			if err := s.store.Insert(txCtx, record("a")); err != nil {
				return err
			}
			return auditStore.Append(txCtx, castEvent)
		})
		s.Require().NoError(err)

		_, err = s.store.Find(ctx, "a")
		s.NoError(err)
		events, err := auditStore.ListBySubject(ctx, "a")
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventVoteCast), events[0].Action)
	})
}

func (s *SQLiteStoreSuite) TestOlderDatabaseGainsSessionColumn() {
	ctx := context.Background()
	s.close()

	path := filepath.Join(s.T().TempDir(), "old.db")
	db, err := sql.Open("sqlite", "file:"+path)
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx, `CREATE TABLE vote_records (
		identity_digest TEXT PRIMARY KEY,
		format_version  INTEGER NOT NULL,
		kiosk_id        TEXT NOT NULL,
		cast_at         TEXT NOT NULL
	)`)
	s.Require().NoError(err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO vote_records VALUES ('old', 1, 'kiosk-0', '2026-05-04T08:00:00Z')`)
	s.Require().NoError(err)
	s.Require().NoError(db.Close())

	db, err = database.OpenSQLite(ctx, path)
	s.Require().NoError(err)
	s.close = func() { _ = db.Close() }
	store := New(db)

	rec, err := store.Find(ctx, "old")
	s.Require().NoError(err)
	s.Equal("kiosk-0", rec.KioskID)
	s.Empty(rec.SessionID)
}

func (s *SQLiteStoreSuite) TestRecordSurvivesReopen() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, record("durable")))
	s.close()

	db, err := database.OpenSQLite(ctx, s.path)
	s.Require().NoError(err)
	reopened := New(db)
	s.close = func() { _ = db.Close() }

	_, err = reopened.Find(ctx, "durable")
	s.NoError(err)
	s.ErrorIs(reopened.Insert(ctx, record("durable")), sentinel.ErrAlreadyUsed)
}

func (s *SQLiteStoreSuite) TestUnknownVersionIsCorrupt() {
	ctx := context.Background()
	_, err := s.store.db.ExecContext(ctx,
		`INSERT INTO vote_records (identity_digest, format_version, kiosk_id, cast_at) VALUES ('x', 7, 'k', '2026-05-04T09:00:00Z')`)
	s.Require().NoError(err)

	_, err = s.store.Find(ctx, "x")
	s.ErrorIs(err, sentinel.ErrCorrupt)
}

func (s *SQLiteStoreSuite) TestConcurrentInsertSameDigest() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var accepted, rejected, other atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := s.store.Insert(ctx, record("race")); err {
			case nil:
				accepted.Add(1)
			case sentinel.ErrAlreadyUsed:
				rejected.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), accepted.Load())
	s.Equal(int32(goroutines-1), rejected.Load())
	s.Zero(other.Load())
}
