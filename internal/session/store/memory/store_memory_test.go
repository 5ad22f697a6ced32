package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotgate/internal/session/models"
	"ballotgate/pkg/domain"
	"ballotgate/pkg/platform/sentinel"
)

type SessionStoreSuite struct {
	suite.Suite
	now   time.Time
	store *InMemoryStore
}

func TestSessionStoreSuite(t *testing.T) {
	suite.Run(t, new(SessionStoreSuite))
}

func (s *SessionStoreSuite) SetupTest() {
	s.now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	s.store = New(15*time.Minute, WithClock(func() time.Time { return s.now }))
}

func (s *SessionStoreSuite) newSession() *models.Session {
	sess, err := models.NewSession(domain.NewSessionID(), "kiosk-1", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), sess))
	return sess
}

func (s *SessionStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	sess := s.newSession()
	s.Equal(int64(1), sess.Version)

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.ID, got.ID)
	s.Equal(models.StageAwaitingCredential, got.Stage)

	s.ErrorIs(s.store.Create(ctx, sess), sentinel.ErrAlreadyUsed)

	_, err = s.store.Get(ctx, domain.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestSaveIsVersioned() {
	ctx := context.Background()
	sess := s.newSession()

	a, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	b, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)

	s.Require().NoError(a.BindIdentity("A123", models.Holder{Name: "Ravi"}, s.now))
	s.Require().NoError(s.store.Save(ctx, a))
	s.Equal(int64(2), a.Version)

	s.Require().NoError(b.BindIdentity("B456", models.Holder{}, s.now))
	s.ErrorIs(s.store.Save(ctx, b), sentinel.ErrConflict)

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(domain.IdentityToken("A123"), got.Identity)
}

func (s *SessionStoreSuite) TestReturnedSessionsAreCopies() {
	ctx := context.Background()
	sess := s.newSession()
	s.Require().NoError(sess.BindIdentity("A123", models.Holder{Name: "Ravi"}, s.now))
	s.Require().NoError(s.store.Save(ctx, sess))

	got, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	got.Holder.Name = "changed"

	again, err := s.store.Get(ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal("Ravi", again.Holder.Name)
}

func (s *SessionStoreSuite) TestExpiry() {
	ctx := context.Background()
	sess := s.newSession()

	s.now = s.now.Add(16 * time.Minute)
	_, err := s.store.Get(ctx, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Save(ctx, sess), sentinel.ErrNotFound)
	s.Equal(0, s.store.Len())
}

func (s *SessionStoreSuite) TestDelete() {
	ctx := context.Background()
	sess := s.newSession()

	s.Require().NoError(s.store.Delete(ctx, sess.ID))
	s.ErrorIs(s.store.Delete(ctx, sess.ID), sentinel.ErrNotFound)
	_, err := s.store.Get(ctx, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
