package memory

import (
	"context"
	"sync"
	"time"

	"ballotgate/internal/session/models"
	"ballotgate/pkg/domain"
	"ballotgate/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in process memory. Sessions idle for longer
// than the TTL are dropped on access.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]models.Session
	ttl      time.Duration
	now      func() time.Time
}

type Option func(*InMemoryStore)

func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a store. A zero ttl disables expiry.
func New(ttl time.Duration, opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[domain.SessionID]models.Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Create(ctx context.Context, sess *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	sess.Version = 1
	sess.UpdatedAt = s.touch(sess.UpdatedAt)
	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return nil, sentinel.ErrNotFound
	}
	out := clone(&sess)
	return &out, nil
}

// Save replaces the session if sess.Version matches the stored version and
// bumps the version on success.
func (s *InMemoryStore) Save(ctx context.Context, sess *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sess.ID]
	if !ok || s.expired(current) {
		return sentinel.ErrNotFound
	}
	if current.Version != sess.Version {
		return sentinel.ErrConflict
	}
	sess.Version++
	s.sessions[sess.ID] = clone(sess)
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *InMemoryStore) expired(sess models.Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl
}

func (s *InMemoryStore) touch(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func clone(sess *models.Session) models.Session {
	out := *sess
	if sess.Holder != nil {
		h := *sess.Holder
		out.Holder = &h
	}
	if sess.VotedAt != nil {
		v := *sess.VotedAt
		out.VotedAt = &v
	}
	return out
}
