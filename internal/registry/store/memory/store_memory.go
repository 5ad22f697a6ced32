package memory

import (
	"context"
	"sync"

	"ballotgate/internal/registry/models"
	"ballotgate/pkg/platform/sentinel"
)

// InMemoryStore keeps vote records in a sync.Map. LoadOrStore gives a per-key
// atomic check-and-set, so claims for one identity serialize while claims for
// different identities never contend. Not durable; dev and tests only.
type InMemoryStore struct {
	records sync.Map // identity digest -> models.VoteRecord
}

func New() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(ctx context.Context, rec *models.VoteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, loaded := s.records.LoadOrStore(rec.IdentityDigest, *rec); loaded {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *InMemoryStore) Find(ctx context.Context, identityDigest string) (*models.VoteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := s.records.Load(identityDigest)
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	rec := v.(models.VoteRecord)
	return &rec, nil
}

// Count returns the number of recorded votes.
func (s *InMemoryStore) Count() int {
	n := 0
	s.records.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
