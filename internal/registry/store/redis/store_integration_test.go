//go:build integration

package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ballotgate/internal/registry/models"
	"ballotgate/pkg/platform/sentinel"
	"ballotgate/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *Store
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = New(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) record(digest string) *models.VoteRecord {
	rec, err := models.NewVoteRecord(digest, "kiosk-2", time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC))
	s.Require().NoError(err)
	return rec
}

func (s *RedisStoreSuite) TestInsertAndFind() {
	ctx := context.Background()

	s.Require().NoError(s.store.Insert(ctx, s.record("a")))
	s.ErrorIs(s.store.Insert(ctx, s.record("a")), sentinel.ErrAlreadyUsed)

	rec, err := s.store.Find(ctx, "a")
	s.Require().NoError(err)
	s.Equal("kiosk-2", rec.KioskID)
	s.Equal(models.FormatVersion, rec.FormatVersion)

	ttl, err := s.redis.Client.TTL(ctx, voteKey("a")).Result()
	s.Require().NoError(err)
	s.Equal(time.Duration(-1), ttl, "vote keys never expire")

	_, err = s.store.Find(ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSessionSurvivesEnvelope() {
	ctx := context.Background()
	rec := s.record("a")
	rec.SessionID = "sess-1"
	s.Require().NoError(s.store.Insert(ctx, rec))

	got, err := s.store.Find(ctx, "a")
	s.Require().NoError(err)
	s.True(got.CastBy("sess-1"))
}

func (s *RedisStoreSuite) TestCheckDurability() {
	ctx := context.Background()
	client := s.redis.Client
	s.T().Cleanup(func() {
		_ = client.ConfigSet(ctx, "appendfsync", "everysec").Err()
		_ = client.ConfigSet(ctx, "appendonly", "no").Err()
	})

	s.Require().NoError(client.ConfigSet(ctx, "appendonly", "no").Err())
	err := s.store.CheckDurability(ctx)
	s.ErrorIs(err, ErrNotDurable)

	s.Require().NoError(client.ConfigSet(ctx, "appendonly", "yes").Err())
	s.Require().NoError(client.ConfigSet(ctx, "appendfsync", "everysec").Err())
	s.ErrorIs(s.store.CheckDurability(ctx), ErrNotDurable, "everysec can lose the last second of votes")

	s.Require().NoError(client.ConfigSet(ctx, "appendfsync", "always").Err())
	s.NoError(s.store.CheckDurability(ctx))
}

func (s *RedisStoreSuite) TestGarbageEnvelopeIsCorrupt() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, voteKey("junk"), "not-json", 0).Err())

	_, err := s.store.Find(ctx, "junk")
	s.ErrorIs(err, sentinel.ErrCorrupt)
}

func (s *RedisStoreSuite) TestConcurrentInsertSameDigest() {
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
