//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "ballotgate/pkg/platform/audit"
	"ballotgate/pkg/testutil/containers"
)

type AuditRedisSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *Store
}

func TestAuditRedisSuite(t *testing.T) {
	suite.Run(t, new(AuditRedisSuite))
}

func (s *AuditRedisSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = New(s.redis.Client)
}

func (s *AuditRedisSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *AuditRedisSuite) TestAppendWritesStreamAndSubjectList() {
	ctx := context.Background()
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: at, Action: string(audit.EventSessionStarted), SessionID: "sess-1",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: at, Action: string(audit.EventVoteCast), SubjectDigest: "digest-a", Decision: "accepted",
	}))

	n, err := s.redis.Client.XLen(ctx, StreamKey).Result()
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	events, err := s.store.ListBySubject(ctx, "digest-a")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventVoteCast), events[0].Action)
	s.Equal(audit.CategoryCompliance, events[0].Category)

	ttl, err := s.redis.Client.TTL(ctx, subjectKey("digest-a")).Result()
	s.Require().NoError(err)
	s.Equal(time.Duration(-1), ttl, "audit keys never expire")
}
