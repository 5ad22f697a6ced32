package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ballotgate/internal/ratelimit"
)

const keyPrefix = "ballotgate:ratelimit:"

// Store keeps each window as a sorted set of request timestamps so every
// server sharing the Redis instance sees the same count.
type Store struct {
	client *redis.Client
	now    func() time.Time
}

func New(client *redis.Client) *Store {
	return &Store{client: client, now: time.Now}
}

func (s *Store) Allow(ctx context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	now := s.now()
	k := keyPrefix + key
	cutoff := now.Add(-window).UnixMicro()

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
		count = pipe.ZCard(ctx, k)
		oldest = pipe.ZRangeWithScores(ctx, k, 0, 0)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read rate window: %w", err)
	}

	resetAt := now.Add(window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.UnixMicro(int64(zs[0].Score)).Add(window)
	}

	// Count and add are separate round trips, so racing servers can overshoot
	// the limit by a request each.
	n := int(count.Val())
	if n >= limit {
		return &ratelimit.Result{
			Allowed:    false,
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: ratelimit.RetryAfterSeconds(resetAt.Sub(now)),
		}, nil
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMicro()), Member: uuid.NewString()})
		pipe.PExpire(ctx, k, window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record request: %w", err)
	}
	if n == 0 {
		resetAt = now.Add(window)
	}
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - n - 1,
		ResetAt:   resetAt,
	}, nil
}
