package memory

import (
	"context"
	"sync"
	"time"

	"ballotgate/internal/ratelimit"
)

// InMemoryStore keeps a sliding window of request timestamps per key. It is
// per process; run the Redis store when several servers share kiosks.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

type Option func(*InMemoryStore)

func WithClock(now func() time.Time) Option {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

func New(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{windows: make(map[string][]time.Time), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*ratelimit.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	stamps := prune(s.windows[key], now.Add(-window))

	if len(stamps) >= limit {
		s.windows[key] = stamps
		resetAt := now.Add(window)
		if len(stamps) > 0 {
			resetAt = stamps[0].Add(window)
		}
		return &ratelimit.Result{
			Allowed:    false,
			Limit:      limit,
			ResetAt:    resetAt,
			RetryAfter: ratelimit.RetryAfterSeconds(resetAt.Sub(now)),
		}, nil
	}

	stamps = append(stamps, now)
	s.windows[key] = stamps
	return &ratelimit.Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(stamps),
		ResetAt:   stamps[0].Add(window),
	}, nil
}

// prune drops timestamps at or before cutoff. Stamps are appended in order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(stamps); i++ {
		if stamps[i].After(cutoff) {
			break
		}
	}
	return stamps[i:]
}
