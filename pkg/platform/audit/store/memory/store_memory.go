package memory

import (
	"context"
	"sync"

	audit "ballotgate/pkg/platform/audit"
)

// DefaultCapacity bounds the trail when no capacity is given.
const DefaultCapacity = 10_000

// InMemoryStore keeps the most recent events in a ring buffer. Once full, each
// Append evicts the oldest event. Development only: nothing survives a
// restart.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	next   int
	full   bool
}

type Option func(*InMemoryStore)

// WithCapacity sets how many events are retained.
func WithCapacity(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.events = make([]audit.Event, n)
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{events: make([]audit.Event, DefaultCapacity)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[s.next] = event
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

// ListBySubject returns the retained events for subjectDigest, oldest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subjectDigest string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	s.each(func(e audit.Event) {
		if e.SubjectDigest == subjectDigest {
			out = append(out, e)
		}
	})
	return out, nil
}

// Len returns the number of retained events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.events)
	}
	return s.next
}

func (s *InMemoryStore) each(fn func(audit.Event)) {
	if s.full {
		for _, e := range s.events[s.next:] {
			fn(e)
		}
	}
	for _, e := range s.events[:s.next] {
		fn(e)
	}
}
