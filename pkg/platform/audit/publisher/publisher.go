// Package publisher emits audit events. Compliance events are always written
// synchronously and their failure is returned to the caller (fail closed).
// Security and operations events go through an optional bounded buffer and
// are dropped, with a log line, when it is full.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	audit "ballotgate/pkg/platform/audit"
)

var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	buffer chan audit.Event
	wg     sync.WaitGroup
	once   sync.Once
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAsyncBuffer enables buffered delivery for non-compliance events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan audit.Event, size)
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records event. The category is always derived from the action.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if event.Category == audit.CategoryCompliance || p.buffer == nil {
		if err := p.store.Append(ctx, event); err != nil {
			if event.Category == audit.CategoryCompliance && p.logger != nil {
				p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
					"action", event.Action,
					"session_id", event.SessionID,
					"error", err,
				)
			}
			return fmt.Errorf("audit persistence failed: %w", err)
		}
		return nil
	}

	select {
	case p.buffer <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event", "action", event.Action)
		}
		return ErrBufferFull
	}
}

// List returns events recorded for a subject digest.
func (p *Publisher) List(ctx context.Context, subjectDigest string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subjectDigest)
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("async audit persistence failed", "action", event.Action, "error", err)
		}
	}
}

// Close flushes buffered events. Emit must not be called after Close.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
	return nil
}
