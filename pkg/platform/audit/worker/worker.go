// Package worker relays audit outbox entries to Kafka. Entries are produced
// synchronously and marked published only after the broker acknowledged them,
// so each entry is delivered at least once. The Postgres outbox claims rows
// with row locks inside one transaction.
package worker

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Entry is one outbox row awaiting publication.
type Entry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
}

// Outbox hands out pending entries and marks them published when fn succeeds.
type Outbox interface {
	WithPending(ctx context.Context, limit int, fn func(entries []Entry) error) (int, error)
}

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// RelayMetrics is satisfied by *metrics.Metrics.
type RelayMetrics interface {
	IncrementOutboxRelayed(n int)
	IncrementOutboxRelayErrors()
}

type Relay struct {
	outbox    Outbox
	producer  Producer
	topic     string
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   RelayMetrics
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m RelayMetrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func NewRelay(outbox Outbox, producer Producer, topic string, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		batchSize: 100,
		interval:  time.Second,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					if ctx.Err() == nil {
						r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
					}
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes at most one batch and returns how many entries it sent.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	n, err := r.outbox.WithPending(ctx, r.batchSize, func(entries []Entry) error {
		records := make([]*kgo.Record, 0, len(entries))
		for _, e := range entries {
			records = append(records, &kgo.Record{
				Topic: r.topic,
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(e.EventType)},
					{Key: "outbox_id", Value: []byte(e.ID.String())},
				},
			})
		}
		return r.producer.ProduceSync(ctx, records...).FirstErr()
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.IncrementOutboxRelayErrors()
		}
		return 0, err
	}
	if r.metrics != nil && n > 0 {
		r.metrics.IncrementOutboxRelayed(n)
	}
	return n, nil
}

// PostgresOutbox reads the outbox table written by the postgres audit store.
type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgresOutbox(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

func (o *PostgresOutbox) WithPending(ctx context.Context, limit int, fn func([]Entry) error) (int, error) {
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("select pending outbox: %w", err)
	}
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	if err := fn(entries); err != nil {
		return 0, fmt.Errorf("publish outbox batch: %w", err)
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID.String()
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE outbox SET published_at = NOW() WHERE id = ANY($1::uuid[])`,
		pq.Array(ids),
	); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	return len(entries), nil
}
