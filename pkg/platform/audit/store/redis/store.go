// Package redis keeps the audit trail in Redis next to a Redis vote registry.
// Every event goes to one stream, relayed to Kafka by the stream outbox, and
// voter events are also listed per subject. Nothing here expires.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	audit "ballotgate/pkg/platform/audit"
)

const (
	// StreamKey is the stream holding every audit event in append order.
	StreamKey     = "ballotgate:audit"
	subjectPrefix = "ballotgate:audit:voter:"
)

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func subjectKey(digest string) string {
	return subjectPrefix + digest
}

// Append writes the event to the stream and, for voter events, to the
// subject list in one MULTI block.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	row, err := audit.NewOutboxRow(event)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamKey,
			Values: map[string]any{
				"id":           row.ID.String(),
				"aggregate_id": row.AggregateID,
				"event_type":   row.EventType,
				"payload":      row.Payload,
			},
		})
		if event.SubjectDigest != "" {
			pipe.RPush(ctx, subjectKey(event.SubjectDigest), row.Payload)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subjectDigest string) ([]audit.Event, error) {
	raw, err := s.client.LRange(ctx, subjectKey(subjectDigest), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	events := make([]audit.Event, 0, len(raw))
	for _, r := range raw {
		event, err := audit.DecodeOutboxPayload([]byte(r))
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}
