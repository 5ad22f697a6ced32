package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relayGroup = "ballotgate-relay"

// RedisStreamOutbox reads an audit stream through a consumer group. Entries
// are acknowledged only after fn succeeds; unacknowledged entries are handed
// out again before new ones.
type RedisStreamOutbox struct {
	client   *redis.Client
	stream   string
	consumer string
	ready    atomic.Bool
}

func NewRedisStreamOutbox(client *redis.Client, stream, consumer string) *RedisStreamOutbox {
	return &RedisStreamOutbox{client: client, stream: stream, consumer: consumer}
}

func (o *RedisStreamOutbox) WithPending(ctx context.Context, limit int, fn func([]Entry) error) (int, error) {
	if err := o.ensureGroup(ctx); err != nil {
		return 0, err
	}
	msgs, err := o.read(ctx, "0", limit)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		if msgs, err = o.read(ctx, ">", limit); err != nil {
			return 0, err
		}
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	entries := make([]Entry, 0, len(msgs))
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		e, err := streamEntry(m)
		if err != nil {
			return 0, err
		}
		entries = append(entries, e)
		ids = append(ids, m.ID)
	}
	if err := fn(entries); err != nil {
		return 0, fmt.Errorf("publish outbox batch: %w", err)
	}
	if err := o.client.XAck(ctx, o.stream, relayGroup, ids...).Err(); err != nil {
		return 0, fmt.Errorf("ack outbox batch: %w", err)
	}
	return len(entries), nil
}

func (o *RedisStreamOutbox) ensureGroup(ctx context.Context) error {
	if o.ready.Load() {
		return nil
	}
	err := o.client.XGroupCreateMkStream(ctx, o.stream, relayGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create relay group: %w", err)
	}
	o.ready.Store(true)
	return nil
}

// read returns this consumer's unacknowledged entries for start "0" and new
// entries for ">". It never blocks.
func (o *RedisStreamOutbox) read(ctx context.Context, start string, limit int) ([]redis.XMessage, error) {
	streams, err := o.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    relayGroup,
		Consumer: o.consumer,
		Streams:  []string{o.stream, start},
		Count:    int64(limit),
		Block:    -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read audit stream: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

func streamEntry(m redis.XMessage) (Entry, error) {
	field := func(name string) string {
		v, _ := m.Values[name].(string)
		return v
	}
	id, err := uuid.Parse(field("id"))
	if err != nil {
		return Entry{}, fmt.Errorf("stream entry %s id: %w", m.ID, err)
	}
	return Entry{
		ID:          id,
		AggregateID: field("aggregate_id"),
		EventType:   field("event_type"),
		Payload:     []byte(field("payload")),
	}, nil
}
