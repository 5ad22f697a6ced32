package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
	ctxErr  error
}

func (p *fakeProducer) Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	p.ctxErr = ctx.Err()
	p.records = append(p.records, r)
	promise(r, p.err)
}

func TestKafkaNotifier(t *testing.T) {
	castAt := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	t.Run("publishes keyed receipt", func(t *testing.T) {
		producer := &fakeProducer{}
		n := NewKafkaNotifier(producer, "vote-receipts", slog.New(slog.DiscardHandler))

		n.NotifyVoteCast(context.Background(), Receipt{
			SessionID:      "s-1",
			IdentityDigest: "digest-1",
			Phone:          "9800000001",
			KioskID:        "kiosk-1",
			CastAt:         castAt,
		})

		require.Len(t, producer.records, 1)
		rec := producer.records[0]
		assert.Equal(t, "vote-receipts", rec.Topic)
		assert.Equal(t, []byte("digest-1"), rec.Key)

		var got Receipt
		require.NoError(t, json.Unmarshal(rec.Value, &got))
		assert.NotEmpty(t, got.ReceiptID)
		assert.Equal(t, "s-1", got.SessionID)
		assert.Equal(t, castAt, got.CastAt)
	})

	t.Run("cancelled request still publishes", func(t *testing.T) {
		producer := &fakeProducer{}
		n := NewKafkaNotifier(producer, "vote-receipts", slog.New(slog.DiscardHandler))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		n.NotifyVoteCast(ctx, Receipt{SessionID: "s-2"})
		require.Len(t, producer.records, 1)
		assert.NoError(t, producer.ctxErr)
	})

	t.Run("delivery failure is logged", func(t *testing.T) {
		var buf bytes.Buffer
		producer := &fakeProducer{err: errors.New("broker down")}
		n := NewKafkaNotifier(producer, "vote-receipts", slog.New(slog.NewTextHandler(&buf, nil)))

		n.NotifyVoteCast(context.Background(), Receipt{SessionID: "s-3"})
		assert.Contains(t, buf.String(), "vote receipt not delivered")
		assert.Contains(t, buf.String(), "broker down")
	})
}

func TestLogNotifierOmitsPhone(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewTextHandler(&buf, nil)))
	n.NotifyVoteCast(context.Background(), Receipt{SessionID: "s-1", Phone: "9800000001"})
	assert.Contains(t, buf.String(), "has_phone=true")
	assert.NotContains(t, buf.String(), "9800000001")
}
