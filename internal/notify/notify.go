// Package notify sends vote receipts to voters. Delivery is best-effort: a
// receipt that cannot be sent is logged and never affects the recorded vote.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Receipt tells a voter that their vote was counted. The SMS gateway
// consuming the topic owns message text and delivery.
type Receipt struct {
	ReceiptID      string    `json:"receipt_id"`
	SessionID      string    `json:"session_id"`
	IdentityDigest string    `json:"identity_digest"`
	Phone          string    `json:"phone,omitempty"`
	KioskID        string    `json:"kiosk_id"`
	CastAt         time.Time `json:"cast_at"`
}

// Producer is the subset of *kgo.Client used for receipts.
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaNotifier publishes receipts asynchronously, keyed by identity digest.
type KafkaNotifier struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

func NewKafkaNotifier(producer Producer, topic string, logger *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic, logger: logger}
}

func (n *KafkaNotifier) NotifyVoteCast(ctx context.Context, receipt Receipt) {
	if receipt.ReceiptID == "" {
		receipt.ReceiptID = uuid.NewString()
	}
	value, err := json.Marshal(receipt)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to encode vote receipt", "error", err)
		return
	}
	record := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(receipt.IdentityDigest),
		Value: value,
	}
	// Detach from request cancellation; the receipt outlives the HTTP call.
	n.producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			n.logger.Error("vote receipt not delivered",
				"receipt_id", receipt.ReceiptID,
				"session_id", receipt.SessionID,
				"error", err,
			)
			return
		}
		n.logger.Debug("vote receipt published",
			"receipt_id", receipt.ReceiptID,
			"partition", r.Partition,
			"offset", r.Offset,
		)
	})
}

// LogNotifier records receipts in the service log when no broker is set up.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyVoteCast(ctx context.Context, receipt Receipt) {
	n.logger.InfoContext(ctx, "vote receipt",
		"session_id", receipt.SessionID,
		"kiosk_id", receipt.KioskID,
		"cast_at", receipt.CastAt,
		"has_phone", receipt.Phone != "",
	)
}
