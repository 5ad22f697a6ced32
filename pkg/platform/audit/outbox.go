package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxPayload is the JSON structure stored in outbox tables and published
// to Kafka.
type OutboxPayload struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	Timestamp     string `json:"timestamp"`
	Action        string `json:"action"`
	SubjectDigest string `json:"subject_digest,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	KioskID       string `json:"kiosk_id,omitempty"`
	Stage         string `json:"stage,omitempty"`
	Decision      string `json:"decision,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

// OutboxRow is an event ready to insert into an outbox table. Events with a
// subject are keyed by voter so Kafka keeps one voter's events in order.
type OutboxRow struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

func NewOutboxRow(event Event) (OutboxRow, error) {
	id := uuid.New()
	payload, err := json.Marshal(OutboxPayload{
		ID:            id.String(),
		Category:      string(AuditEvent(event.Action).Category()),
		Timestamp:     event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:        event.Action,
		SubjectDigest: event.SubjectDigest,
		SessionID:     event.SessionID,
		KioskID:       event.KioskID,
		Stage:         event.Stage,
		Decision:      event.Decision,
		Reason:        event.Reason,
		RequestID:     event.RequestID,
	})
	if err != nil {
		return OutboxRow{}, fmt.Errorf("marshal audit payload: %w", err)
	}
	row := OutboxRow{
		ID:            id,
		AggregateType: "audit",
		AggregateID:   id.String(),
		EventType:     event.Action,
		Payload:       payload,
	}
	if event.SubjectDigest != "" {
		row.AggregateType = "voter"
		row.AggregateID = event.SubjectDigest
	}
	return row, nil
}

// DecodeOutboxPayload turns an outbox payload back into an Event.
func DecodeOutboxPayload(raw []byte) (Event, error) {
	var p OutboxPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Event{}, fmt.Errorf("unmarshal outbox payload: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return Event{}, fmt.Errorf("parse outbox timestamp: %w", err)
	}
	return Event{
		Category:      EventCategory(p.Category),
		Timestamp:     ts,
		Action:        p.Action,
		SubjectDigest: p.SubjectDigest,
		SessionID:     p.SessionID,
		KioskID:       p.KioskID,
		Stage:         p.Stage,
		Decision:      p.Decision,
		Reason:        p.Reason,
		RequestID:     p.RequestID,
	}, nil
}
