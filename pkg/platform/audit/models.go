package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// Categories drive delivery semantics: compliance events are written
// synchronously and fail closed, the rest may be buffered.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: a vote was
	// recorded or refused. Tamper-evident storage, long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to fraud monitoring, such as
	// repeated biometric mismatches for one identity.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It never carries
// a raw identity token; SubjectDigest is the keyed digest used by the vote
// registry, so audit rows can be joined to vote records without exposing PII.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	Action        string
	SubjectDigest string
	SessionID     string
	KioskID       string
	Stage         string
	Decision      string
	Reason        string
	RequestID     string
}

type AuditEvent string

const (
	// Session lifecycle
	EventSessionStarted   AuditEvent = "session_started"
	EventSessionAbandoned AuditEvent = "session_abandoned"

	// Verification stages
	EventCredentialAccepted AuditEvent = "credential_accepted"
	EventCredentialRejected AuditEvent = "credential_rejected"
	EventFingerprintPassed  AuditEvent = "fingerprint_verified"
	EventFacePassed         AuditEvent = "face_verified"
	EventBiometricMismatch  AuditEvent = "biometric_mismatch"
	EventNotEnrolled        AuditEvent = "biometric_not_enrolled"

	// Vote registry
	EventVoteCast     AuditEvent = "vote_cast"
	EventVoteRejected AuditEvent = "vote_rejected"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVoteCast:     CategoryCompliance,
	EventVoteRejected: CategoryCompliance,

	EventBiometricMismatch:  CategorySecurity,
	EventNotEnrolled:        CategorySecurity,
	EventCredentialRejected: CategorySecurity,

	EventSessionStarted:     CategoryOperations,
	EventSessionAbandoned:   CategoryOperations,
	EventCredentialAccepted: CategoryOperations,
	EventFingerprintPassed:  CategoryOperations,
	EventFacePassed:         CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subjectDigest string) ([]Event, error)
}
