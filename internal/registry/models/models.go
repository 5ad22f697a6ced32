package models

import (
	"encoding/json"
	"fmt"
	"time"

	dErrors "ballotgate/pkg/domain-errors"
	"ballotgate/pkg/platform/sentinel"
)

// FormatVersion is the current vote record envelope version. Readers reject
// versions they do not know instead of guessing.
const FormatVersion = 1

// VoteRecord marks that an identity has cast its vote. Records are append-only:
// created once by a successful claim and never updated or deleted.
type VoteRecord struct {
	IdentityDigest string
	FormatVersion  int
	KioskID        string
	// SessionID names the verification session that cast the vote, so a
	// retried claim from that session is recognised as its own.
	SessionID string
	CastAt    time.Time
}

// NewVoteRecord builds a record at the current format version.
func NewVoteRecord(identityDigest, kioskID string, castAt time.Time) (*VoteRecord, error) {
	if identityDigest == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "identity digest is required")
	}
	if castAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "cast time is required")
	}
	return &VoteRecord{
		IdentityDigest: identityDigest,
		FormatVersion:  FormatVersion,
		KioskID:        kioskID,
		CastAt:         castAt.UTC(),
	}, nil
}

// CheckVersion returns sentinel.ErrCorrupt for unknown envelope versions.
func (r *VoteRecord) CheckVersion() error {
	if r.FormatVersion < 1 || r.FormatVersion > FormatVersion {
		return fmt.Errorf("vote record format version %d: %w", r.FormatVersion, sentinel.ErrCorrupt)
	}
	return nil
}

type envelope struct {
	Version   int       `json:"v"`
	KioskID   string    `json:"kiosk_id"`
	SessionID string    `json:"session_id,omitempty"`
	CastAt    time.Time `json:"cast_at"`
}

// MarshalEnvelope encodes the record body for key-value stores.
func (r *VoteRecord) MarshalEnvelope() ([]byte, error) {
	return json.Marshal(envelope{
		Version:   r.FormatVersion,
		KioskID:   r.KioskID,
		SessionID: r.SessionID,
		CastAt:    r.CastAt,
	})
}

// CastBy reports whether sessionID cast this vote. Records written without a
// session never match.
func (r *VoteRecord) CastBy(sessionID string) bool {
	return sessionID != "" && r.SessionID == sessionID
}

// UnmarshalEnvelope decodes a record body read under identityDigest.
func UnmarshalEnvelope(identityDigest string, data []byte) (*VoteRecord, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode vote envelope: %w: %w", sentinel.ErrCorrupt, err)
	}
	rec := &VoteRecord{
		IdentityDigest: identityDigest,
		FormatVersion:  env.Version,
		KioskID:        env.KioskID,
		SessionID:      env.SessionID,
		CastAt:         env.CastAt,
	}
	if err := rec.CheckVersion(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Outcome is the result of a claim that reached the store.
type Outcome int

const (
	OutcomeAccepted Outcome = iota + 1
	OutcomeAlreadyVoted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeAlreadyVoted:
		return "already_voted"
	default:
		return "unknown"
	}
}
