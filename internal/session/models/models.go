package models

import (
	"fmt"
	"time"

	"ballotgate/pkg/domain"
	dErrors "ballotgate/pkg/domain-errors"
)

// Stage is the position of a session in the verification pipeline.
// Stages only move forward; Voted and Failed are terminal.
type Stage string

const (
	StageAwaitingCredential  Stage = "awaiting_credential"
	StageAwaitingFingerprint Stage = "awaiting_fingerprint"
	StageAwaitingFace        Stage = "awaiting_face"
	StageReadyToVote         Stage = "ready_to_vote"
	StageVoted               Stage = "voted"
	StageFailed              Stage = "failed"
)

func (s Stage) IsValid() bool {
	switch s {
	case StageAwaitingCredential, StageAwaitingFingerprint, StageAwaitingFace,
		StageReadyToVote, StageVoted, StageFailed:
		return true
	}
	return false
}

func (s Stage) IsTerminal() bool {
	return s == StageVoted || s == StageFailed
}

func (s Stage) String() string { return string(s) }

type FailureReason string

const (
	FailureAlreadyVoted FailureReason = "already_voted"
	// FailureNotEnrolled means the roll holds no biometric reference for a
	// factor, so no sample could ever match.
	FailureNotEnrolled FailureReason = "not_enrolled"
)

// Holder is the enrolled profile shown to the operator after the credential
// stage. It never includes the identity token.
type Holder struct {
	Name    string `json:"name"`
	Age     int    `json:"age"`
	Address string `json:"address"`
}

// Attempts counts submissions per stage. Counters are informational and never
// gate a transition.
type Attempts struct {
	Credential  int `json:"credential"`
	Fingerprint int `json:"fingerprint"`
	Face        int `json:"face"`
	Vote        int `json:"vote"`
}

// Session is one voter's pass through the checkpoint. Identity is bound once
// at the credential stage and never reassigned. Version increases on every
// save and guards against lost updates between kiosks sharing a store.
type Session struct {
	ID            domain.SessionID     `json:"id"`
	Identity      domain.IdentityToken `json:"identity,omitempty"`
	Holder        *Holder              `json:"holder,omitempty"`
	Stage         Stage                `json:"stage"`
	FailureReason FailureReason        `json:"failure_reason,omitempty"`
	Attempts      Attempts             `json:"attempts"`
	KioskID       string               `json:"kiosk_id"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	VotedAt       *time.Time           `json:"voted_at,omitempty"`
	Version       int64                `json:"version"`
}

func NewSession(id domain.SessionID, kioskID string, now time.Time) (*Session, error) {
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session id is required")
	}
	return &Session{
		ID:        id,
		Stage:     StageAwaitingCredential,
		KioskID:   kioskID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Require returns invalid_state unless the session is at stage.
func (s *Session) Require(stage Stage) error {
	if s.Stage != stage {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("session is %s, operation requires %s", s.Stage, stage))
	}
	return nil
}

// BindIdentity pins the decoded identity and advances to the fingerprint stage.
func (s *Session) BindIdentity(identity domain.IdentityToken, holder Holder, now time.Time) error {
	if err := s.Require(StageAwaitingCredential); err != nil {
		return err
	}
	if identity.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "identity is required")
	}
	if !s.Identity.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "identity already bound")
	}
	s.Identity = identity
	s.Holder = &holder
	return s.advance(StageAwaitingFingerprint, now)
}

func (s *Session) PassFingerprint(now time.Time) error {
	if err := s.Require(StageAwaitingFingerprint); err != nil {
		return err
	}
	return s.advance(StageAwaitingFace, now)
}

func (s *Session) PassFace(now time.Time) error {
	if err := s.Require(StageAwaitingFace); err != nil {
		return err
	}
	return s.advance(StageReadyToVote, now)
}

func (s *Session) MarkVoted(now time.Time) error {
	if err := s.Require(StageReadyToVote); err != nil {
		return err
	}
	votedAt := now
	s.VotedAt = &votedAt
	return s.advance(StageVoted, now)
}

// Fail moves a live session to Failed with reason.
func (s *Session) Fail(reason FailureReason, now time.Time) error {
	if s.Stage.IsTerminal() {
		return dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("session is already %s", s.Stage))
	}
	s.FailureReason = reason
	s.Stage = StageFailed
	s.UpdatedAt = now
	return nil
}

// RecordAttempt counts a submission at the current stage.
func (s *Session) RecordAttempt(now time.Time) {
	switch s.Stage {
	case StageAwaitingCredential:
		s.Attempts.Credential++
	case StageAwaitingFingerprint:
		s.Attempts.Fingerprint++
	case StageAwaitingFace:
		s.Attempts.Face++
	case StageReadyToVote:
		s.Attempts.Vote++
	default:
		return
	}
	s.UpdatedAt = now
}

func (s *Session) advance(next Stage, now time.Time) error {
	if s.Identity.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "identity must be bound before "+next.String())
	}
	s.Stage = next
	s.UpdatedAt = now
	return nil
}
