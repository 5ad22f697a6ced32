// Package service drives a verification session through its stages:
// credential, fingerprint, face, then the vote claim. Each operation runs
// under a per-session lock, checks the stage it requires, consults one oracle
// and persists the result.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ballotgate/internal/credential"
	"ballotgate/internal/notify"
	"ballotgate/internal/platform/metrics"
	registrymodels "ballotgate/internal/registry/models"
	"ballotgate/internal/session/models"
	"ballotgate/pkg/domain"
	dErrors "ballotgate/pkg/domain-errors"
	"ballotgate/pkg/platform/audit"
	"ballotgate/pkg/platform/keylock"
	"ballotgate/pkg/platform/privacy"
	"ballotgate/pkg/platform/sentinel"
	"ballotgate/pkg/requestcontext"
)

var tracer = otel.Tracer("ballotgate/internal/session")

type Store interface {
	Create(ctx context.Context, sess *models.Session) error
	Get(ctx context.Context, id domain.SessionID) (*models.Session, error)
	Save(ctx context.Context, sess *models.Session) error
	Delete(ctx context.Context, id domain.SessionID) error
}

// CredentialDecoder turns a raw QR payload into an enrolled voter or a
// decode_error.
type CredentialDecoder interface {
	Decode(ctx context.Context, raw string) (*credential.Voter, error)
}

type Matcher interface {
	Match(ctx context.Context, identity domain.IdentityToken, sample []byte) (bool, error)
}

type VoteRegistry interface {
	Claim(ctx context.Context, identity domain.IdentityToken) (registrymodels.Outcome, error)
	HasVoted(ctx context.Context, identity domain.IdentityToken) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type ReceiptNotifier interface {
	NotifyVoteCast(ctx context.Context, receipt notify.Receipt)
}

type IdentityHasher interface {
	Digest(value string) string
}

type Service struct {
	sessions    Store
	decoder     CredentialDecoder
	fingerprint Matcher
	face        Matcher
	registry    VoteRegistry

	locks          *keylock.Map
	auditPublisher AuditPublisher
	notifier       ReceiptNotifier
	voters         credential.VoterDirectory
	hasher         IdentityHasher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	earlyRejection bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithIdentityHasher sets the digest used as the audit subject. Without it
// audit events carry no subject.
func WithIdentityHasher(hasher IdentityHasher) Option {
	return func(s *Service) {
		s.hasher = hasher
	}
}

// WithReceiptNotifier sends a receipt after each accepted vote. voters
// supplies the contact number on file.
func WithReceiptNotifier(notifier ReceiptNotifier, voters credential.VoterDirectory) Option {
	return func(s *Service) {
		s.notifier = notifier
		s.voters = voters
	}
}

// WithEarlyRejection checks the registry at the credential stage so a voter
// who already voted is turned away before biometrics run.
func WithEarlyRejection(enabled bool) Option {
	return func(s *Service) {
		s.earlyRejection = enabled
	}
}

func New(sessions Store, decoder CredentialDecoder, fingerprint, face Matcher, registry VoteRegistry, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if decoder == nil {
		return nil, errors.New("credential decoder is required")
	}
	if fingerprint == nil || face == nil {
		return nil, errors.New("fingerprint and face matchers are required")
	}
	if registry == nil {
		return nil, errors.New("vote registry is required")
	}
	svc := &Service{
		sessions:    sessions,
		decoder:     decoder,
		fingerprint: fingerprint,
		face:        face,
		registry:    registry,
		locks:       keylock.New(),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Start opens a new session at AwaitingCredential for the calling kiosk.
func (s *Service) Start(ctx context.Context) (*models.Session, error) {
	ctx, span := tracer.Start(ctx, "session.Start")
	defer span.End()

	sess, err := models.NewSession(domain.NewSessionID(), requestcontext.KioskID(ctx), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, s.storeError(span, err)
	}
	span.SetAttributes(attribute.String("session.id", sess.ID.String()))

	s.metrics.IncrementSessionsStarted()
	s.emit(ctx, sess, audit.EventSessionStarted, "started", "")
	s.logger.InfoContext(ctx, "session started",
		"session_id", sess.ID.String(),
		"kiosk_id", sess.KioskID,
	)
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	ctx, span := tracer.Start(ctx, "session.Get", trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.storeError(span, err)
	}
	return sess, nil
}

// SubmitCredential decodes the scanned QR payload and pins the identity.
// A decode failure leaves the session waiting for another scan.
func (s *Service) SubmitCredential(ctx context.Context, id domain.SessionID, raw string) (*models.Session, error) {
	return s.update(ctx, "session.SubmitCredential", id, func(ctx context.Context, sess *models.Session) (bool, error) {
		if err := sess.Require(models.StageAwaitingCredential); err != nil {
			return false, err
		}
		now := requestcontext.Now(ctx)
		sess.RecordAttempt(now)

		voter, err := s.decoder.Decode(ctx, raw)
		if err != nil {
			s.stageFailed(ctx, sess, err)
			s.emit(ctx, sess, audit.EventCredentialRejected, "rejected", string(dErrors.CodeOf(err)))
			return true, err
		}

		if s.earlyRejection {
			voted, err := s.registry.HasVoted(ctx, voter.Identity)
			if err != nil {
				s.stageFailed(ctx, sess, err)
				return true, err
			}
			if voted {
				if err := sess.BindIdentity(voter.Identity, holderOf(voter), now); err != nil {
					return false, err
				}
				if err := sess.Fail(models.FailureAlreadyVoted, now); err != nil {
					return false, err
				}
				s.metrics.RecordTransition(sess.Stage.String())
				s.emit(ctx, sess, audit.EventCredentialRejected, "rejected", string(models.FailureAlreadyVoted))
				s.logger.WarnContext(ctx, "voter turned away at credential stage: already voted",
					"session_id", sess.ID.String(),
					"identity", privacy.Fingerprint(voter.Identity.String()),
				)
				return true, dErrors.New(dErrors.CodeAlreadyVoted, "voter has already voted")
			}
		}

		if err := sess.BindIdentity(voter.Identity, holderOf(voter), now); err != nil {
			return false, err
		}
		s.metrics.RecordTransition(sess.Stage.String())
		s.emit(ctx, sess, audit.EventCredentialAccepted, "accepted", "")
		return true, nil
	})
}

func (s *Service) SubmitFingerprint(ctx context.Context, id domain.SessionID, sample []byte) (*models.Session, error) {
	return s.verifyBiometric(ctx, "session.SubmitFingerprint", id, models.StageAwaitingFingerprint,
		"fingerprint", s.fingerprint, sample, audit.EventFingerprintPassed, (*models.Session).PassFingerprint)
}

func (s *Service) SubmitFace(ctx context.Context, id domain.SessionID, sample []byte) (*models.Session, error) {
	return s.verifyBiometric(ctx, "session.SubmitFace", id, models.StageAwaitingFace,
		"face", s.face, sample, audit.EventFacePassed, (*models.Session).PassFace)
}

// verifyBiometric runs one biometric stage. A mismatch keeps the session at
// the same stage with no limit on retries; matcher errors are returned as-is
// and are never treated as a match. A voter with nothing enrolled for the
// factor can never pass, so that session fails.
func (s *Service) verifyBiometric(
	ctx context.Context,
	spanName string,
	id domain.SessionID,
	stage models.Stage,
	modality string,
	matcher Matcher,
	sample []byte,
	passed audit.AuditEvent,
	advance func(*models.Session, time.Time) error,
) (*models.Session, error) {
	return s.update(ctx, spanName, id, func(ctx context.Context, sess *models.Session) (bool, error) {
		if err := sess.Require(stage); err != nil {
			return false, err
		}
		now := requestcontext.Now(ctx)
		sess.RecordAttempt(now)

		matched, err := matcher.Match(ctx, sess.Identity, sample)
		if err != nil {
			s.stageFailed(ctx, sess, err)
			if dErrors.HasCode(err, dErrors.CodeNotEnrolled) {
				if failErr := sess.Fail(models.FailureNotEnrolled, now); failErr != nil {
					return false, failErr
				}
				s.metrics.RecordTransition(sess.Stage.String())
				s.emit(ctx, sess, audit.EventNotEnrolled, "rejected", modality)
			}
			return true, err
		}
		if !matched {
			mismatch := dErrors.New(dErrors.CodeBiometricMismatch, modality+" did not match")
			s.stageFailed(ctx, sess, mismatch)
			s.emit(ctx, sess, audit.EventBiometricMismatch, "mismatch", modality)
			return true, mismatch
		}

		if err := advance(sess, now); err != nil {
			return false, err
		}
		s.metrics.RecordTransition(sess.Stage.String())
		s.emit(ctx, sess, passed, "verified", modality)
		return true, nil
	})
}

// CastVote claims the pinned identity in the vote registry. Accepted moves
// the session to Voted, AlreadyVoted fails it, and a storage error leaves it
// at ReadyToVote so the claim can be retried. The claim carries the session
// ID, so a retry after a lost session save still finishes as Voted.
func (s *Service) CastVote(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	sess, err := s.update(ctx, "session.CastVote", id, func(ctx context.Context, sess *models.Session) (bool, error) {
		if err := sess.Require(models.StageReadyToVote); err != nil {
			return false, err
		}
		now := requestcontext.Now(ctx)
		sess.RecordAttempt(now)

		if requestcontext.KioskID(ctx) == "" {
			ctx = requestcontext.WithKioskID(ctx, sess.KioskID)
		}
		ctx = requestcontext.WithSessionID(ctx, sess.ID.String())
		outcome, err := s.registry.Claim(ctx, sess.Identity)
		if err != nil {
			s.stageFailed(ctx, sess, err)
			return true, err
		}

		switch outcome {
		case registrymodels.OutcomeAccepted:
			if err := sess.MarkVoted(now); err != nil {
				return false, err
			}
			s.metrics.RecordTransition(sess.Stage.String())
			return true, nil
		case registrymodels.OutcomeAlreadyVoted:
			if err := sess.Fail(models.FailureAlreadyVoted, now); err != nil {
				return false, err
			}
			s.metrics.RecordTransition(sess.Stage.String())
			return true, dErrors.New(dErrors.CodeAlreadyVoted, "voter has already voted")
		default:
			return false, dErrors.New(dErrors.CodeInternal, "unknown claim outcome "+outcome.String())
		}
	})
	if err != nil {
		return nil, err
	}
	s.sendReceipt(ctx, sess)
	return sess, nil
}

// Abandon discards a session. It never touches the vote registry: abandoning
// a live session has no side effect and abandoning a Voted session leaves
// the vote standing.
func (s *Service) Abandon(ctx context.Context, id domain.SessionID) error {
	ctx, span := tracer.Start(ctx, "session.Abandon", trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	unlock := s.locks.Lock(id.String())
	defer unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return s.storeError(span, err)
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return s.storeError(span, err)
	}
	if !sess.Stage.IsTerminal() {
		s.emit(ctx, sess, audit.EventSessionAbandoned, "abandoned", sess.Stage.String())
	}
	s.logger.InfoContext(ctx, "session closed",
		"session_id", id.String(),
		"stage", sess.Stage.String(),
	)
	return nil
}

// update loads a session under its lock, applies fn and saves the session
// when fn reports a change, even if fn also returns an error.
func (s *Service) update(
	ctx context.Context,
	spanName string,
	id domain.SessionID,
	fn func(ctx context.Context, sess *models.Session) (bool, error),
) (*models.Session, error) {
	ctx, span := tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("session.id", id.String())))
	defer span.End()

	unlock := s.locks.Lock(id.String())
	defer unlock()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, s.storeError(span, err)
	}

	changed, opErr := fn(ctx, sess)
	if changed {
		if err := s.sessions.Save(ctx, sess); err != nil {
			s.logger.ErrorContext(ctx, "failed to save session",
				"session_id", id.String(),
				"stage", sess.Stage.String(),
				"error", err,
			)
			return nil, s.storeError(span, err)
		}
	}
	span.SetAttributes(attribute.String("session.stage", sess.Stage.String()))
	if opErr != nil {
		span.SetAttributes(attribute.String("error.code", string(dErrors.CodeOf(opErr))))
		return nil, opErr
	}
	return sess, nil
}

func (s *Service) storeError(span trace.Span, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "session not found or expired")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "session was updated concurrently")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "session store unavailable")
	return dErrors.Wrap(err, dErrors.CodeStorage, "session store unavailable")
}

func (s *Service) stageFailed(ctx context.Context, sess *models.Session, err error) {
	code := dErrors.CodeOf(err)
	s.metrics.RecordStageFailure(sess.Stage.String(), string(code))
	level := slog.LevelError
	if code == dErrors.CodeDecode || code == dErrors.CodeBiometricMismatch {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "verification stage failed",
		"session_id", sess.ID.String(),
		"stage", sess.Stage.String(),
		"code", string(code),
		"error", err,
	)
}

func (s *Service) emit(ctx context.Context, sess *models.Session, action audit.AuditEvent, decision, reason string) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:    string(action),
		Timestamp: requestcontext.Now(ctx),
		SessionID: sess.ID.String(),
		KioskID:   sess.KioskID,
		Stage:     sess.Stage.String(),
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	}
	if s.hasher != nil && !sess.Identity.IsZero() {
		event.SubjectDigest = s.hasher.Digest(sess.Identity.String())
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"session_id", event.SessionID,
			"error", err,
		)
	}
}

func (s *Service) sendReceipt(ctx context.Context, sess *models.Session) {
	if s.notifier == nil || sess.VotedAt == nil {
		return
	}
	receipt := notify.Receipt{
		SessionID: sess.ID.String(),
		KioskID:   sess.KioskID,
		CastAt:    *sess.VotedAt,
	}
	if s.hasher != nil {
		receipt.IdentityDigest = s.hasher.Digest(sess.Identity.String())
	}
	if s.voters != nil {
		if voter, ok := s.voters.Lookup(sess.Identity); ok {
			receipt.Phone = voter.Phone
		}
	}
	s.notifier.NotifyVoteCast(ctx, receipt)
}

func holderOf(v *credential.Voter) models.Holder {
	p := v.Profile()
	return models.Holder{Name: p.Name, Age: p.Age, Address: p.Address}
}
