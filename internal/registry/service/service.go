// Package service implements the vote registry: an at-most-once set of
// identities that have voted, with an atomic Claim per identity.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ballotgate/internal/platform/metrics"
	"ballotgate/internal/registry/models"
	"ballotgate/pkg/domain"
	dErrors "ballotgate/pkg/domain-errors"
	"ballotgate/pkg/platform/audit"
	"ballotgate/pkg/platform/privacy"
	"ballotgate/pkg/platform/sentinel"
	"ballotgate/pkg/requestcontext"
)

var tracer = otel.Tracer("ballotgate/internal/registry")

// Store persists vote records. Insert must be atomic per digest and return
// sentinel.ErrAlreadyUsed when a record already exists.
type Store interface {
	Insert(ctx context.Context, rec *models.VoteRecord) error
	Find(ctx context.Context, identityDigest string) (*models.VoteRecord, error)
}

// Transactor runs fn in a transaction shared with the audit store.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// IdentityHasher maps an identity token to its registry key.
type IdentityHasher interface {
	Digest(value string) string
}

// Status describes what the registry knows about one identity.
type Status struct {
	HasVoted bool
	CastAt   time.Time
	KioskID  string
}

type Service struct {
	store          Store
	hasher         IdentityHasher
	tx             Transactor
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
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

// WithTransactor makes the vote_cast audit event part of the claim: if the
// event cannot be written the vote is rolled back.
func WithTransactor(tx Transactor) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(store Store, hasher IdentityHasher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("vote store is required")
	}
	if hasher == nil {
		return nil, errors.New("identity hasher is required")
	}
	svc := &Service{
		store:  store,
		hasher: hasher,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Claim records that identity has voted. It returns OutcomeAccepted once the
// record is durable, OutcomeAlreadyVoted when a record already exists, and a
// storage_error when the store could not answer. A storage error never leaves
// a partial record behind. When ctx carries a session ID the record keeps it,
// and a repeated claim from that same session is answered OutcomeAccepted.
func (s *Service) Claim(ctx context.Context, identity domain.IdentityToken) (models.Outcome, error) {
	ctx, span := tracer.Start(ctx, "registry.Claim")
	defer span.End()

	if identity.IsZero() {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "identity token is required")
	}

	digest := s.hasher.Digest(identity.String())
	rec, err := models.NewVoteRecord(digest, requestcontext.KioskID(ctx), requestcontext.Now(ctx))
	if err != nil {
		return 0, err
	}
	rec.SessionID = requestcontext.SessionID(ctx)

	castEvent := s.event(ctx, audit.EventVoteCast, digest, "accepted")
	if s.tx != nil {
		err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.store.Insert(txCtx, rec); err != nil {
				return err
			}
			if s.auditPublisher == nil {
				return nil
			}
			return s.auditPublisher.Emit(txCtx, castEvent)
		})
	} else {
		err = s.store.Insert(ctx, rec)
		if err == nil {
			s.emitBestEffort(ctx, castEvent)
		}
	}

	// The same session may retry a claim whose answer it never saw. Its own
	// record counts as accepted.
	replayed := false
	if errors.Is(err, sentinel.ErrAlreadyUsed) && rec.SessionID != "" {
		existing, findErr := s.store.Find(ctx, digest)
		switch {
		case findErr != nil:
			err = findErr
		case existing.CastBy(rec.SessionID):
			err = nil
			replayed = true
		}
	}

	switch {
	case replayed:
		s.metrics.RecordClaim("replayed")
		span.SetAttributes(attribute.String("claim.outcome", "replayed"))
		s.log(ctx, slog.LevelInfo, "vote claim replayed by the session that cast it", identity,
			"session_id", rec.SessionID)
		return models.OutcomeAccepted, nil
	case err == nil:
		s.metrics.RecordClaim(models.OutcomeAccepted.String())
		span.SetAttributes(attribute.String("claim.outcome", models.OutcomeAccepted.String()))
		s.log(ctx, slog.LevelInfo, "vote accepted", identity)
		return models.OutcomeAccepted, nil
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		s.metrics.RecordClaim(models.OutcomeAlreadyVoted.String())
		span.SetAttributes(attribute.String("claim.outcome", models.OutcomeAlreadyVoted.String()))
		s.emitBestEffort(ctx, s.event(ctx, audit.EventVoteRejected, digest, "already_voted"))
		s.log(ctx, slog.LevelWarn, "vote rejected: identity already voted", identity)
		return models.OutcomeAlreadyVoted, nil
	default:
		s.metrics.RecordClaim("storage_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "vote registry unavailable")
		s.log(ctx, slog.LevelError, "vote claim failed", identity, "error", err)
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "vote registry unavailable")
	}
}

// HasVoted reports whether identity has a vote record. It never writes.
func (s *Service) HasVoted(ctx context.Context, identity domain.IdentityToken) (bool, error) {
	status, err := s.Status(ctx, identity)
	if err != nil {
		return false, err
	}
	return status.HasVoted, nil
}

// Status returns the registry view of identity. Absence is only reported when
// the store answered; failures and corrupt records are storage errors.
func (s *Service) Status(ctx context.Context, identity domain.IdentityToken) (*Status, error) {
	ctx, span := tracer.Start(ctx, "registry.Status")
	defer span.End()

	if identity.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "identity token is required")
	}

	rec, err := s.store.Find(ctx, s.hasher.Digest(identity.String()))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &Status{}, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "vote registry unavailable")
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "vote registry unavailable")
	}
	return &Status{HasVoted: true, CastAt: rec.CastAt, KioskID: rec.KioskID}, nil
}

func (s *Service) event(ctx context.Context, action audit.AuditEvent, digest, decision string) audit.Event {
	return audit.Event{
		Action:        string(action),
		Timestamp:     requestcontext.Now(ctx),
		SubjectDigest: digest,
		KioskID:       requestcontext.KioskID(ctx),
		Stage:         "vote",
		Decision:      decision,
		RequestID:     requestcontext.RequestID(ctx),
	}
}

func (s *Service) emitBestEffort(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func (s *Service) log(ctx context.Context, level slog.Level, msg string, identity domain.IdentityToken, args ...any) {
	if s.logger == nil {
		return
	}
	args = append([]any{"identity", privacy.Fingerprint(identity.String())}, args...)
	s.logger.Log(ctx, level, msg, args...)
}
