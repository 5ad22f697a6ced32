package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ballotgate/internal/platform/middleware"
	"ballotgate/internal/session/models"
	"ballotgate/pkg/domain"
	dErrors "ballotgate/pkg/domain-errors"
	"ballotgate/pkg/platform/httputil"
)

// maxBodyBytes bounds request bodies; face captures are base64 JPEG frames.
const maxBodyBytes = 8 << 20

// Service defines the session operations exposed to kiosks.
type Service interface {
	Start(ctx context.Context) (*models.Session, error)
	Get(ctx context.Context, id domain.SessionID) (*models.Session, error)
	SubmitCredential(ctx context.Context, id domain.SessionID, raw string) (*models.Session, error)
	SubmitFingerprint(ctx context.Context, id domain.SessionID, sample []byte) (*models.Session, error)
	SubmitFace(ctx context.Context, id domain.SessionID, sample []byte) (*models.Session, error)
	CastVote(ctx context.Context, id domain.SessionID) (*models.Session, error)
	Abandon(ctx context.Context, id domain.SessionID) error
}

type Handler struct {
	sessions Service
	logger   *slog.Logger
}

func New(sessions Service, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Delete("/", h.handleAbandon)
			r.Post("/credential", h.handleCredential)
			r.Post("/fingerprint", h.handleFingerprint)
			r.Post("/face", h.handleFace)
			r.Post("/vote", h.handleVote)
		})
	})
}

type sessionResponse struct {
	ID            string          `json:"id"`
	Stage         models.Stage    `json:"stage"`
	FailureReason string          `json:"failure_reason,omitempty"`
	Holder        *models.Holder  `json:"holder,omitempty"`
	Attempts      models.Attempts `json:"attempts"`
	KioskID       string          `json:"kiosk_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	VotedAt       *time.Time      `json:"voted_at,omitempty"`
}

func toResponse(sess *models.Session) sessionResponse {
	return sessionResponse{
		ID:            sess.ID.String(),
		Stage:         sess.Stage,
		FailureReason: string(sess.FailureReason),
		Holder:        sess.Holder,
		Attempts:      sess.Attempts,
		KioskID:       sess.KioskID,
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
		VotedAt:       sess.VotedAt,
	}
}

type credentialRequest struct {
	QRData string `json:"qr_data"`
}

type fingerprintRequest struct {
	Sample []byte `json:"sample"`
}

// faceRequest carries a captured frame, either bare base64 or a data URL.
type faceRequest struct {
	Image string `json:"image"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Start(r.Context())
	if err != nil {
		h.fail(w, r, "failed to start session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(sess))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "failed to load session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sess))
}

func (h *Handler) handleAbandon(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Abandon(r.Context(), id); err != nil {
		h.fail(w, r, "failed to abandon session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req credentialRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.sessions.SubmitCredential(r.Context(), id, req.QRData)
	h.respond(w, r, sess, err)
}

func (h *Handler) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req fingerprintRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess, err := h.sessions.SubmitFingerprint(r.Context(), id, req.Sample)
	h.respond(w, r, sess, err)
}

func (h *Handler) handleFace(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req faceRequest
	if !h.decode(w, r, &req) {
		return
	}
	image := req.Image
	if _, data, found := strings.Cut(image, ","); found {
		image = data
	}
	sample, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid image data"))
		return
	}
	sess, err := h.sessions.SubmitFace(r.Context(), id, sample)
	h.respond(w, r, sess, err)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := h.sessions.CastVote(r.Context(), id)
	h.respond(w, r, sess, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, sess *models.Session, err error) {
	if err != nil {
		h.fail(w, r, "session operation failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(sess))
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (domain.SessionID, bool) {
	id, err := domain.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return domain.SessionID{}, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

// fail logs infrastructure failures at error level; expected verification
// outcomes are already logged by the service.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if status := dErrors.ToHTTPStatus(dErrors.CodeOf(err)); status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), msg,
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
