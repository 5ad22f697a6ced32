package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ballotgate/internal/platform/middleware"
	"ballotgate/internal/registry/service"
	"ballotgate/pkg/domain"
	"ballotgate/pkg/platform/httputil"
	"ballotgate/pkg/platform/privacy"
)

// Service is the read side of the vote registry exposed to kiosks.
type Service interface {
	Status(ctx context.Context, identity domain.IdentityToken) (*service.Status, error)
}

type Handler struct {
	registry Service
	logger   *slog.Logger
}

func New(registry Service, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/voters/{token}/status", h.handleStatus)
}

type statusResponse struct {
	HasVoted bool       `json:"has_voted"`
	CastAt   *time.Time `json:"cast_at,omitempty"`
	KioskID  string     `json:"kiosk_id,omitempty"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, err := domain.ParseIdentityToken(chi.URLParam(r, "token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.registry.Status(ctx, identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "vote status lookup failed",
			"request_id", middleware.GetRequestID(ctx),
			"identity", privacy.Fingerprint(identity.String()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := statusResponse{HasVoted: status.HasVoted, KioskID: status.KioskID}
	if status.HasVoted {
		castAt := status.CastAt
		resp.CastAt = &castAt
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
