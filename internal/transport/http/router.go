package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ballotgate/internal/platform/metrics"
	"ballotgate/internal/platform/middleware"
	"ballotgate/pkg/platform/httputil"
)

// RouteRegistrar is implemented by the per-context handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config collects what the router needs. Handlers are mounted under /v1 behind
// kiosk authentication.
type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Kiosks         middleware.KioskValidator
	RequestTimeout time.Duration
	// RateLimit runs after kiosk authentication when set.
	RateLimit    func(http.Handler) http.Handler
	Handlers     []RouteRegistrar
	HealthChecks map[string]HealthCheck
}

// NewRouter wires the public endpoints. Transport concerns stay here; handlers
// delegate straight to their services.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Latency(cfg.Metrics))

	r.Get("/healthz", healthHandler(cfg.HealthChecks, logger))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Timeout(timeout))
		r.Use(middleware.RequireKiosk(cfg.Kiosks, logger))
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		for _, h := range cfg.Handlers {
			h.Register(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
