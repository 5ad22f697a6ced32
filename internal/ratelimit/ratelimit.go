// Package ratelimit bounds how many checkpoint requests one kiosk can make in
// a sliding window. The voter status lookup is the main target: without a
// bound a stolen kiosk token could sweep the roll for who has voted.
package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ballotgate/pkg/platform/httputil"
	"ballotgate/pkg/requestcontext"
)

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until a slot frees, set only when denied.
	RetryAfter int
}

// Store admits or denies one request for key.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

type Middleware struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

func New(store Store, limit int, window time.Duration, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Middleware{store: store, limit: limit, window: window, logger: logger}
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// PerKiosk limits requests by the authenticated kiosk. It must run after
// kiosk authentication. Store failures let the request through.
func (m *Middleware) PerKiosk(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		kioskID := requestcontext.KioskID(ctx)
		if kioskID == "" {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.store.Allow(ctx, "kiosk:"+kioskID, m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check kiosk rate limit", "error", err, "kiosk_id", kioskID)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.logger.WarnContext(ctx, "kiosk rate limit exceeded", "kiosk_id", kioskID)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "Too many requests from this kiosk. Please try again later.",
				RetryAfter: result.RetryAfter,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
