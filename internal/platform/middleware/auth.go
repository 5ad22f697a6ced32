package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"ballotgate/pkg/requestcontext"
)

// KioskValidator validates a bearer token and returns the kiosk it identifies.
type KioskValidator interface {
	ValidateKioskToken(token string) (kioskID string, err error)
}

// RequireKiosk rejects requests without a valid kiosk bearer token and puts
// the kiosk ID in the request context.
func RequireKiosk(validator KioskValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}
			kioskID, err := validator.ValidateKioskToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(requestcontext.WithKioskID(ctx, kioskID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
