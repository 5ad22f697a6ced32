package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ballotgate/internal/ratelimit"
	"ballotgate/internal/ratelimit/store/memory"
	"ballotgate/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*ratelimit.Result, error) {
	return nil, errors.New("redis down")
}

func serve(h http.Handler, kioskID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/voters/x/status", nil)
	if kioskID != "" {
		req = req.WithContext(requestcontext.WithKioskID(req.Context(), kioskID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestPerKiosk(t *testing.T) {
	t.Run("admits within the limit and sets headers", func(t *testing.T) {
		h := ratelimit.New(memory.New(), 2, time.Minute, nil).PerKiosk(ok)

		rec := serve(h, "kiosk-1")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("rejects over the limit with 429", func(t *testing.T) {
		h := ratelimit.New(memory.New(), 1, time.Minute, nil).PerKiosk(ok)

		require.Equal(t, http.StatusNoContent, serve(h, "kiosk-1").Code)
		rec := serve(h, "kiosk-1")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")

		assert.Equal(t, http.StatusNoContent, serve(h, "kiosk-2").Code)
	})

	t.Run("store failure fails open", func(t *testing.T) {
		h := ratelimit.New(failingStore{}, 1, time.Minute, nil).PerKiosk(ok)
		assert.Equal(t, http.StatusNoContent, serve(h, "kiosk-1").Code)
	})

	t.Run("unauthenticated requests pass through", func(t *testing.T) {
		h := ratelimit.New(memory.New(), 1, time.Minute, nil).PerKiosk(ok)
		serve(h, "")
		assert.Equal(t, http.StatusNoContent, serve(h, "").Code)
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, ratelimit.RetryAfterSeconds(0))
	assert.Equal(t, 1, ratelimit.RetryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 2, ratelimit.RetryAfterSeconds(1500*time.Millisecond))
	assert.Equal(t, 60, ratelimit.RetryAfterSeconds(time.Minute))
}
