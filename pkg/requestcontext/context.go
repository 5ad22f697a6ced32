// Package requestcontext holds request-scoped values set by HTTP middleware
// and read by services: request ID, authenticated kiosk, request time, and the
// acting verification session.
package requestcontext

import (
	"context"
	"time"
)

type contextKeyRequestID struct{}
type contextKeyKioskID struct{}
type contextKeyRequestTime struct{}
type contextKeySessionID struct{}

var (
	ContextKeyRequestID   = contextKeyRequestID{}
	ContextKeyKioskID     = contextKeyKioskID{}
	ContextKeyRequestTime = contextKeyRequestTime{}
	ContextKeySessionID   = contextKeySessionID{}
)

// RequestID returns the correlation ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// KioskID returns the authenticated kiosk identifier, or "" when the request
// was not authenticated.
func KioskID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyKioskID).(string); ok {
		return v
	}
	return ""
}

func WithKioskID(ctx context.Context, kioskID string) context.Context {
	return context.WithValue(ctx, ContextKeyKioskID, kioskID)
}

// SessionID returns the verification session acting in this call, or "".
func SessionID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeySessionID).(string); ok {
		return v
	}
	return ""
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
