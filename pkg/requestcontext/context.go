// Package requestcontext carries request-scoped values on a context.Context
// so services and the search client can read them without net/http.
//
// The HTTP middleware sets every value. The CLI and tests inject them directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithRequestID(ctx, "cli-run")
package requestcontext

import (
	"context"
	"time"
)

type (
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

func stringValue(ctx context.Context, key any) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// ClientIP returns the caller's address, or "" when unknown.
func ClientIP(ctx context.Context) string {
	return stringValue(ctx, clientIPKey{})
}

// UserAgent returns the caller's User-Agent, or "" when unknown.
func UserAgent(ctx context.Context) string {
	return stringValue(ctx, userAgentKey{})
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// RequestID returns the correlation ID logged on every request-scoped line.
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey{})
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the instant the request was received. Outside a request it
// falls back to the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime fixes the evaluation instant. Every rule run for the request sees
// this value.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
