// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are typically set by middleware but consumed by services. Keeping
// this package free of net/http dependencies lets services import only what
// they need.
//
// Usage in services (read values):
//
//	caller := requestcontext.Identity(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithIdentity(ctx, caller)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"github.com/sou1357/bloodbankapp/pkg/domain"
)

type (
	identityKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Identity retrieves the authenticated caller from the context.
// Returns the zero Identity if not set.
func Identity(ctx context.Context) domain.Identity {
	if caller, ok := ctx.Value(identityKey{}).(domain.Identity); ok {
		return caller
	}
	return domain.Identity{}
}

// WithIdentity injects the authenticated caller into the context.
func WithIdentity(ctx context.Context, caller domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, caller)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context. All operations within
// one request observe the same "now". Falls back to time.Now() for non-HTTP
// contexts (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
