// Package requestcontext carries the per-request values a lookup needs below
// the HTTP layer: the caller, the correlation id, and the pinned request time.
// Services read them without importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "siren/pkg/domain"
)

type key int

const (
	userIDKey key = iota
	requestIDKey
	requestTimeKey
)

func value[T any](ctx context.Context, k key) (T, bool) {
	v, ok := ctx.Value(k).(T)
	return v, ok
}

// UserID is the authenticated caller, or the nil id outside an authenticated request.
func UserID(ctx context.Context) id.UserID {
	userID, _ := value[id.UserID](ctx, userIDKey)
	return userID
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestID is the correlation id echoed in X-Request-ID.
func RequestID(ctx context.Context) string {
	requestID, _ := value[string](ctx, requestIDKey)
	return requestID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now is the request's pinned time. Outside HTTP (CLI, background work) it is the wall clock.
func Now(ctx context.Context) time.Time {
	if t, ok := value[time.Time](ctx, requestTimeKey); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
