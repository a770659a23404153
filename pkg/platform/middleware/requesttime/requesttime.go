// Package requesttime pins a single "now" per HTTP request so that every
// timestamp written while serving it agrees.
package requesttime

import (
	"net/http"
	"time"

	"siren/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
