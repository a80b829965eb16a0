package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds every request's context. Handlers and the dispatcher below
// them observe the deadline through ctx; aggregating endpoints that fan out
// to several registries inherit whatever budget remains.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
