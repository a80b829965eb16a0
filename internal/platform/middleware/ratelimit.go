package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"corpatlas/internal/ratelimit"
	dErrors "corpatlas/pkg/domain-errors"
	"corpatlas/pkg/platform/httputil"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(key string) ratelimit.Result
}

// RateLimit enforces a per-client request budget, keyed by client IP.
// Every response carries the X-RateLimit-* headers so well-behaved
// clients can pace themselves instead of hitting the limit.
func RateLimit(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetClientIP(r.Context())
			if key == "" {
				key = ClientIPFromRequest(r)
			}

			res := limiter.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := max(int(time.Until(res.ResetAt).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				logger.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("client_ip", key),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded, slow down"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
