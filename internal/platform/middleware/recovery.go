package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "corpatlas/pkg/domain-errors"
	"corpatlas/pkg/platform/httputil"
)

// Recovery converts a handler panic into a 500 response instead of tearing
// down the connection. The stack goes to the log, never to the client.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					// The standard library uses this sentinel to abort a
					// response; suppressing it would break that contract.
					panic(rec)
				}
				ctx := r.Context()
				logger.ErrorContext(ctx, "handler panicked",
					"request_id", GetRequestID(ctx),
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
