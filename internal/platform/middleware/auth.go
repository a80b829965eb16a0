package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	dErrors "corpatlas/pkg/domain-errors"
	"corpatlas/pkg/platform/httputil"
)

// HeaderAPIKey carries the service API key. Authorization: Bearer is
// accepted as an alternative for clients that standardize on it.
const HeaderAPIKey = "X-Api-Key"

// APIKeyAuth guards the API with a single service key verified against a
// bcrypt hash from configuration. bcrypt comparison costs tens of
// milliseconds, so the first key that verifies is memoized and subsequent
// requests compare against it in constant time.
type APIKeyAuth struct {
	hash   string
	logger *slog.Logger

	mu       sync.RWMutex
	accepted []byte
}

// NewAPIKeyAuth builds the guard. An empty hash disables authentication;
// that is a local-development mode and is logged loudly once.
func NewAPIKeyAuth(hash string, logger *slog.Logger) *APIKeyAuth {
	if hash == "" {
		logger.Warn("API key authentication disabled: no key hash configured")
	}
	return &APIKeyAuth{hash: hash, logger: logger}
}

// Middleware rejects requests that do not present the service key.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.hash == "" {
			next.ServeHTTP(w, r)
			return
		}

		key := keyFromRequest(r)
		if key == "" || !a.verify(key) {
			ctx := r.Context()
			a.logger.WarnContext(ctx, "request rejected: missing or invalid API key",
				"request_id", GetRequestID(ctx),
				"client_ip", GetClientIP(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "a valid API key is required"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func keyFromRequest(r *http.Request) string {
	if key := r.Header.Get(HeaderAPIKey); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}

func (a *APIKeyAuth) verify(key string) bool {
	a.mu.RLock()
	accepted := a.accepted
	a.mu.RUnlock()
	if accepted != nil {
		return subtle.ConstantTimeCompare(accepted, []byte(key)) == 1
	}

	if bcrypt.CompareHashAndPassword([]byte(a.hash), []byte(key)) != nil {
		return false
	}

	a.mu.Lock()
	a.accepted = []byte(key)
	a.mu.Unlock()
	return true
}
