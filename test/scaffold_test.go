// Package test holds the assembled-stack smoke test: the middleware chain
// exactly as the server composes it, wrapped around trivial handlers. Unit
// tests cover each middleware alone; this one checks they still cooperate.
package test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"corpatlas/internal/platform/logger"
	"corpatlas/internal/platform/middleware"
	"corpatlas/internal/ratelimit"
	dErrors "corpatlas/pkg/domain-errors"
	"corpatlas/pkg/testutil"
)

func TestServerStack(t *testing.T) {
	const apiKey = "corpatlas-smoke-key"
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.MinCost)
	require.NoError(t, err)

	log := logger.Discard()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RateLimit(ratelimit.NewSlidingWindow(5, time.Minute), log))
	r.Use(middleware.NewAPIKeyAuth(string(hash), log).Middleware)
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaput")
	})

	call := func(t *testing.T, path, key string) *httptest.ResponseRecorder {
		t.Helper()
		req := testutil.NewRequest(t, http.MethodGet, path)
		if key != "" {
			req.Header.Set(middleware.HeaderAPIKey, key)
		}
		return testutil.DoRequest(r, req)
	}

	testutil.Given(t, "the middleware stack the server assembles", func(t *testing.T) {
		testutil.When(t, "a request arrives without the API key", func(t *testing.T) {
			rr := call(t, "/ping", "")
			testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
			// Rate limiting sits in front of authentication, so even a
			// rejected request carries the budget headers.
			assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Limit"))
		})

		testutil.When(t, "a request carries the key", func(t *testing.T) {
			rr := call(t, "/ping", apiKey)
			testutil.AssertStatus(t, rr, http.StatusOK)
		})

		testutil.When(t, "a handler panics", func(t *testing.T) {
			rr := call(t, "/boom", apiKey)
			testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
		})

		testutil.When(t, "the request budget is exhausted", func(t *testing.T) {
			var last *httptest.ResponseRecorder
			for range 4 {
				last = call(t, "/ping", apiKey)
			}
			testutil.AssertStatusAndError(t, last, http.StatusTooManyRequests, string(dErrors.CodeRateLimited))
			assert.NotEmpty(t, last.Header().Get("Retry-After"))
		})
	})
}
