package testutil

import (
	"net/http"

	"corpatlas/internal/platform/middleware"
)

// WithRequestID stamps a request ID on the request context, simulating what
// the request-ID middleware does for real traffic.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(middleware.WithRequestID(req.Context(), id))
}

// WithClientMetadata stamps client IP and user agent on the request context,
// simulating the client-metadata middleware. The agent is parsed into the
// same human-readable form the middleware produces.
func WithClientMetadata(req *http.Request, clientIP, rawAgent string) *http.Request {
	return req.WithContext(middleware.WithClientMetadata(req.Context(), clientIP, rawAgent))
}
