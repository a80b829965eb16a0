package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyClientIP struct{}
type contextKeyUserAgent struct{}
type contextKeyClientAgent struct{}

// ClientMetadata extracts the client IP and User-Agent and parses the agent
// into a short human label ("Chrome 120 on Mac OS X") for logs and audit
// events. Apply it early in the chain; Logger and the audit layer read from
// the context it populates.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")

		ctx := r.Context()
		ctx = context.WithValue(ctx, contextKeyClientIP{}, ClientIPFromRequest(r))
		ctx = context.WithValue(ctx, contextKeyUserAgent{}, raw)
		ctx = context.WithValue(ctx, contextKeyClientAgent{}, ParseUserAgent(raw))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClientIP retrieves the client IP address from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return ip
	}
	return ""
}

// GetUserAgent retrieves the raw User-Agent from the context.
func GetUserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(contextKeyUserAgent{}).(string); ok {
		return ua
	}
	return ""
}

// GetClientAgent retrieves the parsed agent label from the context.
func GetClientAgent(ctx context.Context) string {
	if agent, ok := ctx.Value(contextKeyClientAgent{}).(string); ok {
		return agent
	}
	return ""
}

// WithClientMetadata injects client metadata into a context. Useful for
// service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, rawAgent string) context.Context {
	ctx = context.WithValue(ctx, contextKeyClientIP{}, clientIP)
	ctx = context.WithValue(ctx, contextKeyUserAgent{}, rawAgent)
	return context.WithValue(ctx, contextKeyClientAgent{}, ParseUserAgent(rawAgent))
}

// ParseUserAgent renders a User-Agent string as "<browser> on <system>".
// Raw agent strings are too noisy for logs and too identifying for audit
// records; the label keeps the useful part.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)

	browser, version := ua.Browser()
	if browser == "" {
		browser = "Unknown browser"
	}
	if major, _, found := strings.Cut(version, "."); found || major != "" {
		browser += " " + major
	}

	system := ua.OSInfo().Name
	if system == "" {
		system = ua.Platform()
	}
	if system == "" {
		system = "unknown system"
	}

	return browser + " on " + system
}

// ClientIPFromRequest extracts the originating client IP, looking through
// the proxy headers before falling back to the socket address.
func ClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// The first entry is the original client; the rest are proxies.
		if first, _, found := strings.Cut(xff, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		// ip:port for IPv4, [::1]:port for IPv6.
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	return "unknown"
}
