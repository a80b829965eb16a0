// Package httpx is the outbound HTTP layer shared by provider adapters.
// One Client wraps one upstream API and owns everything the adapter should
// not repeat: per-source rate limiting, bounded retries with exponential
// backoff on 429/5xx, request decoration for auth, and translation of
// transport and status failures into the catalog taxonomy. Adapters never
// see an *http.Response.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"corpatlas/internal/catalog"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 500 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
	defaultUserAgent   = "corpatlas/1.0"
)

// Config describes one upstream API.
type Config struct {
	// Provider is the catalog name used for error attribution.
	Provider string

	// BaseURL is the API root every request path joins onto.
	BaseURL string

	// Timeout is the transport-level safety net. The per-attempt deadline
	// normally comes from the caller's context; this only catches a
	// dispatcher wired without one.
	Timeout time.Duration

	// RateLimit throttles requests to the source, including retries.
	// Zero means unthrottled.
	RateLimit rate.Limit
	Burst     int

	// MaxAttempts caps tries per request, first attempt included.
	MaxAttempts int

	// RetryDelay seeds the exponential backoff; MaxDelay caps it.
	RetryDelay time.Duration
	MaxDelay   time.Duration

	UserAgent string

	// Decorate mutates each outgoing request, typically to attach
	// credentials. It runs on every attempt, so token refresh works.
	Decorate func(req *http.Request) error

	Logger *slog.Logger
}

// Client is a rate-limited, retrying HTTP client bound to one upstream.
type Client struct {
	provider    string
	base        *url.URL
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	retryDelay  time.Duration
	maxDelay    time.Duration
	userAgent   string
	decorate    func(req *http.Request) error
	logger      *slog.Logger
}

// New builds a client. A base URL that does not parse is a configuration
// error surfaced at construction, not on the first request.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, catalog.Errorf(catalog.CategoryMisconfigured, cfg.Provider, "invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	return &Client{
		provider:    cfg.Provider,
		base:        base,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     limiter,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		maxDelay:    cfg.MaxDelay,
		userAgent:   cfg.UserAgent,
		decorate:    cfg.Decorate,
		logger:      cfg.Logger,
	}, nil
}

// GetJSON fetches path and decodes the JSON response into out. A payload
// that does not decode is a normalization failure: the source answered,
// the answer is unusable.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	payload, err := c.do(ctx, http.MethodGet, path, query, "", nil, "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return catalog.NewError(catalog.CategoryNormalization, c.provider, "malformed JSON response", err)
	}
	return nil
}

// PostJSON sends body as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return catalog.NewError(catalog.CategoryInternal, c.provider, "encode request body", err)
	}
	payload, err := c.do(ctx, http.MethodPost, path, nil, "application/json", encoded, "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return catalog.NewError(catalog.CategoryNormalization, c.provider, "malformed JSON response", err)
	}
	return nil
}

// PostForm sends a URL-encoded form and decodes the JSON response into out.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	payload, err := c.do(ctx, http.MethodPost, path, nil, "application/x-www-form-urlencoded", []byte(form.Encode()), "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return catalog.NewError(catalog.CategoryNormalization, c.provider, "malformed JSON response", err)
	}
	return nil
}

// GetDocument fetches path and parses the response as HTML. Scraping
// adapters build on this; everything upstream of the selector logic stays
// here.
func (c *Client) GetDocument(ctx context.Context, path string, query url.Values) (*goquery.Document, error) {
	payload, err := c.do(ctx, http.MethodGet, path, query, "", nil, "text/html")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, catalog.NewError(catalog.CategoryNormalization, c.provider, "unparseable HTML response", err)
	}
	return doc, nil
}

// do runs one logical request: rate limit, attempt, translate, retry on
// 429/5xx and transport failures until the attempt budget runs out. The
// returned error is always either a *catalog.Error or the caller's own
// context error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, accept string) ([]byte, error) {
	target := c.base.JoinPath(path)
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, c.translateContext(ctx.Err())
			case <-time.After(c.backoff(attempt - 1)):
			}
			c.logger.DebugContext(ctx, "retrying upstream request",
				"provider", c.provider,
				"attempt", attempt,
				"url", target.Redacted(),
			)
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, c.translateContext(err)
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
		if err != nil {
			return nil, catalog.NewError(catalog.CategoryInternal, c.provider, "build request", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", accept)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if c.decorate != nil {
			if err := c.decorate(req); err != nil {
				// A decorator that already speaks the taxonomy (a token
				// fetch going through another Client) keeps its category;
				// anything else is local misconfiguration.
				var ce *catalog.Error
				if errors.As(err, &ce) {
					return nil, err
				}
				return nil, catalog.NewError(catalog.CategoryMisconfigured, c.provider, "decorate request", err)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = c.translateTransport(ctx, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		payload, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = catalog.NewError(catalog.CategoryOutage, c.provider, "read response body", readErr)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return payload, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = c.statusError(resp.StatusCode)
			continue
		default:
			return nil, c.statusError(resp.StatusCode)
		}
	}
	return nil, lastErr
}

// statusError maps an upstream status onto the taxonomy.
func (c *Client) statusError(status int) *catalog.Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return catalog.Errorf(catalog.CategoryMisconfigured, c.provider, "credentials rejected (status %d)", status)
	case status == http.StatusNotFound || status == http.StatusGone:
		return catalog.Errorf(catalog.CategoryNotFound, c.provider, "no match (status %d)", status)
	case status == http.StatusTooManyRequests:
		return catalog.Errorf(catalog.CategoryRateLimited, c.provider, "quota exceeded (status %d)", status)
	case status >= 500:
		return catalog.Errorf(catalog.CategoryOutage, c.provider, "upstream failure (status %d)", status)
	default:
		return catalog.Errorf(catalog.CategoryInternal, c.provider, "unexpected status %d", status)
	}
}

// translateTransport maps a round-trip failure. Deadline expiry is a
// timeout; caller cancellation stays a plain context error so the
// dispatcher can tell "caller went away" from "provider is slow".
func (c *Client) translateTransport(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return catalog.NewError(catalog.CategoryTimeout, c.provider, "request deadline exceeded", err)
	}
	return catalog.NewError(catalog.CategoryOutage, c.provider, "upstream unreachable", err)
}

func (c *Client) translateContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return catalog.NewError(catalog.CategoryTimeout, c.provider, "request deadline exceeded", err)
	}
	return err
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// backoff returns the delay before the given retry (1-based), exponential
// with a 25% jitter so synchronized clients do not stampede a recovering
// upstream.
func (c *Client) backoff(retry int) time.Duration {
	delay := float64(c.retryDelay) * math.Pow(2, float64(retry-1))
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}
	jitter := delay * 0.25
	delay += (rand.Float64()*2 - 1) * jitter
	return time.Duration(delay)
}

// APIKeyHeader returns a Decorate hook setting a static header credential.
func APIKeyHeader(name, value string) func(*http.Request) error {
	return func(req *http.Request) error {
		req.Header.Set(name, value)
		return nil
	}
}

// BearerToken returns a Decorate hook that fetches a token per attempt,
// for sources whose credentials expire mid-process.
func BearerToken(token func(ctx context.Context) (string, error)) func(*http.Request) error {
	return func(req *http.Request) error {
		t, err := token(req.Context())
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(t))
		return nil
	}
}

// BasicAuth returns a Decorate hook setting basic credentials.
func BasicAuth(username, password string) func(*http.Request) error {
	return func(req *http.Request) error {
		req.SetBasicAuth(username, password)
		return nil
	}
}
