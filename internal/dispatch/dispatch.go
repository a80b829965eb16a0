// Package dispatch drives provider fallback and fan-out. A dispatch walks
// the registry's ranked candidates for (country, capability) and either
// returns the first success (First) or aggregates across every capable
// source (Fanout). Failures are routed purely on the catalog taxonomy;
// upstream error shapes never reach this package.
//
// Quarantine: a provider failing with the misconfigured category is skipped
// for the rest of the process. Rate limits and outages are transient and do
// not quarantine; the same provider is eligible again on the next request.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"corpatlas/internal/catalog"
	"corpatlas/internal/platform/metrics"
)

// DefaultTimeout bounds a single provider call when the dispatcher is not
// configured otherwise. Exceeding it is a transient failure, not a hang.
const DefaultTimeout = 10 * time.Second

// Dispatcher coordinates provider calls for one process. Construction-time
// state (registry, timeout, mode) is immutable; the quarantine set is the
// only mutable state and is safe for concurrent requests.
type Dispatcher struct {
	registry    *catalog.Registry
	timeout     time.Duration
	speculative bool
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer

	mu          sync.RWMutex
	quarantined map[string]string // provider -> reason
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics attaches Prometheus instruments.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithSpeculative switches First to speculative-parallel mode: every
// candidate is raced and the first success cancels the rest. Costs extra
// upstream quota for lower tail latency; off by default.
func WithSpeculative(on bool) Option {
	return func(d *Dispatcher) { d.speculative = on }
}

// New builds a dispatcher over the given registry.
func New(registry *catalog.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:    registry,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
		tracer:      otel.Tracer("corpatlas/dispatch"),
		quarantined: make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Attempt is the recorded outcome of one provider call. Terminal failures
// carry exactly one attempt per tried candidate; a successful First carries
// the failed attempts followed by one OK entry for the winning provider.
type Attempt struct {
	Provider string           `json:"provider"`
	OK       bool             `json:"ok"`
	Category catalog.Category `json:"category,omitempty"`
	Detail   string           `json:"detail,omitempty"`
	Elapsed  time.Duration    `json:"-"`
}

// NoProviderError is the terminal dispatch failure: every candidate was
// exhausted, or none existed for the country and capability at all.
type NoProviderError struct {
	CountryCode string
	Capability  catalog.Capability
	Attempts    []Attempt
}

func (e *NoProviderError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("dispatch: no provider available for %s/%s", e.CountryCode, e.Capability)
	}
	return fmt.Sprintf("dispatch: all %d providers failed for %s/%s", len(e.Attempts), e.CountryCode, e.Capability)
}

// AllAbsent reports whether the failure is pure absence: every tried source
// answered "no match", or no source was available to try. Callers map
// absence and upstream failure to different statuses.
func (e *NoProviderError) AllAbsent() bool {
	for _, a := range e.Attempts {
		if a.Category != catalog.CategoryNotFound {
			return false
		}
	}
	return true
}

// Quarantined returns the providers currently excluded as misconfigured,
// sorted by name.
func (d *Dispatcher) Quarantined() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.quarantined))
	for name := range d.quarantined {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// quarantine excludes a provider for the rest of the process. Idempotent.
func (d *Dispatcher) quarantine(ctx context.Context, name, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.quarantined[name]; ok {
		return
	}
	d.quarantined[name] = reason
	if d.metrics != nil {
		d.metrics.QuarantinedNow.Set(float64(len(d.quarantined)))
	}
	d.logger.WarnContext(ctx, "provider quarantined for process lifetime",
		"provider", name,
		"reason", reason,
	)
}

// candidates resolves the ranked adapters and drops quarantined ones.
func (d *Dispatcher) candidates(countryCode string, capability catalog.Capability) []catalog.Adapter {
	resolved := d.registry.Resolve(countryCode, capability)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.quarantined) == 0 {
		return resolved
	}
	kept := resolved[:0]
	for _, a := range resolved {
		if _, skip := d.quarantined[a.Descriptor().Name]; skip {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// count records the terminal outcome of one dispatch.
func (d *Dispatcher) count(capability catalog.Capability, outcome string) {
	if d.metrics == nil {
		return
	}
	d.metrics.DispatchTotal.WithLabelValues(string(capability), outcome).Inc()
}

// attempt runs one bounded provider call and records its outcome. A
// misconfigured failure quarantines the provider as a side effect.
func attempt[T any](ctx context.Context, d *Dispatcher, a catalog.Adapter, capability catalog.Capability, call Call[T]) (T, Attempt) {
	name := a.Descriptor().Name
	ctx, span := d.tracer.Start(ctx, "provider.call", trace.WithAttributes(
		attribute.String("provider", name),
		attribute.String("capability", string(capability)),
	))
	defer span.End()

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := call(callCtx, a)
	att := Attempt{Provider: name, Elapsed: time.Since(start)}

	if err != nil {
		att.Category = catalog.CategoryOf(err)
		att.Detail = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(att.Category))

		switch att.Category {
		case catalog.CategoryMisconfigured:
			d.quarantine(ctx, name, att.Detail)
		case catalog.CategoryUnsupported:
			// The registry filters capabilities before dispatch, so an
			// adapter answering unsupported means its descriptor lies.
			d.logger.WarnContext(ctx, "adapter rejected a declared capability",
				"provider", name,
				"capability", capability,
			)
		default:
			d.logger.DebugContext(ctx, "provider attempt failed",
				"provider", name,
				"capability", capability,
				"category", att.Category,
				"error", err,
			)
		}
	} else {
		att.OK = true
	}

	if d.metrics != nil {
		category := "ok"
		if !att.OK {
			category = string(att.Category)
		}
		d.metrics.ObserveAttempt(name, string(capability), category, att.Elapsed)
	}
	return result, att
}

func upper(countryCode string) string {
	return strings.ToUpper(strings.TrimSpace(countryCode))
}
