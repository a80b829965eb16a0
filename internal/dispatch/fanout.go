package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"corpatlas/internal/catalog"
)

// fanoutConcurrency bounds parallel upstream calls in one aggregating
// fetch. Per-country provider sets are small; the bound is a guard against
// a future country with many sources, not a tuning knob.
const fanoutConcurrency = 4

// Partial is the result of an aggregating fetch: whatever the capable
// providers returned, concatenated in priority order, plus every source
// that failed. A partially failed aggregate is a success that names its
// gaps, never a silent drop.
type Partial[T any] struct {
	Items    []T
	Failures []Attempt
}

// Fanout invokes call on every capable provider concurrently and
// concatenates the results in provider priority order regardless of
// completion order. It fails with *NoProviderError only when no provider
// was available or every one of them failed; otherwise failures ride along
// in the Partial.
func Fanout[T any](ctx context.Context, d *Dispatcher, countryCode string, capability catalog.Capability, call Call[[]T]) (Partial[T], error) {
	cc := upper(countryCode)

	ctx, span := d.tracer.Start(ctx, "dispatch.fanout", trace.WithAttributes(
		attribute.String("country", cc),
		attribute.String("capability", string(capability)),
	))
	defer span.End()

	candidates := d.candidates(cc, capability)
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		d.count(capability, "exhausted")
		return Partial[T]{}, &NoProviderError{CountryCode: cc, Capability: capability}
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutConcurrency)

	// Per-candidate slots: no locking, and priority order survives the
	// scheduling order.
	results := make([][]T, len(candidates))
	attempts := make([]Attempt, len(candidates))
	for i, a := range candidates {
		g.Go(func() error {
			items, att := attempt(groupCtx, d, a, capability, call)
			results[i], attempts[i] = items, att
			// One source failing must not cancel the others, so the
			// group never sees an error.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		d.count(capability, "canceled")
		return Partial[T]{}, err
	}

	var p Partial[T]
	succeeded := false
	for i := range candidates {
		if attempts[i].OK {
			succeeded = true
			p.Items = append(p.Items, results[i]...)
		} else {
			p.Failures = append(p.Failures, attempts[i])
		}
	}
	if !succeeded {
		d.count(capability, "exhausted")
		span.SetStatus(codes.Error, "exhausted")
		return p, &NoProviderError{CountryCode: cc, Capability: capability, Attempts: p.Failures}
	}
	d.count(capability, "ok")
	return p, nil
}

// Dedup collapses cross-source duplicates, keeping the first copy seen.
// Fanout emits items in provider priority order, so the first copy is the
// highest-priority source's.
func Dedup[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := key(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
