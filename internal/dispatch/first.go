package dispatch

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"corpatlas/internal/catalog"
)

// Call invokes one capability-specific operation on an adapter. The context
// carries the per-attempt deadline; implementations must honor it.
type Call[T any] func(ctx context.Context, a catalog.Adapter) (T, error)

// First walks the ranked candidates for (country, capability) and returns
// the first success. Transient failures (not found, rate limited, timeout,
// outage, normalization) move on to the next candidate; a misconfigured
// provider is quarantined and skipped for the process lifetime. Exhaustion
// fails with *NoProviderError carrying one attempt per tried candidate.
//
// Caller cancellation stops the walk immediately and propagates into the
// in-flight call. In speculative mode all candidates are raced instead and
// the first success cancels the rest; attempts are then in completion
// order, not priority order.
func First[T any](ctx context.Context, d *Dispatcher, countryCode string, capability catalog.Capability, call Call[T]) (T, []Attempt, error) {
	var zero T
	cc := upper(countryCode)

	ctx, span := d.tracer.Start(ctx, "dispatch.first", trace.WithAttributes(
		attribute.String("country", cc),
		attribute.String("capability", string(capability)),
	))
	defer span.End()

	candidates := d.candidates(cc, capability)
	span.SetAttributes(attribute.Int("candidates", len(candidates)))

	if d.speculative && len(candidates) > 1 {
		return race(ctx, d, cc, capability, candidates, call)
	}

	attempts := make([]Attempt, 0, len(candidates))
	for _, a := range candidates {
		if err := ctx.Err(); err != nil {
			d.count(capability, "canceled")
			return zero, attempts, err
		}

		result, att := attempt(ctx, d, a, capability, call)
		attempts = append(attempts, att)
		if att.OK {
			d.count(capability, "ok")
			return result, attempts, nil
		}
		// The attempt may have failed only because the caller went away.
		if err := ctx.Err(); err != nil {
			d.count(capability, "canceled")
			return zero, attempts, err
		}
	}

	d.count(capability, "exhausted")
	err := &NoProviderError{CountryCode: cc, Capability: capability, Attempts: attempts}
	span.SetStatus(codes.Error, "exhausted")
	return zero, attempts, err
}

// race is First in speculative-parallel mode: every candidate starts at
// once, the first success wins and cancels the others. The outcome channel
// is buffered so losers finish without leaking once we return.
func race[T any](ctx context.Context, d *Dispatcher, cc string, capability catalog.Capability, candidates []catalog.Adapter, call Call[T]) (T, []Attempt, error) {
	var zero T
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result T
		att    Attempt
	}
	outcomes := make(chan outcome, len(candidates))
	for _, a := range candidates {
		go func() {
			result, att := attempt(raceCtx, d, a, capability, call)
			outcomes <- outcome{result: result, att: att}
		}()
	}

	attempts := make([]Attempt, 0, len(candidates))
	for range candidates {
		o := <-outcomes
		attempts = append(attempts, o.att)
		if o.att.OK {
			d.count(capability, "ok")
			return o.result, attempts, nil
		}
		if err := ctx.Err(); err != nil {
			d.count(capability, "canceled")
			return zero, attempts, err
		}
	}

	d.count(capability, "exhausted")
	return zero, attempts, &NoProviderError{CountryCode: cc, Capability: capability, Attempts: attempts}
}
