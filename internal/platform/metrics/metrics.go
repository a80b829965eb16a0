// Package metrics registers the Prometheus instruments for the aggregation
// pipeline. Label cardinality stays bounded: providers and capabilities are
// static sets, outcomes and categories are enums.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPDuration     *prometheus.HistogramVec
	DispatchTotal    *prometheus.CounterVec
	ProviderAttempts *prometheus.CounterVec
	ProviderLatency  *prometheus.HistogramVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	QuarantinedNow   prometheus.Gauge
	AuditDropped     prometheus.Counter
}

// New creates and registers all metrics on the given registerer. main passes
// prometheus.DefaultRegisterer; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corpatlas_http_request_duration_seconds",
			Help:    "Inbound request duration by route pattern and status.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"route", "method", "status"}),
		DispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corpatlas_dispatch_total",
			Help: "Dispatch outcomes by capability.",
		}, []string{"capability", "outcome"}),
		ProviderAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corpatlas_provider_attempts_total",
			Help: "Individual provider attempts by failure category (or ok).",
		}, []string{"provider", "category"}),
		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corpatlas_provider_latency_seconds",
			Help:    "Wall time of individual provider calls.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"provider", "capability"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpatlas_record_cache_hits_total",
			Help: "Lookups served from the record cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpatlas_record_cache_misses_total",
			Help: "Lookups that had to go to providers.",
		}),
		QuarantinedNow: factory.NewGauge(prometheus.GaugeOpts{
			Name: "corpatlas_providers_quarantined",
			Help: "Providers currently excluded as misconfigured.",
		}),
		AuditDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "corpatlas_audit_events_dropped_total",
			Help: "Audit events dropped by sampling or a tripped publisher breaker.",
		}),
	}
}

// ObserveAttempt records one provider call with its outcome category.
func (m *Metrics) ObserveAttempt(provider, capability, category string, elapsed time.Duration) {
	m.ProviderAttempts.WithLabelValues(provider, category).Inc()
	m.ProviderLatency.WithLabelValues(provider, capability).Observe(elapsed.Seconds())
}
