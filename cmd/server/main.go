// Command server runs the corpatlas HTTP API: company search, reference
// lookups and sub-resource fetches aggregated across national registries.
// This file only composes configuration, storage, the audit pipeline and
// the provider registry; business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"corpatlas/internal/atlas"
	"corpatlas/internal/atlas/handler"
	"corpatlas/internal/atlas/store"
	"corpatlas/internal/catalog"
	"corpatlas/internal/dispatch"
	"corpatlas/internal/platform/config"
	"corpatlas/internal/platform/httpserver"
	"corpatlas/internal/platform/logger"
	"corpatlas/internal/platform/metrics"
	"corpatlas/internal/platform/middleware"
	platformredis "corpatlas/internal/platform/redis"
	"corpatlas/internal/ratelimit"
	"corpatlas/pkg/audit"
	"corpatlas/pkg/platform/httputil"
)

const (
	outboxInterval = 2 * time.Second
	outboxBatch    = 100

	shutdownGrace = 10 * time.Second
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	redisClient, err := platformredis.New(ctx, cfg.Redis())
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	opts := []atlas.ServiceOption{
		atlas.WithLogger(log),
		atlas.WithMetrics(m),
	}

	switch {
	case redisClient != nil:
		opts = append(opts, atlas.WithCache(store.NewRedisCache(redisClient.Client, cfg.CacheTTL)))
		log.Info("record cache: redis", "ttl", cfg.CacheTTL)
	case cfg.CacheTTL > 0:
		opts = append(opts, atlas.WithCache(store.NewMemoryCache(cfg.CacheTTL)))
		log.Info("record cache: in-memory", "ttl", cfg.CacheTTL)
	default:
		log.Info("record cache disabled")
	}

	var archive *store.SnapshotArchive
	if cfg.PostgresDSN != "" {
		archive, err = store.NewSnapshotArchive(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("snapshot archive: %w", err)
		}
		defer archive.Close()
		opts = append(opts, atlas.WithArchive(archive))
		log.Info("snapshot archive enabled")
	}

	publisher, closeAudit, err := buildAuditPipeline(ctx, cfg, m, log)
	if err != nil {
		return fmt.Errorf("audit pipeline: %w", err)
	}
	defer closeAudit()
	opts = append(opts, atlas.WithPublisher(publisher))

	registry := catalog.NewRegistry(cfg.Env, catalog.WithLogger(log))
	regs := registrations()
	for _, reg := range regs {
		registry.MustRegister(reg)
	}
	log.Info("provider registry ready",
		"providers", len(regs),
		"countries", registry.Countries(),
	)

	dispatcher := dispatch.New(registry,
		dispatch.WithLogger(log),
		dispatch.WithMetrics(m),
		dispatch.WithTimeout(cfg.ProviderTimeout),
		dispatch.WithSpeculative(cfg.SpeculativeLookup),
	)

	service := atlas.NewService(registry, dispatcher, opts...)
	defer service.Close()

	router := newRouter(cfg, log, m, promRegistry, service, redisClient, archive)
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("corpatlas listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(
	cfg config.Config,
	log *slog.Logger,
	m *metrics.Metrics,
	promRegistry *prometheus.Registry,
	service *atlas.Service,
	redisClient *platformredis.Client,
	archive *store.SnapshotArchive,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Instrument(m))

	// Probes stay outside authentication and rate limiting.
	r.Get("/healthz", healthHandler(redisClient, archive))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))

	guard := middleware.NewAPIKeyAuth(cfg.APIKeyHash, log)
	limiter := ratelimit.NewSlidingWindow(cfg.RateLimit, cfg.RateWindow)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.RateLimit(limiter, log))
		r.Use(guard.Middleware)
		handler.New(service, log).Register(r)
	})

	return r
}

// buildAuditPipeline composes the audit trail from whatever infrastructure
// the configuration names. Kafka with Postgres gets the durable outbox path,
// Kafka alone publishes directly, Postgres alone accumulates in the outbox
// for a later consumer, and neither falls back to an in-memory ring.
func buildAuditPipeline(ctx context.Context, cfg config.Config, m *metrics.Metrics, log *slog.Logger) (*audit.Publisher, func(), error) {
	onDrop := func() { m.AuditDropped.Inc() }
	publisherOpts := []audit.PublisherOption{
		audit.WithLogger(log),
		audit.WithOnDrop(onDrop),
		audit.WithAsyncBuffer(256),
	}

	var kafkaSink *audit.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.AuditTopic,
			audit.WithSampler(audit.NewSampler(cfg.AuditSampleRate)),
			audit.WithBreaker(audit.NewBreaker(5, 30*time.Second)),
			audit.WithKafkaLogger(log),
			audit.WithKafkaOnDrop(onDrop),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka sink: %w", err)
		}
		kafkaSink = sink
	}

	// No Postgres: publish straight to Kafka, or keep a local ring when
	// nothing is configured at all.
	if cfg.PostgresDSN == "" {
		if kafkaSink != nil {
			publisher := audit.NewPublisher(kafkaSink, publisherOpts...)
			log.Info("audit trail: direct to kafka", "topic", cfg.AuditTopic)
			return publisher, func() {
				publisher.Close()
				kafkaSink.Close()
			}, nil
		}
		publisher := audit.NewPublisher(audit.NewMemoryStore(0), publisherOpts...)
		log.Warn("audit trail: in-memory only, events are lost on restart")
		return publisher, func() { publisher.Close() }, nil
	}

	// Postgres configured: events land in the outbox first. A worker pumps
	// them to Kafka when brokers are known; otherwise the rows wait for a
	// separately deployed consumer.
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("audit outbox: %w", err)
	}
	outbox := audit.NewOutboxStore(db)
	if err := outbox.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("audit outbox schema: %w", err)
	}

	publisher := audit.NewPublisher(outbox, publisherOpts...)

	if kafkaSink == nil {
		log.Info("audit trail: outbox only, no kafka brokers configured")
		return publisher, func() {
			publisher.Close()
			db.Close()
		}, nil
	}

	worker := audit.NewOutboxWorker(outbox, kafkaSink, outboxInterval, outboxBatch, log)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit outbox worker stopped", "error", err)
		}
	}()
	log.Info("audit trail: outbox to kafka", "topic", cfg.AuditTopic)

	return publisher, func() {
		publisher.Close()
		stopWorker()
		<-workerDone
		// One last sweep so a clean shutdown leaves nothing pending.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := worker.Deliver(flushCtx); err != nil {
			log.Warn("audit outbox flush incomplete", "error", err)
		}
		kafkaSink.Close()
		db.Close()
	}, nil
}

func healthHandler(redisClient *platformredis.Client, archive *store.SnapshotArchive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"status": "ok"}
		healthy := true
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			}
		}
		if archive != nil {
			if err := archive.Ping(ctx); err != nil {
				checks["postgres"] = err.Error()
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			checks["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, checks)
	}
}
