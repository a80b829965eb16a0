package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// OutboxSource is the slice of the outbox the worker reads and settles.
type OutboxSource interface {
	PickBatch(ctx context.Context, limit int) ([]OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// OutboxWorker moves pending outbox rows to the sink. One worker per process
// is enough at audit volumes; rows that fail to publish stay pending and are
// retried on the next tick.
type OutboxWorker struct {
	outbox   OutboxSource
	sink     Sink
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// NewOutboxWorker builds a worker polling every interval, delivering up to
// batch rows per tick.
func NewOutboxWorker(outbox OutboxSource, sink Sink, interval time.Duration, batch int, logger *slog.Logger) *OutboxWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &OutboxWorker{
		outbox:   outbox,
		sink:     sink,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Run polls until the context is canceled.
func (w *OutboxWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Deliver(ctx); err != nil {
				w.logger.WarnContext(ctx, "audit outbox delivery failed",
					"error", err,
				)
			}
		}
	}
}

// Deliver publishes one batch of pending rows. A publish failure stops the
// batch; everything already published is marked so nothing is sent twice.
func (w *OutboxWorker) Deliver(ctx context.Context) error {
	entries, err := w.outbox.PickBatch(ctx, w.batch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(entries))
	var publishErr error
	for _, entry := range entries {
		if err := w.sink.Publish(ctx, entry.Event); err != nil {
			publishErr = err
			break
		}
		published = append(published, entry.ID)
	}

	if err := w.outbox.MarkPublished(ctx, published); err != nil {
		return err
	}
	return publishErr
}
