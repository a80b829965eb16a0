package audit

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOutbox struct {
	mu      sync.Mutex
	pending []OutboxEntry
}

func (f *fakeOutbox) add(events ...Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range events {
		f.pending = append(f.pending, OutboxEntry{ID: uuid.MustParse(e.ID), Event: e})
	}
}

func (f *fakeOutbox) PickBatch(_ context.Context, limit int) ([]OutboxEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return append([]OutboxEntry(nil), f.pending[:limit]...), nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	done := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		done[id] = true
	}
	kept := f.pending[:0]
	for _, entry := range f.pending {
		if !done[entry.ID] {
			kept = append(kept, entry)
		}
	}
	f.pending = kept
	return nil
}

func (f *fakeOutbox) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// failingSink rejects events whose ID is in the deny set.
type failingSink struct {
	store *MemoryStore
	deny  map[string]bool
}

func (s *failingSink) Publish(ctx context.Context, event Event) error {
	if s.deny[event.ID] {
		return assert.AnError
	}
	return s.store.Publish(ctx, event)
}

func outboxEvent(action Action) Event {
	return Event{ID: uuid.NewString(), Action: action, Timestamp: time.Now().UTC()}
}

func TestOutboxWorker_DeliversPendingBatch(t *testing.T) {
	outbox := &fakeOutbox{}
	outbox.add(outboxEvent(ActionSearchPerformed), outboxEvent(ActionLookupPerformed))

	store := NewMemoryStore(0)
	worker := NewOutboxWorker(outbox, store, time.Second, 10, slog.Default())

	require.NoError(t, worker.Deliver(context.Background()))
	assert.Len(t, store.Events(), 2)
	assert.Zero(t, outbox.pendingCount(), "delivered rows should be marked published")
}

func TestOutboxWorker_PartialFailureRetriesRemainder(t *testing.T) {
	first := outboxEvent(ActionSearchPerformed)
	stuck := outboxEvent(ActionLookupPerformed)
	last := outboxEvent(ActionDocumentsFetched)

	outbox := &fakeOutbox{}
	outbox.add(first, stuck, last)

	store := NewMemoryStore(0)
	sink := &failingSink{store: store, deny: map[string]bool{stuck.ID: true}}
	worker := NewOutboxWorker(outbox, sink, time.Second, 10, slog.Default())

	require.Error(t, worker.Deliver(context.Background()))
	assert.Len(t, store.Events(), 1, "rows before the failure still deliver")
	assert.Equal(t, 2, outbox.pendingCount(), "failed row and everything after stay pending")

	// Broker recovered; the next tick drains what is left.
	sink.deny = nil
	require.NoError(t, worker.Deliver(context.Background()))
	assert.Len(t, store.Events(), 3)
	assert.Zero(t, outbox.pendingCount())
}

func TestOutboxWorker_RunStopsOnCancel(t *testing.T) {
	outbox := &fakeOutbox{}
	worker := NewOutboxWorker(outbox, NewMemoryStore(0), time.Millisecond, 10, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
