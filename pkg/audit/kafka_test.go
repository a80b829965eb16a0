package audit

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

// fakeProducer captures produced records and fails on demand.
type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	calls   int
	err     error
	closed  bool
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls += len(rs)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if f.err == nil {
			f.records = append(f.records, r)
		}
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func (f *fakeProducer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeProducer) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeProducer) produced() []*kgo.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*kgo.Record(nil), f.records...)
}

func (f *fakeProducer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestKafkaSink_PublishesKeyedRecord(t *testing.T) {
	fake := &fakeProducer{}
	sink := newKafkaSink(fake, "corpatlas.audit.v1")

	event := Event{
		ID:             "evt-1",
		Action:         ActionLookupPerformed,
		CountryCode:    "FR",
		Provider:       "insee",
		IdentifierHash: HashIdentifier("552100554"),
		Outcome:        OutcomeOK,
	}
	require.NoError(t, sink.Publish(context.Background(), event))

	records := fake.produced()
	require.Len(t, records, 1)
	assert.Equal(t, "corpatlas.audit.v1", records[0].Topic)
	assert.Equal(t, event.IdentifierHash, string(records[0].Key),
		"records for the same company must share a partition key")

	var decoded Event
	require.NoError(t, json.Unmarshal(records[0].Value, &decoded))
	assert.Equal(t, ActionLookupPerformed, decoded.Action)
	assert.Equal(t, "insee", decoded.Provider)
	assert.Equal(t, "FR", decoded.CountryCode)
}

func TestKafkaSink_KeyFallsBackToEventID(t *testing.T) {
	fake := &fakeProducer{}
	sink := newKafkaSink(fake, "corpatlas.audit.v1")

	require.NoError(t, sink.Publish(context.Background(), Event{
		ID:     "evt-2",
		Action: ActionProvidersListed,
	}))

	records := fake.produced()
	require.Len(t, records, 1)
	assert.Equal(t, "evt-2", string(records[0].Key))
}

func TestKafkaSink_SamplerDropsOperationsKeepsCompliance(t *testing.T) {
	fake := &fakeProducer{}
	drops := 0
	sink := newKafkaSink(fake, "corpatlas.audit.v1",
		WithSampler(NewSampler(0)),
		WithKafkaOnDrop(func() { drops++ }),
	)

	require.NoError(t, sink.Publish(context.Background(), Event{
		ID:     "evt-ops",
		Action: ActionSearchPerformed,
	}))
	assert.Empty(t, fake.produced(), "operations events are sampled out at rate 0")
	assert.Equal(t, 1, drops)

	require.NoError(t, sink.Publish(context.Background(), Event{
		ID:     "evt-ubo",
		Action: ActionBeneficialOwnersFetched,
	}))
	records := fake.produced()
	require.Len(t, records, 1, "compliance events bypass sampling")
	assert.Equal(t, "evt-ubo", string(records[0].Key))
}

func TestKafkaSink_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	fake := &fakeProducer{}
	fake.fail(assert.AnError)
	drops := 0
	sink := newKafkaSink(fake, "corpatlas.audit.v1",
		WithBreaker(NewBreaker(3, time.Minute)),
		WithKafkaOnDrop(func() { drops++ }),
	)
	ctx := context.Background()

	for range 3 {
		err := sink.Publish(ctx, Event{ID: "evt", Action: ActionSearchPerformed})
		require.Error(t, err)
	}
	assert.Equal(t, 3, fake.callCount())

	// Circuit is open now; publishes are dropped without touching the broker.
	require.NoError(t, sink.Publish(ctx, Event{ID: "evt", Action: ActionSearchPerformed}))
	assert.Equal(t, 3, fake.callCount(), "open breaker must not produce")
	assert.Equal(t, 1, drops)
}

func TestKafkaSink_BreakerRecoversAfterCooldown(t *testing.T) {
	fake := &fakeProducer{}
	fake.fail(assert.AnError)
	sink := newKafkaSink(fake, "corpatlas.audit.v1",
		WithBreaker(NewBreaker(1, 10*time.Millisecond)),
	)
	ctx := context.Background()

	require.Error(t, sink.Publish(ctx, Event{ID: "evt", Action: ActionSearchPerformed}))
	require.NoError(t, sink.Publish(ctx, Event{ID: "evt", Action: ActionSearchPerformed}),
		"open breaker drops instead of erroring")

	time.Sleep(20 * time.Millisecond)
	fake.fail(nil)

	require.NoError(t, sink.Publish(ctx, Event{ID: "evt-after", Action: ActionSearchPerformed}))
	records := fake.produced()
	require.Len(t, records, 1)
	assert.Equal(t, "evt-after", string(records[0].Key))
}

func TestKafkaSink_CloseReleasesClient(t *testing.T) {
	fake := &fakeProducer{}
	sink := newKafkaSink(fake, "corpatlas.audit.v1")
	sink.Close()
	assert.True(t, fake.closed)
}
