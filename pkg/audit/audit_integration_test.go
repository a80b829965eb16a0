//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"corpatlas/pkg/audit"
	"corpatlas/pkg/testutil/containers"
)

func sampleEvent(action audit.Action) audit.Event {
	return audit.Event{
		ID:             uuid.NewString(),
		Action:         action,
		CountryCode:    "FR",
		Provider:       "insee",
		IdentifierHash: audit.HashIdentifier("322306440"),
		Outcome:        audit.OutcomeOK,
		DurationMS:     42,
		Timestamp:      time.Now().UTC(),
	}
}

type OutboxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	outbox   *audit.OutboxStore
}

func TestOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(OutboxSuite))
}

func (s *OutboxSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.outbox = audit.NewOutboxStore(s.postgres.DB)
	s.Require().NoError(s.outbox.EnsureSchema(context.Background()))
}

func (s *OutboxSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_outbox"))
}

func (s *OutboxSuite) TestPublishPickMark() {
	ctx := context.Background()
	first := sampleEvent(audit.ActionLookupPerformed)
	second := sampleEvent(audit.ActionDocumentsFetched)

	s.Require().NoError(s.outbox.Publish(ctx, first))
	s.Require().NoError(s.outbox.Publish(ctx, second))

	pending, err := s.outbox.PendingCount(ctx)
	s.Require().NoError(err)
	s.Equal(2, pending)

	entries, err := s.outbox.PickBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(first.ID, entries[0].Event.ID, "oldest row first")
	s.Equal(audit.ActionLookupPerformed, entries[0].Event.Action)

	s.Require().NoError(s.outbox.MarkPublished(ctx, []uuid.UUID{entries[0].ID}))

	pending, err = s.outbox.PendingCount(ctx)
	s.Require().NoError(err)
	s.Equal(1, pending)

	entries, err = s.outbox.PickBatch(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(second.ID, entries[0].Event.ID)
}

func (s *OutboxSuite) TestPublishIsIdempotentByID() {
	ctx := context.Background()
	event := sampleEvent(audit.ActionSearchPerformed)

	s.Require().NoError(s.outbox.Publish(ctx, event))
	s.Require().NoError(s.outbox.Publish(ctx, event))

	pending, err := s.outbox.PendingCount(ctx)
	s.Require().NoError(err)
	s.Equal(1, pending)
}

func (s *OutboxSuite) TestPickBatchHonorsLimit() {
	ctx := context.Background()
	for range 5 {
		s.Require().NoError(s.outbox.Publish(ctx, sampleEvent(audit.ActionSearchPerformed)))
	}

	entries, err := s.outbox.PickBatch(ctx, 3)
	s.Require().NoError(err)
	s.Len(entries, 3)
}

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSinkSuite) consume(topic string, want int) []*kgo.Record {
	s.T().Helper()

	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	deadline := time.After(15 * time.Second)
	var records []*kgo.Record
	for len(records) < want {
		select {
		case <-deadline:
			s.Require().Failf("timed out", "consumed %d of %d records", len(records), want)
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		fetches := client.PollFetches(ctx)
		cancel()
		iter := fetches.RecordIter()
		for !iter.Done() {
			records = append(records, iter.Next())
		}
	}
	return records
}

func (s *KafkaSinkSuite) TestPublishRoundTrip() {
	ctx := context.Background()
	topic := "corpatlas.audit.roundtrip"

	sink, err := audit.NewKafkaSink(ctx, s.redpanda.Brokers, topic)
	s.Require().NoError(err)
	defer sink.Close()

	event := sampleEvent(audit.ActionLookupPerformed)
	s.Require().NoError(sink.Publish(ctx, event))

	records := s.consume(topic, 1)
	s.Equal(event.IdentifierHash, string(records[0].Key))

	var decoded audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &decoded))
	s.Equal(event.ID, decoded.ID)
	s.Equal(audit.ActionLookupPerformed, decoded.Action)
	s.Equal("insee", decoded.Provider)
}

func (s *KafkaSinkSuite) TestOutboxWorkerDrainsToKafka() {
	ctx := context.Background()
	topic := "corpatlas.audit.outbox"

	postgres := containers.GetManager().GetPostgres(s.T())
	outbox := audit.NewOutboxStore(postgres.DB)
	s.Require().NoError(outbox.EnsureSchema(ctx))
	s.Require().NoError(postgres.TruncateTables(ctx, "audit_outbox"))

	sink, err := audit.NewKafkaSink(ctx, s.redpanda.Brokers, topic)
	s.Require().NoError(err)
	defer sink.Close()

	first := sampleEvent(audit.ActionSearchPerformed)
	second := sampleEvent(audit.ActionBeneficialOwnersFetched)
	s.Require().NoError(outbox.Publish(ctx, first))
	s.Require().NoError(outbox.Publish(ctx, second))

	worker := audit.NewOutboxWorker(outbox, sink, time.Second, 100, slog.Default())
	s.Require().NoError(worker.Deliver(ctx))

	pending, err := outbox.PendingCount(ctx)
	s.Require().NoError(err)
	s.Zero(pending)

	records := s.consume(topic, 2)
	ids := map[string]bool{}
	for _, record := range records {
		var decoded audit.Event
		s.Require().NoError(json.Unmarshal(record.Value, &decoded))
		ids[decoded.ID] = true
	}
	s.True(ids[first.ID])
	s.True(ids[second.ID])
}
