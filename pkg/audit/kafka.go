package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// auditTopicPartitions is used when the sink has to create the topic itself.
// Throughput is modest; three partitions keep per-company ordering while
// allowing consumer parallelism.
const auditTopicPartitions = 3

// producer is the slice of the Kafka client the sink uses. Tests inject a
// fake; production passes *kgo.Client.
type producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaSink publishes events to the audit topic. A breaker stops attempts
// while the broker is down and a sampler thins high-volume actions; both
// kinds of drop are counted, never silent.
type KafkaSink struct {
	client  producer
	topic   string
	breaker *Breaker
	sampler *Sampler
	logger  *slog.Logger
	onDrop  func()
}

// KafkaOption configures a KafkaSink.
type KafkaOption func(*KafkaSink)

// WithSampler sets the event sampler.
func WithSampler(s *Sampler) KafkaOption {
	return func(k *KafkaSink) { k.sampler = s }
}

// WithBreaker sets the publish circuit breaker.
func WithBreaker(b *Breaker) KafkaOption {
	return func(k *KafkaSink) { k.breaker = b }
}

// WithKafkaLogger sets the sink logger.
func WithKafkaLogger(logger *slog.Logger) KafkaOption {
	return func(k *KafkaSink) { k.logger = logger }
}

// WithKafkaOnDrop registers a callback invoked once per dropped event.
func WithKafkaOnDrop(fn func()) KafkaOption {
	return func(k *KafkaSink) { k.onDrop = fn }
}

// NewKafkaSink dials the brokers and ensures the topic exists before
// returning. Publishing keeps each company's events in one partition by
// keying on the identifier hash.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, opts ...KafkaOption) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("audit: kafka sink needs at least one broker")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID("corpatlas"),
		kgo.ProducerLinger(100*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: dial kafka: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return newKafkaSink(client, topic, opts...), nil
}

// newKafkaSink wires a sink over an already-built producer. Tests use it to
// inject fakes.
func newKafkaSink(client producer, topic string, opts ...KafkaOption) *KafkaSink {
	k := &KafkaSink{
		client:  client,
		topic:   topic,
		breaker: NewBreaker(5, time.Minute),
		sampler: NewSampler(1.0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Publish sends the event to the audit topic. Sampled-out events and events
// arriving while the breaker is open are dropped and counted, not errors:
// auditing must never fail the operation it describes.
func (k *KafkaSink) Publish(ctx context.Context, event Event) error {
	if !k.sampler.Keep(event.Action) {
		k.drop()
		return nil
	}
	if !k.breaker.Allow() {
		k.drop()
		k.logger.Debug("audit event dropped, publish breaker open",
			"action", event.Action,
		)
		return nil
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	key := event.IdentifierHash
	if key == "" {
		key = event.ID
	}

	results := k.client.ProduceSync(ctx, &kgo.Record{
		Topic: k.topic,
		Key:   []byte(key),
		Value: value,
	})
	if err := results.FirstErr(); err != nil {
		k.breaker.RecordFailure()
		return fmt.Errorf("audit: produce event: %w", err)
	}
	k.breaker.RecordSuccess()
	return nil
}

// Close releases the Kafka client.
func (k *KafkaSink) Close() {
	k.client.Close()
}

func (k *KafkaSink) drop() {
	if k.onDrop != nil {
		k.onDrop()
	}
}

// ensureTopic creates the audit topic if it does not exist yet. Running
// against a broker where it already exists is the common case.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resps, err := adm.CreateTopics(ctx, auditTopicPartitions, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("audit: create topic %s: %w", topic, err)
	}
	for _, resp := range resps.Sorted() {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("audit: create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}
