// Package events publishes registry lifecycle events to Kafka.
//
// Publishing is fire-and-forget: a broker outage must never fail or delay a
// submission, so delivery errors are logged and dropped.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"strdep/pkg/domain"
)

// Action is the lifecycle transition an event records.
type Action string

const (
	ActionSubmitted   Action = "submitted"
	ActionDeactivated Action = "deactivated"
)

// Event is one lifecycle transition of a version chain.
type Event struct {
	Kind         domain.EntityKind   `json:"kind"`
	FunctionalID domain.FunctionalID `json:"functionalId"`
	OwnerID      domain.FunctionalID `json:"ownerId"`
	Action       Action              `json:"action"`
	OccurredAt   time.Time           `json:"occurredAt"`
}

// Publisher emits lifecycle events.
type Publisher interface {
	Emit(ctx context.Context, event Event)
	Close()
}

// Kafka publishes events to a single topic, keyed by functional id so
// transitions of one chain stay ordered within a partition.
type Kafka struct {
	client *kgo.Client
	topic  string
	log    *zap.Logger
}

// NewKafka connects to the given brokers and ensures the topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string, log *zap.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 3, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}

	return &Kafka{client: client, topic: topic, log: log}, nil
}

// Emit serializes the event and produces it asynchronously. Errors are logged,
// never returned.
func (k *Kafka) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		k.log.Error("failed to marshal lifecycle event", zap.Error(err))
		return
	}

	record := &kgo.Record{
		Key:   []byte(event.FunctionalID),
		Value: payload,
	}
	// Delivery outlives the request; only Close bounds it.
	k.client.Produce(context.WithoutCancel(ctx), record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.log.Warn("failed to publish lifecycle event",
				zap.String("kind", string(event.Kind)),
				zap.String("functional_id", string(event.FunctionalID)),
				zap.String("action", string(event.Action)),
				zap.Error(err))
		}
	})
}

// Close flushes pending records and releases the client.
func (k *Kafka) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = k.client.Flush(ctx)
	k.client.Close()
}

// Noop discards all events. Used when no brokers are configured.
type Noop struct{}

func (Noop) Emit(context.Context, Event) {}
func (Noop) Close()                      {}
