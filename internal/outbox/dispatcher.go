// Package outbox buffers roster events and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// SchemaRegistrar resolves the registry id for a schema subject.
type SchemaRegistrar interface {
	EnsureSchema(context.Context, string, string) (int, error)
}

// Dispatcher drains the outbox queue and delivers events to Kafka using Schema Registry metadata.
type Dispatcher struct {
	queue            *Queue
	producer         messageWriter
	registry         SchemaRegistrar
	logger           zerolog.Logger
	pollInterval     time.Duration
	batchSize        int
	schemaIDCache    sync.Map
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher. A nil registry frames every payload with schema id 0.
func NewDispatcher(queue *Queue, producer messageWriter, registry SchemaRegistrar, pollInterval time.Duration, batchSize int, logger zerolog.Logger) *Dispatcher {
	if registry == nil {
		registry = NoopRegistry{}
	}
	return &Dispatcher{
		queue:            queue,
		producer:         producer,
		registry:         registry,
		logger:           logger,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the polling loop. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Error().Err(err).Msg("outbox dispatcher error")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait waits until dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// Drain delivers what is still queued, stopping at the first failed batch or when ctx ends.
// It must not run concurrently with Start.
func (d *Dispatcher) Drain(ctx context.Context) error {
	for d.queue.Pending() > 0 {
		if err := d.processBatch(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	messages := d.queue.claim(d.batchSize)
	if len(messages) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	err := d.deliver(ctx, messages)
	if err == nil {
		for _, msg := range messages {
			countOutcome(msg.Topic, outcomeDelivered)
		}
		return nil
	}

	// An interrupted write says nothing about the broker.
	if ctxErr := ctx.Err(); ctxErr != nil {
		d.queue.requeue(messages, "", false)
		return ctxErr
	}

	for _, msg := range messages {
		countOutcome(msg.Topic, outcomeFailed)
	}
	for _, letter := range d.queue.requeue(messages, err.Error(), true) {
		countOutcome(letter.Message.Topic, outcomeDeadLettered)
		d.logger.Warn().
			Str("event_id", letter.Message.EventID).
			Str("event_type", letter.Message.EventType).
			Int("attempts", letter.Message.Attempts).
			Int("replays", letter.Message.Replays).
			Str("reason", letter.Reason).
			Msg("outbox event dead-lettered")
	}
	return errors.Wrap(err, "outbox delivery failure")
}

func (d *Dispatcher) deliver(ctx context.Context, messages []Message) error {
	batches := make(map[string][]kafka.Message)
	topics := make([]string, 0, 1)

	for _, msg := range messages {
		meta, ok := eventCatalog[msg.EventType]
		if !ok {
			return errors.Errorf("no schema metadata for event_type=%s", msg.EventType)
		}

		schemaID, err := d.schemaID(ctx, msg.SchemaSubject, meta.Schema)
		if err != nil {
			return err
		}

		record := kafka.Message{
			Key:   []byte(msg.PartitionKey),
			Value: encodeWireFormat(schemaID, msg.Payload),
			Time:  time.Now().UTC(),
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(msg.EventType)},
				{Key: "schema_subject", Value: []byte(msg.SchemaSubject)},
				{Key: "event_id", Value: []byte(msg.EventID)},
			},
		}

		if _, exists := batches[msg.Topic]; !exists {
			topics = append(topics, msg.Topic)
		}
		batches[msg.Topic] = append(batches[msg.Topic], record)
	}

	for _, topic := range topics {
		if err := d.producer.WriteMessages(ctx, topic, batches[topic]...); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dispatcher) schemaID(ctx context.Context, subject, schema string) (int, error) {
	cacheKey := subject + "::" + schema
	if cached, found := d.schemaIDCache.Load(cacheKey); found {
		return cached.(int), nil
	}
	id, err := d.registry.EnsureSchema(ctx, subject, schema)
	if err != nil {
		return 0, err
	}
	d.schemaIDCache.Store(cacheKey, id)
	return id, nil
}

// encodeWireFormat applies Confluent framing for Schema Registry aware payloads.
func encodeWireFormat(schemaID int, payload []byte) []byte {
	frame := make([]byte, 5+len(payload))
	frame[0] = 0
	binary.BigEndian.PutUint32(frame[1:5], uint32(schemaID))
	copy(frame[5:], payload)
	return frame
}
