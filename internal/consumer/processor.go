// Package consumer reads roster events from Kafka and hands them to a Handler.
package consumer

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Reader is the part of kafka.Reader the processor drives.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded roster events.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a record unwrapped from the outbox wire format.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	Key           string
	EventType     string
	EventID       string
	SchemaSubject string
	SchemaID      int
	Payload       json.RawMessage
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger for fetch, decode and handler failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor feeds records from one Reader to a Handler. An offset is committed once the
// handler accepts the record, or immediately when the record cannot be decoded. Handler
// failures leave the offset in place so the group redelivers it.
type Processor struct {
	reader  Reader
	handler Handler
	logger  zerolog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{reader: reader, handler: handler, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until ctx is cancelled or the reader reports cancellation.
func (p *Processor) Run(ctx context.Context) error {
	for {
		record, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Error().Err(err).Msg("fetch failed")
			continue
		}

		if !p.process(ctx, record) {
			continue
		}
		if err := p.reader.CommitMessages(ctx, record); err != nil {
			p.logger.Error().Err(err).Int("partition", record.Partition).Int64("offset", record.Offset).Msg("commit failed")
		}
	}
}

// process reports whether the record's offset may be committed.
func (p *Processor) process(ctx context.Context, record kafka.Message) bool {
	msg, err := decodeRecord(record)
	if err != nil {
		p.logger.Error().
			Err(err).
			Int("partition", record.Partition).
			Int64("offset", record.Offset).
			Msg("skipping undecodable record")
		countConsumed(record.Topic, "", outcomeUndecodable)
		return true
	}

	if err := p.handler.Handle(ctx, msg); err != nil {
		p.logger.Error().
			Err(err).
			Str("event_type", msg.EventType).
			Str("event_id", msg.EventID).
			Int64("offset", msg.Offset).
			Msg("handler rejected record")
		countConsumed(msg.Topic, msg.EventType, outcomeRejected)
		return false
	}

	countConsumed(msg.Topic, msg.EventType, outcomeHandled)
	if !msg.Timestamp.IsZero() {
		lastHandled.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
	return true
}
