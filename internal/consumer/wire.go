package consumer

import (
	"bytes"
	"encoding/binary"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"
)

// Records carry a zero magic byte and a big-endian schema id ahead of the JSON payload.
const (
	wireMagicByte = 0
	wireHeaderLen = 5
)

var errMissingEventType = errors.New("record has no event_type header")

func decodeRecord(record kafka.Message) (Message, error) {
	if len(record.Value) < wireHeaderLen {
		return Message{}, errors.Errorf("record is %d bytes, shorter than the wire header", len(record.Value))
	}
	if record.Value[0] != wireMagicByte {
		return Message{}, errors.Errorf("unexpected magic byte %d", record.Value[0])
	}

	headers := lo.Associate(record.Headers, func(h kafka.Header) (string, string) {
		return h.Key, string(h.Value)
	})
	eventType := headers["event_type"]
	if eventType == "" {
		return Message{}, errMissingEventType
	}

	return Message{
		Topic:         record.Topic,
		Partition:     record.Partition,
		Offset:        record.Offset,
		Timestamp:     record.Time,
		Key:           string(record.Key),
		EventType:     eventType,
		EventID:       headers["event_id"],
		SchemaSubject: headers["schema_subject"],
		SchemaID:      int(binary.BigEndian.Uint32(record.Value[1:wireHeaderLen])),
		Payload:       json.RawMessage(bytes.Clone(record.Value[wireHeaderLen:])),
	}, nil
}
