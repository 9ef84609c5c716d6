package consumer

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/events"
)

// AuditHandler logs every roster change and tracks per-activity counters.
type AuditHandler struct {
	logger zerolog.Logger
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

// Handle implements Handler.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeParticipantSignedUp, events.TypeParticipantRemoved:
	default:
		// Other producers may share the topic.
		h.logger.Debug().Str("event_type", msg.EventType).Msg("ignoring unrelated event")
		return nil
	}

	var event events.RosterChanged
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return errors.Wrapf(err, "decode %s payload", msg.EventType)
	}
	if event.Activity == "" {
		return errors.Errorf("%s event %s has no activity", msg.EventType, msg.EventID)
	}

	auditEvents.WithLabelValues(event.Activity, msg.EventType).Inc()
	auditRosterSize.WithLabelValues(event.Activity).Set(float64(event.RosterSize))

	h.logger.Info().
		Str("event_id", event.EventID).
		Str("event_type", msg.EventType).
		Str("activity", event.Activity).
		Str("email", event.Email).
		Int("roster_size", event.RosterSize).
		Int("max_participants", event.MaxParticipants).
		Time("occurred_at", event.OccurredAt).
		Msg("roster changed")
	return nil
}
