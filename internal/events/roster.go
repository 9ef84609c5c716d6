// Package events defines the roster event payloads shared by the API and the consumer.
package events

import (
	"context"
	"time"
)

// Event types emitted on roster changes.
const (
	TypeParticipantSignedUp = "participant.signed_up"
	TypeParticipantRemoved  = "participant.removed"
)

// RosterChanged is emitted after a participant joins or leaves an activity.
type RosterChanged struct {
	EventID         string    `json:"event_id"`
	Activity        string    `json:"activity"`
	Email           string    `json:"email"`
	RosterSize      int       `json:"roster_size"`
	MaxParticipants int       `json:"max_participants"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher accepts roster events for delivery.
type Publisher interface {
	Publish(ctx context.Context, eventType string, event RosterChanged) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, RosterChanged) error { return nil }
