package outbox

import "github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/events"

// RosterTopic carries every roster event.
const RosterTopic = "roster_events"

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	Schema         string
	PartitionKeyFn func(events.RosterChanged) string
}

// byActivity keeps all changes to one roster on one partition.
func byActivity(e events.RosterChanged) string {
	return e.Activity
}

var eventCatalog = map[string]EventMetadata{
	events.TypeParticipantSignedUp: {
		Topic:          RosterTopic,
		SchemaSubject:  RosterTopic + "-value",
		Schema:         rosterChangedSchema,
		PartitionKeyFn: byActivity,
	},
	events.TypeParticipantRemoved: {
		Topic:          RosterTopic,
		SchemaSubject:  RosterTopic + "-value",
		Schema:         rosterChangedSchema,
		PartitionKeyFn: byActivity,
	},
}
