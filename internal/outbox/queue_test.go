package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/events"
)

func TestQueuePublishRoutesByCatalog(t *testing.T) {
	q := NewQueue(3)

	err := q.Publish(context.Background(), events.TypeParticipantSignedUp, events.RosterChanged{
		Activity:        "Chess Club",
		Email:           "test.user@mergington.edu",
		RosterSize:      3,
		MaxParticipants: 12,
		OccurredAt:      time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, 1, q.Pending())

	claimed := q.claim(10)
	require.Len(t, claimed, 1)
	msg := claimed[0]
	require.Equal(t, RosterTopic, msg.Topic)
	require.Equal(t, "roster_events-value", msg.SchemaSubject)
	require.Equal(t, "Chess Club", msg.PartitionKey)
	require.NotEmpty(t, msg.EventID)

	var payload events.RosterChanged
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	require.Equal(t, msg.EventID, payload.EventID)
	require.Equal(t, "test.user@mergington.edu", payload.Email)
	require.Equal(t, 0, q.Pending())
}

func TestQueuePublishRejectsUnknownType(t *testing.T) {
	q := NewQueue(3)
	err := q.Publish(context.Background(), "participant.teleported", events.RosterChanged{Activity: "Chess Club"})
	require.Error(t, err)
	require.Equal(t, 0, q.Pending())
}

func TestQueueRequeueKeepsOrderAndDeadLetters(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()
	for _, email := range []string{"a@mergington.edu", "b@mergington.edu", "c@mergington.edu"} {
		require.NoError(t, q.Publish(ctx, events.TypeParticipantRemoved, events.RosterChanged{Activity: "Art Club", Email: email}))
	}

	first := q.claim(2)
	dead := q.requeue(first, "broker down", true)
	require.Empty(t, dead)
	require.Equal(t, 3, q.Pending())

	again := q.claim(3)
	require.Equal(t, first[0].EventID, again[0].EventID)
	require.Equal(t, first[1].EventID, again[1].EventID)
	require.Equal(t, 1, again[0].Attempts)
	require.Equal(t, 0, again[2].Attempts)

	dead = q.requeue(again, "broker still down", true)
	require.Len(t, dead, 2)
	require.Equal(t, "broker still down", dead[0].Reason)
	require.Equal(t, 1, q.Pending())
	require.Len(t, q.DeadLetters(), 2)
}

func TestQueueRequeueWithoutAttemptKeepsCount(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.Publish(context.Background(), events.TypeParticipantSignedUp, events.RosterChanged{Activity: "Chess Club", Email: "a@mergington.edu"}))

	dead := q.requeue(q.claim(1), "", false)
	require.Empty(t, dead)
	require.Equal(t, 1, q.Pending())
	require.Equal(t, 0, q.claim(1)[0].Attempts)
}

func TestQueueEvictsOldestDeadLetters(t *testing.T) {
	q := NewQueue(1, WithDeadLetterLimit(2))
	ctx := context.Background()
	emails := []string{"a@mergington.edu", "b@mergington.edu", "c@mergington.edu"}
	for _, email := range emails {
		require.NoError(t, q.Publish(ctx, events.TypeParticipantSignedUp, events.RosterChanged{Activity: "Soccer Team", Email: email}))
	}
	claimed := q.claim(3)

	evicted := testutil.ToFloat64(eventOutcomes.WithLabelValues(RosterTopic, outcomeEvicted))
	dead := q.requeue(claimed, "broker down", true)
	require.Len(t, dead, 3)

	retained := q.DeadLetters()
	require.Len(t, retained, 2)
	require.Equal(t, claimed[1].EventID, retained[0].Message.EventID)
	require.Equal(t, claimed[2].EventID, retained[1].Message.EventID)
	require.Equal(t, evicted+1, testutil.ToFloat64(eventOutcomes.WithLabelValues(RosterTopic, outcomeEvicted)))
	require.Equal(t, 2.0, testutil.ToFloat64(retainedDeadLetters))
}
