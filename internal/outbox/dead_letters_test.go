package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/events"
)

func deadLetteredQueue(t *testing.T, failedAt time.Time, emails ...string) *Queue {
	t.Helper()
	q := NewQueue(1)
	q.now = func() time.Time { return failedAt }
	for _, email := range emails {
		require.NoError(t, q.Publish(context.Background(), events.TypeParticipantSignedUp, events.RosterChanged{Activity: "Basketball Club", Email: email}))
	}
	q.requeue(q.claim(len(emails)), "broker down", true)
	require.Len(t, q.DeadLetters(), len(emails))
	return q
}

func TestDeadLetterManagerWaitsForBackoff(t *testing.T) {
	failedAt := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	q := deadLetteredQueue(t, failedAt, "a@mergington.edu")

	m := NewDeadLetterManager(q, 3, time.Minute, zerolog.Nop())
	m.now = func() time.Time { return failedAt.Add(30 * time.Second) }

	replayed, quarantined := m.RunOnce()
	require.Zero(t, replayed)
	require.Zero(t, quarantined)
	require.Len(t, q.DeadLetters(), 1)
	require.Zero(t, q.Pending())
}

func TestDeadLetterManagerReplaysIntoOutbox(t *testing.T) {
	failedAt := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	q := deadLetteredQueue(t, failedAt, "a@mergington.edu", "b@mergington.edu")

	m := NewDeadLetterManager(q, 3, time.Minute, zerolog.Nop())
	m.now = func() time.Time { return failedAt.Add(time.Minute) }
	before := testutil.ToFloat64(eventOutcomes.WithLabelValues(RosterTopic, outcomeReplayed))

	replayed, quarantined := m.RunOnce()
	require.Equal(t, 2, replayed)
	require.Zero(t, quarantined)
	require.Empty(t, q.DeadLetters())
	require.Equal(t, before+2, testutil.ToFloat64(eventOutcomes.WithLabelValues(RosterTopic, outcomeReplayed)))

	msgs := q.claim(2)
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		require.Equal(t, 0, msg.Attempts)
		require.Equal(t, 1, msg.Replays)
	}
}

func TestDeadLetterManagerQuarantinesExhaustedLetters(t *testing.T) {
	failedAt := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	q := deadLetteredQueue(t, failedAt, "a@mergington.edu")

	m := NewDeadLetterManager(q, 1, time.Minute, zerolog.Nop())
	m.now = func() time.Time { return failedAt.Add(time.Hour) }

	replayed, _ := m.RunOnce()
	require.Equal(t, 1, replayed)

	// Fails again after its single replay.
	q.requeue(q.claim(1), "broker still down", true)
	require.Len(t, q.DeadLetters(), 1)

	before := testutil.ToFloat64(eventOutcomes.WithLabelValues(RosterTopic, outcomeQuarantined))
	replayed, quarantined := m.RunOnce()
	require.Zero(t, replayed)
	require.Equal(t, 1, quarantined)
	require.Empty(t, q.DeadLetters())
	require.Zero(t, q.Pending())
	require.Equal(t, before+1, testutil.ToFloat64(eventOutcomes.WithLabelValues(RosterTopic, outcomeQuarantined)))
}

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	require.Equal(t, time.Minute, backoffDelay(time.Minute, 1))
	require.Equal(t, 4*time.Minute, backoffDelay(time.Minute, 3))
	require.Equal(t, time.Hour, backoffDelay(time.Minute, 10))
	require.Equal(t, time.Hour, backoffDelay(time.Minute, 40))
}
