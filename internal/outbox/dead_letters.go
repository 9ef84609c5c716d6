package outbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DeadLetterManager replays dead letters into the outbox with exponential backoff and
// quarantines those that exhausted their replays. Quarantined events are dropped after
// being logged and counted.
type DeadLetterManager struct {
	queue      *Queue
	maxReplays int
	baseDelay  time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewDeadLetterManager constructs a DeadLetterManager for queue.
func NewDeadLetterManager(queue *Queue, maxReplays int, baseDelay time.Duration, logger zerolog.Logger) *DeadLetterManager {
	if maxReplays <= 0 {
		maxReplays = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &DeadLetterManager{
		queue:      queue,
		maxReplays: maxReplays,
		baseDelay:  baseDelay,
		logger:     logger,
		now:        time.Now,
	}
}

// RunOnce replays every dead letter whose backoff has elapsed and quarantines the exhausted
// ones.
func (m *DeadLetterManager) RunOnce() (replayed, quarantined int) {
	now := m.now().UTC()
	letters := m.queue.takeDeadLetters(func(letter DeadLetter) bool {
		if letter.Message.Replays >= m.maxReplays {
			return true
		}
		due := letter.FailedAt.Add(backoffDelay(m.baseDelay, letter.Message.Replays+1))
		return !now.Before(due)
	})

	replay := make([]Message, 0, len(letters))
	for _, letter := range letters {
		msg := letter.Message
		if msg.Replays >= m.maxReplays {
			quarantined++
			countOutcome(msg.Topic, outcomeQuarantined)
			m.logger.Error().
				Str("event_id", msg.EventID).
				Str("event_type", msg.EventType).
				Str("partition_key", msg.PartitionKey).
				Str("reason", letter.Reason).
				RawJSON("payload", msg.Payload).
				Msg("dead letter quarantined")
			continue
		}
		msg.Attempts = 0
		msg.Replays++
		replay = append(replay, msg)
		countOutcome(msg.Topic, outcomeReplayed)
	}
	m.queue.enqueue(replay...)
	return len(replay), quarantined
}

// Start runs RunOnce every interval until ctx is cancelled.
func (m *DeadLetterManager) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if replayed, quarantined := m.RunOnce(); replayed+quarantined > 0 {
				m.logger.Info().Int("replayed", replayed).Int("quarantined", quarantined).Msg("dead letters processed")
			}
		}
	}
}
