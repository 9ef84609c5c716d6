package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/djoaquinhc-net/skills-getting-started-with-github-copilot/internal/events"
)

// DefaultDeadLetterLimit bounds how many dead letters a Queue retains.
const DefaultDeadLetterLimit = 1000

// Message is an event waiting in the outbox.
type Message struct {
	EventID       string
	EventType     string
	Topic         string
	SchemaSubject string
	PartitionKey  string
	Payload       json.RawMessage
	Attempts      int
	Replays       int
	EnqueuedAt    time.Time
}

// Queue is an in-process outbox. It implements events.Publisher so the domain service can
// hand events over without waiting on Kafka.
type Queue struct {
	mu          sync.Mutex
	pending     []Message
	dead        []DeadLetter
	maxAttempts int
	deadLimit   int
	now         func() time.Time
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithDeadLetterLimit caps the retained dead letters; the oldest are evicted first.
func WithDeadLetterLimit(limit int) QueueOption {
	return func(q *Queue) {
		if limit > 0 {
			q.deadLimit = limit
		}
	}
}

// NewQueue constructs a Queue that dead-letters messages after maxAttempts failed deliveries.
func NewQueue(maxAttempts int, opts ...QueueOption) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	q := &Queue{maxAttempts: maxAttempts, deadLimit: DefaultDeadLetterLimit, now: time.Now}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish implements events.Publisher.
func (q *Queue) Publish(ctx context.Context, eventType string, event events.RosterChanged) error {
	meta, ok := eventCatalog[eventType]
	if !ok {
		return errors.Errorf("unknown event type: %s", eventType)
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal roster event")
	}

	q.enqueue(Message{
		EventID:       event.EventID,
		EventType:     eventType,
		Topic:         meta.Topic,
		SchemaSubject: meta.SchemaSubject,
		PartitionKey:  meta.PartitionKeyFn(event),
		Payload:       body,
		EnqueuedAt:    q.now().UTC(),
	})
	return nil
}

// Pending returns the number of messages awaiting delivery.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// DeadLetters returns a copy of the retained dead letters, oldest first.
func (q *Queue) DeadLetters() []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]DeadLetter(nil), q.dead...)
}

func (q *Queue) enqueue(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, msgs...)
	q.observeLocked()
}

// claim removes up to limit messages from the head of the queue.
func (q *Queue) claim(limit int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	if limit <= 0 || limit > len(q.pending) {
		limit = len(q.pending)
	}
	claimed := append([]Message(nil), q.pending[:limit]...)
	q.pending = q.pending[limit:]
	q.observeLocked()
	return claimed
}

// requeue returns failed messages to the head of the queue, keeping their order. When
// countAttempt is set each message is charged one attempt, and those reaching the limit are
// dead-lettered and returned.
func (q *Queue) requeue(messages []Message, reason string, countAttempt bool) []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()

	retry := make([]Message, 0, len(messages))
	var dead []DeadLetter
	for _, msg := range messages {
		if countAttempt {
			msg.Attempts++
		}
		if msg.Attempts >= q.maxAttempts {
			dead = append(dead, DeadLetter{Message: msg, Reason: reason, FailedAt: q.now().UTC()})
			continue
		}
		retry = append(retry, msg)
	}

	q.pending = append(retry, q.pending...)
	q.dead = append(q.dead, dead...)
	if overflow := len(q.dead) - q.deadLimit; overflow > 0 {
		for _, letter := range q.dead[:overflow] {
			countOutcome(letter.Message.Topic, outcomeEvicted)
		}
		q.dead = append([]DeadLetter(nil), q.dead[overflow:]...)
	}
	q.observeLocked()
	return dead
}

// takeDeadLetters removes and returns the dead letters selected by pick.
func (q *Queue) takeDeadLetters(pick func(DeadLetter) bool) []DeadLetter {
	q.mu.Lock()
	defer q.mu.Unlock()

	var taken []DeadLetter
	kept := q.dead[:0]
	for _, letter := range q.dead {
		if pick(letter) {
			taken = append(taken, letter)
			continue
		}
		kept = append(kept, letter)
	}
	q.dead = kept
	q.observeLocked()
	return taken
}

func (q *Queue) observeLocked() {
	pendingEvents.Set(float64(len(q.pending)))
	retainedDeadLetters.Set(float64(len(q.dead)))
}
