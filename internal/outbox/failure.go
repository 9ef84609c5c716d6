package outbox

import "time"

// DeadLetter is a message that could not be delivered within the attempt limit.
type DeadLetter struct {
	Message  Message
	Reason   string
	FailedAt time.Time
}

// backoffDelay doubles base for every replay, capped at one hour.
func backoffDelay(base time.Duration, replay int) time.Duration {
	if replay < 1 {
		replay = 1
	}
	if replay > 16 {
		return time.Hour
	}
	delay := time.Duration(1<<uint(replay-1)) * base
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}
