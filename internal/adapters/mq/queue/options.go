package queue

import "time"

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of pending messages.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithClock overrides the time source used to stamp messages.
func WithClock(clock func() time.Time) Option {
	return func(q *InMemoryQueue) {
		if clock != nil {
			q.clock = clock
		}
	}
}
