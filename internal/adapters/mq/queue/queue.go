// Package queue carries pending remote writes from the ranking service to the
// sync workers.
//
// The queue is bounded and never blocks the producer: a mutation must not
// wait on the network, and because every write replaces the whole list a
// dropped message is superseded by the next one.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Message is a sync job plus the time it was queued.
type Message struct {
	Job        model.SyncJob
	EnqueuedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrFull or ErrClosed when the job was
	// not queued.
	Enqueue(ctx context.Context, job model.SyncJob) error
	// Dequeue returns the channel workers read from. It is closed, after
	// the remaining messages, once the queue is closed.
	Dequeue() <-chan Message
	// Len returns the current number of queued messages.
	Len() int
	// Close stops accepting jobs. Already queued messages stay readable.
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	messages chan Message
	capacity int
	clock    func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.messages = make(chan Message, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a job to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job model.SyncJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.messages <- Message{Job: job, EnqueuedAt: q.clock()}:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return fmt.Errorf("%w: capacity %d", ErrFull, q.capacity)
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan Message { return q.messages }

// Len returns the current number of queued messages.
func (q *InMemoryQueue) Len() int {
	q.observe()
	return len(q.messages)
}

// Capacity returns the maximum number of queued messages.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

func (q *InMemoryQueue) observe() {
	size := len(q.messages)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Close stops accepting jobs. Consumers drain what is left and then see the
// channel closed.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.messages)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
