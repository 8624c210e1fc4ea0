// Package worker runs the one-shot asynchronous remote writes queued by the
// ranking service.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/cinerank/internal/adapters/mq/queue"
	"github.com/okian/cinerank/internal/domain/model"
	"github.com/okian/cinerank/pkg/logger"
	"github.com/okian/cinerank/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWriteTimeout = 10 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Sink performs one remote write. Failures are logged and counted; there is
// no retry.
type Sink interface {
	Write(ctx context.Context, job model.SyncJob) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, job model.SyncJob) error

// Write implements Sink.
func (f SinkFunc) Write(ctx context.Context, job model.SyncJob) error { return f(ctx, job) }

// Queue defines how workers receive messages.
type Queue interface {
	Dequeue() <-chan queue.Message
}

// Worker processes sync messages.
type Worker interface {
	// Run starts the worker loop until the queue is drained, ctx is
	// canceled or Shutdown is called.
	Run(ctx context.Context)
	// Shutdown stops the worker without draining.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue        Queue
	sink         Sink
	name         string
	writeTimeout time.Duration

	shutdown chan struct{}
	done     chan struct{}
	active   *atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:        q,
		sink:         sink,
		name:         "worker",
		writeTimeout: defaultWriteTimeout,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		active:       &atomic.Int64{},
		logger:       logger.GetOrDiscard().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	messages := w.queue.Dequeue()
	for {
		// Stop requests win over queued messages.
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		default:
		}
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := w.process(ctx, msg); err != nil {
				w.logger.Warn(ctx, "remote write failed",
					logger.Uint64("seq", msg.Job.Seq),
					logger.String("bucket", msg.Job.Bucket),
					logger.String("reason", msg.Job.Reason),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker. Messages still queued are left unread.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, msg queue.Message) error { //nolint:gocritic // hugeParam: Message is passed by value over the channel
	metrics.RecordQueueDequeue()
	metrics.RecordQueueProcessingLatency(float64(time.Since(msg.EnqueuedAt).Microseconds()) / 1000)

	w.active.Add(1)
	start := time.Now()
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	writeCtx, cancel := context.WithTimeout(ctx, w.writeTimeout)
	defer cancel()

	if err := w.sink.Write(writeCtx, msg.Job); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "write_error")
		return fmt.Errorf("sync job %d: %w", msg.Job.Seq, err)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  *atomic.Int64
	logger  logger.Logger
}

// NewPool creates a new worker pool. A single worker keeps remote writes in
// mutation order.
func NewPool(workerCount int, q Queue, sink Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	active := &atomic.Int64{}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		active:  active,
		logger:  logger.GetOrDiscard().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, sink, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		w.active = active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns how many workers are writing right now.
func (p *Pool) Active() int {
	n := int(p.active.Load())
	metrics.UpdateWorkerActiveCount(n)
	metrics.UpdateWorkerIdleCount(len(p.workers) - n)
	return n
}

// Shutdown closes the queue and waits for the workers to drain it. When ctx
// (or the pool timeout) expires first, the remaining messages are abandoned.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(context.Background())
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(0)
	if timedOut {
		return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
	}
	return nil
}
