package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/cinerank/internal/domain/model"
)

func job(seq uint64) model.SyncJob {
	return model.SyncJob{Seq: seq, Bucket: model.AccountBucket("u1"), AccountID: "u1", Credential: "tok"}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	q := NewInMemoryQueue(WithCapacity(2), WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if err := q.Enqueue(ctx, job(1)); err != nil {
		t.Fatalf("expected enqueue to succeed: %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	msg := <-q.Dequeue()
	if msg.Job.Seq != 1 {
		t.Errorf("expected seq 1, got %d", msg.Job.Seq)
	}
	if !msg.EnqueuedAt.Equal(fixed) {
		t.Errorf("expected enqueue time %v, got %v", fixed, msg.EnqueuedAt)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := uint64(1); i <= 2; i++ {
		if err := q.Enqueue(ctx, job(i)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Enqueue(ctx, job(3)); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Capacity() != 2 || q.Len() != 2 {
		t.Errorf("expected 2/2, got %d/%d", q.Len(), q.Capacity())
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()
	for i := uint64(1); i <= 3; i++ {
		if err := q.Enqueue(ctx, job(i)); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !q.IsClosed() {
		t.Fatal("expected queue to report closed")
	}
	if err := q.Enqueue(ctx, job(4)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var got []uint64
	for msg := range q.Dequeue() {
		got = append(got, msg.Job.Seq)
	}
	if fmt.Sprint(got) != "[1 2 3]" {
		t.Errorf("expected FIFO drain [1 2 3], got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Enqueue(ctx, job(1)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	const producers, perProducer = 10, 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for q.Enqueue(ctx, job(uint64(p*perProducer+j))) != nil {
					time.Sleep(time.Millisecond)
				}
			}
		}(p)
	}

	received := make(chan int)
	go func() {
		n := 0
		for range q.Dequeue() {
			n++
		}
		received <- n
	}()

	wg.Wait()
	_ = q.Close()
	if n := <-received; n != producers*perProducer {
		t.Errorf("expected %d messages, got %d", producers*perProducer, n)
	}
}
