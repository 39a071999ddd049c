// Package queue provides a bounded in-memory queue with non-blocking enqueue
// and channel-based dequeue.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/adcraft/pkg/metrics"
)

const (
	defaultCapacity = 1024
	defaultName     = "default"
)

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item. Returns ErrFull or ErrClosed when it was not accepted.
	Enqueue(ctx context.Context, item T) error

	// Dequeue returns a channel that receives items as they become available.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len() int

	// Close stops accepting items. Buffered items are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	name     string
	items    chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	o := options{name: defaultName, capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	q := &InMemoryQueue[T]{
		name:     o.name,
		capacity: o.capacity,
		items:    make(chan T, o.capacity),
	}
	metrics.UpdateQueueCapacity(q.name, q.capacity)
	metrics.UpdateQueueSize(q.name, 0)
	return q
}

// Name returns the metrics label.
func (q *InMemoryQueue[T]) Name() string { return q.name }

// Enqueue implements Queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) error {
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(q.name, float64(time.Since(start).Microseconds())/1000)
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError(q.name)
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError(q.name)
		return err
	}

	select {
	case q.items <- item:
		metrics.RecordQueueEnqueue(q.name)
		metrics.UpdateQueueSize(q.name, len(q.items))
		return nil
	default:
		metrics.RecordQueueEnqueueError(q.name)
		return ErrFull
	}
}

// Dequeue implements Queue. Each call starts a forwarder, so several
// consumers may share one queue.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-q.items:
				if !ok {
					return
				}
				select {
				case out <- item:
					metrics.RecordQueueDequeue(q.name)
					metrics.UpdateQueueSize(q.name, len(q.items))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len implements Queue.
func (q *InMemoryQueue[T]) Len() int {
	n := len(q.items)
	metrics.UpdateQueueSize(q.name, n)
	return n
}

// Close implements Queue. Closing twice is a no-op.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
