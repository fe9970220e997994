// Package queue provides a bounded in-memory queue for outbound notifications.
package queue

import (
	"context"
	"sync"

	"github.com/okian/vmatch/internal/domain/model"
	"github.com/okian/vmatch/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and blocking, context-aware dequeue.
type Queue[T any] interface {
	// Enqueue adds an item. It returns false, without blocking, when the
	// queue is full, closed, or ctx is done.
	Enqueue(ctx context.Context, item T) bool

	// Next blocks until an item is available. It returns false once the
	// queue is closed and drained, or when ctx is done.
	Next(ctx context.Context) (T, bool)

	Len() int
	Cap() int

	// Close stops new items. Items already queued can still be drained.
	Close() error
	IsClosed() bool
}

// NotificationQueue is the queue between the service and the delivery workers.
type NotificationQueue = Queue[model.Notification]

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

var _ NotificationQueue = (*InMemoryQueue[model.Notification])(nil)

// NewInMemoryQueue creates a bounded queue.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	s := settings{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&s)
	}
	q := &InMemoryQueue[T]{
		items:    make(chan T, s.capacity),
		capacity: s.capacity,
	}

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

// Enqueue implements Queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	select {
	case q.items <- item:
		metrics.RecordQueueEnqueue()
		q.publishSize()
		return true
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Next implements Queue.
func (q *InMemoryQueue[T]) Next(ctx context.Context) (T, bool) {
	var zero T
	select {
	case item, ok := <-q.items:
		if !ok {
			return zero, false
		}
		metrics.RecordQueueDequeue()
		q.publishSize()
		return item, true
	case <-ctx.Done():
		return zero, false
	}
}

// Len implements Queue.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Cap implements Queue.
func (q *InMemoryQueue[T]) Cap() int {
	return q.capacity
}

// Close implements Queue.
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

// IsClosed implements Queue.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue[T]) publishSize() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
