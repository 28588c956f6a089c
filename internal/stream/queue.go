package stream

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO shared by one producer and one consumer. Close
// plays the role of the poison-pill sentinel: it is always the last thing the
// producer does, and the consumer observes it only after draining every item
// put before it. Items put after Close are discarded.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	ready  chan struct{}
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{})}
}

// Put appends an item. Never blocks.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, item)
	close(q.ready)
	q.ready = make(chan struct{})
}

// Close enqueues the sentinel. Idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ready)
	q.ready = make(chan struct{})
}

// Get blocks until an item is available and returns (item, true). It returns
// (zero, false) once the queue is closed and drained, or when ctx ends while
// the queue is empty. Buffered items always win over cancellation, so a
// consumer that saw Close keeps draining deterministically.
func (q *Queue[T]) Get(ctx context.Context) (T, bool) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, true
		}
		if q.closed {
			q.mu.Unlock()
			return zero, false
		}
		ready := q.ready
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, false
		case <-ready:
		}
	}
}

// Len reports the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether the sentinel has been enqueued.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
