// Package memory provides queue implementations for local development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/jobswipe/internal/jobs"
)

// Queue is a bounded in-memory queue with context-aware operations. Nacked
// items are redelivered with an incremented attempt count.
type Queue struct {
	ch        chan jobs.QueueItem
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch:   make(chan jobs.QueueItem, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue pushes a request into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, request jobs.ApplicationRequest) error {
	return q.push(ctx, q.item(request, 1))
}

func (q *Queue) push(ctx context.Context, item jobs.QueueItem) error {
	select {
	case <-q.done:
		return jobs.ErrQueueClosed
	default:
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case <-q.done:
		return jobs.ErrQueueClosed
	case q.ch <- item:
		return nil
	}
}

func (q *Queue) item(request jobs.ApplicationRequest, attempt int) jobs.QueueItem {
	return jobs.QueueItem{
		Request: request,
		Attempt: attempt,
		Nack: func() {
			// Redeliver without blocking the worker that rejected it.
			go func() {
				_ = q.push(context.Background(), q.item(request, attempt+1))
			}()
		},
	}
}

// Dequeue pops the next item, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (jobs.QueueItem, error) {
	select {
	case <-ctx.Done():
		return jobs.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case <-q.done:
		return jobs.QueueItem{}, jobs.ErrQueueClosed
	case item := <-q.ch:
		return item, nil
	}
}

// Close stops delivery. Buffered items are dropped.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
