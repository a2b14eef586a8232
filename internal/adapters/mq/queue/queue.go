// Package queue defines the contract for buffering decoded device lines
// between the ingest sources and the resolver workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/aforo/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10000
)

// Line is one decoded device line awaiting resolution. At is captured when
// the line leaves the decoder so queueing delay never skews event
// timestamps.
type Line struct {
	Source string
	Text   string
	At     time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a line to the queue.
	// Returns false if the queue is full or closed and the line was dropped.
	Enqueue(ctx context.Context, l Line) bool

	// Dequeue returns a channel that receives lines as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Line

	// Len returns the current number of queued lines.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new lines
	// can be enqueued and the dequeue channel drains then closes.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	lines    chan Line
	capacity int

	mu     sync.RWMutex
	closed bool
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// NewInMemoryQueue creates a new in-memory line queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.lines = make(chan Line, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a line to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, l Line) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueDrop("closed")
		return false
	}

	select {
	case q.lines <- l:
		metrics.UpdateQueueSize(len(q.lines))
		return true
	case <-ctx.Done():
		metrics.RecordQueueDrop("context_cancelled")
		return false
	default:
		metrics.RecordQueueDrop("queue_full")
		return false
	}
}

// Dequeue returns a channel that receives queued lines.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Line {
	out := make(chan Line)
	go func() {
		defer close(out)
		for l := range q.lines {
			select {
			case out <- l:
				metrics.UpdateQueueSize(len(q.lines))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued lines.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.lines)
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.lines)
	q.closed = true
	return nil
}
