// Package hub fans newly recorded events out to live subscribers.
//
// Delivery is at-most-once and best-effort: a subscriber that cannot keep up
// is dropped without affecting the others, and a reconnecting subscriber
// gets no replay. Keep-alive messages flow on the same channels so idle
// connections are not reclaimed by intermediaries.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/pkg/logger"
	"github.com/okian/aforo/pkg/metrics"
)

// Default hub configuration constants.
const (
	defaultBufferSize        = 16
	defaultKeepAliveInterval = 15 * time.Second
)

// Kind discriminates hub messages.
type Kind int

// Message kinds delivered to subscribers.
const (
	KindEvent Kind = iota
	KindKeepAlive
)

// Message is one unit delivered to a subscriber channel.
type Message struct {
	Kind  Kind
	Event model.Event
}

// Hub is the live-subscriber registry. Registration, removal, and broadcast
// all go through one coordination point.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]chan Message

	bufferSize int
	keepAlive  time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once

	logger logger.Logger
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber channel buffer.
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufferSize = n
		}
	}
}

// WithKeepAliveInterval sets the keep-alive period.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.keepAlive = d
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// New creates a Hub with configuration options.
func New(opts ...Option) *Hub {
	h := &Hub{
		subs:       make(map[string]chan Message),
		bufferSize: defaultBufferSize,
		keepAlive:  defaultKeepAliveInterval,
		shutdown:   make(chan struct{}),
		logger:     logger.Get().Named("hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start launches the keep-alive loop. It runs until ctx is canceled or the
// hub is closed.
func (h *Hub) Start(ctx context.Context) {
	go h.keepAliveLoop(ctx)
}

// Subscribe registers a new subscriber and returns its id and channel. The
// channel is closed when the subscriber is removed or the hub shuts down.
func (h *Hub) Subscribe() (string, <-chan Message) {
	id := uuid.NewString()
	ch := make(chan Message, h.bufferSize)

	h.mu.Lock()
	h.subs[id] = ch
	n := len(h.subs)
	h.mu.Unlock()

	metrics.UpdateSubscriberCount(n)
	return id, ch
}

// Unsubscribe removes a subscriber. Safe to call for unknown or already
// removed ids.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		// Closed under the write lock so broadcasts never race the close.
		close(ch)
	}
	n := len(h.subs)
	h.mu.Unlock()

	metrics.UpdateSubscriberCount(n)
}

// Count returns the number of currently registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers an event to every subscriber registered at call time. A
// subscriber whose buffer is full is dropped; the rest still receive the
// event.
func (h *Hub) Publish(ctx context.Context, event model.Event) {
	h.broadcast(ctx, Message{Kind: KindEvent, Event: event})
	metrics.RecordBroadcast()
}

func (h *Hub) broadcast(ctx context.Context, msg Message) {
	// Sends happen under the read lock: they are non-blocking, and channel
	// closes only occur under the write lock, so no send can race a close.
	// Removals are collected and applied after the snapshot iteration.
	h.mu.RLock()
	var drop []string
	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			drop = append(drop, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range drop {
		h.logger.Warn(ctx, "dropping slow subscriber", logger.String("subscriberID", id))
		metrics.RecordSubscriberDrop()
		h.Unsubscribe(id)
	}
}

func (h *Hub) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.shutdown:
			return
		case <-ticker.C:
			h.broadcast(ctx, Message{Kind: KindKeepAlive})
		}
	}
}

// Close tears down the registry and closes every subscriber channel.
func (h *Hub) Close() {
	h.shutdownOnce.Do(func() {
		close(h.shutdown)
	})

	h.mu.Lock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.mu.Unlock()

	metrics.UpdateSubscriberCount(0)
}
