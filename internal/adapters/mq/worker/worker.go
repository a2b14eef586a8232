// Package worker defines the resolver workers that drain the line queue.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/aforo/internal/adapters/mq/queue"
	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/internal/domain/parse"
	"github.com/okian/aforo/pkg/logger"
	"github.com/okian/aforo/pkg/metrics"
)

// Default worker configuration constants. One worker is the default: a
// single consumer is the global serialization point that keeps same-entity
// lines in submission order.
const (
	defaultWorkerCount    = 1
	workerShutdownTimeout = 5 * time.Second
)

// Recorder resolves a parsed scan and appends it to the ledger.
type Recorder interface {
	Record(ctx context.Context, scan model.Scan, at time.Time) (model.Event, error)
}

// Queue defines how workers receive lines.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Line
}

// Worker consumes decoded lines, parses them, and hands scans to the
// Recorder. Lines without an entity id are discarded, not errors.
type Worker struct {
	queue    Queue
	recorder Recorder
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a worker with configuration options.
func New(q Queue, recorder Recorder, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		recorder: recorder,
		name:     "resolver",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	lines := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case l, ok := <-lines:
			if !ok {
				return
			}
			w.processLine(ctx, l)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

func (w *Worker) processLine(ctx context.Context, l queue.Line) {
	scan, ok := parse.Scan(l.Text)
	if !ok {
		// No entity id in the line; dropped without error.
		metrics.RecordLineDiscarded()
		w.logger.Debug(ctx, "discarding line without entity id",
			logger.String("source", l.Source),
		)
		return
	}

	start := time.Now()
	event, err := w.recorder.Record(ctx, scan, l.At)
	metrics.RecordResolveLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordRecordError()
		w.logger.Error(ctx, "recording scan failed",
			logger.String("source", l.Source),
			logger.String("entityID", scan.EntityID),
			logger.Error(err),
		)
		return
	}

	w.logger.Debug(ctx, "recorded event",
		logger.String("entityID", event.EntityID),
		logger.String("direction", string(event.Direction)),
	)
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a worker pool. Counts above one trade same-entity
// submission ordering for throughput; the per-entity locks in the recorder
// still keep alternation consistent.
func NewPool(workerCount int, q Queue, recorder Recorder) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	p := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = New(q, recorder, WithName("resolver-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}
