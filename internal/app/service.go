// Package service provides the core presence service that implements the
// dependencies required by the HTTP API and the ingest pipeline.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/aforo/internal/adapters/hub"
	"github.com/okian/aforo/internal/adapters/ingest"
	"github.com/okian/aforo/internal/adapters/mq/queue"
	"github.com/okian/aforo/internal/adapters/mq/worker"
	"github.com/okian/aforo/internal/adapters/relay"
	"github.com/okian/aforo/internal/adapters/repository"
	"github.com/okian/aforo/internal/domain/aggregate"
	"github.com/okian/aforo/internal/domain/entitylock"
	"github.com/okian/aforo/internal/domain/model"
	"github.com/okian/aforo/internal/domain/resolve"
	"github.com/okian/aforo/internal/domain/window"
	"github.com/okian/aforo/pkg/logger"
	"github.com/okian/aforo/pkg/metrics"
)

// Service owns the ledger, the ingest pipeline, the broadcast hub, and the
// relay, and serves the windowed queries.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	queue    *queue.InMemoryQueue
	pool     *worker.Pool
	hub      *hub.Hub
	relay    *relay.Relay
	sources  *ingest.Manager
	resolver *resolve.Resolver
	locks    *entitylock.Locks

	// Configuration
	dbPath        string
	queueSize     int
	workerCount   int
	ingestAddr    string
	devicePaths   []string
	relayEndpoint string
	hubBuffer     int
	keepAlive     time.Duration
	mockFeed      bool
	mockInterval  time.Duration

	// Time handling
	loc *time.Location
	now func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a ledger store, bypassing DBPath. Used by tests.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithDBPath sets the SQLite ledger path.
func WithDBPath(path string) Option {
	return func(svc *Service) {
		if path != "" {
			svc.dbPath = path
		}
	}
}

// WithQueueSize sets the line queue capacity.
func WithQueueSize(size int) Option {
	return func(svc *Service) {
		if size > 0 {
			svc.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of resolver workers.
func WithWorkerCount(count int) Option {
	return func(svc *Service) {
		if count > 0 {
			svc.workerCount = count
		}
	}
}

// WithIngestAddr sets the TCP line-feed listen address.
func WithIngestAddr(addr string) Option {
	return func(svc *Service) {
		svc.ingestAddr = addr
	}
}

// WithDevicePaths sets the device files opened on start.
func WithDevicePaths(paths []string) Option {
	return func(svc *Service) {
		svc.devicePaths = paths
	}
}

// WithRelayEndpoint sets the optional outbound event sink.
func WithRelayEndpoint(endpoint string) Option {
	return func(svc *Service) {
		svc.relayEndpoint = endpoint
	}
}

// WithHubBuffer sets the per-subscriber channel buffer.
func WithHubBuffer(n int) Option {
	return func(svc *Service) {
		if n > 0 {
			svc.hubBuffer = n
		}
	}
}

// WithKeepAlive sets the subscriber keep-alive period.
func WithKeepAlive(d time.Duration) Option {
	return func(svc *Service) {
		if d > 0 {
			svc.keepAlive = d
		}
	}
}

// WithMockFeed enables the synthetic scan generator.
func WithMockFeed(enabled bool, interval time.Duration) Option {
	return func(svc *Service) {
		svc.mockFeed = enabled
		if interval > 0 {
			svc.mockInterval = interval
		}
	}
}

// WithLocation sets the local time zone used for day windows and hourly
// buckets.
func WithLocation(loc *time.Location) Option {
	return func(svc *Service) {
		if loc != nil {
			svc.loc = loc
		}
	}
}

// WithClock sets the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:       "data.sqlite",
		queueSize:    10_000,
		workerCount:  1,
		hubBuffer:    16,
		keepAlive:    15 * time.Second,
		mockInterval: 5 * time.Second,
		loc:          time.Local,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		store, err := repository.Open(s.dbPath)
		if err != nil {
			return fmt.Errorf("start service: %w", err)
		}
		s.store = store
	}

	s.locks = entitylock.New()
	s.resolver = resolve.New(s.store)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.hub = hub.New(
		hub.WithBufferSize(s.hubBuffer),
		hub.WithKeepAliveInterval(s.keepAlive),
	)
	s.hub.Start(ctx)
	s.relay = relay.New(s.relayEndpoint)

	s.pool = worker.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	sourceOpts := []ingest.Option{
		ingest.WithDevicePaths(s.devicePaths),
		ingest.WithListenAddr(s.ingestAddr),
		ingest.WithClock(s.now),
	}
	if s.mockFeed {
		sourceOpts = append(sourceOpts, ingest.WithMockFeed(s.mockInterval))
	}
	s.sources = ingest.NewManager(s.queue, sourceOpts...)
	if err := s.sources.Start(ctx); err != nil {
		return fmt.Errorf("start sources: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "presence service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("db", s.dbPath),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping presence service...")

	if s.sources != nil {
		s.sources.Stop()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "presence service stopped")
}

// Record resolves a scan and appends it to the ledger, then fans the event
// out. It holds the entity's lock around the read-then-append so concurrent
// scans for one id cannot both observe the same last direction.
func (s *Service) Record(ctx context.Context, scan model.Scan, at time.Time) (model.Event, error) {
	unlock := s.locks.Lock(scan.EntityID)
	defer unlock()

	dir, err := s.resolver.Direction(ctx, scan)
	if err != nil {
		return model.Event{}, err
	}

	ts := at
	if ts.IsZero() {
		ts = s.now()
	}
	ts = ts.Truncate(time.Millisecond)

	id, err := s.store.Append(ctx, scan.EntityID, dir, ts.UnixMilli())
	if err != nil {
		return model.Event{}, err
	}

	event := model.Event{
		ID:        id,
		EntityID:  scan.EntityID,
		Direction: dir,
		Timestamp: ts,
	}
	metrics.RecordEventRecorded(string(dir))

	// Broadcast and relay happen after the durable append; neither can fail
	// the recorded event.
	s.hub.Publish(ctx, event)
	s.relay.Forward(event)
	return event, nil
}

// IngestLine feeds one raw line into the pipeline, as if a device had sent
// it. Returns false on backpressure.
func (s *Service) IngestLine(ctx context.Context, source, text string) bool {
	return s.queue.Enqueue(ctx, queue.Line{Source: source, Text: text, At: s.now()})
}

// Subscribe registers a live subscriber with the hub.
func (s *Service) Subscribe() (string, <-chan hub.Message) {
	return s.hub.Subscribe()
}

// Unsubscribe removes a live subscriber.
func (s *Service) Unsubscribe(id string) {
	s.hub.Unsubscribe(id)
}

// Logs returns the day's events joined with entity metadata, newest first.
func (s *Service) Logs(ctx context.Context, date string) ([]model.LogEntry, error) {
	w, err := window.Day(date, s.loc, s.now)
	if err != nil {
		return nil, err
	}
	return s.store.RangeJoined(ctx, w)
}

// Stats returns entry/exit totals and the present count for a day.
func (s *Service) Stats(ctx context.Context, date string) (aggregate.Stats, error) {
	w, err := window.Day(date, s.loc, s.now)
	if err != nil {
		return aggregate.Stats{}, err
	}
	events, err := s.store.Range(ctx, w)
	if err != nil {
		return aggregate.Stats{}, err
	}
	return aggregate.Summarize(events), nil
}

// DayMetrics returns the daily aggregation report.
func (s *Service) DayMetrics(ctx context.Context, date string) (aggregate.Report, error) {
	w, err := window.Day(date, s.loc, s.now)
	if err != nil {
		return aggregate.Report{}, err
	}
	events, err := s.store.Range(ctx, w)
	if err != nil {
		return aggregate.Report{}, err
	}
	return aggregate.Day(events, s.loc), nil
}

// RangeMetrics returns the range aggregation report, including the
// cumulative series, along with the resolved window.
func (s *Service) RangeMetrics(ctx context.Context, start, end string) (window.Window, aggregate.Report, error) {
	var (
		w   window.Window
		err error
	)
	if start != "" && end != "" {
		w, err = window.Range(start, end, s.loc)
	} else {
		w, err = window.Day("", s.loc, s.now)
	}
	if err != nil {
		return window.Window{}, aggregate.Report{}, err
	}

	events, err := s.store.Range(ctx, w)
	if err != nil {
		return window.Window{}, aggregate.Report{}, err
	}
	return w, aggregate.Range(events, s.loc), nil
}

// Reset clears the ledger. Administrative and irreversible.
func (s *Service) Reset(ctx context.Context) error {
	s.logger.Warn(ctx, "clearing event ledger")
	return s.store.Clear(ctx)
}

// RegisterEntity upserts registry metadata for an entity id.
func (s *Service) RegisterEntity(ctx context.Context, e model.Entity) error {
	return s.store.UpsertEntity(ctx, e)
}

// Entity returns registry metadata for an id.
func (s *Service) Entity(ctx context.Context, id string) (model.Entity, bool, error) {
	return s.store.GetEntity(ctx, id)
}

// Sources lists the registered line sources.
func (s *Service) Sources() []ingest.SourceInfo {
	return s.sources.Sources()
}

// Reconnect closes and reopens the device sources.
func (s *Service) Reconnect(ctx context.Context) []ingest.SourceInfo {
	return s.sources.Reconnect(ctx)
}

// SubscriberCount returns the number of live subscribers.
func (s *Service) SubscriberCount() int {
	return s.hub.Count()
}

// QueueLen returns the current line queue depth.
func (s *Service) QueueLen(ctx context.Context) int {
	return s.queue.Len(ctx)
}
