package ingest

import (
	"context"
	"io"
	"math/rand"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/aforo/internal/adapters/mq/queue"
	"github.com/okian/aforo/pkg/logger"
	"github.com/okian/aforo/pkg/metrics"
)

// readChunkSize is the per-read buffer for a source stream.
const readChunkSize = 4096

// Sink receives decoded lines from all sources.
type Sink interface {
	Enqueue(ctx context.Context, l queue.Line) bool
}

// SourceInfo describes one registered source.
type SourceInfo struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Connected bool   `json:"connected"`
}

// Manager owns the registry of line sources: serial-style device files
// configured at startup and TCP connections accepted on the ingest listener.
// It is created at startup and torn down on shutdown; Reconnect is
// close-then-reopen for the device sources.
type Manager struct {
	sink        Sink
	devicePaths []string
	listenAddr  string

	mockFeed     bool
	mockInterval time.Duration

	mu       sync.Mutex
	readers  map[string]io.Closer
	listener net.Listener

	wg     sync.WaitGroup
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithDevicePaths sets the device file paths to read on start.
func WithDevicePaths(paths []string) Option {
	return func(m *Manager) {
		m.devicePaths = paths
	}
}

// WithListenAddr enables the TCP ingest listener on addr.
func WithListenAddr(addr string) Option {
	return func(m *Manager) {
		m.listenAddr = addr
	}
}

// WithMockFeed replaces real sources with a synthetic scan generator.
func WithMockFeed(interval time.Duration) Option {
	return func(m *Manager) {
		m.mockFeed = true
		if interval > 0 {
			m.mockInterval = interval
		}
	}
}

// WithClock sets the timestamp source for emitted lines.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets a custom logger for the manager.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a source manager feeding the given sink.
func NewManager(sink Sink, opts ...Option) *Manager {
	m := &Manager{
		sink:         sink,
		mockInterval: 5 * time.Second,
		readers:      make(map[string]io.Closer),
		now:          time.Now,
		logger:       logger.Get().Named("ingest"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens the configured sources. In mock mode only the generator runs.
func (m *Manager) Start(ctx context.Context) error {
	if m.mockFeed {
		m.wg.Add(1)
		go m.runMockFeed(ctx)
		return nil
	}

	m.openDevices(ctx)

	if m.listenAddr != "" {
		ln, err := net.Listen("tcp", m.listenAddr)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.listener = ln
		m.mu.Unlock()

		m.wg.Add(1)
		go m.acceptLoop(ctx, ln)
	}
	return nil
}

// Addr returns the bound ingest listener address, or empty when the
// listener is not running. Useful when listening on port 0.
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// Sources lists the currently registered sources plus configured-but-closed
// device paths.
func (m *Manager) Sources() []SourceInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(m.readers))
	out := make([]SourceInfo, 0, len(m.readers)+len(m.devicePaths))
	for name := range m.readers {
		seen[name] = true
		kind := "device"
		if strings.HasPrefix(name, "tcp:") {
			kind = "tcp"
		}
		out = append(out, SourceInfo{Name: name, Kind: kind, Connected: true})
	}
	for _, path := range m.devicePaths {
		if !seen[path] {
			out = append(out, SourceInfo{Name: path, Kind: "device", Connected: false})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reconnect closes every open device source and reopens the configured
// paths. TCP connections are left alone; their peers own their lifecycle.
func (m *Manager) Reconnect(ctx context.Context) []SourceInfo {
	m.mu.Lock()
	for name, c := range m.readers {
		if !strings.HasPrefix(name, "tcp:") {
			_ = c.Close()
			delete(m.readers, name)
		}
	}
	m.mu.Unlock()

	if !m.mockFeed {
		m.openDevices(ctx)
	}
	return m.Sources()
}

// Stop closes the listener and every source, then waits for the reader
// goroutines to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.listener != nil {
		_ = m.listener.Close()
		m.listener = nil
	}
	for name, c := range m.readers {
		_ = c.Close()
		delete(m.readers, name)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

func (m *Manager) openDevices(ctx context.Context) {
	for _, path := range m.devicePaths {
		f, err := os.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			m.logger.Warn(ctx, "cannot open device source",
				logger.String("path", path),
				logger.Error(err),
			)
			continue
		}
		m.register(ctx, path, f)
	}
}

func (m *Manager) acceptLoop(ctx context.Context, ln net.Listener) {
	defer m.wg.Done()

	m.logger.Info(ctx, "ingest listener started", logger.String("addr", ln.Addr().String()))
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		m.register(ctx, "tcp:"+conn.RemoteAddr().String(), conn)
	}
}

// register adds a source and starts its reader goroutine. Each source gets
// its own decoder.
func (m *Manager) register(ctx context.Context, name string, rc io.ReadCloser) {
	m.mu.Lock()
	if old, ok := m.readers[name]; ok {
		_ = old.Close()
	}
	m.readers[name] = rc
	n := len(m.readers)
	m.mu.Unlock()

	metrics.UpdateSourceCount(n)
	m.logger.Info(ctx, "source registered", logger.String("source", name))

	m.wg.Add(1)
	go m.readLoop(ctx, name, rc)
}

func (m *Manager) readLoop(ctx context.Context, name string, rc io.ReadCloser) {
	defer m.wg.Done()
	defer m.remove(ctx, name)

	var dec LineDecoder
	buf := make([]byte, readChunkSize)
	for {
		n, err := rc.Read(buf)
		if n > 0 {
			for _, line := range dec.Write(buf[:n]) {
				m.emit(ctx, name, line)
			}
		}
		if err != nil {
			if err != io.EOF {
				m.logger.Warn(ctx, "source read failed",
					logger.String("source", name),
					logger.Error(err),
				)
			}
			return
		}
	}
}

func (m *Manager) emit(ctx context.Context, name, line string) {
	ok := m.sink.Enqueue(ctx, queue.Line{Source: name, Text: line, At: m.now()})
	if !ok {
		m.logger.Warn(ctx, "line dropped on backpressure", logger.String("source", name))
	}
}

// runMockFeed emits a synthetic id line on every tick, exercising the full
// pipeline without hardware attached.
func (m *Manager) runMockFeed(ctx context.Context) {
	defer m.wg.Done()

	const baseID = 1001
	ticker := time.NewTicker(m.mockInterval)
	defer ticker.Stop()

	m.logger.Info(ctx, "mock feed started", logger.String("interval", m.mockInterval.String()))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id := strconv.Itoa(baseID + rand.Intn(5))
			m.emit(ctx, "mock", id)
		}
	}
}

func (m *Manager) remove(ctx context.Context, name string) {
	m.mu.Lock()
	if c, ok := m.readers[name]; ok {
		_ = c.Close()
		delete(m.readers, name)
	}
	n := len(m.readers)
	m.mu.Unlock()

	metrics.UpdateSourceCount(n)
	m.logger.Info(ctx, "source removed", logger.String("source", name))
}
