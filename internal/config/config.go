// Package config defines service configuration structures and loading hooks.
//
// Conventions follow the rest of the project: defaults come from New, and
// Load layers an optional YAML file and environment variables on top.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite ledger file path.
	DBPath string `koanf:"db_path"`

	// IngestAddr is the TCP listen address for device line feeds. Empty
	// disables the listener.
	IngestAddr string `koanf:"ingest_addr"`

	// DevicePaths lists serial-style device files to read on startup.
	DevicePaths []string `koanf:"device_paths"`

	// RelayEndpoint is the optional fire-and-forget event sink URL.
	RelayEndpoint string `koanf:"relay_endpoint"`

	// QueueSize bounds the in-memory line queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of resolver workers. One worker keeps
	// same-entity lines in submission order.
	WorkerCount int `koanf:"worker_count"`

	// HubBuffer is the per-subscriber channel buffer.
	HubBuffer int `koanf:"hub_buffer"`

	// KeepAliveSeconds is the live-subscriber keep-alive period.
	KeepAliveSeconds int `koanf:"keepalive_seconds"`

	// MockFeed replaces real sources with a synthetic scan generator.
	MockFeed bool `koanf:"mock_feed"`

	// MockIntervalMS is the synthetic scan period in milliseconds.
	MockIntervalMS int `koanf:"mock_interval_ms"`

	// CORSOrigin is the allowed origin for browser clients.
	CORSOrigin string `koanf:"cors_origin"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":8080",
		DBPath:           "data.sqlite",
		IngestAddr:       ":7070",
		DevicePaths:      nil,
		RelayEndpoint:    "",
		QueueSize:        10_000,
		WorkerCount:      1,
		HubBuffer:        16,
		KeepAliveSeconds: 15,
		MockFeed:         false,
		MockIntervalMS:   5000,
		CORSOrigin:       "*",
	}
}
