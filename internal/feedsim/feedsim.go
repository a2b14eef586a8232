// Package feedsim generates synthetic scan lines and writes them to the TCP
// ingest listener, simulating a fleet of badge readers.
package feedsim

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/okian/aforo/pkg/logger"
)

// Config holds configuration for a simulation run.
type Config struct {
	Addr     string        // TCP ingest address to dial
	Count    int           // Number of lines to send (0 = unlimited)
	Interval time.Duration // Delay between lines
	Entities int           // Size of the simulated entity population
	HintedPC int           // Percentage of lines carrying a direction keyword
	BaseID   int           // First entity id in the population
}

// Stats holds counters for a completed run.
type Stats struct {
	LinesSent int
	Hinted    int
	Bare      int
	Duration  time.Duration
}

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 2 * time.Second
	percentMax   = 100
)

// line prefixes seen on real readers. The bare variant carries only the id.
var hintedFormats = []string{
	"card %d entrada",
	"card %d salida",
	"reader: id=%d ingreso",
	"reader: id=%d egreso",
	"%d entry",
	"%d exit",
}

// Run dials the ingest listener and streams synthetic scan lines until the
// context is cancelled or the configured count is reached.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("feedsim")

	// Stats are returned on every path so callers always see partial
	// counters, even when the dial itself is what fails.
	stats := &Stats{}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return stats, fmt.Errorf("failed to dial ingest listener: %w", err)
	}
	defer conn.Close()

	log.Info(ctx, "connected to ingest listener",
		logger.String("addr", cfg.Addr),
		logger.Int("entities", cfg.Entities),
		logger.Int("count", cfg.Count))

	start := time.Now()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for i := 0; cfg.Count == 0 || i < cfg.Count; i++ {
		select {
		case <-ctx.Done():
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		case <-ticker.C:
		}

		text := nextLine(cfg, stats)
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("failed to set write deadline: %w", err)
		}
		if _, err := conn.Write([]byte(text + "\n")); err != nil {
			stats.Duration = time.Since(start)
			return stats, fmt.Errorf("failed to write line %d: %w", i, err)
		}
		stats.LinesSent++
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "simulation finished",
		logger.Int("sent", stats.LinesSent),
		logger.Int("hinted", stats.Hinted),
		logger.Int("bare", stats.Bare))
	return stats, nil
}

// nextLine picks a random entity and formats either a hinted or a bare line.
func nextLine(cfg *Config, stats *Stats) string {
	id := cfg.BaseID + rand.Intn(cfg.Entities)
	if rand.Intn(percentMax) < cfg.HintedPC {
		stats.Hinted++
		format := hintedFormats[rand.Intn(len(hintedFormats))]
		return fmt.Sprintf(format, id)
	}
	stats.Bare++
	return strconv.Itoa(id)
}
