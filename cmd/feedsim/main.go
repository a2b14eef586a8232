package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/aforo/internal/feedsim"
	"github.com/okian/aforo/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr     = "localhost:7070"
	defaultCount    = 100
	defaultInterval = 200 * time.Millisecond
	defaultEntities = 20
	defaultHintedPC = 30
	defaultBaseID   = 1001
)

func main() {
	var (
		addr     = flag.String("addr", defaultAddr, "TCP ingest address to dial")
		count    = flag.Int("count", defaultCount, "Number of lines to send (0 = unlimited)")
		interval = flag.Duration("interval", defaultInterval, "Delay between lines")
		entities = flag.Int("entities", defaultEntities, "Size of the simulated entity population")
		hintedPC = flag.Int("hinted", defaultHintedPC, "Percentage of lines carrying a direction keyword")
		baseID   = flag.Int("base", defaultBaseID, "First entity id in the population")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &feedsim.Config{
		Addr:     *addr,
		Count:    *count,
		Interval: *interval,
		Entities: *entities,
		HintedPC: *hintedPC,
		BaseID:   *baseID,
	}

	stats, err := feedsim.Run(ctx, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		return
	}
	if stats != nil {
		fmt.Printf("sent %d lines (%d hinted, %d bare) in %s\n",
			stats.LinesSent, stats.Hinted, stats.Bare, stats.Duration.Round(time.Millisecond))
	}
}
