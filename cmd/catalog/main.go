// Command catalog scans a media directory tree into the library database
// used by the exporter.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-export/internal/catalog"
	"media-export/internal/library"
	"media-export/internal/logging"
	"media-export/internal/metrics"
	"media-export/internal/startup"
)

func main() {
	os.Exit(run())
}

func run() int {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return 1
	}

	metrics.InitializeMetrics()

	store, err := library.OpenSQLite(context.Background(), config.DatabasePath, config.MediaDir)
	if err != nil {
		logging.Error("Failed to open library store: %v", err)
		return 1
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner := catalog.NewScanner(store, config.MediaDir, catalog.DefaultConfig())
	count, err := scanner.Scan(ctx)
	if err != nil {
		logging.Error("Catalog scan failed: %v", err)
		return 1
	}

	logging.Info("Cataloged %d media files in %v", count, time.Since(startTime))
	return 0
}
