package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-export/internal/export"
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

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Error("Configuration error: %v", err)
		return 1
	}

	// Initialize metrics with known label values
	metrics.InitializeMetrics()

	// Initialize the library store
	storeStart := time.Now()
	store, err := library.OpenSQLite(context.Background(), config.DatabasePath, config.MediaDir)
	if err != nil {
		logging.Error("Failed to open library store: %v", err)
		return 1
	}
	defer store.Close()
	startup.LogStoreInit(time.Since(storeStart))

	// Initialize libvips for fast image decoding; the renderer falls back
	// to pure-Go decoding when unavailable.
	if err := library.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using pure-Go image decoding: %v", err)
	}
	defer library.ShutdownVips()

	// Optional metrics endpoint
	var metricsServer *http.Server
	if config.MetricsEnabled {
		router := mux.NewRouter()
		router.Handle("/metrics", promhttp.Handler()).Name("metrics")
		metricsServer = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logging.Info("Metrics available at http://localhost:%s/metrics", config.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := export.Options{
		ThumbnailWidth:     config.ThumbnailWidth,
		ThumbnailHeight:    config.ThumbnailHeight,
		IncludeImages:      config.IncludeImages,
		IncludeVideos:      config.IncludeVideos,
		IncludeAudio:       config.IncludeAudio,
		IncludeAlbumData:   config.IncludeAlbumData,
		IncludeCloudAssets: config.IncludeCloudAssets,
		ChunkSize:          config.ChunkSize,
	}

	var chunksWritten, itemsWritten atomic.Int64
	callbacks := export.Callbacks{
		OnChunk: func(items []export.Item) {
			seq := chunksWritten.Add(1)
			itemsWritten.Add(int64(len(items)))
			if err := writeChunk(config.OutputDir, seq, items); err != nil {
				logging.Error("Failed to write chunk %d: %v", seq, err)
				return
			}
			logging.Info("Wrote chunk %d (%d items)", seq, len(items))
		},
		OnComplete: func(err error) {
			if err != nil {
				logging.Error("Export finished with error: %v", err)
			}
		},
	}

	auth := library.NewPromptAuthorizer(store)
	pipeline := export.New(store, auth, opts, callbacks)

	startup.LogExportStarted(config.ChunkSize)
	runErr := pipeline.Run(ctx)

	// Shut down the metrics server before reporting
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Metrics server shutdown: %v", err)
		}
		startup.LogShutdownStepComplete("Metrics server stopped")
	}

	if runErr != nil {
		logging.Error("Export failed: %v", runErr)
		return 1
	}

	startup.LogExportComplete(int(chunksWritten.Load()), int(itemsWritten.Load()), time.Since(startTime))
	return 0
}

// writeChunk persists one chunk as a standalone JSON document. The file name
// carries the emission sequence and a unique suffix so reruns never clobber
// earlier output.
func writeChunk(outputDir string, seq int64, items []export.Item) error {
	name := fmt.Sprintf("chunk-%04d-%s.json", seq, uuid.NewString())
	path := filepath.Join(outputDir, name)

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
