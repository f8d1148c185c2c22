package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics
var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_export_runs_total",
			Help: "Total number of export pipeline runs",
		},
		[]string{"result"},
	)

	PipelineRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_export_last_run_duration_seconds",
			Help: "Duration of the last export run in seconds",
		},
	)

	PipelineIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_export_running",
			Help: "Whether an export run is currently in progress (1 = running)",
		},
	)

	ChunksEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_export_chunks_emitted_total",
			Help: "Total number of chunks delivered to the caller",
		},
	)

	ItemsEnriched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_export_items_enriched_total",
			Help: "Total number of library items enriched",
		},
	)

	EnrichDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_export_enrich_duration_seconds",
			Help:    "Per-item enrichment duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FieldFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_export_field_failures_total",
			Help: "Soft per-field enrichment failures by field",
		},
		[]string{"field"},
	)
)

// Cache session metrics
var (
	CacheSessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_export_cache_sessions_started_total",
			Help: "Total number of bulk pre-fetch cache sessions started",
		},
	)

	CacheSessionActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_export_cache_session_active",
			Help: "Whether a bulk pre-fetch cache session is active (1 = active)",
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_export_cache_hits_total",
			Help: "Thumbnail renders served from the pre-fetch cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_export_cache_misses_total",
			Help: "Thumbnail renders that missed the pre-fetch cache",
		},
	)
)

// Library store metrics
var (
	StoreQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_export_store_queries_total",
			Help: "Total number of library store queries",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_export_store_query_duration_seconds",
			Help:    "Library store query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Catalog scanner metrics
var (
	ScannerParallelWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_export_scanner_workers",
			Help: "Number of parallel catalog scanner workers",
		},
	)

	ScannerFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_export_scanner_files_total",
			Help: "Total number of files processed by the catalog scanner",
		},
	)

	ScannerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_export_scanner_errors_total",
			Help: "Total number of catalog scanner errors",
		},
	)

	ScannerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_export_scanner_last_run_duration_seconds",
			Help: "Duration of the last catalog scan in seconds",
		},
	)
)

// InitializeMetrics pre-populates expected label combinations so every
// metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, result := range []string{"success", "error", "canceled"} {
		PipelineRunsTotal.WithLabelValues(result)
	}

	for _, field := range []string{"filename", "mime", "albums", "path", "thumbnail"} {
		FieldFailures.WithLabelValues(field)
	}

	storeOps := []string{"enumerate", "resources", "albums", "content_path", "resource_path", "render"}
	for _, op := range storeOps {
		StoreQueryTotal.WithLabelValues(op, "success")
		StoreQueryTotal.WithLabelValues(op, "error")
		StoreQueryDuration.WithLabelValues(op)
	}
}
