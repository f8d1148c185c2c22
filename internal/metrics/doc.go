// Package metrics declares the Prometheus collectors for the exporter.
//
// Collectors are registered through promauto at package load and grouped by
// subsystem: pipeline, cache session, library store, and catalog scanner.
// Call InitializeMetrics once at startup to pre-populate label combinations
// so that every series is present from the first scrape.
package metrics
