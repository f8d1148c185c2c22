// Package workers provides utilities for determining worker pool sizes in
// containerized environments.
//
// Go 1.19+ sets GOMAXPROCS from container CPU limits, while
// runtime.NumCPU() still reports the host count. The helpers here size
// worker pools from GOMAXPROCS so the exporter respects cgroup limits:
//
//	// Enrichment mixes file I/O with image decoding
//	n := workers.ForMixed(8)
//
// All functions honor the EXPORT_WORKERS environment variable as a manual
// override.
package workers
