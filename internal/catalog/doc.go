// Package catalog builds the library catalog from a media directory tree.
//
// The scanner walks the tree with a bounded worker pool, classifies files by
// extension with a content-sniff fallback, probes dimensions and durations,
// and persists assets, resources, and folder-derived albums into the SQLite
// store in a single transaction. Asset identifiers are derived from relative
// paths, so repeated scans are idempotent.
package catalog
