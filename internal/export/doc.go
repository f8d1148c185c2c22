// Package export implements the chunked enumeration-and-enrichment pipeline
// that streams a media library as bounded-size chunks of enriched item
// records.
//
// A run proceeds through a fixed sequence: the permission gate collapses the
// library's authorization state to a grant decision, the enumerator returns
// an ordered set of asset handles, the handle set is partitioned into
// contiguous chunks, and each chunk fans out one enrichment task per handle.
// A chunk is emitted only after every task in it has resolved. A bulk
// pre-fetch cache session brackets the run and is torn down on every exit
// path.
//
// Fatal conditions (permission denial, empty media-type filter) abort the
// run before any chunk work begins. Once enrichment starts, per-item
// failures only degrade individual fields to absent; they never abort the
// run or surface to the caller.
package export
