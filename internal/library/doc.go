// Package library defines the media store boundary consumed by the export
// pipeline and provides a SQLite-backed implementation.
//
// The Store interface covers enumeration, resource descriptors, album
// membership, content path resolution, thumbnail rendering, and a bulk
// pre-fetch cache. SQLiteStore keeps the catalog (assets, resources,
// albums, authorization state) in a WAL-mode SQLite database and resolves
// resource paths against a media root directory on disk.
//
// Rendering decodes originals through libvips when initialized (decode-time
// shrinking) and falls back to pure-Go decoding; video frames are extracted
// with ffmpeg when it is on PATH.
package library
