// Package mediatypes provides media type classification and MIME type
// resolution based on file extensions.
//
// Supported file types:
//   - Images: jpg, jpeg, png, gif, bmp, webp, tiff, heic, heif
//   - Videos: mp4, mkv, avi, mov, wmv, flv, webm, m4v, mpeg, mpg, 3gp, ts
//   - Audio: mp3, m4a, aac, wav, flac, ogg, opus, aiff, wma
//
// MIME resolution is a fixed table lookup; extensions not in the table
// report no MIME type rather than a generic fallback.
package mediatypes
