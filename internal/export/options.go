package export

import "errors"

// Fatal run errors. Both are detected before any chunk work begins.
var (
	// ErrNoMediaTypesSelected indicates the options select no media kind.
	ErrNoMediaTypesSelected = errors.New("no media types selected")
	// ErrInvalidChunkSize indicates a non-positive chunk size.
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	// ErrPermissionDenied indicates the library refused access.
	ErrPermissionDenied = errors.New("media library access denied")
)

// Options configures one export run. Options are immutable for the run's
// duration.
type Options struct {
	// Thumbnail target size in pixels. Non-positive dimensions disable
	// thumbnails (the field is absent on every item; not an error).
	ThumbnailWidth  int
	ThumbnailHeight int

	// Media kinds to enumerate. At least one must be true.
	IncludeImages bool
	IncludeVideos bool
	IncludeAudio  bool

	// IncludeAlbumData populates each item's album membership.
	IncludeAlbumData bool

	// IncludeCloudAssets allows the enumerator and renderer to reach
	// assets whose content is remote.
	IncludeCloudAssets bool

	// ChunkSize bounds how many items one emitted chunk carries.
	ChunkSize int
}

// Validate reports whether the options describe a runnable export.
func (o Options) Validate() error {
	if !o.IncludeImages && !o.IncludeVideos && !o.IncludeAudio {
		return ErrNoMediaTypesSelected
	}
	if o.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	return nil
}

// wantsThumbnails reports whether the thumbnail step can produce data.
func (o Options) wantsThumbnails() bool {
	return o.ThumbnailWidth > 0 && o.ThumbnailHeight > 0
}
