package mediatypes

// MediaType classifies a library asset by its content kind.
type MediaType string

const (
	// MediaTypeImage represents a still image asset.
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo represents a video asset.
	MediaTypeVideo MediaType = "video"
	// MediaTypeAudio represents an audio asset.
	MediaTypeAudio MediaType = "audio"
	// MediaTypeUnknown represents an unrecognized or unsupported asset.
	MediaTypeUnknown MediaType = "unknown"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".flv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".ts":   true,
}

// AudioExtensions maps file extensions to whether they are supported audio formats.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".aiff": true,
	".aif":  true,
	".wma":  true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".ts":   "video/mp2t",

	// Audio
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".aiff": "audio/aiff",
	".aif":  "audio/aiff",
	".wma":  "audio/x-ms-wma",
}

// TypeFor returns the MediaType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns MediaTypeUnknown if the extension is not recognized.
func TypeFor(ext string) MediaType {
	if ImageExtensions[ext] {
		return MediaTypeImage
	}
	if VideoExtensions[ext] {
		return MediaTypeVideo
	}
	if AudioExtensions[ext] {
		return MediaTypeAudio
	}
	return MediaTypeUnknown
}

// MimeFor returns the MIME type for a given file extension and whether the
// extension is mapped at all. The extension should be lowercase and include
// the leading dot. An unmapped extension reports ok=false rather than a
// generic fallback, so callers can distinguish "no MIME known" from a real
// mapping.
func MimeFor(ext string) (string, bool) {
	mime, ok := MimeTypes[ext]
	return mime, ok
}

// IsMediaFile returns true if the extension represents a supported media file.
func IsMediaFile(ext string) bool {
	return TypeFor(ext) != MediaTypeUnknown
}
