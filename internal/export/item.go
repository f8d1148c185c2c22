package export

import "media-export/internal/mediatypes"

// timestampLayout formats item timestamps in the caller's local time zone.
const timestampLayout = "2006-01-02 15:04:05"

// Item is one fully-enriched library record. An Item is either completely
// constructed (possibly with absent optional fields) or never emitted;
// consumers never observe a partial state. Absent optional fields marshal
// as omitted JSON keys.
type Item struct {
	Identifier       string               `json:"identifier"`
	MediaType        mediatypes.MediaType `json:"mediaType"`
	CreationDate     string               `json:"creationDate,omitempty"`
	ModificationDate string               `json:"modificationDate,omitempty"`
	PixelWidth       int                  `json:"pixelWidth"`
	PixelHeight      int                  `json:"pixelHeight"`
	Duration         float64              `json:"duration"`
	Favorite         bool                 `json:"favorite"`
	Hidden           bool                 `json:"hidden"`
	Filename         string               `json:"filename,omitempty"`
	MimeType         string               `json:"mimeType,omitempty"`
	Albums           []string             `json:"albums"`
	FullPath         string               `json:"fullPath,omitempty"`
	Thumbnail        []byte               `json:"thumbnailData,omitempty"`
}
