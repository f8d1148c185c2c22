package library

import (
	"context"
	"errors"
	"image"
	"time"

	"media-export/internal/mediatypes"
)

// Errors returned by store implementations.
var (
	// ErrAssetNotFound indicates the asset identifier is not in the library.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrNoResource indicates an asset has no usable resource descriptor.
	ErrNoResource = errors.New("no resource for asset")
	// ErrRemoteOnly indicates the asset's content is remote and network
	// access was not allowed for the request.
	ErrRemoteOnly = errors.New("asset content is remote and network access is disabled")
)

// AuthStatus is the library's authorization state as reported by the store.
type AuthStatus int

const (
	// AuthNotDetermined means the user has not yet been asked for access.
	AuthNotDetermined AuthStatus = iota
	// AuthAuthorized means library access has been granted.
	AuthAuthorized
	// AuthDenied means library access has been refused.
	AuthDenied
	// AuthRestricted means access is blocked by policy rather than choice.
	AuthRestricted
)

// String returns the string representation of an authorization status.
func (s AuthStatus) String() string {
	switch s {
	case AuthNotDetermined:
		return "not-determined"
	case AuthAuthorized:
		return "authorized"
	case AuthDenied:
		return "denied"
	case AuthRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Asset is an opaque handle to one media item in the library store.
// Handles are owned by the store and read-only for the duration of a run.
type Asset struct {
	ID         string
	Type       mediatypes.MediaType
	Width      int
	Height     int
	Duration   float64 // seconds, 0 for stills
	CreatedAt  time.Time
	ModifiedAt time.Time
	Favorite   bool
	Hidden     bool
	Remote     bool // content lives off-device and needs network access
}

// Resource describes one stored representation of an asset (original file,
// alternate rendition, sidecar).
type Resource struct {
	ID       string
	AssetID  string
	Filename string
	Primary  bool
	Path     string // path relative to the store's media root
}

// Query selects which assets an enumeration returns.
type Query struct {
	Images       bool
	Videos       bool
	Audio        bool
	AllowNetwork bool // include assets whose content is remote
}

// RenderRequest asks the store for a rendered image of an asset sized to a
// target box.
type RenderRequest struct {
	AssetID      string
	Width        int
	Height       int
	AllowNetwork bool
}

// Authorizer reports and requests library access authorization.
type Authorizer interface {
	// Status returns the current authorization state without prompting.
	Status(ctx context.Context) (AuthStatus, error)
	// Request asks for access and blocks until a decision is known.
	// It is only meaningful when Status reports AuthNotDetermined.
	Request(ctx context.Context) (AuthStatus, error)
}

// Store is the external media library consumed by the export pipeline.
// All blocking operations take a context and honor its cancellation.
type Store interface {
	// Enumerate returns the assets matching q, newest first by creation
	// time. An empty result is a valid outcome, not an error.
	Enumerate(ctx context.Context, q Query) ([]Asset, error)

	// Resources lists the resource descriptors of an asset, primary first.
	Resources(ctx context.Context, assetID string) ([]Resource, error)

	// Albums returns the titles of album collections containing the asset,
	// in the store's own order. Untitled albums are omitted.
	Albums(ctx context.Context, assetID string) ([]string, error)

	// ContentPath resolves the full-quality content of an asset to an
	// on-disk file path.
	ContentPath(ctx context.Context, assetID string) (string, error)

	// ResourcePath resolves one resource's data to an on-disk file path.
	ResourcePath(ctx context.Context, resourceID string) (string, error)

	// Render produces an image of the asset sized to fit the requested
	// box. Returns ErrRemoteOnly when the content is remote and network
	// access was not allowed.
	Render(ctx context.Context, req RenderRequest) (image.Image, error)

	// StartCaching begins a bulk pre-fetch of rendered thumbnails for the
	// given assets at the given target size. A second call replaces any
	// session already running.
	StartCaching(ctx context.Context, assetIDs []string, width, height int) error

	// StopCaching ends the pre-fetch session, if any, and releases its
	// resources. Safe to call when no session is active.
	StopCaching()
}
