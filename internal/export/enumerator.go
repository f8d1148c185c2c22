package export

import (
	"context"

	"media-export/internal/library"
	"media-export/internal/logging"
)

// Enumerator builds the filtered, ordered asset query for a run.
type Enumerator struct {
	store library.Store
}

// NewEnumerator creates an enumerator over the given store.
func NewEnumerator(store library.Store) *Enumerator {
	return &Enumerator{store: store}
}

// Enumerate returns the run's ordered asset handles, newest first. An empty
// result is a valid outcome. Fails with ErrNoMediaTypesSelected when the
// options select no media kind.
func (e *Enumerator) Enumerate(ctx context.Context, opts Options) ([]library.Asset, error) {
	if !opts.IncludeImages && !opts.IncludeVideos && !opts.IncludeAudio {
		return nil, ErrNoMediaTypesSelected
	}

	assets, err := e.store.Enumerate(ctx, library.Query{
		Images:       opts.IncludeImages,
		Videos:       opts.IncludeVideos,
		Audio:        opts.IncludeAudio,
		AllowNetwork: opts.IncludeCloudAssets,
	})
	if err != nil {
		return nil, err
	}

	logging.Debug("Enumerated %d assets", len(assets))
	return assets, nil
}
