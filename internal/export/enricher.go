package export

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"media-export/internal/library"
	"media-export/internal/logging"
	"media-export/internal/mediatypes"
	"media-export/internal/metrics"
)

// Enricher turns one asset handle into one fully-enriched Item. Enrichment
// never fails a run: every sub-fetch failure degrades only its own field to
// absent and is logged, not escalated.
type Enricher struct {
	store library.Store
}

// NewEnricher creates an enricher over the given store.
func NewEnricher(store library.Store) *Enricher {
	return &Enricher{store: store}
}

// Enrich composes the five sub-fetches for one asset: base attributes,
// filename/MIME, album membership, resolved path, and thumbnail bytes.
// The sub-fetches each depend on the handle, not on each other's results.
func (e *Enricher) Enrich(ctx context.Context, asset library.Asset, opts Options) Item {
	start := time.Now()
	defer func() {
		metrics.ItemsEnriched.Inc()
		metrics.EnrichDuration.Observe(time.Since(start).Seconds())
	}()

	item := Item{
		Identifier:  asset.ID,
		MediaType:   asset.Type,
		PixelWidth:  asset.Width,
		PixelHeight: asset.Height,
		Duration:    asset.Duration,
		Favorite:    asset.Favorite,
		Hidden:      asset.Hidden,
		Albums:      []string{},
	}

	if !asset.CreatedAt.IsZero() {
		item.CreationDate = asset.CreatedAt.In(time.Local).Format(timestampLayout)
	}
	if !asset.ModifiedAt.IsZero() {
		item.ModificationDate = asset.ModifiedAt.In(time.Local).Format(timestampLayout)
	}

	e.addResourceInfo(ctx, &item, asset)
	if opts.IncludeAlbumData {
		e.addAlbums(ctx, &item, asset)
	}
	e.addFullPath(ctx, &item, asset)
	e.addThumbnail(ctx, &item, asset, opts)

	return item
}

// addResourceInfo derives the filename from the asset's primary resource and
// the MIME type from the filename's extension. An unmapped extension leaves
// the MIME absent while the filename may still be set.
func (e *Enricher) addResourceInfo(ctx context.Context, item *Item, asset library.Asset) {
	resources, err := e.store.Resources(ctx, asset.ID)
	if err != nil {
		fieldMiss(asset.ID, "filename", err)
		return
	}
	if len(resources) == 0 {
		logging.Debug("asset %s has no resources, filename absent", asset.ID)
		return
	}

	primary := resources[0]
	item.Filename = primary.Filename

	ext := strings.ToLower(filepath.Ext(primary.Filename))
	if mime, ok := mediatypes.MimeFor(ext); ok {
		item.MimeType = mime
	}
}

// addAlbums collects non-empty album titles containing the asset, in store
// order.
func (e *Enricher) addAlbums(ctx context.Context, item *Item, asset library.Asset) {
	titles, err := e.store.Albums(ctx, asset.ID)
	if err != nil {
		fieldMiss(asset.ID, "albums", err)
		return
	}
	if titles != nil {
		item.Albums = titles
	}
}

// addFullPath resolves the asset's content to an on-disk path: full-quality
// content for image and video, the primary resource's data for audio.
func (e *Enricher) addFullPath(ctx context.Context, item *Item, asset library.Asset) {
	var (
		path string
		err  error
	)

	if asset.Type == mediatypes.MediaTypeAudio {
		path, err = e.audioResourcePath(ctx, asset)
	} else {
		path, err = e.store.ContentPath(ctx, asset.ID)
	}

	if err != nil {
		fieldMiss(asset.ID, "path", err)
		return
	}
	item.FullPath = path
}

func (e *Enricher) audioResourcePath(ctx context.Context, asset library.Asset) (string, error) {
	resources, err := e.store.Resources(ctx, asset.ID)
	if err != nil {
		return "", err
	}
	if len(resources) == 0 {
		return "", library.ErrNoResource
	}
	return e.store.ResourcePath(ctx, resources[0].ID)
}

// addThumbnail renders the asset to the target box, resamples to exactly the
// requested dimensions (aspect-fill with center crop), and encodes PNG.
// A non-positive target size or a missing render leaves the field absent.
func (e *Enricher) addThumbnail(ctx context.Context, item *Item, asset library.Asset, opts Options) {
	if !opts.wantsThumbnails() {
		return
	}

	img, err := e.store.Render(ctx, library.RenderRequest{
		AssetID:      asset.ID,
		Width:        opts.ThumbnailWidth,
		Height:       opts.ThumbnailHeight,
		AllowNetwork: true,
	})
	if err != nil {
		fieldMiss(asset.ID, "thumbnail", err)
		return
	}
	if img == nil {
		logging.Debug("asset %s rendered no image, thumbnail absent", asset.ID)
		return
	}

	thumb := imaging.Fill(img, opts.ThumbnailWidth, opts.ThumbnailHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		fieldMiss(asset.ID, "thumbnail", err)
		return
	}

	item.Thumbnail = buf.Bytes()
}

// fieldMiss records a soft per-field failure. Soft failures shrink the item,
// never the run.
func fieldMiss(assetID, field string, err error) {
	metrics.FieldFailures.WithLabelValues(field).Inc()
	logging.Debug("asset %s: %s unavailable: %v", assetID, field, err)
}
