package library

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"media-export/internal/mediatypes"
	"media-export/internal/metrics"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	return newTestStoreAt(t, t.TempDir(), t.TempDir())
}

func newTestStoreAt(t *testing.T, dbDir, mediaRoot string) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(dbDir, "library.db"), mediaRoot)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *SQLiteStore, assets []Asset, resources []Resource, albums map[string][]string) {
	t.Helper()
	ctx := context.Background()

	tx, err := store.BeginBatch(ctx)
	if err != nil {
		t.Fatalf("BeginBatch() error = %v", err)
	}

	for i := range assets {
		if err := store.UpsertAsset(ctx, tx, &assets[i]); err != nil {
			t.Fatalf("UpsertAsset() error = %v", err)
		}
	}
	for i := range resources {
		if err := store.UpsertResource(ctx, tx, &resources[i]); err != nil {
			t.Fatalf("UpsertResource() error = %v", err)
		}
	}
	for title, ids := range albums {
		for pos, id := range ids {
			if err := store.AddToAlbum(ctx, tx, title, id, pos); err != nil {
				t.Fatalf("AddToAlbum() error = %v", err)
			}
		}
	}

	if err := store.EndBatch(tx, nil); err != nil {
		t.Fatalf("EndBatch() error = %v", err)
	}
}

func TestEnumerateFiltersByKind(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, []Asset{
		{ID: "img", Type: mediatypes.MediaTypeImage},
		{ID: "vid", Type: mediatypes.MediaTypeVideo},
		{ID: "aud", Type: mediatypes.MediaTypeAudio},
	}, nil, nil)

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"images only", Query{Images: true}, []string{"img"}},
		{"videos only", Query{Videos: true}, []string{"vid"}},
		{"audio only", Query{Audio: true}, []string{"aud"}},
		{"all kinds", Query{Images: true, Videos: true, Audio: true}, []string{"img", "vid", "aud"}},
		{"no kinds", Query{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assets, err := store.Enumerate(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("Enumerate() error = %v", err)
			}

			got := map[string]bool{}
			for _, a := range assets {
				got[a.ID] = true
			}
			if len(got) != len(tt.want) {
				t.Fatalf("enumerated %v, want %v", got, tt.want)
			}
			for _, id := range tt.want {
				if !got[id] {
					t.Errorf("missing asset %s", id)
				}
			}
		})
	}
}

func TestEnumerateNewestFirst(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seed(t, store, []Asset{
		{ID: "oldest", Type: mediatypes.MediaTypeImage, CreatedAt: base},
		{ID: "newest", Type: mediatypes.MediaTypeImage, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "middle", Type: mediatypes.MediaTypeImage, CreatedAt: base.Add(time.Hour)},
	}, nil, nil)

	assets, err := store.Enumerate(context.Background(), Query{Images: true})
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	want := []string{"newest", "middle", "oldest"}
	if len(assets) != len(want) {
		t.Fatalf("enumerated %d assets, want %d", len(assets), len(want))
	}
	for i, id := range want {
		if assets[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, assets[i].ID, id)
		}
	}
}

func TestEnumerateExcludesRemote(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, []Asset{
		{ID: "local", Type: mediatypes.MediaTypeImage},
		{ID: "cloud", Type: mediatypes.MediaTypeImage, Remote: true},
	}, nil, nil)

	assets, err := store.Enumerate(context.Background(), Query{Images: true})
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(assets) != 1 || assets[0].ID != "local" {
		t.Errorf("without network got %v, want only local", assets)
	}

	assets, err = store.Enumerate(context.Background(), Query{Images: true, AllowNetwork: true})
	if err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}
	if len(assets) != 2 {
		t.Errorf("with network got %d assets, want 2", len(assets))
	}
}

func TestResourcesPrimaryFirst(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		[]Asset{{ID: "a1", Type: mediatypes.MediaTypeImage}},
		[]Resource{
			{ID: "r-alt", AssetID: "a1", Filename: "alt.jpg", Path: "alt.jpg"},
			{ID: "r-main", AssetID: "a1", Filename: "main.jpg", Primary: true, Path: "main.jpg"},
		}, nil)

	resources, err := store.Resources(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Resources() error = %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("resources = %d, want 2", len(resources))
	}
	if !resources[0].Primary || resources[0].ID != "r-main" {
		t.Errorf("first resource = %+v, want the primary one", resources[0])
	}
}

func TestAlbumsOrderedByPosition(t *testing.T) {
	store := newTestStore(t)
	seed(t, store,
		[]Asset{{ID: "a1", Type: mediatypes.MediaTypeImage}},
		nil,
		map[string][]string{
			"Trips":  {"a1"},
			"Family": {"a1"},
		})

	titles, err := store.Albums(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Albums() error = %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("albums = %v, want 2 titles", titles)
	}
}

func TestContentPathJoinsMediaRoot(t *testing.T) {
	mediaRoot := t.TempDir()
	store := newTestStoreAt(t, t.TempDir(), mediaRoot)
	seed(t, store,
		[]Asset{{ID: "a1", Type: mediatypes.MediaTypeImage}},
		[]Resource{{ID: "r1", AssetID: "a1", Filename: "pic.jpg", Primary: true, Path: filepath.Join("2024", "pic.jpg")}},
		nil)

	path, err := store.ContentPath(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ContentPath() error = %v", err)
	}
	want := filepath.Join(mediaRoot, "2024", "pic.jpg")
	if path != want {
		t.Errorf("ContentPath() = %q, want %q", path, want)
	}

	path, err = store.ResourcePath(context.Background(), "r1")
	if err != nil {
		t.Fatalf("ResourcePath() error = %v", err)
	}
	if path != want {
		t.Errorf("ResourcePath() = %q, want %q", path, want)
	}
}

func TestContentPathNoResource(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, []Asset{{ID: "bare", Type: mediatypes.MediaTypeImage}}, nil, nil)

	if _, err := store.ContentPath(context.Background(), "bare"); !errors.Is(err, ErrNoResource) {
		t.Errorf("ContentPath(no resource) error = %v, want ErrNoResource", err)
	}
	if _, err := store.ResourcePath(context.Background(), "missing"); !errors.Is(err, ErrNoResource) {
		t.Errorf("ResourcePath(missing) error = %v, want ErrNoResource", err)
	}
}

func TestStoreQueryErrorStatusRecorded(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, []Asset{{ID: "bare", Type: mediatypes.MediaTypeImage}}, nil, nil)

	errCounter := metrics.StoreQueryTotal.WithLabelValues("content_path", "error")
	okCounter := metrics.StoreQueryTotal.WithLabelValues("content_path", "success")
	errBefore := counterValue(t, errCounter)
	okBefore := counterValue(t, okCounter)

	if _, err := store.ContentPath(context.Background(), "bare"); !errors.Is(err, ErrNoResource) {
		t.Fatalf("ContentPath(no resource) error = %v, want ErrNoResource", err)
	}

	if got := counterValue(t, errCounter); got != errBefore+1 {
		t.Errorf("error-status queries = %v, want %v", got, errBefore+1)
	}
	if got := counterValue(t, okCounter); got != okBefore {
		t.Errorf("success-status queries = %v, want unchanged %v", got, okBefore)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestAssetNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Asset(context.Background(), "nope"); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Asset(missing) error = %v, want ErrAssetNotFound", err)
	}
}

func TestAuthorizationStatusPersists(t *testing.T) {
	dbDir := t.TempDir()
	mediaRoot := t.TempDir()
	store := newTestStoreAt(t, dbDir, mediaRoot)

	status, err := store.AuthorizationStatus(context.Background())
	if err != nil {
		t.Fatalf("AuthorizationStatus() error = %v", err)
	}
	if status != AuthNotDetermined {
		t.Errorf("initial status = %v, want AuthNotDetermined", status)
	}

	if err := store.SetAuthorizationStatus(context.Background(), AuthAuthorized); err != nil {
		t.Fatalf("SetAuthorizationStatus() error = %v", err)
	}

	// The decision survives reopening the catalog.
	store.Close()
	reopened := newTestStoreAt(t, dbDir, mediaRoot)

	status, err = reopened.AuthorizationStatus(context.Background())
	if err != nil {
		t.Fatalf("AuthorizationStatus() after reopen error = %v", err)
	}
	if status != AuthAuthorized {
		t.Errorf("persisted status = %v, want AuthAuthorized", status)
	}
}

func TestRenderScalesToFit(t *testing.T) {
	mediaRoot := t.TempDir()

	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			src.Set(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(mediaRoot, "wide.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	store := newTestStoreAt(t, t.TempDir(), mediaRoot)
	seed(t, store,
		[]Asset{{ID: "wide", Type: mediatypes.MediaTypeImage, Width: 400, Height: 200}},
		[]Resource{{ID: "r1", AssetID: "wide", Filename: "wide.png", Primary: true, Path: "wide.png"}},
		nil)

	img, err := store.Render(context.Background(), RenderRequest{AssetID: "wide", Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	// Fit preserves aspect ratio inside the box.
	bounds := img.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 50 {
		t.Errorf("rendered %dx%d, want 100x50", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderRemoteWithoutNetwork(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, []Asset{{ID: "cloud", Type: mediatypes.MediaTypeImage, Remote: true}}, nil, nil)

	_, err := store.Render(context.Background(), RenderRequest{AssetID: "cloud", Width: 50, Height: 50})
	if !errors.Is(err, ErrRemoteOnly) {
		t.Errorf("Render(remote, no network) error = %v, want ErrRemoteOnly", err)
	}
}

func TestCachingLifecycle(t *testing.T) {
	mediaRoot := t.TempDir()

	src := image.NewRGBA(image.Rect(0, 0, 32, 32))
	f, err := os.Create(filepath.Join(mediaRoot, "tiny.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	store := newTestStoreAt(t, t.TempDir(), mediaRoot)
	seed(t, store,
		[]Asset{{ID: "tiny", Type: mediatypes.MediaTypeImage}},
		[]Resource{{ID: "r1", AssetID: "tiny", Filename: "tiny.png", Primary: true, Path: "tiny.png"}},
		nil)

	if err := store.StartCaching(context.Background(), []string{"tiny"}, 16, 16); err != nil {
		t.Fatalf("StartCaching() error = %v", err)
	}

	// Renders during a session are served correctly whether or not the
	// pre-fetch has landed yet.
	img, err := store.Render(context.Background(), RenderRequest{AssetID: "tiny", Width: 16, Height: 16})
	if err != nil {
		t.Fatalf("Render() during session error = %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("rendered width = %d, want 16", img.Bounds().Dx())
	}

	store.StopCaching()
	// Stopping twice must be safe.
	store.StopCaching()
}
