package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"media-export/internal/mediatypes"
)

func TestImageDimensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "probe.png")
	writePNG(t, path, 48, 32)

	w, h, err := imageDimensions(path)
	if err != nil {
		t.Fatalf("imageDimensions() error = %v", err)
	}
	if w != 48 || h != 32 {
		t.Errorf("dimensions = %dx%d, want 48x32", w, h)
	}
}

func TestSniffMediaTypeRejectsText(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "noext")
	writeBytes(t, path, []byte("just some plain text content"))

	if got := sniffMediaType(path); got != mediatypes.MediaTypeUnknown {
		t.Errorf("sniffMediaType(text) = %v, want unknown", got)
	}
}

func TestProbeDurationCanceledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	writeBytes(t, path, []byte("not a real video"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A canceled scan must not leave probes running to their own timeout;
	// the probe fails fast instead.
	start := time.Now()
	if _, err := probeDuration(ctx, path); err == nil {
		t.Error("probeDuration(canceled ctx) error = nil, want error")
	}
	if elapsed := time.Since(start); elapsed > probeTimeout/2 {
		t.Errorf("probe took %v after cancellation, want immediate return", elapsed)
	}
}
