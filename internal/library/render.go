package library

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"sync"
	"time"

	"media-export/internal/logging"
	"media-export/internal/mediatypes"
	"media-export/internal/metrics"
	"media-export/internal/workers"

	_ "image/gif"  // GIF decode support
	_ "image/jpeg" // JPEG decode support
	_ "image/png"  // PNG decode support

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decode support
)

// cacheSession is the bulk pre-fetch cache for rendered thumbnails.
// At most one session is active per store; renders during the session
// consult the session's image map before decoding from disk.
type cacheSession struct {
	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
	done   chan struct{}

	width  int
	height int

	imgMu  sync.RWMutex
	images map[string]image.Image
}

func (c *cacheSession) lookup(assetID string, width, height int) (image.Image, bool) {
	c.mu.Lock()
	active := c.active
	sameSize := c.width == width && c.height == height
	c.mu.Unlock()

	if !active || !sameSize {
		return nil, false
	}

	c.imgMu.RLock()
	img, ok := c.images[assetID]
	c.imgMu.RUnlock()
	return img, ok
}

func (c *cacheSession) put(assetID string, img image.Image) {
	c.imgMu.Lock()
	c.images[assetID] = img
	c.imgMu.Unlock()
}

// Render produces an image of the asset scaled to fit the requested box.
func (s *SQLiteStore) Render(ctx context.Context, req RenderRequest) (img image.Image, err error) {
	start := time.Now()
	defer func() { observe("render", start, err) }()

	asset, err := s.Asset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}

	if asset.Remote && !req.AllowNetwork {
		return nil, ErrRemoteOnly
	}

	if cached, ok := s.cache.lookup(req.AssetID, req.Width, req.Height); ok {
		metrics.CacheHits.Inc()
		return cached, nil
	}
	metrics.CacheMisses.Inc()

	return s.renderFromDisk(ctx, asset, req.Width, req.Height)
}

// renderFromDisk decodes the asset's content and scales it to fit the box.
func (s *SQLiteStore) renderFromDisk(ctx context.Context, asset Asset, width, height int) (image.Image, error) {
	path, err := s.ContentPath(ctx, asset.ID)
	if err != nil {
		return nil, err
	}

	var img image.Image
	switch asset.Type {
	case mediatypes.MediaTypeImage:
		img, err = loadImage(path, width, height)
	case mediatypes.MediaTypeVideo:
		img, err = extractVideoFrame(ctx, path)
	default:
		return nil, fmt.Errorf("asset %s has no renderable image content", asset.ID)
	}
	if err != nil {
		return nil, err
	}

	return imaging.Fit(img, width, height, imaging.Lanczos), nil
}

// loadImage decodes an image file, preferring the libvips fast path when it
// has been initialized. Decode-time shrinking keeps memory bounded for very
// large originals.
func loadImage(path string, targetWidth, targetHeight int) (image.Image, error) {
	if IsVipsAvailable() {
		img, err := loadImageWithVips(path, targetWidth, targetHeight)
		if err == nil {
			return img, nil
		}
		logging.Debug("vips load failed for %s: %v, falling back to imaging", path, err)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// extractVideoFrame grabs a single frame from a video using ffmpeg.
// It first seeks one second in; if that fails (very short clips), it retries
// from the start.
func extractVideoFrame(ctx context.Context, path string) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	frame, err := runFFmpegFrame(ctx, path, true)
	if err != nil {
		logging.Debug("ffmpeg seek extract failed for %s: %v, retrying from start", path, err)
		frame, err = runFFmpegFrame(ctx, path, false)
		if err != nil {
			return nil, err
		}
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode ffmpeg output: %w", err)
	}
	return img, nil
}

func runFFmpegFrame(ctx context.Context, path string, seek bool) ([]byte, error) {
	args := []string{"-i", path}
	if seek {
		args = []string{"-ss", "00:00:01", "-i", path}
	}
	args = append(args, "-vframes", "1", "-f", "image2pipe", "-vcodec", "png", "-")

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for %s", path)
	}

	return stdout.Bytes(), nil
}

// StartCaching begins a bulk pre-fetch of rendered thumbnails. A session
// already running is stopped first, so at most one is ever active.
func (s *SQLiteStore) StartCaching(ctx context.Context, assetIDs []string, width, height int) error {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()

	if s.cache.active {
		s.stopCachingLocked()
	}

	if len(assetIDs) == 0 || width <= 0 || height <= 0 {
		return nil
	}

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.cache.cancel = cancel
	s.cache.done = done
	s.cache.width = width
	s.cache.height = height
	s.cache.images = make(map[string]image.Image, len(assetIDs))
	s.cache.active = true

	metrics.CacheSessionsStarted.Inc()
	metrics.CacheSessionActive.Set(1)

	numWorkers := workers.ForMixed(8)
	logging.Debug("Starting pre-fetch cache session: %d assets, %dx%d, %d workers",
		len(assetIDs), width, height, numWorkers)

	jobs := make(chan string)

	go func() {
		defer close(done)

		var wg sync.WaitGroup
		for i := 0; i < numWorkers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for id := range jobs {
					s.prefetchOne(cctx, id, width, height)
				}
			}()
		}

		for _, id := range assetIDs {
			select {
			case jobs <- id:
			case <-cctx.Done():
				close(jobs)
				wg.Wait()
				return
			}
		}
		close(jobs)
		wg.Wait()
	}()

	return nil
}

func (s *SQLiteStore) prefetchOne(ctx context.Context, assetID string, width, height int) {
	if ctx.Err() != nil {
		return
	}

	asset, err := s.Asset(ctx, assetID)
	if err != nil {
		logging.Debug("pre-fetch skipping %s: %v", assetID, err)
		return
	}

	img, err := s.renderFromDisk(ctx, asset, width, height)
	if err != nil {
		logging.Debug("pre-fetch render failed for %s: %v", assetID, err)
		return
	}

	s.cache.put(assetID, img)
}

// StopCaching ends the pre-fetch session, if any. Safe to call when no
// session is active.
func (s *SQLiteStore) StopCaching() {
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	s.stopCachingLocked()
}

// stopCachingLocked tears down the active session. Caller holds cache.mu.
func (s *SQLiteStore) stopCachingLocked() {
	if !s.cache.active {
		return
	}

	s.cache.cancel()
	<-s.cache.done

	s.cache.imgMu.Lock()
	s.cache.images = nil
	s.cache.imgMu.Unlock()

	s.cache.active = false
	metrics.CacheSessionActive.Set(0)
	logging.Debug("Pre-fetch cache session stopped")
}
