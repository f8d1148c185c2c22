package catalog

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	// Header decoders for dimension probing.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"media-export/internal/mediatypes"
)

const probeTimeout = 10 * time.Second

var (
	ffprobeOnce sync.Once
	ffprobeOK   bool
)

func ffprobeAvailable() bool {
	ffprobeOnce.Do(func() {
		_, err := exec.LookPath("ffprobe")
		ffprobeOK = err == nil
	})
	return ffprobeOK
}

// sniffMediaType content-sniffs a file whose extension is unclassified.
// Only the detected top-level MIME type matters here.
func sniffMediaType(path string) mediatypes.MediaType {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return mediatypes.MediaTypeUnknown
	}

	switch {
	case strings.HasPrefix(mime.String(), "image/"):
		return mediatypes.MediaTypeImage
	case strings.HasPrefix(mime.String(), "video/"):
		return mediatypes.MediaTypeVideo
	case strings.HasPrefix(mime.String(), "audio/"):
		return mediatypes.MediaTypeAudio
	default:
		return mediatypes.MediaTypeUnknown
	}
}

// probeDimensions reads pixel dimensions: image headers directly, video
// streams via ffprobe.
func probeDimensions(ctx context.Context, path string, mediaType mediatypes.MediaType) (int, int, error) {
	if mediaType == mediatypes.MediaTypeImage {
		return imageDimensions(path)
	}
	return videoDimensions(ctx, path)
}

// imageDimensions decodes only the image header, never the pixel data.
func imageDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func videoDimensions(ctx context.Context, path string) (int, int, error) {
	if !ffprobeAvailable() {
		return 0, 0, fmt.Errorf("ffprobe unavailable")
	}

	out, err := runFFprobe(ctx, path,
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0")
	if err != nil {
		return 0, 0, err
	}

	parts := strings.SplitN(strings.TrimSpace(out), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q", out)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// probeDuration reads a container's duration in seconds via ffprobe.
func probeDuration(ctx context.Context, path string) (float64, error) {
	out, err := runFFprobe(ctx, path,
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1")
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(out), 64)
}

// runFFprobe derives its deadline from the caller's context so a canceled
// scan kills in-flight probe processes.
func runFFprobe(ctx context.Context, path string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	full := append([]string{"-v", "error"}, args...)
	full = append(full, path)

	out, err := exec.CommandContext(ctx, "ffprobe", full...).Output()
	if err != nil {
		return "", fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return string(out), nil
}
