package catalog

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"media-export/internal/library"
	"media-export/internal/logging"
	"media-export/internal/mediatypes"
	"media-export/internal/metrics"
)

// Config configures the parallel catalog scanner.
type Config struct {
	// NumWorkers is the number of parallel probe workers.
	NumWorkers int
	// ChannelBuffer is the size of the job and result channel buffers.
	ChannelBuffer int
	// SkipHidden skips files and directories starting with ".".
	SkipHidden bool
	// ProbeDimensions decodes image headers for pixel dimensions.
	ProbeDimensions bool
	// ProbeDuration runs ffprobe for video and audio durations. Disabled
	// automatically when ffprobe is not on PATH.
	ProbeDuration bool
}

// DefaultConfig returns scanner defaults. Three workers is safe for NFS and
// still performant for local filesystems; SCAN_WORKERS overrides it.
func DefaultConfig() Config {
	numWorkers := 3
	if override := os.Getenv("SCAN_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			numWorkers = count
		}
	}

	return Config{
		NumWorkers:      numWorkers,
		ChannelBuffer:   1000,
		SkipHidden:      true,
		ProbeDimensions: true,
		ProbeDuration:   true,
	}
}

// scanJob is one file handed to a probe worker.
type scanJob struct {
	path    string
	relPath string
	info    os.FileInfo
}

// entry is one cataloged media file ready for persistence.
type entry struct {
	asset    library.Asset
	resource library.Resource
	album    string
}

// scanResult carries one worker outcome. A nil entry with a nil error means
// the file was not a media file.
type scanResult struct {
	entry *entry
	err   error
}

// Scanner walks a media directory in parallel and catalogs every media file
// into the library store. Identifiers are derived from each file's relative
// path, so rescans update existing rows instead of duplicating them.
type Scanner struct {
	store    *library.SQLiteStore
	mediaDir string
	config   Config

	jobs    chan scanJob
	results chan scanResult

	wg sync.WaitGroup

	filesScanned atomic.Int64
	filesSkipped atomic.Int64
	errorsCount  atomic.Int64
}

// NewScanner creates a scanner over mediaDir that persists into store.
func NewScanner(store *library.SQLiteStore, mediaDir string, config Config) *Scanner {
	if config.ProbeDuration && !ffprobeAvailable() {
		logging.Debug("ffprobe not found on PATH, duration probing disabled")
		config.ProbeDuration = false
	}

	return &Scanner{
		store:    store,
		mediaDir: mediaDir,
		config:   config,
		jobs:     make(chan scanJob, config.ChannelBuffer),
		results:  make(chan scanResult, config.ChannelBuffer),
	}
}

// Scan walks the tree, probes every media file, and persists the catalog in
// one transaction. It returns the number of cataloged files.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	logging.Info("Starting catalog scan of %s with %d workers", s.mediaDir, s.config.NumWorkers)
	startTime := time.Now()

	metrics.ScannerParallelWorkers.Set(float64(s.config.NumWorkers))

	for i := 0; i < s.config.NumWorkers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	// Collector drains results while the walk feeds jobs.
	var entries []entry
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for result := range s.results {
			if result.err != nil {
				s.errorsCount.Add(1)
				metrics.ScannerErrors.Inc()
				logging.Debug("Scan error: %v", result.err)
				continue
			}
			if result.entry != nil {
				entries = append(entries, *result.entry)
			}
		}
	}()

	walkErr := s.walkAndEnqueue(ctx)

	close(s.jobs)
	s.wg.Wait()
	close(s.results)
	collectorWg.Wait()

	if walkErr != nil {
		return 0, walkErr
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := s.persist(ctx, entries); err != nil {
		return 0, err
	}

	duration := time.Since(startTime)
	metrics.ScannerLastRunDuration.Set(duration.Seconds())
	logging.Info("Catalog scan complete: %d media files, %d skipped in %v (errors: %d)",
		s.filesScanned.Load(),
		s.filesSkipped.Load(),
		duration,
		s.errorsCount.Load())

	return len(entries), nil
}

// walkAndEnqueue walks the directory tree and feeds jobs to the workers.
// Unreadable paths are logged and skipped, never fatal.
func (s *Scanner) walkAndEnqueue(ctx context.Context) error {
	return filepath.WalkDir(s.mediaDir, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return fs.SkipAll
		default:
		}

		if err != nil {
			logging.Warn("Error accessing path %s: %v", path, err)
			return nil
		}

		if s.config.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(s.mediaDir, path)
		if err != nil {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Error getting info for %s: %v", path, err)
			return nil
		}

		select {
		case s.jobs <- scanJob{path: path, relPath: relPath, info: info}:
		case <-ctx.Done():
			return fs.SkipAll
		}

		return nil
	})
}

// worker probes files from the jobs channel.
func (s *Scanner) worker(ctx context.Context, id int) {
	defer s.wg.Done()

	logging.Debug("Scan worker %d started", id)

	for job := range s.jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result := s.probeFile(ctx, job)

		if result.err == nil {
			if result.entry != nil {
				s.filesScanned.Add(1)
				metrics.ScannerFilesProcessed.Inc()
			} else {
				s.filesSkipped.Add(1)
			}
		}

		select {
		case s.results <- result:
		case <-ctx.Done():
			return
		}
	}

	logging.Debug("Scan worker %d finished", id)
}

// probeFile classifies one file and builds its catalog entry. Files that are
// not media are skipped with a nil entry.
func (s *Scanner) probeFile(ctx context.Context, job scanJob) scanResult {
	ext := strings.ToLower(filepath.Ext(job.info.Name()))
	mediaType := mediatypes.TypeFor(ext)
	if mediaType == mediatypes.MediaTypeUnknown {
		// Extension told us nothing; let the content speak.
		mediaType = sniffMediaType(job.path)
	}
	if mediaType == mediatypes.MediaTypeUnknown {
		return scanResult{}
	}

	asset := library.Asset{
		ID:         stableID(job.relPath),
		Type:       mediaType,
		CreatedAt:  job.info.ModTime(),
		ModifiedAt: job.info.ModTime(),
	}

	if s.config.ProbeDimensions && (mediaType == mediatypes.MediaTypeImage || mediaType == mediatypes.MediaTypeVideo) {
		if w, h, err := probeDimensions(ctx, job.path, mediaType); err == nil {
			asset.Width = w
			asset.Height = h
		} else {
			logging.Debug("Dimension probe failed for %s: %v", job.relPath, err)
		}
	}

	if s.config.ProbeDuration && (mediaType == mediatypes.MediaTypeVideo || mediaType == mediatypes.MediaTypeAudio) {
		if d, err := probeDuration(ctx, job.path); err == nil {
			asset.Duration = d
		} else {
			logging.Debug("Duration probe failed for %s: %v", job.relPath, err)
		}
	}

	resource := library.Resource{
		ID:       stableID(job.relPath + "#primary"),
		AssetID:  asset.ID,
		Filename: job.info.Name(),
		Primary:  true,
		Path:     job.relPath,
	}

	return scanResult{entry: &entry{
		asset:    asset,
		resource: resource,
		album:    albumFor(job.relPath),
	}}
}

// persist writes the collected entries in a single transaction so a failed
// or canceled scan leaves the previous catalog intact.
func (s *Scanner) persist(ctx context.Context, entries []entry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.store.BeginBatch(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = s.store.EndBatch(tx, err)
	}()

	positions := make(map[string]int)
	for i := range entries {
		e := &entries[i]
		if err = s.store.UpsertAsset(ctx, tx, &e.asset); err != nil {
			return err
		}
		if err = s.store.UpsertResource(ctx, tx, &e.resource); err != nil {
			return err
		}
		if e.album == "" {
			continue
		}
		if err = s.store.AddToAlbum(ctx, tx, e.album, e.asset.ID, positions[e.album]); err != nil {
			return err
		}
		positions[e.album]++
	}

	return nil
}

// stableID derives a deterministic identifier from a relative path so the
// same file maps to the same asset on every scan.
func stableID(relPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(filepath.ToSlash(relPath))).String()
}

// albumFor maps a file to its album: the top-level directory it lives under.
// Files at the media root belong to no album.
func albumFor(relPath string) string {
	rel := filepath.ToSlash(relPath)
	idx := strings.Index(rel, "/")
	if idx < 0 {
		return ""
	}
	return rel[:idx]
}
