package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"media-export/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all exporter configuration
type Config struct {
	MediaDir    string
	DatabaseDir string
	OutputDir   string

	ThumbnailWidth     int
	ThumbnailHeight    int
	IncludeImages      bool
	IncludeVideos      bool
	IncludeAudio       bool
	IncludeAlbumData   bool
	IncludeCloudAssets bool
	ChunkSize          int

	MetricsEnabled bool
	MetricsPort    string

	// Derived paths
	DatabasePath string
}

// LoadConfig loads and validates configuration from the environment. A .env
// file in the working directory is applied first without overriding the
// process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded environment from .env file")
	}

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaDir := getEnv("MEDIA_DIR", "/media")
	databaseDir := getEnv("DATABASE_DIR", "/database")
	outputDir := getEnv("OUTPUT_DIR", "/output")
	thumbWidth := getEnvInt("THUMBNAIL_WIDTH", 256)
	thumbHeight := getEnvInt("THUMBNAIL_HEIGHT", 256)
	includeImages := getEnvBool("INCLUDE_IMAGES", true)
	includeVideos := getEnvBool("INCLUDE_VIDEOS", true)
	includeAudio := getEnvBool("INCLUDE_AUDIO", false)
	includeAlbums := getEnvBool("INCLUDE_ALBUMS", true)
	includeCloud := getEnvBool("INCLUDE_CLOUD", false)
	chunkSize := getEnvInt("CHUNK_SIZE", 50)
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	metricsPort := getEnv("METRICS_PORT", "9090")

	logging.Info("  MEDIA_DIR:        %s", mediaDir)
	logging.Info("  DATABASE_DIR:     %s", databaseDir)
	logging.Info("  OUTPUT_DIR:       %s", outputDir)
	logging.Info("  THUMBNAIL_WIDTH:  %d", thumbWidth)
	logging.Info("  THUMBNAIL_HEIGHT: %d", thumbHeight)
	logging.Info("  INCLUDE_IMAGES:   %v", includeImages)
	logging.Info("  INCLUDE_VIDEOS:   %v", includeVideos)
	logging.Info("  INCLUDE_AUDIO:    %v", includeAudio)
	logging.Info("  INCLUDE_ALBUMS:   %v", includeAlbums)
	logging.Info("  INCLUDE_CLOUD:    %v", includeCloud)
	logging.Info("  CHUNK_SIZE:       %d", chunkSize)
	logging.Info("  METRICS_ENABLED:  %v", metricsEnabled)
	logging.Info("  METRICS_PORT:     %s", metricsPort)
	logging.Info("  LOG_LEVEL:        %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	mediaDir, err := filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", databaseDir)

	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory path: %w", err)
	}
	logging.Info("  Output directory (absolute): %s", outputDir)

	// Media directory issues are a warning only; an empty or missing tree
	// still produces a valid (empty) export.
	if err := ensureDirectory(mediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if err := ensureDirectory(outputDir, "output"); err != nil {
		return nil, fmt.Errorf("output directory error: %w", err)
	}
	if err := testWriteAccess(outputDir); err != nil {
		return nil, fmt.Errorf("output directory is not writable: %w", err)
	}
	logging.Info("  [OK] Output directory is writable")

	return &Config{
		MediaDir:           mediaDir,
		DatabaseDir:        databaseDir,
		OutputDir:          outputDir,
		ThumbnailWidth:     thumbWidth,
		ThumbnailHeight:    thumbHeight,
		IncludeImages:      includeImages,
		IncludeVideos:      includeVideos,
		IncludeAudio:       includeAudio,
		IncludeAlbumData:   includeAlbums,
		IncludeCloudAssets: includeCloud,
		ChunkSize:          chunkSize,
		MetricsEnabled:     metricsEnabled,
		MetricsPort:        metricsPort,
		DatabasePath:       filepath.Join(databaseDir, "library.db"),
	}, nil
}

// LogStoreInit logs library store initialization
func LogStoreInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("LIBRARY STORE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Store initialized in %v", duration)
}

// LogExportStarted logs the start of an export run
func LogExportStarted(chunkSize int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXPORT STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Chunk size: %d", chunkSize)
	logging.Info("  Press Ctrl+C to cancel")
	logging.Info("")
}

// LogExportComplete logs a finished export run
func LogExportComplete(chunks, items int, duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("EXPORT COMPLETE")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Chunks written: %d", chunks)
	logging.Info("  Items exported: %d", items)
	logging.Info("  Duration:       %v", duration)
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___        ______                      __
   /  |/  /__  ____/ (_)___ _ / ____/  ______  ____  _____/ /_
  / /|_/ / _ \/ __  / / __ '// __/ | |/_/ __ \/ __ \/ ___/ __/
 / /  / /  __/ /_/ / / /_/ // /____>  </ /_/ / /_/ / /  / /_
/_/  /_/\___/\__,_/_/\__,_//_____/_/|_/ .___/\____/_/   \__/
                                     /_/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
