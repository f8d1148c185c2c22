package library

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-export/internal/logging"
	"media-export/internal/mediatypes"
	"media-export/internal/metrics"
)

// Default timeout for store queries
const defaultTimeout = 5 * time.Second

const authSettingKey = "authorization"

// SQLiteStore is a Store backed by a SQLite catalog with on-disk originals.
// Resource paths in the catalog are relative to mediaRoot.
type SQLiteStore struct {
	db        *sql.DB
	dbPath    string
	mediaRoot string

	cache cacheSession
}

// OpenSQLite opens (or creates) the catalog database at dbPath. mediaRoot is
// the directory that resource paths are resolved against. The parent
// directory of dbPath must already exist and be writable.
func OpenSQLite(ctx context.Context, dbPath, mediaRoot string) (*SQLiteStore, error) {
	logging.Info("Library catalog path: %s", dbPath)

	// WAL mode with a busy timeout avoids "database is locked" errors when
	// the scanner and the exporter touch the catalog at the same time.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close catalog after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to catalog: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{
		db:        db,
		dbPath:    dbPath,
		mediaRoot: mediaRoot,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close catalog after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	logging.Info("Library catalog ready at %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		created_at INTEGER,
		modified_at INTEGER,
		favorite INTEGER NOT NULL DEFAULT 0,
		hidden INTEGER NOT NULL DEFAULT 0,
		remote INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_assets_type ON assets(type);
	CREATE INDEX IF NOT EXISTS idx_assets_created_at ON assets(created_at);

	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		is_primary INTEGER NOT NULL DEFAULT 0,
		path TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resources_asset ON resources(asset_id);

	CREATE TABLE IF NOT EXISTS albums (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS album_assets (
		album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
		asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (album_id, asset_id)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close releases the catalog connection and any active cache session.
func (s *SQLiteStore) Close() error {
	s.StopCaching()
	return s.db.Close()
}

// observe records store query metrics for one operation.
func observe(op string, start time.Time, err error) {
	metrics.StoreQueryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreQueryTotal.WithLabelValues(op, status).Inc()
}

// AuthorizationStatus reads the persisted authorization decision.
// A missing setting means the user has never been asked.
func (s *SQLiteStore) AuthorizationStatus(ctx context.Context) (AuthStatus, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, authSettingKey).Scan(&value)
	if err == sql.ErrNoRows {
		return AuthNotDetermined, nil
	}
	if err != nil {
		return AuthNotDetermined, fmt.Errorf("failed to read authorization: %w", err)
	}

	switch value {
	case "authorized":
		return AuthAuthorized, nil
	case "denied":
		return AuthDenied, nil
	case "restricted":
		return AuthRestricted, nil
	default:
		return AuthNotDetermined, nil
	}
}

// SetAuthorizationStatus persists an authorization decision.
func (s *SQLiteStore) SetAuthorizationStatus(ctx context.Context, status AuthStatus) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		authSettingKey, status.String())
	if err != nil {
		return fmt.Errorf("failed to persist authorization: %w", err)
	}
	return nil
}

// Enumerate returns assets matching q ordered by creation time descending.
func (s *SQLiteStore) Enumerate(ctx context.Context, q Query) (assets []Asset, err error) {
	start := time.Now()
	defer func() { observe("enumerate", start, err) }()

	kinds := make([]string, 0, 3)
	if q.Images {
		kinds = append(kinds, string(mediatypes.MediaTypeImage))
	}
	if q.Videos {
		kinds = append(kinds, string(mediatypes.MediaTypeVideo))
	}
	if q.Audio {
		kinds = append(kinds, string(mediatypes.MediaTypeAudio))
	}
	if len(kinds) == 0 {
		return []Asset{}, nil
	}

	placeholders := strings.Repeat("?,", len(kinds))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT id, type, width, height, duration, created_at, modified_at,
		       favorite, hidden, remote
		FROM assets
		WHERE type IN (%s)`, placeholders)

	args := make([]interface{}, 0, len(kinds))
	for _, k := range kinds {
		args = append(args, k)
	}

	if !q.AllowNetwork {
		query += " AND remote = 0"
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("enumerate query failed: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close enumerate rows: %v", closeErr)
		}
	}()

	assets = []Asset{}
	for rows.Next() {
		var (
			a                   Asset
			created, modified   sql.NullInt64
			fav, hidden, remote int
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Width, &a.Height, &a.Duration,
			&created, &modified, &fav, &hidden, &remote); err != nil {
			return nil, fmt.Errorf("enumerate scan failed: %w", err)
		}
		if created.Valid {
			a.CreatedAt = time.Unix(created.Int64, 0)
		}
		if modified.Valid {
			a.ModifiedAt = time.Unix(modified.Int64, 0)
		}
		a.Favorite = fav != 0
		a.Hidden = hidden != 0
		a.Remote = remote != 0
		assets = append(assets, a)
	}

	return assets, rows.Err()
}

// Asset fetches one asset by identifier.
func (s *SQLiteStore) Asset(ctx context.Context, id string) (Asset, error) {
	var (
		a                   Asset
		created, modified   sql.NullInt64
		fav, hidden, remote int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, width, height, duration, created_at, modified_at,
		       favorite, hidden, remote
		FROM assets WHERE id = ?`, id).
		Scan(&a.ID, &a.Type, &a.Width, &a.Height, &a.Duration,
			&created, &modified, &fav, &hidden, &remote)
	if err == sql.ErrNoRows {
		return Asset{}, ErrAssetNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("asset lookup failed: %w", err)
	}
	if created.Valid {
		a.CreatedAt = time.Unix(created.Int64, 0)
	}
	if modified.Valid {
		a.ModifiedAt = time.Unix(modified.Int64, 0)
	}
	a.Favorite = fav != 0
	a.Hidden = hidden != 0
	a.Remote = remote != 0
	return a, nil
}

// Resources lists an asset's resource descriptors, primary first.
func (s *SQLiteStore) Resources(ctx context.Context, assetID string) (resources []Resource, err error) {
	start := time.Now()
	defer func() { observe("resources", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, asset_id, filename, is_primary, path
		FROM resources
		WHERE asset_id = ?
		ORDER BY is_primary DESC, id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("resources query failed: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close resources rows: %v", closeErr)
		}
	}()

	for rows.Next() {
		var (
			r       Resource
			primary int
		)
		if err := rows.Scan(&r.ID, &r.AssetID, &r.Filename, &primary, &r.Path); err != nil {
			return nil, fmt.Errorf("resources scan failed: %w", err)
		}
		r.Primary = primary != 0
		resources = append(resources, r)
	}

	return resources, rows.Err()
}

// Albums returns non-empty titles of albums containing the asset, in the
// catalog's membership order.
func (s *SQLiteStore) Albums(ctx context.Context, assetID string) (titles []string, err error) {
	start := time.Now()
	defer func() { observe("albums", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.title
		FROM albums a
		JOIN album_assets aa ON aa.album_id = a.id
		WHERE aa.asset_id = ? AND a.title != ''
		ORDER BY aa.position, a.id`, assetID)
	if err != nil {
		return nil, fmt.Errorf("albums query failed: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			logging.Warn("failed to close albums rows: %v", closeErr)
		}
	}()

	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("albums scan failed: %w", err)
		}
		titles = append(titles, title)
	}

	return titles, rows.Err()
}

// ContentPath resolves an asset's full-quality content to an absolute path.
func (s *SQLiteStore) ContentPath(ctx context.Context, assetID string) (path string, err error) {
	start := time.Now()
	defer func() { observe("content_path", start, err) }()

	var relPath string
	err = s.db.QueryRowContext(ctx, `
		SELECT path FROM resources
		WHERE asset_id = ?
		ORDER BY is_primary DESC, id
		LIMIT 1`, assetID).Scan(&relPath)
	if err == sql.ErrNoRows {
		return "", ErrNoResource
	}
	if err != nil {
		return "", fmt.Errorf("content path lookup failed: %w", err)
	}

	return filepath.Join(s.mediaRoot, relPath), nil
}

// ResourcePath resolves one resource's data to an absolute path.
func (s *SQLiteStore) ResourcePath(ctx context.Context, resourceID string) (path string, err error) {
	start := time.Now()
	defer func() { observe("resource_path", start, err) }()

	var relPath string
	err = s.db.QueryRowContext(ctx,
		`SELECT path FROM resources WHERE id = ?`, resourceID).Scan(&relPath)
	if err == sql.ErrNoRows {
		return "", ErrNoResource
	}
	if err != nil {
		return "", fmt.Errorf("resource path lookup failed: %w", err)
	}

	return filepath.Join(s.mediaRoot, relPath), nil
}

// UpsertAsset inserts or replaces one asset row. Used by the catalog scanner.
func (s *SQLiteStore) UpsertAsset(ctx context.Context, tx *sql.Tx, a *Asset) error {
	var created, modified interface{}
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.Unix()
	}
	if !a.ModifiedAt.IsZero() {
		modified = a.ModifiedAt.Unix()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO assets (id, type, width, height, duration, created_at,
		                    modified_at, favorite, hidden, remote)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			width = excluded.width,
			height = excluded.height,
			duration = excluded.duration,
			created_at = excluded.created_at,
			modified_at = excluded.modified_at,
			remote = excluded.remote`,
		a.ID, string(a.Type), a.Width, a.Height, a.Duration,
		created, modified, boolToInt(a.Favorite), boolToInt(a.Hidden), boolToInt(a.Remote))
	if err != nil {
		return fmt.Errorf("failed to upsert asset %s: %w", a.ID, err)
	}
	return nil
}

// UpsertResource inserts or replaces one resource row. Used by the catalog scanner.
func (s *SQLiteStore) UpsertResource(ctx context.Context, tx *sql.Tx, r *Resource) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO resources (id, asset_id, filename, is_primary, path)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			is_primary = excluded.is_primary,
			path = excluded.path`,
		r.ID, r.AssetID, r.Filename, boolToInt(r.Primary), r.Path)
	if err != nil {
		return fmt.Errorf("failed to upsert resource %s: %w", r.ID, err)
	}
	return nil
}

// AddToAlbum creates the album if needed and links the asset to it at the
// given position. Used by the catalog scanner.
func (s *SQLiteStore) AddToAlbum(ctx context.Context, tx *sql.Tx, title, assetID string, position int) error {
	if title == "" {
		return nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO albums (title) VALUES (?) ON CONFLICT(title) DO NOTHING`, title); err != nil {
		return fmt.Errorf("failed to upsert album %q: %w", title, err)
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO album_assets (album_id, asset_id, position)
		SELECT id, ?, ? FROM albums WHERE title = ?
		ON CONFLICT(album_id, asset_id) DO UPDATE SET position = excluded.position`,
		assetID, position, title)
	if err != nil {
		return fmt.Errorf("failed to link asset %s to album %q: %w", assetID, title, err)
	}
	return nil
}

// BeginBatch starts a transaction for batched catalog writes.
func (s *SQLiteStore) BeginBatch(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// EndBatch commits the transaction, or rolls it back when cause is non-nil.
func (s *SQLiteStore) EndBatch(tx *sql.Tx, cause error) error {
	if cause != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Error("rollback failed: %v", rbErr)
		}
		return cause
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
