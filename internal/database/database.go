package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"github.com/zaitanabil/galerly-sub003/internal/logging"
	"github.com/zaitanabil/galerly-sub003/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database persists asset records, rendition records, and upload
// session bookkeeping for the pipeline.
type Database struct {
	db     *sql.DB
	dbPath string
}

// New creates a new Database instance.
// IMPORTANT: dbPath should be the full path to the database FILE (e.g.,
// "/database/pipeline.db"), and the parent directory must already exist
// and be writable. Use startup.LoadConfig() to ensure proper directory
// validation before calling this.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// WAL mode and a busy timeout keep concurrent readers and the
	// single-writer transition path from tripping over each other.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()

	schema := `
	-- Asset records, one per uploaded original
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		collection_id TEXT NOT NULL,
		storage_key TEXT NOT NULL UNIQUE,
		file_name TEXT NOT NULL,
		mime TEXT NOT NULL DEFAULT '',
		extension TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL,
		decode_status TEXT NOT NULL DEFAULT 'pending',
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		image_meta TEXT,
		video_meta TEXT,
		decode_error TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_assets_collection ON assets(collection_id);
	CREATE INDEX IF NOT EXISTS idx_assets_status ON assets(decode_status);

	-- Rendition records, one per derived image
	CREATE TABLE IF NOT EXISTS renditions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		asset_id TEXT NOT NULL,
		class TEXT NOT NULL,
		storage_key TEXT NOT NULL,
		format TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		UNIQUE(asset_id, class),
		FOREIGN KEY (asset_id) REFERENCES assets(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_renditions_asset ON renditions(asset_id);

	-- Upload session bookkeeping, deleted on completion or abort
	CREATE TABLE IF NOT EXISTS upload_sessions (
		id TEXT PRIMARY KEY,
		asset_id TEXT NOT NULL,
		collection_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		mime TEXT NOT NULL DEFAULT '',
		storage_key TEXT NOT NULL,
		total_size INTEGER NOT NULL,
		chunk_size INTEGER NOT NULL,
		num_parts INTEGER NOT NULL,
		state TEXT NOT NULL,
		provider_upload_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		last_activity_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_upload_sessions_activity ON upload_sessions(last_activity_at);
	CREATE INDEX IF NOT EXISTS idx_upload_sessions_state ON upload_sessions(state);

	-- Acknowledged parts per session
	CREATE TABLE IF NOT EXISTS upload_parts (
		session_id TEXT NOT NULL,
		part_number INTEGER NOT NULL,
		integrity_token TEXT NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (session_id, part_number),
		FOREIGN KEY (session_id) REFERENCES upload_sessions(id) ON DELETE CASCADE
	);
	`

	_, err := d.db.ExecContext(ctx, schema)
	recordQuery("initialize_schema", start, err)
	return err
}

// Close closes the underlying database handle.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the database handle is still usable. Readiness probes
// call this on every check.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// GetStats implements metrics.StatsProvider with point-in-time counts.
func (d *Database) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	start := time.Now()
	var stats metrics.Stats

	row := d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM assets WHERE decode_status = 'pending'),
			(SELECT COUNT(*) FROM assets WHERE decode_status = 'decoded'),
			(SELECT COUNT(*) FROM assets WHERE decode_status = 'decode_failed'),
			(SELECT COUNT(*) FROM renditions),
			(SELECT COUNT(*) FROM upload_sessions WHERE state NOT IN ('completed', 'aborted'))
	`)
	err := row.Scan(&stats.PendingAssets, &stats.DecodedAssets, &stats.FailedAssets,
		&stats.TotalRenditions, &stats.OpenUploadSessions)
	recordQuery("count_stats", start, err)
	if err != nil {
		logging.Error("failed to collect database stats: %v", err)
	}
	return stats
}

// UpdateDBMetrics refreshes gauges describing the SQLite files and the
// connection pool. Called from the metrics collection loop.
func (d *Database) UpdateDBMetrics() {
	metrics.DBConnectionsOpen.Set(float64(d.db.Stats().OpenConnections))

	for suffix, label := range map[string]string{"": "main", "-wal": "wal", "-shm": "shm"} {
		if info, err := os.Stat(d.dbPath + suffix); err == nil {
			metrics.DBSizeBytes.WithLabelValues(label).Set(float64(info.Size()))
		}
	}
}

// recordQuery records Prometheus metrics for one query.
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
}

// diagnoseDatabasePermissions surfaces the common container-volume
// mistakes (missing directory, read-only mount) before sqlite reports
// them as an opaque "unable to open database file".
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("database directory %s is not accessible: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("database parent %s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".dbwrite-*")
	if err != nil {
		return fmt.Errorf("database directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}
