// Package store persists analysis jobs and their session payloads in
// SQLite. It is the durable trace of in-flight work: the job row is written
// before the worker pool ever dispatches, so the stale watchdog can recover
// anything a crash leaves behind.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed job store.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the database at path, applies pragmas and migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		filename TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		progress_stage TEXT,
		progress_detail TEXT,
		content_hash TEXT,
		hash_failed INTEGER NOT NULL DEFAULT 0,
		structural_json TEXT,
		permit_number TEXT,
		property_address TEXT,
		version_group TEXT,
		version_number INTEGER NOT NULL DEFAULT 0,
		parent_job_id TEXT,
		match_method TEXT,
		match_confidence REAL NOT NULL DEFAULT 0,
		error_message TEXT,
		pdf BLOB,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_user_status ON jobs(user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_version_group ON jobs(version_group)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_content_hash ON jobs(content_hash)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		job_id TEXT PRIMARY KEY REFERENCES jobs(id) ON DELETE CASCADE,
		extractions_json TEXT NOT NULL,
		annotations_json TEXT NOT NULL,
		result_json TEXT,
		created_at TEXT NOT NULL
	)`,
}

func (s *Store) applyMigrations(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
