// Package home manages the plancheck home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the plancheck home directory.
	DefaultDirName = ".plancheck"

	// DataDirName holds the job database.
	DataDirName = "data"

	// UploadsDirName stages uploaded PDFs before analysis.
	UploadsDirName = "uploads"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DatabaseFileName is the SQLite database file name.
	DatabaseFileName = "plancheck.db"
)

// Dir represents the plancheck home directory structure.
type Dir struct {
	path string
}

// New creates a Dir rooted at path, or at ~/.plancheck when path is empty.
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}
	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string { return d.path }

// DataPath returns the data directory.
func (d *Dir) DataPath() string { return filepath.Join(d.path, DataDirName) }

// DatabasePath returns the SQLite database file path.
func (d *Dir) DatabasePath() string { return filepath.Join(d.DataPath(), DatabaseFileName) }

// UploadsPath returns the staging directory for uploaded PDFs.
func (d *Dir) UploadsPath() string { return filepath.Join(d.path, UploadsDirName) }

// UploadPath returns the staged PDF path for a job.
func (d *Dir) UploadPath(jobID string) string {
	return filepath.Join(d.UploadsPath(), jobID+".pdf")
}

// ConfigPath returns the default config file path.
func (d *Dir) ConfigPath() string { return filepath.Join(d.path, ConfigFileName) }

// EnsureExists creates the home directory tree if missing.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.DataPath(), d.UploadsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists reports whether the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists reports whether the config file exists.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
