// Package store persists run journals and cached completions in SQLite.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DatabaseName is the SQLite file inside the data directory.
const DatabaseName = "magloop.db"

// DefaultDataDir returns the path to the global .magloop directory.
// On Unix: ~/.magloop
// On Windows: %USERPROFILE%\.magloop
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".magloop"), nil
}

// EnsureDataDir creates dir (and its .gitignore) if it doesn't exist.
func EnsureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return EnsureGitignore(dir)
}

// dataGitignore is the default .gitignore content for data directories.
const dataGitignore = `# SQLite database files (run journal and completion cache)
magloop.db
magloop.db-shm
magloop.db-wal
`

// EnsureGitignore creates a .gitignore in the given data directory if one
// does not already exist. This prevents accidentally committing database files
// to version control.
func EnsureGitignore(dir string) error {
	gitignorePath := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		return nil // already exists, respect user customizations
	}
	if err := os.WriteFile(gitignorePath, []byte(dataGitignore), 0600); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	return nil
}
