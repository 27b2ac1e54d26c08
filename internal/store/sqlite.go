package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is the target schema version for this build.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	request     TEXT NOT NULL,
	status      TEXT NOT NULL,
	iterations  INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	result_json TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS attempts (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	iteration INTEGER NOT NULL,
	outcome   TEXT NOT NULL,
	category  TEXT NOT NULL DEFAULT '',
	summary   TEXT NOT NULL,
	code      TEXT NOT NULL,
	PRIMARY KEY (run_id, iteration)
);

CREATE TABLE IF NOT EXISTS completions (
	key        TEXT PRIMARY KEY,
	response   TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`

// SQLiteStore holds the run journal and the completion cache.
// It is safe for concurrent use.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path, creating the parent directory
// if needed. Use ":memory:" for a throwaway store.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetCompletion returns a cached completion.
func (s *SQLiteStore) GetCompletion(ctx context.Context, key string) (string, bool, error) {
	var resp string
	err := s.db.QueryRowContext(ctx, "SELECT response FROM completions WHERE key = ?", key).Scan(&resp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read completion: %w", err)
	}
	return resp, true, nil
}

// PutCompletion stores or replaces a completion.
func (s *SQLiteStore) PutCompletion(ctx context.Context, key, response string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO completions(key, response, created_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET response = excluded.response, created_at = excluded.created_at`,
		key, response, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}
	return nil
}

// ClearCompletions removes every cached completion and returns how many were dropped.
func (s *SQLiteStore) ClearCompletions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM completions")
	if err != nil {
		return 0, fmt.Errorf("clear completions: %w", err)
	}
	return res.RowsAffected()
}
