package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/magloop/internal/models"
)

// ErrRunNotFound is returned when a run ID is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run journal listing.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	Request    string        `json:"request"`
	Status     models.Status `json:"status"`
	Iterations int           `json:"iterations"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Record writes a finished run and its attempts. Recording the same run ID
// twice replaces the earlier entry.
func (s *SQLiteStore) Record(ctx context.Context, res models.RunResult) error {
	if res.RunID == "" {
		return errors.New("record run: missing run id")
	}
	blob, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", res.RunID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM attempts WHERE run_id = ?", res.RunID); err != nil {
		return fmt.Errorf("replace attempts for %s: %w", res.RunID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs(id, request, status, iterations, error, result_json, started_at, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Request.Text, string(res.Status), res.Iterations(), res.Error, string(blob),
		formatTime(res.StartedAt), formatTime(res.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}

	for _, a := range res.Trace.Attempts() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO attempts(run_id, iteration, outcome, category, summary, code) VALUES(?, ?, ?, ?, ?, ?)`,
			res.RunID, a.Artifact.Iteration, string(a.Outcome.Kind), string(a.Outcome.Category),
			a.Outcome.Summary(), a.Artifact.Code)
		if err != nil {
			return fmt.Errorf("insert attempt %d of %s: %w", a.Artifact.Iteration, res.RunID, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	q := `SELECT id, request, status, iterations, error, started_at, finished_at
	      FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var status, started, finished string
		if err := rows.Scan(&r.RunID, &r.Request, &status, &r.Iterations, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = models.Status(status)
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun loads a full run, trace included.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.RunResult, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, "SELECT result_json FROM runs WHERE id = ?", id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	var res models.RunResult
	if err := json.Unmarshal([]byte(blob), &res); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &res, nil
}

// CountAttempts returns the number of journaled attempts for a run.
func (s *SQLiteStore) CountAttempts(ctx context.Context, id string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attempts WHERE run_id = ?", id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count attempts for %s: %w", id, err)
	}
	return n, nil
}

// timeLayout has fixed-width fractions so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
