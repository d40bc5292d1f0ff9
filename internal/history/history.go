// Package history archives terminal job summaries to SQLite.
//
// Live job state is in-memory only; history is what survives a restart
// and feeds the jobs listing in the CLI and the /api/history endpoint.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tonearm/internal/jobs"
)

// Store manages the history database.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS job_history (
    id           TEXT PRIMARY KEY,
    status       TEXT NOT NULL,
    source       TEXT NOT NULL,
    format       TEXT NOT NULL,
    is_playlist  INTEGER NOT NULL DEFAULT 0,
    title_hint   TEXT NOT NULL DEFAULT '',
    result_count INTEGER NOT NULL DEFAULT 0,
    skipped      INTEGER NOT NULL DEFAULT 0,
    errors       INTEGER NOT NULL DEFAULT 0,
    zip_path     TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL,
    finished_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_history_finished ON job_history(finished_at DESC);
`

// Open initializes or connects to the history database.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Entry is one archived terminal job.
type Entry struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Source      string    `json:"source"`
	Format      string    `json:"format"`
	IsPlaylist  bool      `json:"isPlaylist"`
	TitleHint   string    `json:"titleHint,omitempty"`
	ResultCount int       `json:"resultCount"`
	Skipped     int       `json:"skipped"`
	Errors      int       `json:"errors"`
	ZipPath     string    `json:"zipPath,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// Record archives a terminal job snapshot. Recording the same job twice
// overwrites the earlier row.
func (s *Store) Record(ctx context.Context, snap jobs.Snapshot) error {
	if !snap.Status.IsTerminal() {
		return fmt.Errorf("job %s is not terminal", snap.ID)
	}
	finished := snap.CreatedAt
	if snap.FinishedAt != nil {
		finished = *snap.FinishedAt
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO job_history (id, status, source, format, is_playlist, title_hint, result_count, skipped, errors, zip_path, error, created_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    result_count = excluded.result_count,
    skipped = excluded.skipped,
    errors = excluded.errors,
    zip_path = excluded.zip_path,
    error = excluded.error,
    finished_at = excluded.finished_at`,
		snap.ID,
		string(snap.Status),
		snap.Request.Source,
		snap.Request.Format,
		boolToInt(snap.Request.IsPlaylist),
		snap.Request.TitleHint,
		len(snap.Results),
		snap.SkippedCount,
		snap.ErrorsCount,
		snap.ZipPath,
		snap.Error,
		snap.CreatedAt.UTC().Format(time.RFC3339Nano),
		finished.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record job history: %w", err)
	}
	return nil
}

// Recent returns up to limit archived jobs, most recently finished first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, status, source, format, is_playlist, title_hint, result_count, skipped, errors, zip_path, error, created_at, finished_at
FROM job_history
ORDER BY finished_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query job history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var isPlaylist int
		var createdAt, finishedAt string
		if err := rows.Scan(
			&entry.ID, &entry.Status, &entry.Source, &entry.Format, &isPlaylist,
			&entry.TitleHint, &entry.ResultCount, &entry.Skipped, &entry.Errors,
			&entry.ZipPath, &entry.Error, &createdAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job history: %w", err)
		}
		entry.IsPlaylist = isPlaylist != 0
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entry.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
