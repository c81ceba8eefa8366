// Package history keeps a SQLite journal of shell run attempts.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lipidong/dong/internal/shell"
)

//go:embed schema.sql
var schemaSQL string

// Run summarises all attempts that share a run ID.
type Run struct {
	RunID      string
	Command    string
	Attempts   int
	ExitStatus int // status of the last attempt
	Succeeded  bool
	StartedAt  time.Time
	Duration   time.Duration // sum of attempt durations
}

// Store is the journal database.
type Store struct {
	db     *sql.DB
	dbPath string
}

var _ shell.Recorder = (*Store)(nil)

// NewStore opens (creating if needed) the journal at dbPath.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry retries statements that fail with "database is locked",
// which happens when several processes open the same file at once.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends one attempt.
func (s *Store) Record(ctx context.Context, a shell.Attempt) error {
	const query = `INSERT INTO attempts
		(run_id, command, attempt, exit_status, stdout_bytes, stderr_bytes, error, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	startedAt := a.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		a.RunID, a.Command, a.Number, a.ExitStatus,
		a.StdoutBytes, a.StderrBytes, a.Err,
		a.Duration.Milliseconds(), startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Recent returns the newest attempts first, at most limit of them
// (limit <= 0 means 50).
func (s *Store) Recent(ctx context.Context, limit int) ([]shell.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT run_id, command, attempt, exit_status, stdout_bytes, stderr_bytes, error, duration_ms, started_at
		FROM attempts ORDER BY id DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []shell.Attempt
	for rows.Next() {
		var a shell.Attempt
		var durationMS int64
		if err := rows.Scan(&a.RunID, &a.Command, &a.Number, &a.ExitStatus,
			&a.StdoutBytes, &a.StderrBytes, &a.Err, &durationMS, &a.StartedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, a)
	}
	return out, rows.Err()
}

// Runs returns per-run summaries, newest first (limit <= 0 means 20).
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT a.run_id, a.command, COUNT(*), MIN(a.started_at), SUM(a.duration_ms),
			(SELECT l.exit_status FROM attempts l WHERE l.run_id = a.run_id ORDER BY l.attempt DESC LIMIT 1)
		FROM attempts a
		GROUP BY a.run_id
		ORDER BY MAX(a.id) DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started string
		var durationMS int64
		if err := rows.Scan(&r.RunID, &r.Command, &r.Attempts, &started, &durationMS, &r.ExitStatus); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = parseSQLiteTime(started)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.Succeeded = r.ExitStatus == 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Aggregates like MIN() lose the column's declared type, so go-sqlite3
// hands them back as text.
func parseSQLiteTime(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
