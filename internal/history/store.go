package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"compressum/internal/config"
	"compressum/internal/transcode"
)

// OutputTailBytes bounds how much captured transcoder output is kept per job.
const OutputTailBytes = 4096

// DefaultListLimit applies when List is called without a positive limit.
const DefaultListLimit = 20

// Entry is one recorded job.
type Entry struct {
	ID           string
	InputPath    string
	OutputPath   string
	Preset       string
	State        transcode.State
	ExitCode     int
	ErrorMessage string
	OutputTail   string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Elapsed returns the job's run time, or zero while it is unfinished.
func (e Entry) Elapsed() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store manages job history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	// Pragmas in the DSN apply to every pooled connection, not just the first.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db %s: %w", dbPath, err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Started records a job entering the running state.
func (s *Store) Started(ctx context.Context, result transcode.Result) error {
	return s.upsert(ctx, result, nil)
}

// Finished records a job's terminal state.
func (s *Store) Finished(ctx context.Context, result transcode.Result, runErr error) error {
	return s.upsert(ctx, result, runErr)
}

func (s *Store) upsert(ctx context.Context, result transcode.Result, runErr error) error {
	if strings.TrimSpace(result.JobID) == "" {
		return errors.New("history: job id required")
	}
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	_, err := s.exec(ctx, `
INSERT INTO jobs (id, input_path, output_path, preset, state, exit_code, error_message, output_tail, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    state = excluded.state,
    exit_code = excluded.exit_code,
    error_message = excluded.error_message,
    output_tail = excluded.output_tail,
    finished_at = excluded.finished_at`,
		result.JobID,
		result.InputPath,
		result.OutputPath,
		result.Preset,
		string(result.State),
		result.ExitCode,
		message,
		transcode.Tail(result.CapturedOutput, OutputTailBytes),
		formatTime(result.StartedAt),
		formatTime(result.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", result.JobID, err)
	}
	return nil
}

const entryColumns = `id, input_path, output_path, preset, state, exit_code, error_message, output_tail, started_at, finished_at`

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM jobs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns the entry whose ID equals or uniquely starts with id. A missing
// entry returns nil without error.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("history: job id required")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM jobs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id LIMIT 2`,
		id, len(id), id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	defer rows.Close()

	var matches []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if entry.ID == id {
			return &entry, nil
		}
		matches = append(matches, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("history: job id prefix %q is ambiguous", id)
	}
}

// Stats counts entries per state.
func (s *Store) Stats(ctx context.Context) (map[transcode.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(1) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[transcode.State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[transcode.State(state)] = count
	}
	return stats, rows.Err()
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry             Entry
		state             string
		started, finished string
	)
	if err := row.Scan(
		&entry.ID,
		&entry.InputPath,
		&entry.OutputPath,
		&entry.Preset,
		&state,
		&entry.ExitCode,
		&entry.ErrorMessage,
		&entry.OutputTail,
		&started,
		&finished,
	); err != nil {
		return Entry{}, fmt.Errorf("scan job: %w", err)
	}
	entry.State = transcode.State(state)
	entry.StartedAt = parseTime(started)
	entry.FinishedAt = parseTime(finished)
	return entry, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
