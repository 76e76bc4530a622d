// Package store keeps a local history of pipeline runs in sqlite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrRunNotFound = errors.New("run not found")

// Run is one recorded pipeline execution.
type Run struct {
	ID         uuid.UUID `json:"id"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Rows       int       `json:"rows"`
	Columns    int       `json:"columns"`
	Charts     int       `json:"charts"`
	Output     string    `json:"output,omitempty"`
	Messages   []string  `json:"messages,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	row_count INTEGER,
	column_count INTEGER,
	chart_count INTEGER,
	output TEXT,
	started_at DATETIME,
	finished_at DATETIME
);
CREATE TABLE IF NOT EXISTS run_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	message TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Open creates the database file and its tables when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveRun inserts or replaces a run together with its message trail.
func (s *Store) SaveRun(ctx context.Context, r Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO runs
		(id, source, status, error, row_count, column_count, chart_count, output, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Source, r.Status, r.Error, r.Rows, r.Columns, r.Charts, r.Output,
		r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_messages WHERE run_id = ?`, r.ID.String()); err != nil {
		return fmt.Errorf("save run messages: %w", err)
	}
	for i, m := range r.Messages {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_messages (run_id, seq, message) VALUES (?, ?, ?)`,
			r.ID.String(), i, m); err != nil {
			return fmt.Errorf("save run messages: %w", err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs first, without messages.
// A limit of zero or less returns everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, source, status, error, row_count, column_count, chart_count, output, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun fetches one run with its messages.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, source, status, error, row_count, column_count, chart_count, output, started_at, finished_at
		FROM runs WHERE id = ?`, id.String())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}
	msgs, err := s.db.QueryContext(ctx, `SELECT message FROM run_messages WHERE run_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return Run{}, fmt.Errorf("load run messages: %w", err)
	}
	defer msgs.Close()
	for msgs.Next() {
		var m string
		if err := msgs.Scan(&m); err != nil {
			return Run{}, err
		}
		r.Messages = append(r.Messages, m)
	}
	return r, msgs.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r           Run
		id          string
		errMsg, out sql.NullString
		nrows, ncol sql.NullInt64
		ncharts     sql.NullInt64
	)
	if err := sc.Scan(&id, &r.Source, &r.Status, &errMsg, &nrows, &ncol, &ncharts, &out, &r.StartedAt, &r.FinishedAt); err != nil {
		return Run{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Run{}, fmt.Errorf("bad run id %q: %w", id, err)
	}
	r.ID = parsed
	r.Error = errMsg.String
	r.Output = out.String
	r.Rows = int(nrows.Int64)
	r.Columns = int(ncol.Int64)
	r.Charts = int(ncharts.Int64)
	return r, nil
}
