package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"
)

var ErrHistory = errors.New("run history")

// History is a SQLite log of stage summaries across runs.
type History struct {
	db *sql.DB
}

// Entry is one recorded stage summary.
type Entry struct {
	RunID      string
	Stage      string
	Status     Status
	RecordedAt time.Time
	Summary    json.RawMessage
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(ctx context.Context, path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrHistory, path, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: enabling WAL: %w", ErrHistory, err)
	}

	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS stage_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	stage       TEXT NOT NULL,
	status      TEXT NOT NULL,
	recorded_at INTEGER NOT NULL,
	summary     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS stage_runs_run_id ON stage_runs(run_id);
`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: creating schema: %w", ErrHistory, err)
	}

	return &History{db: db}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// Record stores one stage summary. A nil History records nothing.
func (h *History) Record(ctx context.Context, runID, stage string, status Status, summary any) error {
	if h == nil {
		return nil
	}

	bs, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: encoding %s summary: %w", ErrHistory, stage, err)
	}

	_, err = h.db.ExecContext(ctx,
		`INSERT INTO stage_runs (run_id, stage, status, recorded_at, summary) VALUES (?, ?, ?, ?, ?)`,
		runID, stage, string(status), time.Now().UnixNano(), string(bs))
	if err != nil {
		return fmt.Errorf("%w: inserting %s summary: %w", ErrHistory, stage, err)
	}
	return nil
}

// Entries returns the summaries recorded for runID in insertion order.
func (h *History) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, stage, status, recorded_at, summary FROM stage_runs WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %w", ErrHistory, runID, err)
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		var e Entry
		var status, summary string
		var recordedAt int64
		if err := rows.Scan(&e.RunID, &e.Stage, &status, &recordedAt, &summary); err != nil {
			return nil, fmt.Errorf("%w: scanning: %w", ErrHistory, err)
		}
		e.Status = Status(status)
		e.RecordedAt = time.Unix(0, recordedAt)
		e.Summary = json.RawMessage(summary)
		result = append(result, e)
	}
	return result, rows.Err()
}
