// Package history journals fire-time outcomes so operators can see what a
// schedule actually did: fired work, a failed run, a tick skipped because
// the validity window had not opened, or self-expiry. Schedule definitions
// themselves are not persisted.
package history

import (
	"context"
	"database/sql"
	"time"
)

// Outcome of a single fire.
type Outcome string

const (
	OutcomeInvoked Outcome = "invoked" // work ran and returned nil
	OutcomeFailed  Outcome = "failed"  // work ran and returned an error
	OutcomePending Outcome = "pending" // tick before the window opened, skipped
	OutcomeExpired Outcome = "expired" // window closed, schedule deregistered
)

// Fire is one gate decision.
type Fire struct {
	ScheduleID string
	FiredAt    time.Time
	Outcome    Outcome
	Error      string
}

// Recorder persists fires. A nil Recorder is valid for callers that do not
// want a journal.
type Recorder interface {
	Record(ctx context.Context, f Fire) error
	ListRecent(ctx context.Context, limit int) ([]Fire, error)
}

// EnsureSchema creates the journal table if it doesn't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS fires (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  schedule_id TEXT NOT NULL,
  fired_at DATETIME NOT NULL,
  outcome TEXT NOT NULL CHECK(outcome IN ('invoked','failed','pending','expired')),
  error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_fires_schedule ON fires(schedule_id, fired_at DESC);
`
	_, err := db.Exec(schema)
	return err
}

type sqliteRecorder struct{ db *sql.DB }

// NewSQLiteRecorder builds a Recorder over an open sqlite handle; call
// EnsureSchema first.
func NewSQLiteRecorder(db *sql.DB) Recorder { return &sqliteRecorder{db: db} }

func (r *sqliteRecorder) Record(ctx context.Context, f Fire) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO fires (schedule_id, fired_at, outcome, error) VALUES (?,?,?,?)
`, f.ScheduleID, f.FiredAt.UTC(), string(f.Outcome), f.Error)
	return err
}

func (r *sqliteRecorder) ListRecent(ctx context.Context, limit int) ([]Fire, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT schedule_id, fired_at, outcome, error
FROM fires ORDER BY fired_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fires []Fire
	for rows.Next() {
		var f Fire
		var outcome string
		if err := rows.Scan(&f.ScheduleID, &f.FiredAt, &outcome, &f.Error); err != nil {
			return nil, err
		}
		f.Outcome = Outcome(outcome)
		fires = append(fires, f)
	}
	return fires, rows.Err()
}
