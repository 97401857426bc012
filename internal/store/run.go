package store

import (
	"database/sql"
	"errors"
	"time"
)

// Stop reasons recorded for finished runs.
const (
	StopReasonRequested     = "requested"
	StopReasonSourceFailure = "source_failure"
	// StopReasonInterrupted marks runs whose process exited before finishing them.
	StopReasonInterrupted = "interrupted"
)

// Run is the persisted summary of one control run.
type Run struct {
	ID              string
	StartedAt       time.Time
	StoppedAt       *time.Time
	StopReason      string
	Error           string
	Frames          int
	HandFrames      int
	Clicks          int
	Alpha           float64
	PinchThreshold  float64
	ClickCooldownMs int
	ClickMode       string
}

// Click is one click emitted during a run.
type Click struct {
	X         int
	Y         int
	ClickedAt time.Time
}

// RunRepository provides access to run history.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

const runColumns = `id, started_at, stopped_at, stop_reason, error, frames, hand_frames, clicks,
	alpha, pinch_threshold, click_cooldown_ms, click_mode`

// Create inserts a new, still running, run.
func (r *RunRepository) Create(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, started_at, alpha, pinch_threshold, click_cooldown_ms, click_mode)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Alpha, run.PinchThreshold, run.ClickCooldownMs, run.ClickMode,
	)
	return err
}

// Finish records the outcome of a run together with the clicks it emitted.
func (r *RunRepository) Finish(run *Run, clicks []Click) error {
	if run.StoppedAt == nil {
		now := time.Now()
		run.StoppedAt = &now
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE runs SET stopped_at = ?, stop_reason = ?, error = ?, frames = ?, hand_frames = ?, clicks = ?
		 WHERE id = ?`,
		*run.StoppedAt, run.StopReason, run.Error, run.Frames, run.HandFrames, run.Clicks, run.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if len(clicks) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO run_clicks (run_id, x, y, clicked_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range clicks {
			if _, err := stmt.Exec(run.ID, c.X, c.Y, c.ClickedAt); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// MarkInterrupted closes every run that was never finished, as left behind
// by a crash. Their end time is unknown, so stopped_at is set to started_at.
// It must only be called by the process that owns the control loop, before
// its first run. It returns the number of runs marked.
func (r *RunRepository) MarkInterrupted() (int64, error) {
	result, err := r.db.Exec(
		`UPDATE runs SET stopped_at = started_at, stop_reason = ? WHERE stopped_at IS NULL`,
		StopReasonInterrupted,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List retrieves the most recent runs, newest first. limit <= 0 returns all.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Clicks returns the clicks recorded for a run in emission order.
func (r *RunRepository) Clicks(runID string) ([]Click, error) {
	rows, err := r.db.Query(
		`SELECT x, y, clicked_at FROM run_clicks WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clicks []Click
	for rows.Next() {
		var c Click
		if err := rows.Scan(&c.X, &c.Y, &c.ClickedAt); err != nil {
			return nil, err
		}
		clicks = append(clicks, c)
	}

	return clicks, rows.Err()
}

// Delete removes a run and its clicks.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var stoppedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.StartedAt, &stoppedAt, &run.StopReason, &run.Error,
		&run.Frames, &run.HandFrames, &run.Clicks,
		&run.Alpha, &run.PinchThreshold, &run.ClickCooldownMs, &run.ClickMode,
	)
	if err != nil {
		return nil, err
	}

	if stoppedAt.Valid {
		t := stoppedAt.Time
		run.StoppedAt = &t
	}
	return run, nil
}
