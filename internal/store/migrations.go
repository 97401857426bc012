package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Runs table - one row per start/stop lifecycle of the control loop
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			stopped_at DATETIME,
			stop_reason TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			frames INTEGER NOT NULL DEFAULT 0,
			hand_frames INTEGER NOT NULL DEFAULT 0,
			clicks INTEGER NOT NULL DEFAULT 0,
			alpha REAL NOT NULL,
			pinch_threshold REAL NOT NULL,
			click_cooldown_ms INTEGER NOT NULL,
			click_mode TEXT NOT NULL CHECK(click_mode IN ('edge', 'repeat'))
		)`,

		// Run clicks table - screen position of every click emitted during a run
		`CREATE TABLE IF NOT EXISTS run_clicks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			clicked_at DATETIME NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_run_clicks_run_id ON run_clicks(run_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
