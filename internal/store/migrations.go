package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/fishingadvice/internal/logging"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS fishery_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    venue TEXT NOT NULL,
    report_date TEXT NOT NULL,
    rod_average REAL,
    methods TEXT,
    flies TEXT,
    spots TEXT,
    temp REAL,
    wind_speed REAL,
    precip REAL,
    pressure REAL,
    humidity REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS diary_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    venue TEXT NOT NULL,
    session_date TEXT NOT NULL,
    fish_caught INTEGER,
    rods INTEGER,
    methods_used TEXT,
    flies_used TEXT,
    spots_fished TEXT,
    air_temp REAL,
    wind_mph REAL,
    rain_mm REAL,
    pressure REAL,
    humidity REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS prediction_params (
    venue TEXT NOT NULL,
    target TEXT NOT NULL,
    week_window INTEGER NOT NULL,
    top_n INTEGER NOT NULL,
    year_decay REAL NOT NULL,
    w_temperature REAL NOT NULL DEFAULT 0,
    w_wind_speed REAL NOT NULL DEFAULT 0,
    w_precipitation REAL NOT NULL DEFAULT 0,
    w_pressure REAL NOT NULL DEFAULT 0,
    w_humidity REAL NOT NULL DEFAULT 0,
    use_cross_venue BOOLEAN NOT NULL DEFAULT FALSE,
    venue_weight REAL NOT NULL DEFAULT 3.0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (venue, target)
);

CREATE TABLE IF NOT EXISTS venue_profiles (
    venue TEXT PRIMARY KEY,
    region TEXT,
    report_count INTEGER NOT NULL DEFAULT 0,
    rod_avg_mean REAL,
    rod_avg_std REAL,
    rod_mae REAL,
    rod_mae_ci_lo REAL,
    rod_mae_ci_hi REAL,
    character_notes TEXT,
    cross_venue_rule TEXT,
    data_quality_flag TEXT,
    updated_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_fishery_venue_date ON fishery_reports(venue, report_date);
CREATE INDEX IF NOT EXISTS idx_diary_user_venue ON diary_reports(user_id, venue);
CREATE INDEX IF NOT EXISTS idx_profiles_region ON venue_profiles(region);
`,
	},
	{
		Version:     2,
		Description: "Add basic advice cache and profile run audit",
		SQL: `
CREATE TABLE IF NOT EXISTS basic_advice (
    venue TEXT NOT NULL,
    season TEXT NOT NULL,
    weather_category TEXT NOT NULL,
    advice TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (venue, season, weather_category)
);

CREATE TABLE IF NOT EXISTS profile_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    trigger_kind TEXT NOT NULL,
    venues_seen INTEGER,
    profiles_written INTEGER,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_profile_runs_started ON profile_runs(started_at);
`,
	},
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		logging.Info().Int("version", m.Version).Str("description", m.Description).Msg("migrations: applying")

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
