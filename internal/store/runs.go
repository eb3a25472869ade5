package store

import (
	"context"
	"database/sql"
	"time"
)

// ProfileRun records one venue profile rebuild for auditing.
type ProfileRun struct {
	ID              int64
	StartedAt       time.Time
	FinishedAt      sql.NullTime
	Trigger         string // "cli", "schedule"
	VenuesSeen      sql.NullInt64
	ProfilesWritten sql.NullInt64
	Success         bool
	ErrorMessage    sql.NullString
}

// StartProfileRun creates a new run record and returns it.
func (s *Store) StartProfileRun(ctx context.Context, trigger string) (*ProfileRun, error) {
	run := &ProfileRun{
		StartedAt: time.Now().UTC(),
		Trigger:   trigger,
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_runs (started_at, trigger_kind, success)
		VALUES (?, ?, FALSE)
	`, run.StartedAt, run.Trigger)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteProfileRun updates the run with its results.
func (s *Store) CompleteProfileRun(ctx context.Context, run *ProfileRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.ExecContext(ctx, `
		UPDATE profile_runs SET
			finished_at = ?,
			venues_seen = ?,
			profiles_written = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.VenuesSeen, run.ProfilesWritten, run.Success, run.ErrorMessage, run.ID)
	return err
}

// GetRecentProfileRuns returns the latest runs, newest first.
func (s *Store) GetRecentProfileRuns(ctx context.Context, limit int) ([]ProfileRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, trigger_kind, venues_seen, profiles_written, success, error_message
		FROM profile_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ProfileRun
	for rows.Next() {
		var r ProfileRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Trigger, &r.VenuesSeen,
			&r.ProfilesWritten, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
