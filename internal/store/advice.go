package store

import (
	"context"
	"database/sql"
	"time"
)

// GetBasicAdvice returns pre-computed advice text for a venue/season/weather bucket.
func (s *Store) GetBasicAdvice(ctx context.Context, venue, season, weatherCategory string) (string, bool, error) {
	var advice string
	err := s.db.QueryRowContext(ctx, `
		SELECT advice FROM basic_advice
		WHERE venue = ? AND season = ? AND weather_category = ?
	`, venue, season, weatherCategory).Scan(&advice)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return advice, true, nil
}

func (s *Store) UpsertBasicAdvice(ctx context.Context, venue, season, weatherCategory, advice string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO basic_advice (venue, season, weather_category, advice, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(venue, season, weather_category) DO UPDATE SET
			advice = excluded.advice,
			updated_at = excluded.updated_at
	`, venue, season, weatherCategory, advice, time.Now().UTC())
	return err
}
