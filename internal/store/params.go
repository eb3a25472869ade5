package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lox/fishingadvice/internal/models"
)

// GetPredictionParams returns the tuned row for (venue, target), or nil when absent.
// The returned Source is left empty; provenance is assigned by the resolver.
func (s *Store) GetPredictionParams(ctx context.Context, venue, target string) (*models.PredictionParams, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT week_window, top_n, year_decay, w_temperature, w_wind_speed, w_precipitation,
		       w_pressure, w_humidity, use_cross_venue, venue_weight
		FROM prediction_params
		WHERE venue = ? AND target = ?
	`, venue, target)

	var p models.PredictionParams
	err := row.Scan(&p.WeekWindow, &p.TopN, &p.YearDecay, &p.WTemperature, &p.WWindSpeed,
		&p.WPrecipitation, &p.WPressure, &p.WHumidity, &p.UseCrossVenue, &p.VenueWeight)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpsertPredictionParams(ctx context.Context, venue, target string, p models.PredictionParams) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prediction_params (venue, target, week_window, top_n, year_decay, w_temperature, w_wind_speed,
			w_precipitation, w_pressure, w_humidity, use_cross_venue, venue_weight, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(venue, target) DO UPDATE SET
			week_window = excluded.week_window,
			top_n = excluded.top_n,
			year_decay = excluded.year_decay,
			w_temperature = excluded.w_temperature,
			w_wind_speed = excluded.w_wind_speed,
			w_precipitation = excluded.w_precipitation,
			w_pressure = excluded.w_pressure,
			w_humidity = excluded.w_humidity,
			use_cross_venue = excluded.use_cross_venue,
			venue_weight = excluded.venue_weight,
			updated_at = excluded.updated_at
	`, venue, target, p.WeekWindow, p.TopN, p.YearDecay, p.WTemperature, p.WWindSpeed,
		p.WPrecipitation, p.WPressure, p.WHumidity, p.UseCrossVenue, p.VenueWeight, time.Now().UTC())
	return err
}
