package store

import (
	"context"
	"database/sql"

	"github.com/lox/fishingadvice/internal/models"
)

const profileColumns = `venue, region, report_count, rod_avg_mean, rod_avg_std, rod_mae, rod_mae_ci_lo, rod_mae_ci_hi,
	character_notes, cross_venue_rule, data_quality_flag, updated_at`

type profileRow struct {
	region, notes, rule, flag sql.NullString
	mean, std, mae, lo, hi    sql.NullFloat64
	updatedAt                 sql.NullTime
}

func (r *profileRow) dest(p *models.VenueProfile) []any {
	return []any{&p.Venue, &r.region, &p.ReportCount, &r.mean, &r.std, &r.mae, &r.lo, &r.hi,
		&r.notes, &r.rule, &r.flag, &r.updatedAt}
}

func (r *profileRow) apply(p *models.VenueProfile) {
	p.Region = r.region.String
	p.CharacterNotes = r.notes.String
	p.CrossVenueRule = r.rule.String
	p.DataQualityFlag = r.flag.String
	p.RodAvgMean = r.mean.Float64
	p.RodAvgStd = r.std.Float64
	p.RodMAE = r.mae.Float64
	if r.lo.Valid && r.hi.Valid {
		p.RodMAECI = &[2]float64{r.lo.Float64, r.hi.Float64}
	}
	if r.updatedAt.Valid {
		p.UpdatedAt = r.updatedAt.Time
	}
}

// GetVenueProfile returns the profile for a venue, or nil when none exists.
func (s *Store) GetVenueProfile(ctx context.Context, venue string) (*models.VenueProfile, error) {
	var p models.VenueProfile
	var r profileRow
	err := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM venue_profiles WHERE venue = ?`, venue).
		Scan(r.dest(&p)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.apply(&p)
	return &p, nil
}

func (s *Store) ListVenueProfiles(ctx context.Context) ([]models.VenueProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM venue_profiles ORDER BY venue`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.VenueProfile
	for rows.Next() {
		var p models.VenueProfile
		var r profileRow
		if err := rows.Scan(r.dest(&p)...); err != nil {
			return nil, err
		}
		r.apply(&p)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *Store) UpsertVenueProfile(ctx context.Context, p models.VenueProfile) error {
	var lo, hi sql.NullFloat64
	if p.RodMAECI != nil {
		lo = sql.NullFloat64{Float64: p.RodMAECI[0], Valid: true}
		hi = sql.NullFloat64{Float64: p.RodMAECI[1], Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO venue_profiles (`+profileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(venue) DO UPDATE SET
			region = excluded.region,
			report_count = excluded.report_count,
			rod_avg_mean = excluded.rod_avg_mean,
			rod_avg_std = excluded.rod_avg_std,
			rod_mae = excluded.rod_mae,
			rod_mae_ci_lo = excluded.rod_mae_ci_lo,
			rod_mae_ci_hi = excluded.rod_mae_ci_hi,
			character_notes = excluded.character_notes,
			cross_venue_rule = excluded.cross_venue_rule,
			data_quality_flag = excluded.data_quality_flag,
			updated_at = excluded.updated_at
	`, p.Venue, p.Region, p.ReportCount, p.RodAvgMean, p.RodAvgStd, p.RodMAE, lo, hi,
		p.CharacterNotes, p.CrossVenueRule, p.DataQualityFlag, p.UpdatedAt)
	return err
}
