package store

import (
	"context"
	"database/sql"

	"github.com/lox/fishingadvice/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) InsertFisheryReport(ctx context.Context, r models.FisheryReport) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO fishery_reports (venue, report_date, rod_average, methods, flies, spots, temp, wind_speed, precip, pressure, humidity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Venue, r.ReportDate, r.RodAverage, r.Methods, r.Flies, r.Spots, r.Temp, r.WindSpeed, r.Precip, r.Pressure, r.Humidity)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Store) InsertDiaryReport(ctx context.Context, r models.DiaryReport) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO diary_reports (user_id, venue, session_date, fish_caught, rods, methods_used, flies_used, spots_fished, air_temp, wind_mph, rain_mm, pressure, humidity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.UserID, r.Venue, r.SessionDate, r.FishCaught, r.Rods, r.MethodsUsed, r.FliesUsed, r.SpotsFished, r.AirTemp, r.WindMPH, r.RainMM, r.Pressure, r.Humidity)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

const fisheryColumns = `id, venue, report_date, rod_average, methods, flies, spots, temp, wind_speed, precip, pressure, humidity, created_at`

// GetFisheryReports returns every fishery-wide report for a venue, oldest first.
func (s *Store) GetFisheryReports(ctx context.Context, venue string) ([]models.FisheryReport, error) {
	return s.queryFisheryReports(ctx, `
		SELECT `+fisheryColumns+`
		FROM fishery_reports
		WHERE venue = ?
		ORDER BY report_date ASC, id ASC
	`, venue)
}

// GetRegionFisheryReports returns reports from other profiled venues in the same region.
func (s *Store) GetRegionFisheryReports(ctx context.Context, region, excludeVenue string) ([]models.FisheryReport, error) {
	return s.queryFisheryReports(ctx, `
		SELECT `+fisheryColumns+`
		FROM fishery_reports
		WHERE venue IN (SELECT venue FROM venue_profiles WHERE region = ? AND venue != ?)
		ORDER BY venue ASC, report_date ASC, id ASC
	`, region, excludeVenue)
}

func (s *Store) queryFisheryReports(ctx context.Context, query string, args ...any) ([]models.FisheryReport, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.FisheryReport
	for rows.Next() {
		var r models.FisheryReport
		if err := rows.Scan(&r.ID, &r.Venue, &r.ReportDate, &r.RodAverage, &r.Methods, &r.Flies, &r.Spots,
			&r.Temp, &r.WindSpeed, &r.Precip, &r.Pressure, &r.Humidity, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetDiaryReports returns a user's diary sessions for a venue, oldest first.
func (s *Store) GetDiaryReports(ctx context.Context, userID, venue string) ([]models.DiaryReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, venue, session_date, fish_caught, rods, methods_used, flies_used, spots_fished,
		       air_temp, wind_mph, rain_mm, pressure, humidity, created_at
		FROM diary_reports
		WHERE user_id = ? AND venue = ?
		ORDER BY session_date ASC, id ASC
	`, userID, venue)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.DiaryReport
	for rows.Next() {
		var r models.DiaryReport
		if err := rows.Scan(&r.ID, &r.UserID, &r.Venue, &r.SessionDate, &r.FishCaught, &r.Rods,
			&r.MethodsUsed, &r.FliesUsed, &r.SpotsFished, &r.AirTemp, &r.WindMPH, &r.RainMM,
			&r.Pressure, &r.Humidity, &r.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetReportVenues lists every venue with at least one fishery report.
func (s *Store) GetReportVenues(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT venue FROM fishery_reports ORDER BY venue`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
