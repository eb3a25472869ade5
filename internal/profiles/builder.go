// Package profiles recomputes per-venue summary statistics from fishery reports.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/metrics"
	"github.com/lox/fishingadvice/internal/models"
	"github.com/lox/fishingadvice/internal/store"
)

const (
	QualityOK           = "ok"
	QualitySparse       = "sparse"
	QualityInsufficient = "insufficient"

	okMinReports     = 15
	sparseMinReports = 5

	z95 = 1.96
)

type Store interface {
	GetReportVenues(ctx context.Context) ([]string, error)
	GetFisheryReports(ctx context.Context, venue string) ([]models.FisheryReport, error)
	GetVenueProfile(ctx context.Context, venue string) (*models.VenueProfile, error)
	UpsertVenueProfile(ctx context.Context, p models.VenueProfile) error
	StartProfileRun(ctx context.Context, trigger string) (*store.ProfileRun, error)
	CompleteProfileRun(ctx context.Context, run *store.ProfileRun) error
}

type Result struct {
	VenuesSeen      int
	ProfilesWritten int
	Profiles        []models.VenueProfile
}

type Builder struct {
	store Store
	now   func() time.Time
}

func NewBuilder(s Store) *Builder {
	return &Builder{store: s, now: time.Now}
}

// Rebuild recomputes every venue's profile. A failing venue does not stop the
// others; the joined error is returned alongside the partial result.
func (b *Builder) Rebuild(ctx context.Context, trigger string) (*Result, error) {
	log := logging.Ctx(ctx)

	run, err := b.store.StartProfileRun(ctx, trigger)
	if err != nil {
		log.Warn().Err(err).Msg("profiles: could not record run start")
	}

	result, err := b.rebuild(ctx)

	if run != nil {
		run.Success = err == nil
		run.VenuesSeen = sql.NullInt64{Int64: int64(result.VenuesSeen), Valid: true}
		run.ProfilesWritten = sql.NullInt64{Int64: int64(result.ProfilesWritten), Valid: true}
		if err != nil {
			run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		}
		if cerr := b.store.CompleteProfileRun(ctx, run); cerr != nil {
			log.Warn().Err(cerr).Int64("run_id", run.ID).Msg("profiles: could not record run completion")
		}
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ProfileRebuildsTotal.WithLabelValues(status).Inc()

	log.Info().
		Str("trigger", trigger).
		Int("venues", result.VenuesSeen).
		Int("written", result.ProfilesWritten).
		Err(err).
		Msg("profiles: rebuild finished")

	return result, err
}

func (b *Builder) rebuild(ctx context.Context) (*Result, error) {
	result := &Result{}

	venues, err := b.store.GetReportVenues(ctx)
	if err != nil {
		return result, fmt.Errorf("list venues: %w", err)
	}
	result.VenuesSeen = len(venues)

	var errs []error
	for _, venue := range venues {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		profile, err := b.rebuildVenue(ctx, venue)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", venue, err))
			continue
		}
		result.Profiles = append(result.Profiles, profile)
		result.ProfilesWritten++
	}
	return result, errors.Join(errs...)
}

func (b *Builder) rebuildVenue(ctx context.Context, venue string) (models.VenueProfile, error) {
	reports, err := b.store.GetFisheryReports(ctx, venue)
	if err != nil {
		return models.VenueProfile{}, fmt.Errorf("read reports: %w", err)
	}

	profile := ComputeProfile(venue, reports)
	profile.UpdatedAt = b.now().UTC()

	// Hand-maintained fields survive a rebuild.
	existing, err := b.store.GetVenueProfile(ctx, venue)
	if err != nil {
		return models.VenueProfile{}, fmt.Errorf("read profile: %w", err)
	}
	if existing != nil {
		profile.Region = existing.Region
		profile.CharacterNotes = existing.CharacterNotes
		profile.CrossVenueRule = existing.CrossVenueRule
	}

	if err := b.store.UpsertVenueProfile(ctx, profile); err != nil {
		return models.VenueProfile{}, fmt.Errorf("write profile: %w", err)
	}
	return profile, nil
}

// ComputeProfile derives summary statistics from reports with a positive rod average.
func ComputeProfile(venue string, reports []models.FisheryReport) models.VenueProfile {
	var values []float64
	for _, r := range reports {
		if !r.RodAverage.Valid {
			continue
		}
		v := r.RodAverage.Float64
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}

	p := models.VenueProfile{
		Venue:           venue,
		ReportCount:     len(values),
		DataQualityFlag: QualityFor(len(values)),
	}
	if len(values) == 0 {
		return p
	}

	n := float64(len(values))
	mean := sum(values) / n

	var sq float64
	absErrs := make([]float64, len(values))
	for i, v := range values {
		sq += (v - mean) * (v - mean)
		absErrs[i] = math.Abs(v - mean)
	}
	mae := sum(absErrs) / n

	p.RodAvgMean = round3(mean)
	p.RodAvgStd = round3(math.Sqrt(sq / n))
	p.RodMAE = round3(mae)

	if len(values) >= 2 {
		var errSq float64
		for _, e := range absErrs {
			errSq += (e - mae) * (e - mae)
		}
		sd := math.Sqrt(errSq / (n - 1))
		half := z95 * sd / math.Sqrt(n)
		p.RodMAECI = &[2]float64{round3(math.Max(0, mae-half)), round3(mae + half)}
	}
	return p
}

func QualityFor(n int) string {
	switch {
	case n >= okMinReports:
		return QualityOK
	case n >= sparseMinReports:
		return QualitySparse
	default:
		return QualityInsufficient
	}
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
