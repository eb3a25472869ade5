package advice

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/metrics"
	"github.com/lox/fishingadvice/internal/models"
)

const dateLayout = "2006-01-02"

type ReportReader interface {
	GetFisheryReports(ctx context.Context, venue string) ([]models.FisheryReport, error)
	GetDiaryReports(ctx context.Context, userID, venue string) ([]models.DiaryReport, error)
	GetRegionFisheryReports(ctx context.Context, region, excludeVenue string) ([]models.FisheryReport, error)
}

type AggregateRequest struct {
	Venue   string
	Target  time.Time
	UserID  string
	Params  models.PredictionParams
	Profile *models.VenueProfile
}

type Aggregation struct {
	Observations    []models.Observation
	GeneralCount    int
	PersonalCount   int
	CrossVenueCount int
	Skipped         int
}

// Aggregator merges fishery-wide and personal diary reports into observations.
type Aggregator struct {
	reader ReportReader
}

func NewAggregator(reader ReportReader) *Aggregator {
	return &Aggregator{reader: reader}
}

// Aggregate reads and normalizes every source for the request. Any read error
// is returned wrapped in ErrReportsUnavailable; malformed rows are skipped.
func (a *Aggregator) Aggregate(ctx context.Context, req AggregateRequest) (*Aggregation, error) {
	general, err := a.reader.GetFisheryReports(ctx, req.Venue)
	if err != nil {
		return nil, fmt.Errorf("%w: fishery reports for %s: %v", ErrReportsUnavailable, req.Venue, err)
	}

	var personal []models.DiaryReport
	if req.UserID != "" {
		personal, err = a.reader.GetDiaryReports(ctx, req.UserID, req.Venue)
		if err != nil {
			return nil, fmt.Errorf("%w: diary reports for %s: %v", ErrReportsUnavailable, req.Venue, err)
		}
	}

	var regional []models.FisheryReport
	if req.Params.UseCrossVenue && req.Profile != nil && req.Profile.Region != "" {
		regional, err = a.reader.GetRegionFisheryReports(ctx, req.Profile.Region, req.Venue)
		if err != nil {
			return nil, fmt.Errorf("%w: region %s reports: %v", ErrReportsUnavailable, req.Profile.Region, err)
		}
	}

	agg := &Aggregation{Observations: make([]models.Observation, 0, len(general)+len(personal)+len(regional))}
	log := logging.Ctx(ctx)

	keep := func(obs models.Observation) {
		if !inSeasonalWindow(obs.ObservedDate, req.Target, req.Params.WeekWindow) {
			return
		}
		agg.Observations = append(agg.Observations, obs)
		switch {
		case obs.IsPersonal:
			agg.PersonalCount++
		case obs.IsCrossVenue:
			agg.CrossVenueCount++
		default:
			agg.GeneralCount++
		}
	}

	for _, r := range general {
		obs, err := fromFisheryReport(r)
		if err != nil {
			agg.Skipped++
			log.Debug().Err(err).Int64("report_id", r.ID).Msg("skipping malformed fishery report")
			continue
		}
		keep(obs)
	}
	for _, r := range personal {
		obs, err := fromDiaryReport(r)
		if err != nil {
			agg.Skipped++
			log.Debug().Err(err).Int64("diary_id", r.ID).Msg("skipping malformed diary report")
			continue
		}
		keep(obs)
	}
	for _, r := range regional {
		obs, err := fromFisheryReport(r)
		if err != nil {
			agg.Skipped++
			continue
		}
		obs.IsCrossVenue = true
		keep(obs)
	}

	metrics.ObservationsAggregated.WithLabelValues("general").Add(float64(agg.GeneralCount))
	metrics.ObservationsAggregated.WithLabelValues("personal").Add(float64(agg.PersonalCount))
	metrics.ObservationsAggregated.WithLabelValues("cross_venue").Add(float64(agg.CrossVenueCount))
	metrics.ObservationsAggregated.WithLabelValues("skipped").Add(float64(agg.Skipped))

	return agg, nil
}

func fromFisheryReport(r models.FisheryReport) (models.Observation, error) {
	date, err := ParseDate(r.ReportDate)
	if err != nil {
		return models.Observation{}, err
	}
	rate, err := catchRate(r.RodAverage)
	if err != nil {
		return models.Observation{}, err
	}
	methods, err := decodeList(r.Methods)
	if err != nil {
		return models.Observation{}, fmt.Errorf("methods: %w", err)
	}
	flies, err := decodeList(r.Flies)
	if err != nil {
		return models.Observation{}, fmt.Errorf("flies: %w", err)
	}
	spots, err := decodeList(r.Spots)
	if err != nil {
		return models.Observation{}, fmt.Errorf("spots: %w", err)
	}

	return models.Observation{
		Venue:        r.Venue,
		ObservedDate: date,
		CatchRate:    rate,
		Methods:      methods,
		Flies:        flies,
		Spots:        spots,
		Weather: models.WeatherCovariates{
			Temp:          floatPtr(r.Temp),
			WindSpeed:     floatPtr(r.WindSpeed),
			Precipitation: floatPtr(r.Precip),
			Pressure:      floatPtr(r.Pressure),
			Humidity:      floatPtr(r.Humidity),
		},
	}, nil
}

func fromDiaryReport(r models.DiaryReport) (models.Observation, error) {
	date, err := ParseDate(r.SessionDate)
	if err != nil {
		return models.Observation{}, err
	}

	var rate *float64
	if r.FishCaught.Valid {
		if r.FishCaught.Int64 < 0 {
			return models.Observation{}, fmt.Errorf("negative fish count %d", r.FishCaught.Int64)
		}
		rods := int64(1)
		if r.Rods.Valid && r.Rods.Int64 > 0 {
			rods = r.Rods.Int64
		}
		v := float64(r.FishCaught.Int64) / float64(rods)
		rate = &v
	}

	methods, err := decodeList(r.MethodsUsed)
	if err != nil {
		return models.Observation{}, fmt.Errorf("methods: %w", err)
	}
	flies, err := decodeList(r.FliesUsed)
	if err != nil {
		return models.Observation{}, fmt.Errorf("flies: %w", err)
	}
	spots, err := decodeList(r.SpotsFished)
	if err != nil {
		return models.Observation{}, fmt.Errorf("spots: %w", err)
	}

	return models.Observation{
		Venue:        r.Venue,
		ObservedDate: date,
		IsPersonal:   true,
		CatchRate:    rate,
		Methods:      methods,
		Flies:        flies,
		Spots:        spots,
		Weather: models.WeatherCovariates{
			Temp:          floatPtr(r.AirTemp),
			WindSpeed:     floatPtr(r.WindMPH),
			Precipitation: floatPtr(r.RainMM),
			Pressure:      floatPtr(r.Pressure),
			Humidity:      floatPtr(r.Humidity),
		},
	}, nil
}

// ParseDate accepts YYYY-MM-DD, optionally followed by a time component
// separated by 'T' or a space.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		if sep := s[len(dateLayout)]; sep != 'T' && sep != ' ' {
			return time.Time{}, fmt.Errorf("parse date %q: unexpected suffix", s)
		}
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func catchRate(v sql.NullFloat64) (*float64, error) {
	if !v.Valid {
		return nil, nil
	}
	if math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) || v.Float64 < 0 {
		return nil, fmt.Errorf("invalid catch rate %v", v.Float64)
	}
	rate := v.Float64
	return &rate, nil
}

// decodeList turns a nullable JSON array column into a non-nil slice.
func decodeList(v sql.NullString) ([]string, error) {
	raw := strings.TrimSpace(v.String)
	if !v.Valid || raw == "" || raw == "null" {
		return []string{}, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []string{}
	}
	return items, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// inSeasonalWindow keeps observations whose day-of-year is within weekWindow
// weeks of the target's, wrapping across the year boundary.
func inSeasonalWindow(observed, target time.Time, weekWindow int) bool {
	if weekWindow <= 0 {
		return true
	}
	diff := observed.YearDay() - target.YearDay()
	if diff < 0 {
		diff = -diff
	}
	if wrapped := 365 - diff; wrapped < diff {
		diff = wrapped
	}
	return diff <= weekWindow*7
}
