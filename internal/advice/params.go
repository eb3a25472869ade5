package advice

import (
	"context"
	"math"

	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/metrics"
	"github.com/lox/fishingadvice/internal/models"
)

const (
	// GlobalDefaultVenue is the reserved venue key for global default tuned params.
	GlobalDefaultVenue = "__global__"

	TargetRodAverage = "rod_average"
)

type ParamsReader interface {
	GetPredictionParams(ctx context.Context, venue, target string) (*models.PredictionParams, error)
}

// HardcodedParams is the last tier of the fallback chain.
func HardcodedParams() models.PredictionParams {
	return models.PredictionParams{
		WeekWindow:     2,
		TopN:           DefaultTopN,
		YearDecay:      0.7,
		WTemperature:   1.0,
		WWindSpeed:     0.25,
		WPrecipitation: 1.0,
		WPressure:      0.0,
		WHumidity:      1.0,
		UseCrossVenue:  false,
		VenueWeight:    3.0,
		Source:         models.SourceHardcoded,
	}
}

// ParamsResolver walks venue-tuned -> global default -> hardcoded.
// Read errors and unusable rows count as misses; Resolve never fails.
type ParamsResolver struct {
	reader ParamsReader
}

func NewParamsResolver(reader ParamsReader) *ParamsResolver {
	return &ParamsResolver{reader: reader}
}

func (r *ParamsResolver) Resolve(ctx context.Context, venue, target string) models.PredictionParams {
	p := r.resolve(ctx, venue, target)
	metrics.ParamsResolvedTotal.WithLabelValues(string(p.Source)).Inc()
	return p
}

func (r *ParamsResolver) resolve(ctx context.Context, venue, target string) models.PredictionParams {
	if target == "" {
		target = TargetRodAverage
	}
	if p, ok := r.lookup(ctx, venue, target); ok {
		p.Source = models.SourceTuned
		return p
	}
	if p, ok := r.lookup(ctx, GlobalDefaultVenue, target); ok {
		p.Source = models.SourceGlobalDefault
		return p
	}
	return HardcodedParams()
}

func (r *ParamsResolver) lookup(ctx context.Context, venue, target string) (models.PredictionParams, bool) {
	if r.reader == nil || venue == "" {
		return models.PredictionParams{}, false
	}
	p, err := r.reader.GetPredictionParams(ctx, venue, target)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("venue", venue).Str("target", target).Msg("params lookup failed, treating as miss")
		return models.PredictionParams{}, false
	}
	if p == nil {
		return models.PredictionParams{}, false
	}
	if !(p.YearDecay > 0 && p.YearDecay <= 1) {
		logging.Ctx(ctx).Warn().Float64("year_decay", p.YearDecay).Str("venue", venue).Msg("ignoring params row with year_decay outside (0,1]")
		return models.PredictionParams{}, false
	}
	if !usableCoefficients(*p) {
		logging.Ctx(ctx).Warn().Str("venue", venue).Str("target", target).Msg("ignoring params row with negative or non-finite weights")
		return models.PredictionParams{}, false
	}
	out := *p
	if out.TopN <= 0 {
		out.TopN = DefaultTopN
	}
	if out.VenueWeight <= 0 {
		out.VenueWeight = HardcodedParams().VenueWeight
	}
	return out, true
}

// usableCoefficients rejects weather coefficients that would make an
// observation weight negative or non-finite.
func usableCoefficients(p models.PredictionParams) bool {
	for _, w := range []float64{p.WTemperature, p.WWindSpeed, p.WPrecipitation, p.WPressure, p.WHumidity} {
		if !(w >= 0) || math.IsInf(w, 0) {
			return false
		}
	}
	return !math.IsNaN(p.VenueWeight) && !math.IsInf(p.VenueWeight, 0)
}
