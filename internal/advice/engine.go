package advice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/metrics"
	"github.com/lox/fishingadvice/internal/models"
)

// Request asks for a prediction for one venue and date.
type Request struct {
	Venue           string                 `json:"venue" validate:"required,max=200"`
	TargetDate      string                 `json:"target_date" validate:"required,datetime=2006-01-02"`
	UserID          string                 `json:"user_id,omitempty" validate:"max=200"`
	Target          string                 `json:"target,omitempty"`
	WeatherOverride *models.WeatherReading `json:"weather_override,omitempty"`
}

type Response struct {
	Prediction          models.Prediction    `json:"prediction"`
	Season              string               `json:"season"`
	WeatherCategory     string               `json:"weather_category"`
	ReportCount         int                  `json:"report_count"`
	PersonalReportCount int                  `json:"personal_report_count"`
	ParamsUsedSource    models.ParamsSource  `json:"params_used_source"`
	VenueProfile        *models.VenueProfile `json:"venue_profile,omitempty"`
	BasicAdvice         string               `json:"basic_advice,omitempty"`
}

type BasicAdviceReader interface {
	GetBasicAdvice(ctx context.Context, venue, season, weatherCategory string) (string, bool, error)
}

// Engine sequences parameter resolution, profile lookup, aggregation, scoring
// and categorisation for one request. It holds no per-request state.
type Engine struct {
	params        *ParamsResolver
	profiles      *ProfileLookup
	aggregator    *Aggregator
	basicAdvice   BasicAdviceReader
	personalBoost float64
	lowerP        float64
	upperP        float64
}

type Option func(*Engine)

func WithPersonalBoost(boost float64) Option {
	return func(e *Engine) {
		if boost > 0 {
			e.personalBoost = boost
		}
	}
}

// WithPercentiles sets the range percentiles; invalid pairs are ignored.
func WithPercentiles(lower, upper float64) Option {
	return func(e *Engine) {
		if lower >= 0 && upper <= 1 && lower <= upper {
			e.lowerP = lower
			e.upperP = upper
		}
	}
}

func WithBasicAdvice(r BasicAdviceReader) Option {
	return func(e *Engine) {
		e.basicAdvice = r
	}
}

func NewEngine(params ParamsReader, profiles ProfileReader, reports ReportReader, opts ...Option) *Engine {
	e := &Engine{
		params:        NewParamsResolver(params),
		profiles:      NewProfileLookup(profiles),
		aggregator:    NewAggregator(reports),
		personalBoost: DefaultPersonalBoost,
		lowerP:        DefaultLowerPercentile,
		upperP:        DefaultUpperPercentile,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Advise(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := e.advise(ctx, req)
	metrics.AdviceLatency.Observe(time.Since(start).Seconds())

	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidRequest):
		outcome = "invalid"
	case errors.Is(err, ErrReportsUnavailable):
		outcome = "unavailable"
	default:
		outcome = "error"
	}
	metrics.AdviceRequestsTotal.WithLabelValues(outcome).Inc()
	return resp, err
}

func (e *Engine) advise(ctx context.Context, req Request) (*Response, error) {
	venue := strings.TrimSpace(req.Venue)
	if venue == "" {
		return nil, fmt.Errorf("%w: venue is required", ErrInvalidRequest)
	}
	target, err := time.Parse(dateLayout, strings.TrimSpace(req.TargetDate))
	if err != nil {
		return nil, fmt.Errorf("%w: target_date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	log := logging.Ctx(ctx)

	var (
		params  models.PredictionParams
		profile *models.VenueProfile
		lookups errgroup.Group
	)
	lookups.Go(func() error {
		params = e.params.Resolve(ctx, venue, req.Target)
		return nil
	})
	lookups.Go(func() error {
		profile = e.profiles.Lookup(ctx, venue)
		return nil
	})
	lookups.Wait()

	agg, err := e.aggregator.Aggregate(ctx, AggregateRequest{
		Venue:   venue,
		Target:  target,
		UserID:  strings.TrimSpace(req.UserID),
		Params:  params,
		Profile: profile,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("advice for %s: %w", venue, err)
	}

	weigher := NewWeigher(target, params, e.personalBoost, req.WeatherOverride)

	var (
		prediction models.Prediction
		scoring    errgroup.Group
	)
	scoring.Go(func() error {
		prediction.RodAverage = PredictRodAverage(agg.Observations, weigher, e.lowerP, e.upperP)
		return nil
	})
	scoring.Go(func() error {
		prediction.Methods = Rank(agg.Observations, FieldMethods, weigher, params.TopN)
		return nil
	})
	scoring.Go(func() error {
		prediction.Flies = Rank(agg.Observations, FieldFlies, weigher, params.TopN)
		return nil
	})
	scoring.Go(func() error {
		prediction.Spots = Rank(agg.Observations, FieldSpots, weigher, params.TopN)
		return nil
	})
	scoring.Wait()

	conditions := Categorize(target, req.WeatherOverride)

	resp := &Response{
		Prediction:          prediction,
		Season:              conditions.Season,
		WeatherCategory:     conditions.WeatherCategory,
		ReportCount:         len(agg.Observations),
		PersonalReportCount: agg.PersonalCount,
		ParamsUsedSource:    params.Source,
		VenueProfile:        profile,
	}

	if e.basicAdvice != nil {
		text, ok, err := e.basicAdvice.GetBasicAdvice(ctx, venue, conditions.Season, conditions.WeatherCategory)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("venue", venue).Msg("basic advice lookup failed")
		case ok:
			resp.BasicAdvice = text
		}
	}

	log.Debug().
		Str("venue", venue).
		Str("target_date", req.TargetDate).
		Str("params_source", string(params.Source)).
		Int("reports", resp.ReportCount).
		Int("personal", resp.PersonalReportCount).
		Int("skipped", agg.Skipped).
		Float64("predicted", prediction.RodAverage.Predicted).
		Msg("advice computed")

	return resp, nil
}
