package advice

import (
	"math"
	"time"

	"github.com/lox/fishingadvice/internal/models"
)

const (
	// DefaultPersonalBoost is the multiplier applied to the caller's own reports.
	DefaultPersonalBoost = 1.5

	daysPerYear = 365.0
)

// Weight is the recency/personal weighting shared by ranking and prediction.
// decay = yearDecay^(days/365), multiplied by personalBoost for personal reports.
func Weight(observed, target time.Time, isPersonal bool, yearDecay, personalBoost float64) float64 {
	days := math.Abs(float64(daysBetween(observed, target)))
	w := math.Pow(yearDecay, days/daysPerYear)
	if isPersonal {
		w *= personalBoost
	}
	return w
}

// daysBetween counts calendar days from a to b, ignoring time of day and zone.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad).Hours() / 24)
}

// similarity scales for weather covariates: temp °C, wind mph, precip mm, pressure hPa, humidity %.
const (
	scaleTemp     = 5.0
	scaleWind     = 10.0
	scalePrecip   = 5.0
	scalePressure = 10.0
	scaleHumidity = 20.0
)

// Weigher binds the request context so every observation is weighted identically
// by the ranking scorer and the rod-average predictor.
type Weigher struct {
	target        time.Time
	params        models.PredictionParams
	personalBoost float64
	weather       *models.WeatherReading
}

func NewWeigher(target time.Time, params models.PredictionParams, personalBoost float64, weather *models.WeatherReading) *Weigher {
	return &Weigher{
		target:        target,
		params:        params,
		personalBoost: personalBoost,
		weather:       weather,
	}
}

func (w *Weigher) Of(obs models.Observation) float64 {
	weight := Weight(obs.ObservedDate, w.target, obs.IsPersonal, w.params.YearDecay, w.personalBoost)
	if obs.IsCrossVenue && w.params.VenueWeight > 0 {
		weight /= w.params.VenueWeight
	}
	return weight * w.similarity(obs.Weather)
}

// similarity is 1/(1+Σ w_k·|Δ_k|/scale_k) over covariates present on both sides.
func (w *Weigher) similarity(c models.WeatherCovariates) float64 {
	if w.weather == nil {
		return 1
	}
	var distance float64
	add := func(coef float64, want, got *float64, scale float64) {
		if coef == 0 || want == nil || got == nil {
			return
		}
		distance += coef * math.Abs(*want-*got) / scale
	}
	add(w.params.WTemperature, w.weather.Temp, c.Temp, scaleTemp)
	add(w.params.WWindSpeed, w.weather.WindSpeedMPH, c.WindSpeed, scaleWind)
	add(w.params.WPrecipitation, w.weather.PrecipMM, c.Precipitation, scalePrecip)
	add(w.params.WPressure, w.weather.Pressure, c.Pressure, scalePressure)
	add(w.params.WHumidity, w.weather.Humidity, c.Humidity, scaleHumidity)
	if !(distance > 0) {
		return 1
	}
	return 1 / (1 + distance)
}
