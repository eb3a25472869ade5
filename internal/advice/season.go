package advice

import (
	"time"

	"github.com/lox/fishingadvice/internal/models"
)

const (
	SeasonSpring = "spring"
	SeasonSummer = "summer"
	SeasonAutumn = "autumn"
	SeasonWinter = "winter"
)

// DefaultWeatherCategory is used when no weather reading is available.
const DefaultWeatherCategory = "mild_calm_dry"

type Conditions struct {
	Season          string `json:"season"`
	WeatherCategory string `json:"weather_category"`
}

// Season buckets a date by calendar month, Northern-hemisphere convention.
func Season(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}

// WeatherCategory joins temperature, wind and precipitation buckets, e.g. "mild_calm_dry".
// Missing components fall back to their neutral bucket.
func WeatherCategory(w *models.WeatherReading) string {
	if w == nil {
		return DefaultWeatherCategory
	}
	return tempBucket(w.Temp) + "_" + windBucket(w.WindSpeedMPH) + "_" + precipBucket(w.PrecipMM)
}

func tempBucket(temp *float64) string {
	switch {
	case temp == nil:
		return "mild"
	case *temp < 8:
		return "cold"
	case *temp > 16:
		return "warm"
	default:
		return "mild"
	}
}

func windBucket(mph *float64) string {
	switch {
	case mph == nil:
		return "calm"
	case *mph < 10:
		return "calm"
	case *mph > 20:
		return "strong"
	default:
		return "moderate"
	}
}

func precipBucket(mm *float64) string {
	if mm != nil && *mm > 2 {
		return "wet"
	}
	return "dry"
}

func Categorize(target time.Time, w *models.WeatherReading) Conditions {
	return Conditions{
		Season:          Season(target),
		WeatherCategory: WeatherCategory(w),
	}
}
