package models

import (
	"database/sql"
	"time"
)

// FisheryReport is a fishery-wide catch report row as stored.
type FisheryReport struct {
	ID         int64
	Venue      string
	ReportDate string // YYYY-MM-DD, kept raw so malformed rows can be skipped downstream
	RodAverage sql.NullFloat64
	Methods    sql.NullString // JSON array
	Flies      sql.NullString // JSON array
	Spots      sql.NullString // JSON array
	Temp       sql.NullFloat64
	WindSpeed  sql.NullFloat64 // mph
	Precip     sql.NullFloat64 // mm
	Pressure   sql.NullFloat64
	Humidity   sql.NullFloat64
	CreatedAt  time.Time
}

// DiaryReport is one personal diary session summarised for the advice engine.
type DiaryReport struct {
	ID          int64
	UserID      string
	Venue       string
	SessionDate string
	FishCaught  sql.NullInt64
	Rods        sql.NullInt64
	MethodsUsed sql.NullString // JSON array
	FliesUsed   sql.NullString // JSON array
	SpotsFished sql.NullString // JSON array
	AirTemp     sql.NullFloat64
	WindMPH     sql.NullFloat64
	RainMM      sql.NullFloat64
	Pressure    sql.NullFloat64
	Humidity    sql.NullFloat64
	CreatedAt   time.Time
}

type WeatherCovariates struct {
	Temp          *float64 `json:"temp,omitempty"`
	WindSpeed     *float64 `json:"wind_speed,omitempty"`
	Precipitation *float64 `json:"precipitation,omitempty"`
	Pressure      *float64 `json:"pressure,omitempty"`
	Humidity      *float64 `json:"humidity,omitempty"`
}

// Observation is the normalized unit the advice engine reasons about.
type Observation struct {
	Venue        string
	ObservedDate time.Time
	IsPersonal   bool
	IsCrossVenue bool
	CatchRate    *float64
	Methods      []string
	Flies        []string
	Spots        []string
	Weather      WeatherCovariates
}

// WeatherReading is an ambient weather reading supplied by the caller.
type WeatherReading struct {
	Temp         *float64 `json:"temp,omitempty"`
	WindSpeedMPH *float64 `json:"wind_speed_mph,omitempty" validate:"omitempty,gte=0"`
	PrecipMM     *float64 `json:"precip_mm,omitempty" validate:"omitempty,gte=0"`
	Pressure     *float64 `json:"pressure,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty" validate:"omitempty,gte=0,lte=100"`
	WindDir      *string  `json:"wind_dir,omitempty"`
}

type ParamsSource string

const (
	SourceTuned         ParamsSource = "tuned"
	SourceGlobalDefault ParamsSource = "global_default"
	SourceHardcoded     ParamsSource = "hardcoded_fallback"
)

type PredictionParams struct {
	WeekWindow     int          `json:"week_window"`
	TopN           int          `json:"top_n"`
	YearDecay      float64      `json:"year_decay"`
	WTemperature   float64      `json:"w_temperature"`
	WWindSpeed     float64      `json:"w_wind_speed"`
	WPrecipitation float64      `json:"w_precipitation"`
	WPressure      float64      `json:"w_pressure"`
	WHumidity      float64      `json:"w_humidity"`
	UseCrossVenue  bool         `json:"use_cross_venue"`
	VenueWeight    float64      `json:"venue_weight"`
	Source         ParamsSource `json:"source"`
}

type VenueProfile struct {
	Venue           string      `json:"venue"`
	Region          string      `json:"region"`
	ReportCount     int         `json:"report_count"`
	RodAvgMean      float64     `json:"rod_avg_mean"`
	RodAvgStd       float64     `json:"rod_avg_std"`
	RodMAE          float64     `json:"rod_mae"`
	RodMAECI        *[2]float64 `json:"rod_mae_ci"`
	CharacterNotes  string      `json:"character_notes"`
	CrossVenueRule  string      `json:"cross_venue_rule"`
	DataQualityFlag string      `json:"data_quality_flag"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type RankedItem struct {
	Name      string  `json:"name"`
	Frequency int     `json:"frequency"`
	Score     float64 `json:"score"`
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

type RodAverage struct {
	Predicted  float64    `json:"predicted"`
	Range      [2]float64 `json:"range"`
	Confidence Confidence `json:"confidence"`
}

type Prediction struct {
	RodAverage RodAverage   `json:"rod_average"`
	Methods    []RankedItem `json:"methods"`
	Flies      []RankedItem `json:"flies"`
	Spots      []RankedItem `json:"spots"`
}
