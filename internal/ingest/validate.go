package ingest

import (
	"math"
	"time"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagPrecipNegative     = "precip_negative"
)

// Covariates are the weather readings attached to a report. Values failing a
// plausibility check are cleared and flagged rather than rejecting the report.
type Covariates struct {
	Temp      *float64
	WindSpeed *float64
	Precip    *float64
	Pressure  *float64
	Humidity  *float64
}

func ValidateCovariates(c *Covariates) []string {
	var flags []string
	check := func(v **float64, bad func(float64) bool, flag string) {
		if *v == nil {
			return
		}
		if f := **v; math.IsNaN(f) || math.IsInf(f, 0) || bad(f) {
			*v = nil
			flags = append(flags, flag)
		}
	}

	check(&c.Temp, func(f float64) bool { return f < -30 || f > 50 }, FlagTempOutOfRange)
	check(&c.Humidity, func(f float64) bool { return f < 0 || f > 100 }, FlagHumidityInvalid)
	check(&c.WindSpeed, func(f float64) bool { return f < 0 || f > 150 }, FlagWindSpeedUnlikely)
	check(&c.Pressure, func(f float64) bool { return f < 900 || f > 1100 }, FlagPressureOutOfRange)
	check(&c.Precip, func(f float64) bool { return f < 0 }, FlagPrecipNegative)
	return flags
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
