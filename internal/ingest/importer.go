// Package ingest loads fishery and diary reports from JSON Lines files.
package ingest

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/models"
)

type Kind string

const (
	KindFishery Kind = "fishery"
	KindDiary   Kind = "diary"
)

type Store interface {
	InsertFisheryReport(ctx context.Context, r models.FisheryReport) (int64, error)
	InsertDiaryReport(ctx context.Context, r models.DiaryReport) (int64, error)
}

type FisheryRecord struct {
	Venue      string   `json:"venue"`
	ReportDate string   `json:"report_date"`
	RodAverage *float64 `json:"rod_average"`
	Methods    []string `json:"methods"`
	Flies      []string `json:"flies"`
	Spots      []string `json:"spots"`
	Temp       *float64 `json:"temp"`
	WindSpeed  *float64 `json:"wind_speed"`
	Precip     *float64 `json:"precip"`
	Pressure   *float64 `json:"pressure"`
	Humidity   *float64 `json:"humidity"`
}

type DiaryRecord struct {
	UserID      string   `json:"user_id"`
	Venue       string   `json:"venue"`
	SessionDate string   `json:"session_date"`
	FishCaught  *int64   `json:"fish_caught"`
	Rods        *int64   `json:"rods"`
	MethodsUsed []string `json:"methods_used"`
	FliesUsed   []string `json:"flies_used"`
	SpotsFished []string `json:"spots_fished"`
	AirTemp     *float64 `json:"air_temp"`
	WindMPH     *float64 `json:"wind_mph"`
	RainMM      *float64 `json:"rain_mm"`
	Pressure    *float64 `json:"pressure"`
	Humidity    *float64 `json:"humidity"`
}

type Result struct {
	Lines    int
	Inserted int
	Rejected int
	// Flagged counts inserted rows that had a covariate cleared by QC.
	Flagged int
}

type Importer struct {
	store Store
}

func NewImporter(s Store) *Importer {
	return &Importer{store: s}
}

// Import reads one JSON object per line. Lines that fail to parse or validate
// are rejected and counted; a store error aborts the import.
func (im *Importer) Import(ctx context.Context, kind Kind, r io.Reader) (*Result, error) {
	if kind != KindFishery && kind != KindDiary {
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}
	log := logging.Ctx(ctx)
	result := &Result{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		result.Lines++

		var (
			flags []string
			err   error
		)
		switch kind {
		case KindFishery:
			flags, err = im.importFishery(ctx, []byte(line))
		case KindDiary:
			flags, err = im.importDiary(ctx, []byte(line))
		}

		var rejected *rejectError
		switch {
		case errors.As(err, &rejected):
			result.Rejected++
			log.Warn().Int("line", result.Lines).Str("reason", rejected.reason).Msg("ingest: rejected record")
		case err != nil:
			return result, fmt.Errorf("line %d: %w", result.Lines, err)
		default:
			result.Inserted++
			if len(flags) > 0 {
				result.Flagged++
				log.Debug().Int("line", result.Lines).Strs("flags", flags).Msg("ingest: cleared implausible covariates")
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("read input: %w", err)
	}
	return result, nil
}

type rejectError struct {
	reason string
}

func (e *rejectError) Error() string { return e.reason }

func reject(format string, args ...any) error {
	return &rejectError{reason: fmt.Sprintf(format, args...)}
}

func (im *Importer) importFishery(ctx context.Context, line []byte) ([]string, error) {
	var rec FisheryRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, reject("malformed JSON: %v", err)
	}
	rec.Venue = strings.TrimSpace(rec.Venue)
	if rec.Venue == "" {
		return nil, reject("missing venue")
	}
	if !validDate(rec.ReportDate) {
		return nil, reject("invalid report_date %q", rec.ReportDate)
	}
	if rec.RodAverage != nil && (*rec.RodAverage < 0 || math.IsNaN(*rec.RodAverage) || math.IsInf(*rec.RodAverage, 0)) {
		return nil, reject("invalid rod_average %v", *rec.RodAverage)
	}

	cov := Covariates{Temp: rec.Temp, WindSpeed: rec.WindSpeed, Precip: rec.Precip, Pressure: rec.Pressure, Humidity: rec.Humidity}
	flags := ValidateCovariates(&cov)

	methods, err := listColumn(rec.Methods)
	if err != nil {
		return nil, err
	}
	flies, err := listColumn(rec.Flies)
	if err != nil {
		return nil, err
	}
	spots, err := listColumn(rec.Spots)
	if err != nil {
		return nil, err
	}

	_, err = im.store.InsertFisheryReport(ctx, models.FisheryReport{
		Venue:      rec.Venue,
		ReportDate: rec.ReportDate,
		RodAverage: nullFloat(rec.RodAverage),
		Methods:    methods,
		Flies:      flies,
		Spots:      spots,
		Temp:       nullFloat(cov.Temp),
		WindSpeed:  nullFloat(cov.WindSpeed),
		Precip:     nullFloat(cov.Precip),
		Pressure:   nullFloat(cov.Pressure),
		Humidity:   nullFloat(cov.Humidity),
	})
	return flags, err
}

func (im *Importer) importDiary(ctx context.Context, line []byte) ([]string, error) {
	var rec DiaryRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, reject("malformed JSON: %v", err)
	}
	rec.UserID = strings.TrimSpace(rec.UserID)
	rec.Venue = strings.TrimSpace(rec.Venue)
	if rec.UserID == "" || rec.Venue == "" {
		return nil, reject("missing user_id or venue")
	}
	if !validDate(rec.SessionDate) {
		return nil, reject("invalid session_date %q", rec.SessionDate)
	}
	if rec.FishCaught != nil && *rec.FishCaught < 0 {
		return nil, reject("negative fish_caught")
	}
	if rec.Rods != nil && *rec.Rods <= 0 {
		return nil, reject("rods must be positive")
	}

	cov := Covariates{Temp: rec.AirTemp, WindSpeed: rec.WindMPH, Precip: rec.RainMM, Pressure: rec.Pressure, Humidity: rec.Humidity}
	flags := ValidateCovariates(&cov)

	methods, err := listColumn(rec.MethodsUsed)
	if err != nil {
		return nil, err
	}
	flies, err := listColumn(rec.FliesUsed)
	if err != nil {
		return nil, err
	}
	spots, err := listColumn(rec.SpotsFished)
	if err != nil {
		return nil, err
	}

	_, err = im.store.InsertDiaryReport(ctx, models.DiaryReport{
		UserID:      rec.UserID,
		Venue:       rec.Venue,
		SessionDate: rec.SessionDate,
		FishCaught:  nullInt(rec.FishCaught),
		Rods:        nullInt(rec.Rods),
		MethodsUsed: methods,
		FliesUsed:   flies,
		SpotsFished: spots,
		AirTemp:     nullFloat(cov.Temp),
		WindMPH:     nullFloat(cov.WindSpeed),
		RainMM:      nullFloat(cov.Precip),
		Pressure:    nullFloat(cov.Pressure),
		Humidity:    nullFloat(cov.Humidity),
	})
	return flags, err
}

// listColumn encodes a list as the JSON array column format; nil stays NULL.
func listColumn(items []string) (sql.NullString, error) {
	if items == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
