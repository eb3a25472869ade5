package advice

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/fishingadvice/internal/models"
)

func TestParamsResolver_Tiers(t *testing.T) {
	tuned := &models.PredictionParams{WeekWindow: 4, TopN: 5, YearDecay: 0.9, VenueWeight: 2}
	global := &models.PredictionParams{WeekWindow: 3, TopN: 8, YearDecay: 0.8, VenueWeight: 4}

	tests := []struct {
		name       string
		reader     ParamsReader
		venue      string
		wantSource models.ParamsSource
		wantDecay  float64
	}{
		{
			name:       "venue tuned wins",
			reader:     &fakeParams{rows: map[string]*models.PredictionParams{"Grafham Water/rod_average": tuned, GlobalDefaultVenue + "/rod_average": global}},
			venue:      "Grafham Water",
			wantSource: models.SourceTuned,
			wantDecay:  0.9,
		},
		{
			name:       "global default when venue missing",
			reader:     &fakeParams{rows: map[string]*models.PredictionParams{GlobalDefaultVenue + "/rod_average": global}},
			venue:      "Grafham Water",
			wantSource: models.SourceGlobalDefault,
			wantDecay:  0.8,
		},
		{
			name:       "unknown venue with no rows",
			reader:     &fakeParams{},
			venue:      "Unknown Lake",
			wantSource: models.SourceHardcoded,
			wantDecay:  0.7,
		},
		{
			name:       "read error is a miss",
			reader:     &fakeParams{err: errBoom},
			venue:      "Grafham Water",
			wantSource: models.SourceHardcoded,
			wantDecay:  0.7,
		},
		{
			name: "invalid year_decay is a miss",
			reader: &fakeParams{rows: map[string]*models.PredictionParams{
				"Grafham Water/rod_average":         {YearDecay: 1.5, TopN: 3},
				GlobalDefaultVenue + "/rod_average": global,
			}},
			venue:      "Grafham Water",
			wantSource: models.SourceGlobalDefault,
			wantDecay:  0.8,
		},
		{
			name:       "nil reader",
			reader:     nil,
			venue:      "Grafham Water",
			wantSource: models.SourceHardcoded,
			wantDecay:  0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewParamsResolver(tt.reader).Resolve(context.Background(), tt.venue, "")
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantDecay, got.YearDecay)
		})
	}
}

func TestParamsResolver_NormalizesRow(t *testing.T) {
	reader := &fakeParams{rows: map[string]*models.PredictionParams{
		"Grafham Water/rod_average": {YearDecay: 0.5},
	}}

	got := NewParamsResolver(reader).Resolve(context.Background(), "Grafham Water", TargetRodAverage)
	assert.Equal(t, models.SourceTuned, got.Source)
	assert.Equal(t, DefaultTopN, got.TopN)
	assert.Equal(t, 3.0, got.VenueWeight)
}

func TestParamsResolver_RejectsUnusableWeights(t *testing.T) {
	tests := []struct {
		name string
		row  models.PredictionParams
	}{
		{"negative temperature weight", models.PredictionParams{YearDecay: 0.5, WTemperature: -1}},
		{"nan humidity weight", models.PredictionParams{YearDecay: 0.5, WHumidity: math.NaN()}},
		{"infinite wind weight", models.PredictionParams{YearDecay: 0.5, WWindSpeed: math.Inf(1)}},
		{"infinite venue weight", models.PredictionParams{YearDecay: 0.5, VenueWeight: math.Inf(1)}},
		{"nan year decay", models.PredictionParams{YearDecay: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := tt.row
			global := models.PredictionParams{YearDecay: 0.9, TopN: 4, WTemperature: 0.5}
			reader := &fakeParams{rows: map[string]*models.PredictionParams{}}
			reader.rows["Grafham Water/rod_average"] = &row
			reader.rows[GlobalDefaultVenue+"/rod_average"] = &global

			got := NewParamsResolver(reader).Resolve(context.Background(), "Grafham Water", TargetRodAverage)
			assert.Equal(t, models.SourceGlobalDefault, got.Source)
			assert.Equal(t, 0.9, got.YearDecay)
		})
	}
}

func TestHardcodedParams(t *testing.T) {
	p := HardcodedParams()
	assert.Equal(t, models.PredictionParams{
		WeekWindow:     2,
		TopN:           10,
		YearDecay:      0.7,
		WTemperature:   1.0,
		WWindSpeed:     0.25,
		WPrecipitation: 1.0,
		WPressure:      0.0,
		WHumidity:      1.0,
		UseCrossVenue:  false,
		VenueWeight:    3.0,
		Source:         models.SourceHardcoded,
	}, p)
}

func TestProfileLookup_SwallowsErrors(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, NewProfileLookup(&fakeProfiles{err: errBoom}).Lookup(ctx, "Grafham Water"))
	assert.Nil(t, NewProfileLookup(&fakeProfiles{}).Lookup(ctx, "Grafham Water"))

	found := NewProfileLookup(&fakeProfiles{profiles: map[string]*models.VenueProfile{
		"Grafham Water": {Venue: "Grafham Water", Region: "Anglian"},
	}}).Lookup(ctx, "Grafham Water")
	if assert.NotNil(t, found) {
		assert.Equal(t, "Anglian", found.Region)
	}
}
