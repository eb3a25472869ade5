package advice

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/lox/fishingadvice/internal/models"
	"github.com/lox/fishingadvice/internal/store"
)

func setupEngineStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newStoreEngine(st *store.Store) *Engine {
	return NewEngine(st, st, st, WithBasicAdvice(st))
}

func TestEngine_RecencyAndPersonalScenario(t *testing.T) {
	st := setupEngineStore(t)
	ctx := context.Background()

	_, err := st.InsertFisheryReport(ctx, models.FisheryReport{
		Venue:      "Grafham Water",
		ReportDate: date("2024-07-04").AddDate(0, 0, -365).Format(dateLayout),
		RodAverage: nullF(10),
		Methods:    nullStr(`["Floating line"]`),
	})
	require.NoError(t, err)
	_, err = st.InsertDiaryReport(ctx, models.DiaryReport{
		UserID:      "u1",
		Venue:       "Grafham Water",
		SessionDate: "2024-07-04",
		FishCaught:  nullInt(4),
		MethodsUsed: nullStr(`["Washing line"]`),
	})
	require.NoError(t, err)

	resp, err := newStoreEngine(st).Advise(ctx, Request{Venue: "Grafham Water", TargetDate: "2024-07-04", UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, 5.9, resp.Prediction.RodAverage.Predicted)
	assert.Equal(t, [2]float64{4, 10}, resp.Prediction.RodAverage.Range)
	assert.Equal(t, models.ConfidenceLow, resp.Prediction.RodAverage.Confidence)
	assert.Equal(t, 2, resp.ReportCount)
	assert.Equal(t, 1, resp.PersonalReportCount)
	assert.Equal(t, models.SourceHardcoded, resp.ParamsUsedSource)
	assert.Equal(t, SeasonSummer, resp.Season)
	assert.Equal(t, DefaultWeatherCategory, resp.WeatherCategory)

	require.Len(t, resp.Prediction.Methods, 2)
	assert.Equal(t, "Washing line", resp.Prediction.Methods[0].Name)
	assert.NotNil(t, resp.Prediction.Flies)
	assert.Empty(t, resp.Prediction.Flies)
}

func TestEngine_UnknownVenueUsesHardcodedParams(t *testing.T) {
	st := setupEngineStore(t)

	resp, err := newStoreEngine(st).Advise(context.Background(), Request{Venue: "Unknown Lake", TargetDate: "2024-07-04"})
	require.NoError(t, err)

	assert.Equal(t, models.SourceHardcoded, resp.ParamsUsedSource)
	assert.Equal(t, models.RodAverage{Confidence: models.ConfidenceLow}, resp.Prediction.RodAverage)
	assert.Zero(t, resp.ReportCount)
	assert.Nil(t, resp.VenueProfile)
	assert.Empty(t, resp.BasicAdvice)
}

func TestEngine_TunedParamsProfileAndAdvice(t *testing.T) {
	st := setupEngineStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertPredictionParams(ctx, "Grafham Water", TargetRodAverage, models.PredictionParams{
		WeekWindow: 0, TopN: 1, YearDecay: 0.9, VenueWeight: 3,
	}))
	require.NoError(t, st.UpsertVenueProfile(ctx, models.VenueProfile{Venue: "Grafham Water", Region: "Anglian", ReportCount: 2}))
	require.NoError(t, st.UpsertBasicAdvice(ctx, "Grafham Water", SeasonWinter, "cold_strong_wet", "Fish deep and slow."))

	for _, d := range []string{"2023-03-01", "2024-01-10"} {
		_, err := st.InsertFisheryReport(ctx, models.FisheryReport{
			Venue:      "Grafham Water",
			ReportDate: d,
			RodAverage: nullF(2),
			Flies:      nullStr(`["Blob","Booby"]`),
		})
		require.NoError(t, err)
	}

	resp, err := newStoreEngine(st).Advise(ctx, Request{
		Venue:           "Grafham Water",
		TargetDate:      "2024-01-20",
		WeatherOverride: &models.WeatherReading{Temp: f64(5), WindSpeedMPH: f64(25), PrecipMM: f64(3)},
	})
	require.NoError(t, err)

	assert.Equal(t, models.SourceTuned, resp.ParamsUsedSource)
	assert.Equal(t, "cold_strong_wet", resp.WeatherCategory)
	assert.Equal(t, SeasonWinter, resp.Season)
	assert.Equal(t, "Fish deep and slow.", resp.BasicAdvice)
	require.NotNil(t, resp.VenueProfile)
	assert.Equal(t, "Anglian", resp.VenueProfile.Region)
	assert.Equal(t, 2, resp.ReportCount)
	assert.Len(t, resp.Prediction.Flies, 1, "top_n from tuned params")
	assert.Equal(t, 2.0, resp.Prediction.RodAverage.Predicted)
}

func TestEngine_ReportsUnavailable(t *testing.T) {
	engine := NewEngine(&fakeParams{}, &fakeProfiles{}, &fakeReports{fisheryErr: errBoom})

	resp, err := engine.Advise(context.Background(), Request{Venue: "Grafham Water", TargetDate: "2024-07-04"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReportsUnavailable)
	assert.Nil(t, resp)
}

func TestEngine_SwallowsParamsAndProfileErrors(t *testing.T) {
	engine := NewEngine(&fakeParams{err: errBoom}, &fakeProfiles{err: errBoom}, &fakeReports{})

	resp, err := engine.Advise(context.Background(), Request{Venue: "Grafham Water", TargetDate: "2024-07-04"})
	require.NoError(t, err)
	assert.Equal(t, models.SourceHardcoded, resp.ParamsUsedSource)
	assert.Nil(t, resp.VenueProfile)
}

func TestEngine_InvalidRequest(t *testing.T) {
	engine := NewEngine(&fakeParams{}, &fakeProfiles{}, &fakeReports{})

	tests := []struct {
		name string
		req  Request
	}{
		{"blank venue", Request{Venue: "  ", TargetDate: "2024-07-04"}},
		{"bad date", Request{Venue: "Grafham Water", TargetDate: "July 4th"}},
		{"missing date", Request{Venue: "Grafham Water"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Advise(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestEngine_Idempotent(t *testing.T) {
	st := setupEngineStore(t)
	ctx := context.Background()

	for i, d := range []string{"2024-06-01", "2024-06-03", "2023-06-02", "2022-06-05"} {
		_, err := st.InsertFisheryReport(ctx, models.FisheryReport{
			Venue:      "Grafham Water",
			ReportDate: d,
			RodAverage: nullF(float64(i) + 1.3),
			Methods:    nullStr(`["Floating line","Intermediate","Washing line"]`),
			Spots:      nullStr(`["Dam wall","Valley creek"]`),
		})
		require.NoError(t, err)
	}

	engine := newStoreEngine(st)
	req := Request{Venue: "Grafham Water", TargetDate: "2024-06-10"}

	first, err := engine.Advise(ctx, req)
	require.NoError(t, err)
	for range 5 {
		again, err := engine.Advise(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEngine_Options(t *testing.T) {
	e := NewEngine(nil, nil, &fakeReports{}, WithPersonalBoost(2), WithPercentiles(0.25, 0.75))
	assert.Equal(t, 2.0, e.personalBoost)
	assert.Equal(t, 0.25, e.lowerP)
	assert.Equal(t, 0.75, e.upperP)

	e = NewEngine(nil, nil, &fakeReports{}, WithPersonalBoost(-1), WithPercentiles(0.9, 0.1))
	assert.Equal(t, DefaultPersonalBoost, e.personalBoost)
	assert.Equal(t, DefaultLowerPercentile, e.lowerP)
}
