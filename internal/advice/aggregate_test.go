package advice

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/fishingadvice/internal/models"
)

func nullStr(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }
func nullF(f float64) sql.NullFloat64 { return sql.NullFloat64{Float64: f, Valid: true} }
func nullInt(i int64) sql.NullInt64   { return sql.NullInt64{Int64: i, Valid: true} }

// noWindow disables the seasonal filter so tests can use arbitrary dates.
func noWindow() models.PredictionParams {
	p := HardcodedParams()
	p.WeekWindow = 0
	return p
}

func TestAggregate_Normalizes(t *testing.T) {
	reader := &fakeReports{
		fishery: []models.FisheryReport{
			{ID: 1, Venue: "Grafham Water", ReportDate: "2024-05-01", RodAverage: nullF(3.5), Methods: nullStr(`["Floating line"]`)},
			{ID: 2, Venue: "Grafham Water", ReportDate: "2024-05-02", Methods: nullStr("null"), Flies: nullStr("")},
			{ID: 3, Venue: "Grafham Water", ReportDate: "2024-05-03", Flies: nullStr(`{"not":"a list"}`)},
			{ID: 4, Venue: "Grafham Water", ReportDate: "yesterday"},
			{ID: 5, Venue: "Grafham Water", ReportDate: "2024-05-05 07:30:00", RodAverage: nullF(-1)},
			{ID: 6, Venue: "Rutland Water", ReportDate: "2024-05-01"},
		},
		diary: []models.DiaryReport{
			{ID: 10, UserID: "u1", Venue: "Grafham Water", SessionDate: "2024-05-04", FishCaught: nullInt(6), Rods: nullInt(2), FliesUsed: nullStr(`["Blob"]`)},
			{ID: 11, UserID: "u1", Venue: "Grafham Water", SessionDate: "2024-05-06T09:00:00Z", FishCaught: nullInt(3)},
			{ID: 12, UserID: "u2", Venue: "Grafham Water", SessionDate: "2024-05-06"},
		},
	}

	agg, err := NewAggregator(reader).Aggregate(context.Background(), AggregateRequest{
		Venue:  "Grafham Water",
		Target: date("2024-05-10"),
		UserID: "u1",
		Params: noWindow(),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, agg.GeneralCount)
	assert.Equal(t, 2, agg.PersonalCount)
	assert.Equal(t, 3, agg.Skipped)
	require.Len(t, agg.Observations, 4)

	first := agg.Observations[0]
	assert.Equal(t, []string{"Floating line"}, first.Methods)
	assert.NotNil(t, first.Flies)
	assert.Empty(t, first.Flies)
	require.NotNil(t, first.CatchRate)
	assert.Equal(t, 3.5, *first.CatchRate)

	second := agg.Observations[1]
	assert.NotNil(t, second.Methods)
	assert.Empty(t, second.Methods)
	assert.Nil(t, second.CatchRate)

	diary := agg.Observations[2]
	assert.True(t, diary.IsPersonal)
	require.NotNil(t, diary.CatchRate)
	assert.Equal(t, 3.0, *diary.CatchRate)
	assert.Equal(t, []string{"Blob"}, diary.Flies)

	noRods := agg.Observations[3]
	require.NotNil(t, noRods.CatchRate)
	assert.Equal(t, 3.0, *noRods.CatchRate)
}

func TestAggregate_PersonalOnlyWithUser(t *testing.T) {
	reader := &fakeReports{
		diary: []models.DiaryReport{{UserID: "u1", Venue: "Grafham Water", SessionDate: "2024-05-04"}},
	}

	agg, err := NewAggregator(reader).Aggregate(context.Background(), AggregateRequest{
		Venue:  "Grafham Water",
		Target: date("2024-05-10"),
		Params: noWindow(),
	})
	require.NoError(t, err)
	assert.Zero(t, agg.PersonalCount)
	assert.Empty(t, agg.Observations)
	assert.NotNil(t, agg.Observations)
}

func TestAggregate_SeasonalWindow(t *testing.T) {
	reader := &fakeReports{
		fishery: []models.FisheryReport{
			{Venue: "Grafham Water", ReportDate: "2023-06-10"},
			{Venue: "Grafham Water", ReportDate: "2024-01-15"},
			{Venue: "Grafham Water", ReportDate: "2021-05-20"},
		},
	}
	params := HardcodedParams()
	params.WeekWindow = 2

	agg, err := NewAggregator(reader).Aggregate(context.Background(), AggregateRequest{
		Venue:  "Grafham Water",
		Target: date("2024-06-01"),
		Params: params,
	})
	require.NoError(t, err)
	require.Len(t, agg.Observations, 2)
	assert.Equal(t, date("2023-06-10"), agg.Observations[0].ObservedDate)
	assert.Equal(t, date("2021-05-20"), agg.Observations[1].ObservedDate)
}

func TestInSeasonalWindow_WrapsYearEnd(t *testing.T) {
	assert.True(t, inSeasonalWindow(date("2023-12-28"), date("2024-01-03"), 1))
	assert.False(t, inSeasonalWindow(date("2023-12-01"), date("2024-01-03"), 1))
	assert.True(t, inSeasonalWindow(date("2010-08-01"), date("2024-01-03"), 0))
}

func TestAggregate_CrossVenue(t *testing.T) {
	reader := &fakeReports{
		fishery:  []models.FisheryReport{{Venue: "Grafham Water", ReportDate: "2024-05-01"}},
		regional: []models.FisheryReport{{Venue: "Rutland Water", ReportDate: "2024-05-02", RodAverage: nullF(2)}},
	}
	params := noWindow()
	params.UseCrossVenue = true
	profile := &models.VenueProfile{Venue: "Grafham Water", Region: "Anglian"}

	agg, err := NewAggregator(reader).Aggregate(context.Background(), AggregateRequest{
		Venue:   "Grafham Water",
		Target:  date("2024-05-10"),
		Params:  params,
		Profile: profile,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, agg.GeneralCount)
	assert.Equal(t, 1, agg.CrossVenueCount)
	require.Len(t, agg.Observations, 2)
	assert.True(t, agg.Observations[1].IsCrossVenue)

	// Without a profile there is no region to blend from.
	agg, err = NewAggregator(reader).Aggregate(context.Background(), AggregateRequest{
		Venue:  "Grafham Water",
		Target: date("2024-05-10"),
		Params: params,
	})
	require.NoError(t, err)
	assert.Zero(t, agg.CrossVenueCount)
}

func TestAggregate_ReadFailuresAreFatal(t *testing.T) {
	crossParams := noWindow()
	crossParams.UseCrossVenue = true

	tests := []struct {
		name   string
		reader *fakeReports
		req    AggregateRequest
	}{
		{
			name:   "fishery",
			reader: &fakeReports{fisheryErr: errBoom},
			req:    AggregateRequest{Venue: "Grafham Water", Params: noWindow()},
		},
		{
			name:   "diary",
			reader: &fakeReports{diaryErr: errBoom},
			req:    AggregateRequest{Venue: "Grafham Water", UserID: "u1", Params: noWindow()},
		},
		{
			name:   "region",
			reader: &fakeReports{regionErr: errBoom},
			req: AggregateRequest{
				Venue:   "Grafham Water",
				Params:  crossParams,
				Profile: &models.VenueProfile{Region: "Anglian"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg, err := NewAggregator(tt.reader).Aggregate(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrReportsUnavailable)
			assert.Nil(t, agg)
		})
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2024-07-04T10:00:00Z ")
	require.NoError(t, err)
	assert.Equal(t, date("2024-07-04"), got)

	got, err = ParseDate("2024-07-04 10:00:00")
	require.NoError(t, err)
	assert.Equal(t, date("2024-07-04"), got)

	for _, bad := range []string{"04/07/2024", "2024-07-04garbage", "2024-07-041"} {
		_, err = ParseDate(bad)
		assert.Error(t, err, bad)
	}
}
