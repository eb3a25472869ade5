package advice

import (
	"context"
	"errors"
	"sync"

	"github.com/lox/fishingadvice/internal/models"
)

var errBoom = errors.New("boom")

type fakeParams struct {
	rows map[string]*models.PredictionParams
	err  error
}

func (f *fakeParams) GetPredictionParams(_ context.Context, venue, target string) (*models.PredictionParams, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.rows[venue+"/"+target]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

type fakeProfiles struct {
	profiles map[string]*models.VenueProfile
	err      error
}

func (f *fakeProfiles) GetVenueProfile(_ context.Context, venue string) (*models.VenueProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[venue], nil
}

type fakeReports struct {
	mu       sync.Mutex
	fishery  []models.FisheryReport
	diary    []models.DiaryReport
	regional []models.FisheryReport

	fisheryErr error
	diaryErr   error
	regionErr  error

	// failures is decremented on each fishery read; reads fail while it is positive.
	failures int
	calls    int
}

func (f *fakeReports) GetFisheryReports(_ context.Context, venue string) ([]models.FisheryReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, errBoom
	}
	if f.fisheryErr != nil {
		return nil, f.fisheryErr
	}
	var out []models.FisheryReport
	for _, r := range f.fishery {
		if r.Venue == venue {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) GetDiaryReports(_ context.Context, userID, venue string) ([]models.DiaryReport, error) {
	if f.diaryErr != nil {
		return nil, f.diaryErr
	}
	var out []models.DiaryReport
	for _, r := range f.diary {
		if r.UserID == userID && r.Venue == venue {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) GetRegionFisheryReports(_ context.Context, _, excludeVenue string) ([]models.FisheryReport, error) {
	if f.regionErr != nil {
		return nil, f.regionErr
	}
	var out []models.FisheryReport
	for _, r := range f.regional {
		if r.Venue != excludeVenue {
			out = append(out, r)
		}
	}
	return out, nil
}
