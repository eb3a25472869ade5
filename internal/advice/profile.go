package advice

import (
	"context"

	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/models"
)

type ProfileReader interface {
	GetVenueProfile(ctx context.Context, venue string) (*models.VenueProfile, error)
}

// ProfileLookup is best-effort: errors are logged and reported as "no profile".
type ProfileLookup struct {
	reader ProfileReader
}

func NewProfileLookup(reader ProfileReader) *ProfileLookup {
	return &ProfileLookup{reader: reader}
}

func (l *ProfileLookup) Lookup(ctx context.Context, venue string) *models.VenueProfile {
	if l.reader == nil {
		return nil
	}
	p, err := l.reader.GetVenueProfile(ctx, venue)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("venue", venue).Msg("venue profile lookup failed")
		return nil
	}
	return p
}
