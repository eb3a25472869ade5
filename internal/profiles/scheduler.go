package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/lox/fishingadvice/internal/logging"
)

// DefaultSchedule rebuilds profiles nightly at 03:00.
const DefaultSchedule = "0 3 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type Scheduler struct {
	builder  *Builder
	spec     string
	schedule cron.Schedule
	loc      *time.Location
}

func NewScheduler(builder *Builder, spec string, loc *time.Location) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse profile schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{builder: builder, spec: spec, schedule: schedule, loc: loc}, nil
}

// Next reports when the rebuild will next fire after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Run blocks until ctx is cancelled, rebuilding profiles on schedule.
// Overlapping runs are skipped.
func (s *Scheduler) Run(ctx context.Context) {
	logger := cronLogger{l: logging.Logger()}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithParser(parser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if _, err := s.builder.Rebuild(ctx, "schedule"); err != nil {
			logging.Error().Err(err).Msg("profiles: scheduled rebuild failed")
		}
	}))

	logging.Info().Str("schedule", s.spec).Time("next", s.Next(time.Now())).Msg("profiles: scheduler started")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	logging.Info().Msg("profiles: scheduler stopped")
}

// cronLogger routes cron's logging through zerolog.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
