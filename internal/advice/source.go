package advice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/metrics"
	"github.com/lox/fishingadvice/internal/models"
)

type SourceConfig struct {
	// RetryMaxElapsed bounds retries of a single read. Zero uses the default.
	RetryMaxElapsed time.Duration
	// BreakerFailures is the consecutive failure count that opens the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		RetryMaxElapsed: 2 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// ResilientReports wraps a ReportReader with retry and a circuit breaker so a
// struggling data source fails fast instead of stalling every request.
type ResilientReports struct {
	next       ReportReader
	cb         *gobreaker.CircuitBreaker[any]
	maxElapsed time.Duration
}

func NewResilientReports(next ReportReader, cfg SourceConfig) *ResilientReports {
	def := DefaultSourceConfig()
	if cfg.RetryMaxElapsed <= 0 {
		cfg.RetryMaxElapsed = def.RetryMaxElapsed
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "report-source",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		// A caller giving up says nothing about the health of the source.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
		},
	})

	return &ResilientReports{next: next, cb: cb, maxElapsed: cfg.RetryMaxElapsed}
}

func (r *ResilientReports) GetFisheryReports(ctx context.Context, venue string) ([]models.FisheryReport, error) {
	return call(ctx, r, "fishery", func(ctx context.Context) ([]models.FisheryReport, error) {
		return r.next.GetFisheryReports(ctx, venue)
	})
}

func (r *ResilientReports) GetDiaryReports(ctx context.Context, userID, venue string) ([]models.DiaryReport, error) {
	return call(ctx, r, "diary", func(ctx context.Context) ([]models.DiaryReport, error) {
		return r.next.GetDiaryReports(ctx, userID, venue)
	})
}

func (r *ResilientReports) GetRegionFisheryReports(ctx context.Context, region, excludeVenue string) ([]models.FisheryReport, error) {
	return call(ctx, r, "region", func(ctx context.Context) ([]models.FisheryReport, error) {
		return r.next.GetRegionFisheryReports(ctx, region, excludeVenue)
	})
}

func call[T any](ctx context.Context, r *ResilientReports, kind string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	defer func() {
		metrics.ReportSourceLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	var out T
	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		res, err := r.cb.Execute(func() (any, error) {
			return fn(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		typed, ok := res.(T)
		if !ok {
			return backoff.Permanent(fmt.Errorf("report source: unexpected result type %T", res))
		}
		out = typed
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = r.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.ReportSourceCallsTotal.WithLabelValues(kind, "error").Inc()
		var zero T
		return zero, err
	}
	metrics.ReportSourceCallsTotal.WithLabelValues(kind, "ok").Inc()
	return out, nil
}
