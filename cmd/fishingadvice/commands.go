package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/lox/fishingadvice/internal/advice"
	"github.com/lox/fishingadvice/internal/api"
	"github.com/lox/fishingadvice/internal/ingest"
	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/models"
	"github.com/lox/fishingadvice/internal/profiles"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx context.Context, app *App) error {
	if err := app.Store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	version, err := app.Store.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("database at migration version %d\n", version)
	return nil
}

type ServeCmd struct {
	NoSchedule bool `help:"Disable the scheduled profile rebuild."`
}

func (c *ServeCmd) Run(ctx context.Context, app *App) error {
	cfg := app.Config
	server := api.NewServer(app.Store, app.Engine(), api.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RequestTimeout:  cfg.Server.RequestTimeout,
	})

	var scheduler *profiles.Scheduler
	if c.NoSchedule {
		logging.Info().Msg("profile schedule disabled (--no-schedule)")
	} else {
		var err error
		scheduler, err = profiles.NewScheduler(profiles.NewBuilder(app.Store), cfg.Profiles.Schedule, cfg.Location())
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if scheduler != nil {
		g.Go(func() error {
			scheduler.Run(gctx)
			return nil
		})
	}

	return g.Wait()
}

type PredictCmd struct {
	Venue  string   `required:"" help:"Venue name."`
	Date   string   `required:"" help:"Target date (YYYY-MM-DD)."`
	User   string   `help:"Include this user's diary reports."`
	Temp   *float64 `help:"Air temperature in °C."`
	Wind   *float64 `help:"Wind speed in mph."`
	Precip *float64 `help:"Precipitation in mm."`
	JSON   bool     `name:"json" help:"Print the raw JSON response."`
}

func (c *PredictCmd) Run(ctx context.Context, app *App) error {
	req := advice.Request{Venue: c.Venue, TargetDate: c.Date, UserID: c.User}
	if c.Temp != nil || c.Wind != nil || c.Precip != nil {
		req.WeatherOverride = &models.WeatherReading{Temp: c.Temp, WindSpeedMPH: c.Wind, PrecipMM: c.Precip}
	}

	resp, err := app.Engine().Advise(ctx, req)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	rod := resp.Prediction.RodAverage
	fmt.Printf("%s on %s (%s, %s)\n", c.Venue, c.Date, resp.Season, resp.WeatherCategory)
	fmt.Printf("  rod average: %.1f  range %.1f-%.1f  confidence %s\n", rod.Predicted, rod.Range[0], rod.Range[1], rod.Confidence)
	fmt.Printf("  based on %s reports (%s personal), params: %s\n",
		humanize.Comma(int64(resp.ReportCount)), humanize.Comma(int64(resp.PersonalReportCount)), resp.ParamsUsedSource)
	printRanked("methods", resp.Prediction.Methods)
	printRanked("flies", resp.Prediction.Flies)
	printRanked("spots", resp.Prediction.Spots)
	if resp.BasicAdvice != "" {
		fmt.Printf("  advice: %s\n", resp.BasicAdvice)
	}
	return nil
}

func printRanked(label string, items []models.RankedItem) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("  %s:\n", label)
	for i, item := range items {
		fmt.Printf("    %d. %s (%s mentions, score %.2f)\n", i+1, item.Name, humanize.Comma(int64(item.Frequency)), item.Score)
	}
}

type ProfilesCmd struct {
	Rebuild ProfilesRebuildCmd `cmd:"" help:"Recompute every venue profile from fishery reports."`
	List    ProfilesListCmd    `cmd:"" help:"List stored venue profiles."`
}

type ProfilesRebuildCmd struct{}

func (c *ProfilesRebuildCmd) Run(ctx context.Context, app *App) error {
	start := time.Now()
	result, err := profiles.NewBuilder(app.Store).Rebuild(ctx, "cli")
	if result != nil {
		fmt.Printf("rebuilt %s of %s venue profiles in %s\n",
			humanize.Comma(int64(result.ProfilesWritten)), humanize.Comma(int64(result.VenuesSeen)), time.Since(start).Round(time.Millisecond))
	}
	return err
}

type ProfilesListCmd struct{}

func (c *ProfilesListCmd) Run(ctx context.Context, app *App) error {
	list, err := app.Store.ListVenueProfiles(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no venue profiles; run `fishingadvice profiles rebuild`")
		return nil
	}
	for _, p := range list {
		fmt.Printf("%-30s %-12s %8s reports  mean %.2f  mae %.2f  %-12s updated %s\n",
			p.Venue, p.Region, humanize.Comma(int64(p.ReportCount)), p.RodAvgMean, p.RodMAE, p.DataQualityFlag, humanize.Time(p.UpdatedAt))
	}
	return nil
}

type ReportsCmd struct {
	Import ReportsImportCmd `cmd:"" help:"Import reports from a JSON Lines file."`
}

type ReportsImportCmd struct {
	Kind string `required:"" enum:"fishery,diary" help:"Report kind: fishery or diary."`
	File string `arg:"" type:"existingfile" help:"JSON Lines file, one report per line."`
}

func (c *ReportsImportCmd) Run(ctx context.Context, app *App) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := ingest.NewImporter(app.Store).Import(ctx, ingest.Kind(c.Kind), f)
	if result != nil {
		fmt.Printf("%s lines: %s inserted, %s rejected, %s with cleared readings\n",
			humanize.Comma(int64(result.Lines)), humanize.Comma(int64(result.Inserted)),
			humanize.Comma(int64(result.Rejected)), humanize.Comma(int64(result.Flagged)))
	}
	return err
}
