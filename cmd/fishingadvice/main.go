package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/fishingadvice/internal/advice"
	"github.com/lox/fishingadvice/internal/config"
	"github.com/lox/fishingadvice/internal/logging"
	"github.com/lox/fishingadvice/internal/store"
)

type CLI struct {
	Config   string                   `help:"Path to YAML config file." type:"path" env:"FISHINGADVICE_CONFIG"`
	EnvFile  kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file.'"`
	LogLevel string                   `help:"Override the configured log level (trace, debug, info, warn, error)."`

	Serve    ServeCmd    `cmd:"" help:"Run the HTTP API and the profile rebuild schedule."`
	Predict  PredictCmd  `cmd:"" help:"Compute advice for one venue and date."`
	Migrate  MigrateCmd  `cmd:"" help:"Apply database migrations."`
	Profiles ProfilesCmd `cmd:"" help:"Manage venue profiles."`
	Reports  ReportsCmd  `cmd:"" help:"Load historical reports."`
}

// App carries the shared dependencies handed to every command.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Store  *store.Store
}

func (a *App) Engine() *advice.Engine {
	reports := advice.NewResilientReports(a.Store, advice.SourceConfig{
		RetryMaxElapsed: a.Config.Source.RetryMaxElapsed,
		BreakerFailures: a.Config.Source.BreakerFailures,
		BreakerTimeout:  a.Config.Source.BreakerTimeout,
	})
	return advice.NewEngine(a.Store, a.Store, reports,
		advice.WithPersonalBoost(a.Config.Engine.PersonalBoost),
		advice.WithPercentiles(a.Config.Engine.LowerPercentile, a.Config.Engine.UpperPercentile),
		advice.WithBasicAdvice(a.Store),
	)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("fishingadvice"),
		kong.Description("Statistical fishing advice from historical catch reports."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)

	level := cfg.Logging.Level
	if cli.LogLevel != "" {
		level = cli.LogLevel
	}
	logging.Init(logging.Config{Level: level, Format: cfg.Logging.Format})

	db, err := openDB(cfg.Database.Path)
	kctx.FatalIfErrorf(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &App{Config: cfg, DB: db, Store: store.New(db)}
	if kctx.Command() != "migrate" {
		kctx.FatalIfErrorf(app.Store.Migrate(ctx))
	}
	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(app)
	if err != nil {
		logging.Error().Err(err).Str("command", kctx.Command()).Msg("command failed")
	}
	kctx.FatalIfErrorf(err)
}

func openDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			logging.Warn().Err(err).Str("pragma", pragma).Msg("could not apply pragma")
		}
	}
	return db, nil
}
