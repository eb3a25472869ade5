// Package config loads service configuration from defaults, an optional YAML
// file, and FISHINGADVICE_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/lox/fishingadvice/internal/validation"
)

// EnvPrefix namespaces environment overrides. Nested keys use a double
// underscore, e.g. FISHINGADVICE_SERVER__ADDR.
const EnvPrefix = "FISHINGADVICE_"

var DefaultConfigPaths = []string{
	"fishingadvice.yaml",
	"fishingadvice.yml",
	"/etc/fishingadvice/config.yaml",
}

type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Engine   EngineConfig   `koanf:"engine"`
	Source   SourceConfig   `koanf:"source"`
	Profiles ProfilesConfig `koanf:"profiles"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled off"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type EngineConfig struct {
	PersonalBoost   float64 `koanf:"personal_boost" validate:"gt=0"`
	LowerPercentile float64 `koanf:"lower_percentile" validate:"gte=0,lte=1"`
	UpperPercentile float64 `koanf:"upper_percentile" validate:"gte=0,lte=1,gtefield=LowerPercentile"`
}

type SourceConfig struct {
	RetryMaxElapsed time.Duration `koanf:"retry_max_elapsed" validate:"gt=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gt=0"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

type ProfilesConfig struct {
	Schedule string `koanf:"schedule"`
	Timezone string `koanf:"timezone"`
}

func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "data/fishingadvice.db"},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  15 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Engine: EngineConfig{
			PersonalBoost:   1.5,
			LowerPercentile: 0.10,
			UpperPercentile: 0.90,
		},
		Source: SourceConfig{
			RetryMaxElapsed: 2 * time.Second,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Profiles: ProfilesConfig{Schedule: "0 3 * * *", Timezone: "UTC"},
	}
}

// Load layers defaults, the config file (path, or the first default path that
// exists when path is empty) and environment variables, then validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Profiles.Timezone); err != nil {
		return fmt.Errorf("invalid config: profiles.timezone: %w", err)
	}
	return nil
}

// Location returns the profile scheduler's timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Profiles.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// envKey maps FISHINGADVICE_SERVER__READ_TIMEOUT to server.read_timeout.
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func findConfigFile() string {
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
