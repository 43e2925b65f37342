// Package config loads the run configuration from a YAML file and command
// line overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/bbseed/internal/logging"
	"github.com/aretw0/bbseed/pkg/decider"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// Checkpoint backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the full run configuration.
type Config struct {
	States         int             `mapstructure:"states" yaml:"states"`
	Workers        int             `mapstructure:"workers" yaml:"workers"`
	Profile        string          `mapstructure:"profile" yaml:"profile"`
	Limits         decider.Budgets `mapstructure:"limits" yaml:"limits"`
	LocalThreshold int             `mapstructure:"local_threshold" yaml:"local_threshold"`
	Checkpoint     Checkpoint      `mapstructure:"checkpoint" yaml:"checkpoint"`
	// LogPath defaults to <checkpoint.dir>/<checkpoint.name>.log.
	LogPath       string        `mapstructure:"log_path" yaml:"log_path"`
	StatsInterval time.Duration `mapstructure:"stats_interval" yaml:"stats_interval"`
	MetricsAddr   string        `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`
}

// Checkpoint configures where and how often the run is checkpointed.
type Checkpoint struct {
	Backend  string        `mapstructure:"backend" yaml:"backend"`
	Dir      string        `mapstructure:"dir" yaml:"dir"`
	Name     string        `mapstructure:"name" yaml:"name"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
	Redis    Redis         `mapstructure:"redis" yaml:"redis"`
}

// Redis configures the redis backend.
type Redis struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// Default returns the configuration of an n-state run.
func Default(states int) Config {
	return Config{
		States:         states,
		Profile:        string(decider.ProfileSeed),
		Limits:         decider.DefaultBudgets(states),
		LocalThreshold: 3,
		Checkpoint: Checkpoint{
			Backend:  BackendFile,
			Dir:      ".bbseed",
			Name:     fmt.Sprintf("bb%d", states),
			Interval: 5 * time.Minute,
			LockTTL:  30 * time.Second,
			Redis: Redis{
				Addr:   "localhost:6379",
				Prefix: "bbseed:run:",
			},
		},
		StatsInterval: 10 * time.Second,
		LogLevel:      "info",
	}
}

// Load reads path, if not empty, and applies overrides on top of it. Both
// use the nested key layout of the YAML file. Defaults follow the state
// count the file or the overrides select, five if neither does.
func Load(path string, overrides map[string]any) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}
	merge(raw, overrides)

	states := machine.SeedStates
	if v, ok := raw["states"]; ok {
		if err := mapstructure.Decode(v, &states); err != nil {
			return Config{}, fmt.Errorf("invalid states: %w", err)
		}
	}
	cfg := Default(states)
	if err := decode(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      cfg,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

// Validate rejects values a run cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.States < 2 || c.States > machine.MaxStates {
		errs = append(errs, fmt.Errorf("states must be between 2 and %d, got %d", machine.MaxStates, c.States))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if _, err := decider.ParseProfile(c.Profile); err != nil {
		errs = append(errs, err)
	}
	if err := c.Limits.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("limits: %w", err))
	}
	if c.Profile == string(decider.ProfileExtended) && (c.Limits.CyclerSteps == 0 || c.Limits.TranslatedSteps == 0) {
		errs = append(errs, errors.New("limits: the extended profile needs cycler_steps and translated_steps"))
	}
	if c.LocalThreshold < 1 {
		errs = append(errs, fmt.Errorf("local_threshold must be positive, got %d", c.LocalThreshold))
	}
	switch c.Checkpoint.Backend {
	case BackendFile, BackendRedis, BackendBadger, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend))
	}
	if c.Checkpoint.Name == "" || strings.ContainsAny(c.Checkpoint.Name, `/\`) {
		errs = append(errs, fmt.Errorf("invalid checkpoint name %q", c.Checkpoint.Name))
	}
	if c.Checkpoint.Interval <= 0 {
		errs = append(errs, errors.New("checkpoint interval must be positive"))
	}
	if c.Checkpoint.LockTTL < 3*time.Millisecond {
		errs = append(errs, errors.New("checkpoint lock_ttl is too short"))
	}
	if c.StatsInterval < 0 {
		errs = append(errs, errors.New("stats_interval must not be negative"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ClassLogPath returns the classification log path.
func (c Config) ClassLogPath() string {
	if c.LogPath != "" {
		return c.LogPath
	}
	return filepath.Join(c.Checkpoint.Dir, c.Checkpoint.Name+".log")
}

// Level returns the parsed log level, info if it does not parse.
func (c Config) Level() slog.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// Fingerprint returns the fingerprint checkpoints of this configuration
// carry.
func (c Config) Fingerprint() domain.Fingerprint {
	return c.Limits.Fingerprint(c.States, decider.Profile(c.Profile))
}
