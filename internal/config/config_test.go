package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/bbseed/internal/config"
	"github.com/aretw0/bbseed/pkg/decider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bbseed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.States)
	assert.Equal(t, "seed", cfg.Profile)
	assert.Equal(t, uint64(47176870), cfg.Limits.Steps)
	assert.Equal(t, 12289, cfg.Limits.Tape)
	assert.Equal(t, 3, cfg.LocalThreshold)
	assert.Equal(t, config.BackendFile, cfg.Checkpoint.Backend)
	assert.Equal(t, "bb5", cfg.Checkpoint.Name)
	assert.Equal(t, filepath.Join(".bbseed", "bb5.log"), cfg.ClassLogPath())
}

func TestLoad_DefaultsFollowStates(t *testing.T) {
	path := writeFile(t, "states: 4\nlimits:\n  cycler_steps: 50\n")
	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(107), cfg.Limits.Steps)
	assert.Equal(t, 109, cfg.Limits.Tape)
	assert.Equal(t, uint64(50), cfg.Limits.CyclerSteps)
	assert.Equal(t, "bb4", cfg.Checkpoint.Name)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
states: 3
workers: 6
profile: extended
checkpoint:
  backend: redis
  interval: 90s
  redis:
    addr: redis:6379
    db: 2
stats_interval: 1m
metrics_addr: ":9100"
log_level: debug
`)
	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "extended", cfg.Profile)
	assert.Equal(t, config.BackendRedis, cfg.Checkpoint.Backend)
	assert.Equal(t, 90*time.Second, cfg.Checkpoint.Interval)
	assert.Equal(t, "redis:6379", cfg.Checkpoint.Redis.Addr)
	assert.Equal(t, 2, cfg.Checkpoint.Redis.DB)
	assert.Equal(t, "bbseed:run:", cfg.Checkpoint.Redis.Prefix, "unset keys keep their default")
	assert.Equal(t, time.Minute, cfg.StatsInterval)
	assert.Equal(t, ":9100", cfg.MetricsAddr)

	fp := cfg.Fingerprint()
	assert.Equal(t, 3, fp.States)
	assert.Equal(t, uint64(1000), fp.CyclerSteps)
}

func TestLoad_OverridesWin(t *testing.T) {
	path := writeFile(t, "states: 3\ncheckpoint:\n  name: small\n  dir: /tmp/a\n")
	cfg, err := config.Load(path, map[string]any{
		"workers":    2,
		"checkpoint": map[string]any{"dir": "/tmp/b"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "small", cfg.Checkpoint.Name)
	assert.Equal(t, "/tmp/b", cfg.Checkpoint.Dir)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "state: 5\n",
		"unknown nested":    "checkpoint:\n  bakend: redis\n",
		"bad duration":      "stats_interval: often\n",
		"too many states":   "states: 7\n",
		"unknown profile":   "profile: magic\n",
		"unknown backend":   "checkpoint:\n  backend: s3\n",
		"bad name":          "checkpoint:\n  name: a/b\n",
		"bad level":         "log_level: loud\n",
		"zero tape":         "limits:\n  tape: 0\n",
		"negative workers":  "workers: -1\n",
		"not a mapping":     "- 1\n- 2\n",
		"extended no cycle": "profile: extended\nlimits:\n  cycler_steps: 0\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, content), nil)
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	want := config.Default(4)
	want.Profile = string(decider.ProfileExtended)
	data, err := yaml.Marshal(want)
	require.NoError(t, err)

	got, err := config.Load(writeFile(t, string(data)), nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
