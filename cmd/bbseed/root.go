package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aretw0/bbseed/internal/config"
	"github.com/aretw0/bbseed/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "bbseed",
	Short: "bbseed enumerates busy beaver candidates in tree normal form",
	Long: `bbseed enumerates every n-state, 2-symbol Turing machine in tree normal form,
classifies each one as halting, looping, undecided or irrelevant, and writes the
classification log from which the busy beaver seed database is built.

Runs checkpoint periodically and resume where they stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// configFlag maps a command line flag onto its key in the config file.
type configFlag struct {
	name string
	path []string
}

var configFlags = []configFlag{
	{"states", []string{"states"}},
	{"workers", []string{"workers"}},
	{"profile", []string{"profile"}},
	{"steps", []string{"limits", "steps"}},
	{"tape", []string{"limits", "tape"}},
	{"cycler-steps", []string{"limits", "cycler_steps"}},
	{"translated-steps", []string{"limits", "translated_steps"}},
	{"local-threshold", []string{"local_threshold"}},
	{"backend", []string{"checkpoint", "backend"}},
	{"dir", []string{"checkpoint", "dir"}},
	{"name", []string{"checkpoint", "name"}},
	{"interval", []string{"checkpoint", "interval"}},
	{"redis-addr", []string{"checkpoint", "redis", "addr"}},
	{"redis-db", []string{"checkpoint", "redis", "db"}},
	{"log", []string{"log_path"}},
	{"stats-interval", []string{"stats_interval"}},
	{"metrics-addr", []string{"metrics_addr"}},
	{"log-level", []string{"log_level"}},
}

func init() {
	addConfigFlags(rootCmd.PersistentFlags())
}

func addConfigFlags(f *pflag.FlagSet) {
	f.StringP("config", "c", "", "YAML configuration file")
	f.IntP("states", "n", 5, "Number of machine states")
	f.IntP("workers", "w", 0, "Worker goroutines (default: number of CPUs)")
	f.String("profile", "seed", "Decider profile: seed or extended")
	f.Uint64("steps", 0, "Step budget of the bounded run (default: BB(n))")
	f.Int("tape", 0, "Tape half-width of the bounded run")
	f.Uint64("cycler-steps", 0, "Step budget of the cycler")
	f.Uint64("translated-steps", 0, "Step budget of the translated cycler")
	f.Int("local-threshold", 3, "Largest undefined cell count a subtree may have to stay on its worker")
	f.String("backend", "file", "Checkpoint backend: file, redis, badger or memory")
	f.String("dir", ".bbseed", "Directory for checkpoints, locks and the default log")
	f.String("name", "", "Run name (default: bb<n>)")
	f.Duration("interval", 0, "Checkpoint interval")
	f.String("redis-addr", "", "Redis address for the redis backend")
	f.Int("redis-db", 0, "Redis database for the redis backend")
	f.String("log", "", "Classification log path (default: <dir>/<name>.log)")
	f.Duration("stats-interval", 0, "Progress line interval, 0 disables it")
	f.String("metrics-addr", "", "Serve /metrics and /status on this address")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
}

// overrides collects the flags the user set, in the nested layout of the
// config file.
func overrides(cmd *cobra.Command) (map[string]any, error) {
	out := map[string]any{}
	flags := cmd.Flags()
	for _, cf := range configFlags {
		if !flags.Changed(cf.name) {
			continue
		}
		var v any
		var err error
		switch flags.Lookup(cf.name).Value.Type() {
		case "int":
			v, err = flags.GetInt(cf.name)
		case "uint64":
			v, err = flags.GetUint64(cf.name)
		case "duration":
			v, err = flags.GetDuration(cf.name)
		default:
			v, err = flags.GetString(cf.name)
		}
		if err != nil {
			return nil, err
		}
		m := out
		for _, k := range cf.path[:len(cf.path)-1] {
			sub, ok := m[k].(map[string]any)
			if !ok {
				sub = map[string]any{}
				m[k] = sub
			}
			m = sub
		}
		m[cf.path[len(cf.path)-1]] = v
	}
	return out, nil
}

// loadConfig merges the config file and the flags, and builds the logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	ov, err := overrides(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(path, ov)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.New(cfg.Level()), nil
}
