package bbseed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/bbseed/internal/checkpoint"
	"github.com/aretw0/bbseed/internal/cli"
	"github.com/aretw0/bbseed/internal/config"
	"github.com/aretw0/bbseed/internal/logging"
	"github.com/aretw0/bbseed/internal/scheduler"
	"github.com/aretw0/bbseed/pkg/decider"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/ports"
)

// Version is the bbseed release.
const Version = "0.3.0"

// Engine runs a checkpointed enumeration.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	quiet  bool
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithOutput sets where progress lines and summaries are written.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.out = w
	}
}

// WithProgress prints a progress line every interval. Zero disables it.
func WithProgress(interval time.Duration) Option {
	return func(e *Engine) {
		e.cfg.StatsInterval = interval
		e.quiet = interval == 0
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.cfg.Workers = n
	}
}

// WithProfile selects the decider profile.
func WithProfile(p decider.Profile) Option {
	return func(e *Engine) {
		e.cfg.Profile = string(p)
	}
}

// WithBudgets replaces the default decider budgets.
func WithBudgets(b decider.Budgets) Option {
	return func(e *Engine) {
		e.cfg.Limits = b
	}
}

// WithRunName names the run in the checkpoint store.
func WithRunName(name string) Option {
	return func(e *Engine) {
		e.cfg.Checkpoint.Name = name
	}
}

// WithCheckpointDir sets the directory of file and badger checkpoints and
// of the default classification log.
func WithCheckpointDir(dir string) Option {
	return func(e *Engine) {
		e.cfg.Checkpoint.Dir = dir
	}
}

// WithCheckpointInterval sets how often the run is checkpointed.
func WithCheckpointInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.cfg.Checkpoint.Interval = d
	}
}

// WithRedis stores checkpoints in redis.
func WithRedis(addr, password string, db int) Option {
	return func(e *Engine) {
		e.cfg.Checkpoint.Backend = config.BackendRedis
		e.cfg.Checkpoint.Redis.Addr = addr
		e.cfg.Checkpoint.Redis.Password = password
		e.cfg.Checkpoint.Redis.DB = db
	}
}

// WithBadger stores checkpoints in a badger database under the checkpoint
// directory.
func WithBadger() Option {
	return func(e *Engine) {
		e.cfg.Checkpoint.Backend = config.BackendBadger
	}
}

// WithLogPath sets the classification log path.
func WithLogPath(path string) Option {
	return func(e *Engine) {
		e.cfg.LogPath = path
	}
}

// WithMetricsAddr serves /metrics and /status on addr while running.
func WithMetricsAddr(addr string) Option {
	return func(e *Engine) {
		e.cfg.MetricsAddr = addr
	}
}

// New creates an engine for n-state machines with the default budgets of n.
func New(states int, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:    config.Default(states),
		logger: logging.NewNop(),
		out:    io.Discard,
		quiet:  true,
	}
	e.cfg.StatsInterval = 0
	for _, opt := range opts {
		opt(e)
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return e, nil
}

// Fingerprint returns the fingerprint the engine's checkpoints carry.
func (e *Engine) Fingerprint() domain.Fingerprint {
	return e.cfg.Fingerprint()
}

// LogPath returns the classification log path.
func (e *Engine) LogPath() string {
	return e.cfg.ClassLogPath()
}

// Run starts or resumes the enumeration and returns the last saved
// checkpoint. Cancelling ctx checkpoints and returns without error.
func (e *Engine) Run(ctx context.Context) (*domain.Checkpoint, error) {
	return cli.Run(ctx, cli.RunOptions{Config: e.cfg, Stdout: e.out, Logger: e.logger, Quiet: e.quiet})
}

// Status writes a markdown summary of the stored checkpoint to w.
func (e *Engine) Status(ctx context.Context, w io.Writer) error {
	return cli.Status(ctx, cli.StatusOptions{Config: e.cfg, Stdout: w, Logger: e.logger})
}

// Verify checks the classification log against the checkpoint and, when
// seedDB is not empty, against the published seed database.
func (e *Engine) Verify(ctx context.Context, w io.Writer, seedDB string) error {
	return cli.Verify(ctx, cli.VerifyOptions{Config: e.cfg, Stdout: w, Logger: e.logger, SeedDB: seedDB})
}

// Enumerate runs a whole enumeration in memory, without checkpoints, and
// hands every classified machine to sink. It returns the final counters;
// if ctx is cancelled first they cover what was emitted so far and the
// context error is returned.
func Enumerate(ctx context.Context, states, workers int, profile decider.Profile, budgets decider.Budgets, sink ports.Sink) (domain.Counters, error) {
	root, err := checkpoint.Fresh(budgets.Fingerprint(states, profile))
	if err != nil {
		return domain.Counters{}, err
	}
	s, err := scheduler.New(scheduler.Config{Workers: workers, Profile: profile, Budgets: budgets}, sink)
	if err != nil {
		return domain.Counters{}, err
	}
	snap, err := s.Run(ctx, root.Frontier, domain.Counters{})
	if err != nil {
		return snap.Counters, err
	}
	if !snap.Complete {
		return snap.Counters, ctx.Err()
	}
	return snap.Counters, nil
}
