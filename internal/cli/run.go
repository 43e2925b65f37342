// Package cli implements the bbseed commands on top of the scheduler and
// the checkpoint manager.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/bbseed/internal/checkpoint"
	"github.com/aretw0/bbseed/internal/classlog"
	"github.com/aretw0/bbseed/internal/config"
	"github.com/aretw0/bbseed/internal/metrics"
	"github.com/aretw0/bbseed/internal/report"
	"github.com/aretw0/bbseed/internal/scheduler"
	"github.com/aretw0/bbseed/pkg/decider"
	"github.com/aretw0/bbseed/pkg/domain"
)

// RunOptions are the collaborators of Run.
type RunOptions struct {
	Config config.Config
	Stdout io.Writer
	Logger *slog.Logger
	// Quiet disables the periodic progress line.
	Quiet bool
}

// Run enumerates until the frontier is exhausted or ctx is cancelled, and
// returns the last saved checkpoint. Cancellation is not an error: the run
// stops at a safe point and saves its frontier.
func Run(ctx context.Context, opts RunOptions) (*domain.Checkpoint, error) {
	cfg := opts.Config
	logger := opts.Logger
	out := opts.Stdout

	be, err := openBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := be.close(); err != nil {
			logger.Warn("Failed to close checkpoint store", "err", err)
		}
	}()

	mx := metrics.New()
	mgr := checkpoint.NewManager(be.store, cfg.Checkpoint.Name, cfg.Fingerprint(),
		checkpoint.WithLocker(be.locker),
		checkpoint.WithLogger(logger),
		checkpoint.WithSaveObserver(mx.ObserveCheckpoint),
	)

	release, err := mgr.Lock(ctx, cfg.Checkpoint.LockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to release run lock (will expire via TTL)", "run", cfg.Checkpoint.Name, "err", err)
		}
	}()

	cp, err := mgr.Hydrate(ctx)
	if errors.Is(err, domain.ErrRunComplete) {
		fmt.Fprintf(out, "Run %q is already complete.\n", cfg.Checkpoint.Name)
		return cp, report.Render(out, report.StatusMarkdown(cfg.Checkpoint.Name, cp))
	}
	if err != nil {
		return nil, err
	}

	logPath := cfg.ClassLogPath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	log, err := classlog.Open(logPath, cfg.States)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := log.Close(); err != nil {
			logger.Error("Failed to close classification log", "err", err)
		}
	}()
	if err := mgr.Reconcile(log); err != nil {
		return nil, err
	}

	sched, err := scheduler.New(scheduler.Config{
		Workers:        cfg.Workers,
		LocalThreshold: cfg.LocalThreshold,
		Profile:        decider.Profile(cfg.Profile),
		Budgets:        cfg.Limits,
	}, log, scheduler.WithLogger(logger), scheduler.WithObserver(mx))
	if err != nil {
		return nil, err
	}
	mx.Track(sched)

	logger.Info("Run started", "run", cfg.Checkpoint.Name, "workers", sched.Workers(),
		"profile", cfg.Profile, "log", logPath, "backend", cfg.Checkpoint.Backend)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	loopCtx, stopLoops := context.WithCancel(runCtx)
	loops, loopCtx := errgroup.WithContext(loopCtx)

	loops.Go(func() error {
		return checkpointLoop(loopCtx, mgr, sched, cfg.Checkpoint.Interval, mx, cancelRun)
	})
	printer := report.NewPrinter(out)
	printer.Baseline(cp.Counters.Total)
	if !opts.Quiet && cfg.StatsInterval > 0 {
		loops.Go(func() error {
			every(loopCtx, cfg.StatsInterval, func() { printer.Print(sched.Progress()) })
			return nil
		})
	}
	if cfg.MetricsAddr != "" {
		handler := metrics.NewHandler(mx, statusFunc(cfg, mgr, sched))
		loops.Go(func() error {
			if err := metrics.Serve(loopCtx, cfg.MetricsAddr, handler, logger); err != nil {
				logger.Error("Metrics server stopped", "err", err)
			}
			return nil
		})
	}

	snap, runErr := sched.Run(runCtx, cp.Frontier, cp.Counters)
	stopLoops()
	loopErr := loops.Wait()

	if runErr != nil {
		logger.Error("Run failed, keeping the last checkpoint", "err", runErr, "frontier", len(snap.Frontier))
		return mgr.Current(), errors.Join(runErr, loopErr)
	}
	if loopErr != nil {
		return mgr.Current(), loopErr
	}

	start := time.Now()
	final, err := mgr.Persist(context.WithoutCancel(ctx), snap)
	if err != nil {
		mx.ObserveCheckpointFailure(time.Since(start))
		return mgr.Current(), err
	}
	if !opts.Quiet {
		printer.Print(sched.Progress())
	}
	if final.Complete {
		logger.Info("Run complete", "run", cfg.Checkpoint.Name, "total", final.Counters.Total)
		if err := report.Render(out, report.StatusMarkdown(cfg.Checkpoint.Name, final)); err != nil {
			return final, err
		}
	} else {
		logger.Info("Run interrupted, checkpoint saved", "run", cfg.Checkpoint.Name,
			"total", final.Counters.Total, "frontier", len(final.Frontier))
	}
	return final, nil
}

// checkpointLoop saves a checkpoint every interval. A failed save stops the
// run: continuing would only grow the work a crash throws away.
func checkpointLoop(ctx context.Context, mgr *checkpoint.Manager, src checkpoint.Snapshotter, interval time.Duration, mx *metrics.Metrics, stopRun context.CancelFunc) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start := time.Now()
			if _, err := mgr.Checkpoint(ctx, src); err != nil {
				mx.ObserveCheckpointFailure(time.Since(start))
				stopRun()
				return err
			}
		}
	}
}

func every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func statusFunc(cfg config.Config, mgr *checkpoint.Manager, sched *scheduler.Scheduler) metrics.StatusFunc {
	return func() metrics.Status {
		p := sched.Progress()
		workers := make(map[string]int, len(p.States))
		for s, n := range p.States {
			workers[s.String()] = n
		}
		st := metrics.Status{
			Run:         cfg.Checkpoint.Name,
			Fingerprint: cfg.Fingerprint(),
			Counters:    p.Counters,
			Pool:        p.Pool,
			Local:       p.Local,
			Workers:     workers,
		}
		if cp := mgr.Current(); cp != nil {
			st.RunID = cp.RunID
			st.Checkpoint = cp.UpdatedAt
			st.Complete = cp.Complete
		}
		return st
	}
}
