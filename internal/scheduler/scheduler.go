// Package scheduler runs the enumeration on a pool of workers.
//
// Each worker expands nodes from its own stack. Children with many undefined
// cells, whose subtrees are large, go to a shared pool where idle workers
// pick them up. The run ends when every worker is idle and the pool is
// empty, or when the context is cancelled; either way the remaining frontier
// is returned so the run can be checkpointed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/bbseed/internal/logging"
	"github.com/aretw0/bbseed/pkg/decider"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/ports"
)

// Config sizes the worker pool.
type Config struct {
	// Workers defaults to runtime.NumCPU().
	Workers int
	// LocalThreshold is the largest undefined cell count a child may have
	// to stay on its worker's stack.
	LocalThreshold int
	Profile        decider.Profile
	Budgets        decider.Budgets
	// FlushSize is how many emissions a worker buffers before it hands them
	// to the sink.
	FlushSize int
}

// DefaultLocalThreshold keeps subtrees with at most three undefined cells on
// the worker that found them.
const DefaultLocalThreshold = 3

const defaultFlushSize = 4096

// Observer is told about every flush. Implementations must be safe for
// concurrent use.
type Observer interface {
	// Flushed reports the counters of one flushed batch and how many of its
	// machines each strategy decided.
	Flushed(delta domain.Counters, by map[string]uint64)
}

type nopObserver struct{}

func (nopObserver) Flushed(domain.Counters, map[string]uint64) {}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger configures a logger for the Scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithObserver registers an observer for flushes.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// Snapshot is a consistent view of a run: every machine outside the
// frontier's subtrees has been counted and handed to the sink.
type Snapshot struct {
	Frontier []domain.Node
	Counters domain.Counters
	// Complete is set when the frontier is exhausted.
	Complete bool
}

// Progress is a cheap, approximate view for statistics.
type Progress struct {
	Counters domain.Counters
	Pool     int
	Local    int
	States   map[WorkerState]int
}

// Scheduler distributes the enumeration over workers. A Scheduler runs once.
type Scheduler struct {
	cfg      Config
	sink     ports.Sink
	logger   *slog.Logger
	observer Observer

	workers []*worker
	pool    *pool

	// emitMu serializes the sink and guards counters.
	emitMu   sync.Mutex
	counters domain.Counters
}

// New creates a scheduler writing to sink. It builds one decider pipeline
// per worker.
func New(cfg Config, sink ports.Sink, opts ...Option) (*Scheduler, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.LocalThreshold <= 0 {
		cfg.LocalThreshold = DefaultLocalThreshold
	}
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = defaultFlushSize
	}

	s := &Scheduler{
		cfg:      cfg,
		sink:     sink,
		logger:   logging.NewNop(),
		observer: nopObserver{},
		pool:     newPool(cfg.Workers),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i := 0; i < cfg.Workers; i++ {
		p, err := decider.New(cfg.Profile, cfg.Budgets)
		if err != nil {
			return nil, fmt.Errorf("failed to build decider pipeline: %w", err)
		}
		s.workers = append(s.workers, &worker{
			id:       i,
			pipeline: p,
			buf:      make([]domain.Classified, 0, cfg.FlushSize),
			by:       make(map[string]uint64),
		})
	}
	return s, nil
}

// Workers returns the number of workers.
func (s *Scheduler) Workers() int {
	return len(s.workers)
}

// Run enumerates the subtrees of frontier, continuing from counters. It
// returns the final snapshot: complete, or interrupted with the remaining
// frontier. On a worker error the snapshot is still returned together with
// the error so the frontier can be inspected.
func (s *Scheduler) Run(ctx context.Context, frontier []domain.Node, counters domain.Counters) (Snapshot, error) {
	s.counters = counters
	for i, n := range frontier {
		if err := n.Validate(); err != nil {
			return Snapshot{}, fmt.Errorf("frontier node %d: %w", i, err)
		}
		w := s.workers[i%len(s.workers)]
		w.stack = append(w.stack, n)
		w.stackLen.Store(int32(len(w.stack)))
	}

	s.logger.Debug("Scheduler starting", "workers", len(s.workers), "frontier", len(frontier), "total", counters.Total)
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range s.workers {
		g.Go(func() error {
			return s.work(gctx, w)
		})
	}
	runErr := g.Wait()

	snap, err := s.Snapshot()
	if err := errors.Join(runErr, err); err != nil {
		return snap, err
	}
	s.logger.Debug("Scheduler stopped", "frontier", len(snap.Frontier), "complete", snap.Complete)
	return snap, nil
}

func (s *Scheduler) work(ctx context.Context, w *worker) error {
	defer w.setState(Quiescing)
	for {
		if ctx.Err() != nil {
			return nil
		}

		w.mu.Lock()
		if len(w.stack) == 0 {
			if n, ok := s.pool.tryPop(); ok {
				w.stack = append(w.stack, n)
			}
		}
		if len(w.stack) == 0 {
			// Nothing may stay buffered while idle: the run can end here.
			err := s.flush(w)
			w.setState(Idle)
			w.stackLen.Store(0)
			w.mu.Unlock()
			if err != nil {
				return err
			}
			if !s.pool.wait(ctx) {
				return nil
			}
			continue
		}

		err := s.expand(w)
		if err == nil && len(w.buf) >= s.cfg.FlushSize {
			err = s.flush(w)
		}
		w.mu.Unlock()
		if err != nil {
			return err
		}
	}
}

// flush hands the worker's buffer to the sink. The caller holds w.mu.
func (s *Scheduler) flush(w *worker) error {
	if len(w.buf) == 0 {
		return nil
	}
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	return s.flushLocked(w)
}

func (s *Scheduler) flushLocked(w *worker) error {
	if len(w.buf) == 0 {
		return nil
	}
	if err := s.sink.Append(w.buf); err != nil {
		return fmt.Errorf("worker %d: %w", w.id, err)
	}
	s.counters.Merge(w.counters)
	s.observer.Flushed(w.counters, w.by)

	w.buf = w.buf[:0]
	w.counters = domain.Counters{}
	clear(w.by)
	return nil
}

// Snapshot stops every worker at a safe point, flushes and syncs all
// buffered output and captures the frontier and counters. The run continues
// afterwards. Locks are taken in the order workers, pool, sink.
func (s *Scheduler) Snapshot() (Snapshot, error) {
	for _, w := range s.workers {
		w.mu.Lock()
		defer w.mu.Unlock()
	}

	var frontier []domain.Node
	for _, w := range s.workers {
		frontier = append(frontier, w.stack...)
	}
	frontier = append(frontier, s.pool.snapshot()...)

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	for _, w := range s.workers {
		if err := s.flushLocked(w); err != nil {
			return Snapshot{Frontier: frontier, Counters: s.counters}, err
		}
	}
	snap := Snapshot{Frontier: frontier, Counters: s.counters, Complete: len(frontier) == 0}
	if err := s.sink.Sync(); err != nil {
		return snap, fmt.Errorf("failed to sync sink: %w", err)
	}
	return snap, nil
}

// Progress returns approximate statistics without stopping the workers.
func (s *Scheduler) Progress() Progress {
	p := Progress{Pool: s.pool.len(), States: make(map[WorkerState]int)}
	for _, w := range s.workers {
		p.Local += int(w.stackLen.Load())
		p.States[w.State()]++
	}
	s.emitMu.Lock()
	p.Counters = s.counters
	s.emitMu.Unlock()
	return p
}

// StateCounts returns how many workers are in each state.
func (s *Scheduler) StateCounts() map[WorkerState]int {
	counts := make(map[WorkerState]int, len(WorkerStates))
	for _, w := range s.workers {
		counts[w.State()]++
	}
	return counts
}
