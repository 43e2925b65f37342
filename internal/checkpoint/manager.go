// Package checkpoint loads, validates and saves the checkpoint of a run.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/bbseed/internal/logging"
	"github.com/aretw0/bbseed/internal/scheduler"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/enumerate"
	"github.com/aretw0/bbseed/pkg/machine"
	"github.com/aretw0/bbseed/pkg/ports"
)

// Snapshotter is implemented by *scheduler.Scheduler.
type Snapshotter interface {
	Snapshot() (scheduler.Snapshot, error)
}

// Reconciler is implemented by *classlog.Log.
type Reconciler interface {
	Lines() uint64
	Reconcile(total uint64) (dropped uint64, err error)
}

// Manager owns the checkpoint of one named run.
type Manager struct {
	store       ports.CheckpointStore
	name        string
	fingerprint domain.Fingerprint

	locker ports.DistributedLocker
	logger *slog.Logger
	saved  func(time.Duration)
	now    func() time.Time

	mu      sync.Mutex
	current *domain.Checkpoint
	// fresh is set when Hydrate found no stored checkpoint.
	fresh bool
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker guards the run with a lock in Lock.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithSaveObserver is called with the duration of every successful save.
func WithSaveObserver(fn func(time.Duration)) Option {
	return func(m *Manager) {
		m.saved = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager for the run called name. Only checkpoints
// with an equal fingerprint can be resumed.
func NewManager(store ports.CheckpointStore, name string, fp domain.Fingerprint, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		name:        name,
		fingerprint: fp,
		logger:      logging.NewNop(),
		saved:       func(time.Duration) {},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the run name.
func (m *Manager) Name() string {
	return m.name
}

// Fresh returns the checkpoint of a run that has not started: a single
// frontier node holding the root machine, branching at the cell the root
// reaches first. The root itself is never emitted.
func Fresh(fp domain.Fingerprint) (*domain.Checkpoint, error) {
	root, err := machine.Root(fp.States)
	if err != nil {
		return nil, err
	}
	out := machine.Simulate(root, machine.Limits{Steps: 4, Tape: 4})
	if out.Kind != machine.Reached {
		return nil, fmt.Errorf("%w: root ended with %s", domain.ErrInvariant, out.Kind)
	}
	return &domain.Checkpoint{
		Version:     domain.CheckpointVersion,
		RunID:       uuid.NewString(),
		Fingerprint: fp,
		Frontier:    []domain.Node{{Machine: root, Branch: out.Cell, Next: 1}},
	}, nil
}

// Lock takes the run lock and keeps refreshing it until the returned
// release function is called. Without a locker it does nothing.
func (m *Manager) Lock(ctx context.Context, ttl time.Duration) (func(context.Context) error, error) {
	if m.locker == nil {
		return func(context.Context) error { return nil }, nil
	}
	unlock, err := m.locker.TryLock(ctx, m.name, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to lock run %q: %w", m.name, err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := m.locker.Refresh(context.Background(), m.name, ttl); err != nil {
					m.logger.Warn("Failed to refresh run lock", "run", m.name, "err", err)
				}
			}
		}
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			close(stop)
			<-done
			err = unlock(ctx)
		})
		return err
	}, nil
}

// Hydrate loads the checkpoint of the run, or creates a fresh one if the
// store has none. A stored checkpoint must decode, validate and carry the
// manager's fingerprint; a complete one is returned together with
// domain.ErrRunComplete.
func (m *Manager) Hydrate(ctx context.Context) (*domain.Checkpoint, error) {
	cp, err := m.store.Load(ctx, m.name)
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		cp, err = Fresh(m.fingerprint)
		if err != nil {
			return nil, err
		}
		m.logger.Info("Starting new run", "run", m.name, "run_id", cp.RunID, "fingerprint", m.fingerprint.String())
		m.setCurrent(cp, true)
		return cp.Clone(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %q: %w", m.name, err)
	}

	if err := Validate(cp); err != nil {
		return nil, err
	}
	if cp.Fingerprint != m.fingerprint {
		return nil, fmt.Errorf("%w: checkpoint has %s, configuration has %s",
			domain.ErrFingerprintMismatch, cp.Fingerprint, m.fingerprint)
	}
	m.setCurrent(cp, false)
	if cp.Complete {
		return cp.Clone(), fmt.Errorf("run %q: %w", m.name, domain.ErrRunComplete)
	}
	m.logger.Info("Resuming run", "run", m.name, "run_id", cp.RunID,
		"total", cp.Counters.Total, "frontier", len(cp.Frontier))
	return cp.Clone(), nil
}

// Validate checks a decoded checkpoint, including that every node cursor
// still points at a child of its branch cell.
func Validate(cp *domain.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	for i, n := range cp.Frontier {
		if count := enumerate.Count(n.Machine, n.Branch); n.Next >= count {
			return fmt.Errorf("%w: node %d cursor %d is past its %d children",
				domain.ErrCorruptCheckpoint, i, n.Next, count)
		}
	}
	return nil
}

// Reconcile cuts the classification log back to the hydrated checkpoint.
// Lines past the checkpoint total were written after the last save and
// will be produced again from the frontier. A new run refuses a log that
// already holds lines: its checkpoint was lost, and truncating would throw
// the finished work away.
func (m *Manager) Reconcile(log Reconciler) error {
	cp := m.Current()
	if cp == nil {
		return errors.New("reconcile before hydrate")
	}
	m.mu.Lock()
	fresh := m.fresh
	m.mu.Unlock()
	if fresh {
		if n := log.Lines(); n > 0 {
			return fmt.Errorf("%w: run %q has no checkpoint but its log holds %d lines; restore the checkpoint or remove the log",
				domain.ErrOrphanLog, m.name, n)
		}
	}
	dropped, err := log.Reconcile(cp.Counters.Total)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCorruptCheckpoint, err)
	}
	if dropped > 0 {
		m.logger.Warn("Dropped classification log lines written after the last checkpoint",
			"run", m.name, "dropped", dropped)
	}
	return nil
}

// Checkpoint takes a snapshot of the running scheduler and saves it.
func (m *Manager) Checkpoint(ctx context.Context, src Snapshotter) (*domain.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, err := src.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot run: %w", err)
	}
	return m.persistLocked(ctx, snap)
}

// Persist saves a snapshot whose output has already been synced, such as
// the one returned by Scheduler.Run.
func (m *Manager) Persist(ctx context.Context, snap scheduler.Snapshot) (*domain.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistLocked(ctx, snap)
}

func (m *Manager) persistLocked(ctx context.Context, snap scheduler.Snapshot) (*domain.Checkpoint, error) {
	if m.current == nil {
		return nil, errors.New("persist before hydrate")
	}
	if snap.Counters.Total < m.current.Counters.Total {
		return nil, fmt.Errorf("%w: snapshot total %d is behind checkpoint total %d",
			domain.ErrInvariant, snap.Counters.Total, m.current.Counters.Total)
	}

	next := &domain.Checkpoint{
		Version:     domain.CheckpointVersion,
		RunID:       m.current.RunID,
		Fingerprint: m.fingerprint,
		Counters:    snap.Counters,
		Frontier:    append([]domain.Node(nil), snap.Frontier...),
		Complete:    snap.Complete,
		UpdatedAt:   m.now().UTC(),
	}
	start := time.Now()
	if err := m.store.Save(ctx, m.name, next); err != nil {
		return nil, fmt.Errorf("failed to save checkpoint %q: %w", m.name, err)
	}
	m.saved(time.Since(start))
	m.current = next
	m.fresh = false
	m.logger.Debug("Checkpoint saved", "run", m.name, "total", next.Counters.Total,
		"frontier", len(next.Frontier), "complete", next.Complete)
	return next.Clone(), nil
}

// Current returns a copy of the last hydrated or saved checkpoint.
func (m *Manager) Current() *domain.Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.Clone()
}

func (m *Manager) setCurrent(cp *domain.Checkpoint, fresh bool) {
	m.mu.Lock()
	m.current = cp.Clone()
	m.fresh = fresh
	m.mu.Unlock()
}
