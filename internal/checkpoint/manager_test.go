package checkpoint_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/bbseed/internal/checkpoint"
	"github.com/aretw0/bbseed/internal/classlog"
	"github.com/aretw0/bbseed/internal/scheduler"
	"github.com/aretw0/bbseed/pkg/adapters/memory"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
	"github.com/aretw0/bbseed/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var contractFingerprint = ports.ContractCheckpoint("x").Fingerprint

type fakeSnapshotter struct {
	snap scheduler.Snapshot
	err  error
}

func (f fakeSnapshotter) Snapshot() (scheduler.Snapshot, error) {
	return f.snap, f.err
}

type failingStore struct {
	*memory.Store
}

func (failingStore) Save(context.Context, string, *domain.Checkpoint) error {
	return errors.New("disk full")
}

func TestFresh(t *testing.T) {
	cp, err := checkpoint.Fresh(domain.Fingerprint{States: 5, Profile: "seed"})
	require.NoError(t, err)
	require.NoError(t, checkpoint.Validate(cp))

	require.Len(t, cp.Frontier, 1)
	root := cp.Frontier[0]
	assert.Equal(t, "1RB---_------_------_------_------", root.Machine.String())
	assert.Equal(t, "B0", root.Branch.String())
	assert.Equal(t, 1, root.Next)
	assert.NotEmpty(t, cp.RunID)
	assert.Zero(t, cp.Counters.Total)
	assert.False(t, cp.Complete)
}

func TestHydrate_FreshRun(t *testing.T) {
	store := memory.NewStore()
	m := checkpoint.NewManager(store, "run", contractFingerprint)

	cp, err := m.Hydrate(context.Background())
	require.NoError(t, err)
	assert.Len(t, cp.Frontier, 1)
	assert.Equal(t, cp.RunID, m.Current().RunID)

	// Nothing is stored until the first save.
	_, err = store.Load(context.Background(), "run")
	assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
}

func TestHydrate_Resume(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	stored := ports.ContractCheckpoint("run-1")
	require.NoError(t, store.Save(ctx, "run", stored))

	cp, err := checkpoint.NewManager(store, "run", contractFingerprint).Hydrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", cp.RunID)
	assert.Equal(t, stored.Counters, cp.Counters)
	assert.Equal(t, stored.Frontier, cp.Frontier)
}

func TestHydrate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cp *domain.Checkpoint)
		fp     domain.Fingerprint
		want   error
	}{
		{
			name:   "fingerprint differs",
			mutate: func(*domain.Checkpoint) {},
			fp:     domain.Fingerprint{States: 3, Profile: "extended", Steps: 21, Tape: 23},
			want:   domain.ErrFingerprintMismatch,
		},
		{
			name:   "counters do not add up",
			mutate: func(cp *domain.Checkpoint) { cp.Counters.Total++ },
			want:   domain.ErrCorruptCheckpoint,
		},
		{
			name:   "cursor past the children",
			mutate: func(cp *domain.Checkpoint) { cp.Frontier[0].Next = 13 },
			want:   domain.ErrCorruptCheckpoint,
		},
		{
			name:   "branch cell already defined",
			mutate: func(cp *domain.Checkpoint) { cp.Frontier[0].Branch = machine.Cell{} },
			want:   domain.ErrCorruptCheckpoint,
		},
		{
			name:   "unknown version",
			mutate: func(cp *domain.Checkpoint) { cp.Version = 7 },
			want:   domain.ErrCorruptCheckpoint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewStore()
			cp := ports.ContractCheckpoint("run-1")
			tt.mutate(cp)
			require.NoError(t, store.Save(ctx, "run", cp))

			fp := tt.fp
			if fp == (domain.Fingerprint{}) {
				fp = contractFingerprint
			}
			_, err := checkpoint.NewManager(store, "run", fp).Hydrate(ctx)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHydrate_CompleteRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cp := ports.ContractCheckpoint("run-1")
	cp.Frontier = nil
	cp.Complete = true
	require.NoError(t, store.Save(ctx, "run", cp))

	got, err := checkpoint.NewManager(store, "run", contractFingerprint).Hydrate(ctx)
	assert.ErrorIs(t, err, domain.ErrRunComplete)
	require.NotNil(t, got)
	assert.Equal(t, cp.Counters, got.Counters)
}

func TestCheckpoint_SavesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var saves int
	m := checkpoint.NewManager(store, "run", contractFingerprint,
		checkpoint.WithClock(func() time.Time { return at }),
		checkpoint.WithSaveObserver(func(time.Duration) { saves++ }),
	)
	fresh, err := m.Hydrate(ctx)
	require.NoError(t, err)

	snap := scheduler.Snapshot{
		Frontier: ports.ContractCheckpoint("x").Frontier,
		Counters: domain.Counters{Halt: 3, Total: 3},
	}
	saved, err := m.Checkpoint(ctx, fakeSnapshotter{snap: snap})
	require.NoError(t, err)
	assert.Equal(t, fresh.RunID, saved.RunID)
	assert.Equal(t, at, saved.UpdatedAt)
	assert.Equal(t, 1, saves)

	loaded, err := store.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, snap.Counters, loaded.Counters)
	assert.Equal(t, snap.Frontier, loaded.Frontier)

	done, err := m.Persist(ctx, scheduler.Snapshot{Counters: domain.Counters{Halt: 3, Loop: 1, Total: 4}, Complete: true})
	require.NoError(t, err)
	assert.True(t, done.Complete)

	_, err = m.Hydrate(ctx)
	assert.ErrorIs(t, err, domain.ErrRunComplete)
}

func TestCheckpoint_Failures(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	m := checkpoint.NewManager(store, "run", contractFingerprint)

	_, err := m.Persist(ctx, scheduler.Snapshot{})
	assert.Error(t, err, "persist before hydrate")

	_, err = m.Hydrate(ctx)
	require.NoError(t, err)
	_, err = m.Persist(ctx, scheduler.Snapshot{Counters: domain.Counters{Halt: 5, Total: 5}})
	require.NoError(t, err)

	_, err = m.Persist(ctx, scheduler.Snapshot{Counters: domain.Counters{Halt: 4, Total: 4}})
	assert.ErrorIs(t, err, domain.ErrInvariant, "a checkpoint never moves backwards")

	boom := errors.New("sync failed")
	_, err = m.Checkpoint(ctx, fakeSnapshotter{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestCheckpoint_FailedSaveKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewStore()
	require.NoError(t, inner.Save(ctx, "run", ports.ContractCheckpoint("run-1")))

	m := checkpoint.NewManager(failingStore{inner}, "run", contractFingerprint)
	before, err := m.Hydrate(ctx)
	require.NoError(t, err)

	_, err = m.Persist(ctx, scheduler.Snapshot{Counters: domain.Counters{Halt: 9, Total: 9}})
	assert.Error(t, err)

	assert.Equal(t, before.Counters, m.Current().Counters)
	loaded, err := inner.Load(ctx, "run")
	require.NoError(t, err)
	assert.Equal(t, before.Counters, loaded.Counters)
}

func writeLog(t *testing.T, path string, n int) {
	t.Helper()
	log, err := classlog.Open(path, 3)
	require.NoError(t, err)
	m, err := machine.Parse("1RB1LA_0LA---_------")
	require.NoError(t, err)
	batch := make([]domain.Classified, n)
	for i := range batch {
		batch[i] = domain.Classified{Machine: m, Class: domain.Halt}
	}
	require.NoError(t, log.Append(batch))
	require.NoError(t, log.Close())
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, "run", ports.ContractCheckpoint("run-1")))
	m := checkpoint.NewManager(store, "run", contractFingerprint)
	_, err := m.Hydrate(ctx)
	require.NoError(t, err)

	t.Run("drops lines written after the checkpoint", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.log")
		writeLog(t, path, 7)
		log, err := classlog.Open(path, 3)
		require.NoError(t, err)
		defer log.Close()

		require.NoError(t, m.Reconcile(log))
		assert.Equal(t, uint64(4), log.Lines())
	})

	t.Run("log behind the checkpoint is fatal", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.log")
		writeLog(t, path, 2)
		log, err := classlog.Open(path, 3)
		require.NoError(t, err)
		defer log.Close()

		err = m.Reconcile(log)
		assert.ErrorIs(t, err, domain.ErrCorruptCheckpoint)
		assert.ErrorIs(t, err, classlog.ErrLogBehind)
	})
}

func TestReconcile_NewRun(t *testing.T) {
	ctx := context.Background()

	t.Run("empty log starts the run", func(t *testing.T) {
		m := checkpoint.NewManager(memory.NewStore(), "run", contractFingerprint)
		_, err := m.Hydrate(ctx)
		require.NoError(t, err)

		log, err := classlog.Open(filepath.Join(t.TempDir(), "run.log"), 3)
		require.NoError(t, err)
		defer log.Close()
		assert.NoError(t, m.Reconcile(log))
	})

	t.Run("log without a checkpoint is kept and refused", func(t *testing.T) {
		m := checkpoint.NewManager(memory.NewStore(), "run", contractFingerprint)
		_, err := m.Hydrate(ctx)
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "run.log")
		writeLog(t, path, 1000)
		log, err := classlog.Open(path, 3)
		require.NoError(t, err)
		defer log.Close()

		err = m.Reconcile(log)
		assert.ErrorIs(t, err, domain.ErrOrphanLog)
		assert.Equal(t, uint64(1000), log.Lines())

		count, err := classlog.Count(path, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), count.Total, "no line was truncated")
	})

	t.Run("first save ends the new run state", func(t *testing.T) {
		m := checkpoint.NewManager(memory.NewStore(), "run", contractFingerprint)
		cp, err := m.Hydrate(ctx)
		require.NoError(t, err)
		_, err = m.Persist(ctx, scheduler.Snapshot{Frontier: cp.Frontier, Counters: domain.Counters{Halt: 2, Total: 2}})
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "run.log")
		writeLog(t, path, 5)
		log, err := classlog.Open(path, 3)
		require.NoError(t, err)
		defer log.Close()

		require.NoError(t, m.Reconcile(log))
		assert.Equal(t, uint64(2), log.Lines())
	})
}

func TestLock(t *testing.T) {
	ctx := context.Background()
	locker := memory.NewLocker()
	first := checkpoint.NewManager(memory.NewStore(), "run", contractFingerprint, checkpoint.WithLocker(locker))
	second := checkpoint.NewManager(memory.NewStore(), "run", contractFingerprint, checkpoint.WithLocker(locker))

	release, err := first.Lock(ctx, 30*time.Millisecond)
	require.NoError(t, err)

	// Refreshes keep the lock alive past its ttl.
	time.Sleep(60 * time.Millisecond)
	_, err = second.Lock(ctx, time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "release is idempotent")

	again, err := second.Lock(ctx, time.Second)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLock_WithoutLocker(t *testing.T) {
	release, err := checkpoint.NewManager(memory.NewStore(), "run", contractFingerprint).Lock(context.Background(), time.Second)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}
