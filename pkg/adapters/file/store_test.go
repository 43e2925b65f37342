package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/bbseed/pkg/adapters/file"
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.CheckpointStore   = (*file.Store)(nil)
	_ ports.DistributedLocker = (*file.Locker)(nil)
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunCheckpointStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_AtomicSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cp := ports.ContractCheckpoint("run")
		cp.Counters.Add(domain.Halt)
		require.NoError(t, store.Save(ctx, "bb3", cp))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bb3.json", entries[0].Name())
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bb5.json"), []byte(`{"version": 1, "frontier": [`), 0644))

	_, err := store.Load(context.Background(), "bb5")
	assert.ErrorIs(t, err, domain.ErrCorruptCheckpoint)
}

func TestFileStore_FailedSaveKeepsPreviousCheckpoint(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "bb3", ports.ContractCheckpoint("first")))

	// An unwritable directory makes the temp file fail before the rename.
	require.NoError(t, os.Chmod(dir, 0555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0755) })
	if f, err := os.CreateTemp(dir, "writable-*"); err == nil {
		_ = f.Close()
		t.Skip("directory permissions are not enforced for this user")
	}

	assert.Error(t, store.Save(ctx, "bb3", ports.ContractCheckpoint("second")))
	loaded, err := store.Load(ctx, "bb3")
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.RunID)
}

func TestFileLocker(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	first := file.NewLocker(dir)
	second := file.NewLocker(dir)

	unlock, err := first.TryLock(ctx, "bb5", time.Minute)
	require.NoError(t, err)

	_, err = second.TryLock(ctx, "bb5", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	assert.ErrorIs(t, second.Refresh(ctx, "bb5", time.Minute), domain.ErrLockHeld)
	assert.NoError(t, first.Refresh(ctx, "bb5", time.Minute))

	require.NoError(t, unlock(ctx))
	unlock2, err := second.TryLock(ctx, "bb5", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestFileLocker_ExpiredLockIsTakenOver(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	_, err := file.NewLocker(dir).TryLock(ctx, "bb5", -time.Second)
	require.NoError(t, err)

	unlock, err := file.NewLocker(dir).TryLock(ctx, "bb5", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock(ctx))
	_, err = os.Stat(filepath.Join(dir, "bb5.lock"))
	assert.True(t, os.IsNotExist(err))
}
