package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ContractCheckpoint returns a small valid checkpoint used by the contract
// suite.
func ContractCheckpoint(runID string) *domain.Checkpoint {
	root, _ := machine.Root(3)
	child := root.With(machine.Cell{State: 1, Symbol: 0}, machine.Define(1, machine.Left, 0))
	return &domain.Checkpoint{
		Version:     domain.CheckpointVersion,
		RunID:       runID,
		Fingerprint: domain.Fingerprint{States: 3, Profile: "seed", Steps: 21, Tape: 23},
		Counters:    domain.Counters{Halt: 2, Loop: 1, Irrelevant: 1, Total: 4},
		Frontier: []domain.Node{
			{Machine: root, Branch: machine.Cell{State: 1, Symbol: 0}, Next: 4},
			{Machine: child, Branch: machine.Cell{State: 0, Symbol: 1}, Next: 1},
		},
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// RunCheckpointStoreContract runs a suite of tests to verify that a
// CheckpointStore implementation adheres to the interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	name := "contract-run-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		cp := ContractCheckpoint("run-" + name)

		err := store.Save(ctx, name, cp)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, cp.RunID, loaded.RunID)
		assert.Equal(t, cp.Fingerprint, loaded.Fingerprint)
		assert.Equal(t, cp.Counters, loaded.Counters)
		assert.Equal(t, cp.Frontier, loaded.Frontier)
		assert.True(t, cp.UpdatedAt.Equal(loaded.UpdatedAt))
		assert.NoError(t, loaded.Validate())
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		cp := ContractCheckpoint("run-" + name)
		cp.Counters.Add(domain.Undecided)
		cp.Frontier = cp.Frontier[:1]
		require.NoError(t, store.Save(ctx, name, cp))

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), loaded.Counters.Total)
		assert.Len(t, loaded.Frontier, 1)
	})

	t.Run("Load Is Isolated From Caller", func(t *testing.T) {
		cp := ContractCheckpoint("run-" + name)
		require.NoError(t, store.Save(ctx, name, cp))
		cp.Frontier[0].Next = 9

		loaded, err := store.Load(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, 4, loaded.Frontier[0].Next)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+name)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, name, ContractCheckpoint("run-"+name)))

		err := store.Delete(ctx, name)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, name)
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound, "Load after Delete should return ErrCheckpointNotFound")

		assert.NoError(t, store.Delete(ctx, name), "Delete of a missing run is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := name + "-1"
		id2 := name + "-2"
		_ = store.Save(ctx, id1, ContractCheckpoint(id1))
		_ = store.Save(ctx, id2, ContractCheckpoint(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		runs, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, runs, id1)
		assert.Contains(t, runs, id2)
	})
}
