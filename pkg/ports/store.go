package ports

import (
	"context"

	"github.com/aretw0/bbseed/pkg/domain"
)

// CheckpointStore persists run checkpoints. This is what makes a run
// interruptible: the last saved checkpoint plus the classification log is
// everything a resumed run needs.
type CheckpointStore interface {
	// Save persists the checkpoint of a run. A failed Save must leave the
	// previously saved checkpoint intact.
	Save(ctx context.Context, name string, cp *domain.Checkpoint) error

	// Load retrieves the checkpoint of a run.
	// Returns domain.ErrCheckpointNotFound if the run has none and
	// domain.ErrCorruptCheckpoint if the stored document cannot be decoded.
	Load(ctx context.Context, name string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint of a run.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored runs.
	List(ctx context.Context) ([]string, error)
}
