package domain

import "errors"

// ErrCheckpointNotFound is returned when a store holds no checkpoint for a run name.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrCorruptCheckpoint is returned when a stored checkpoint cannot be decoded
// or fails validation. Resuming from it is refused.
var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

// ErrFingerprintMismatch is returned when a checkpoint was written by a run with
// a different state count, profile or budget.
var ErrFingerprintMismatch = errors.New("checkpoint fingerprint mismatch")

// ErrInvariant is returned when the enumeration reaches a state that can only
// be explained by a bug, such as branching on a defined cell.
var ErrInvariant = errors.New("enumeration invariant violated")

// ErrRunComplete is returned when resuming a run whose frontier is exhausted.
var ErrRunComplete = errors.New("run already complete")

// ErrLockHeld is returned when another process owns the run.
var ErrLockHeld = errors.New("run is locked by another process")

// ErrOrphanLog is returned when a run has no checkpoint but its
// classification log already holds lines. Starting over would discard them.
var ErrOrphanLog = errors.New("classification log exists without a checkpoint")
