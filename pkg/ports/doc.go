/*
Package ports defines the driven ports (interfaces) of the enumeration engine.

These interfaces decouple the scheduler and the checkpoint manager from the
storage that keeps a run alive across restarts.

# Key Interfaces

  - CheckpointStore: persists and loads the checkpoint of a named run.
  - Sink: receives batches of classified machines.
  - DistributedLocker: guards a run against a second process resuming it.
*/
package ports
