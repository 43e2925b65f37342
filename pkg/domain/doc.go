/*
Package domain contains the core types shared by the enumeration engine.

It sits between the machine model and the infrastructure: the classification
a machine receives, the counters of a run, the frontier nodes the scheduler
moves between workers, and the checkpoint document that makes a run
resumable. The package is free of I/O.

# Key Entities

  - Classification: Halt, Loop, Undecided or Irrelevant, with its log code.
  - Counters: per-classification totals of a run.
  - Node: a partially defined machine together with the undefined cell it
    branches on and the index of the next child to generate.
  - Checkpoint: the persisted frontier, counters and run fingerprint.
*/
package domain
