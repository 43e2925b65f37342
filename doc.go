/*
Package bbseed enumerates small Turing machines in tree normal form and
classifies each one, reproducing the busy beaver seed database.

Every n-state, 2-symbol machine reachable from the root 1RB in A0 is
generated exactly once, up to renaming of the states other than A. Each
machine is handed to an ordered pipeline of deciders and receives one of
four classifications:

  - Halt: the machine halts, or reached its last undefined cell.
  - Loop: the machine provably runs forever.
  - Undecided: every decider exhausted its budget.
  - Irrelevant: the machine duplicates a subtree enumerated elsewhere.

A machine that reaches an undefined cell with more than one cell left
undefined is not classified; the enumeration branches on that cell instead.

# Runs

A run writes one fixed-width line per machine to its classification log
and checkpoints its frontier periodically, to a JSON file, redis or badger.
Interrupting a run saves a checkpoint; running it again resumes and ends
with the same set of classified machines as an uninterrupted run.

	eng, err := bbseed.New(5,
		bbseed.WithCheckpointDir("/var/lib/bbseed"),
		bbseed.WithProgress(30*time.Second),
		bbseed.WithOutput(os.Stdout),
	)
	if err != nil {
		log.Fatal(err)
	}
	cp, err := eng.Run(ctx)

Enumerate runs a small enumeration in memory without checkpoints.

The bbseed command wraps the same engine: bbseed run, bbseed status and
bbseed verify --seed-db.
*/
package bbseed
