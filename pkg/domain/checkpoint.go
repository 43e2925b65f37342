package domain

import (
	"fmt"
	"time"
)

// CheckpointVersion is the version of the checkpoint document layout.
const CheckpointVersion = 1

// Fingerprint captures every setting that influences which classification a
// machine receives. A run may only resume a checkpoint with an equal
// fingerprint.
type Fingerprint struct {
	States          int    `json:"states"`
	Profile         string `json:"profile"`
	Steps           uint64 `json:"steps"`
	Tape            int    `json:"tape"`
	CyclerSteps     uint64 `json:"cycler_steps,omitempty"`
	TranslatedSteps uint64 `json:"translated_steps,omitempty"`
}

func (f Fingerprint) String() string {
	return fmt.Sprintf("states=%d profile=%s steps=%d tape=%d cycler=%d translated=%d",
		f.States, f.Profile, f.Steps, f.Tape, f.CyclerSteps, f.TranslatedSteps)
}

// Checkpoint is the persisted state of a run. Frontier nodes are the only
// work left; every machine outside the frontier subtrees has already been
// counted in Counters and written to the classification log.
type Checkpoint struct {
	Version     int         `json:"version"`
	RunID       string      `json:"run_id"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Counters    Counters    `json:"counters"`
	Frontier    []Node      `json:"frontier"`
	Complete    bool        `json:"complete"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Validate checks the document after decoding. Every failure wraps
// ErrCorruptCheckpoint.
func (c *Checkpoint) Validate() error {
	if c.Version != CheckpointVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrCorruptCheckpoint, c.Version, CheckpointVersion)
	}
	if c.RunID == "" {
		return fmt.Errorf("%w: missing run id", ErrCorruptCheckpoint)
	}
	if !c.Counters.Consistent() {
		return fmt.Errorf("%w: counters total %d does not match their sum", ErrCorruptCheckpoint, c.Counters.Total)
	}
	if c.Complete && len(c.Frontier) > 0 {
		return fmt.Errorf("%w: complete run with %d frontier nodes", ErrCorruptCheckpoint, len(c.Frontier))
	}
	for i, n := range c.Frontier {
		if n.Machine.States() != c.Fingerprint.States {
			return fmt.Errorf("%w: node %d has %d states, run has %d", ErrCorruptCheckpoint, i, n.Machine.States(), c.Fingerprint.States)
		}
		if err := n.Validate(); err != nil {
			return fmt.Errorf("%w: node %d: %v", ErrCorruptCheckpoint, i, err)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *Checkpoint) Clone() *Checkpoint {
	out := *c
	out.Frontier = append([]Node(nil), c.Frontier...)
	return &out
}
