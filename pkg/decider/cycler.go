package decider

import (
	"encoding/binary"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// Cycler proves Loop by finding a configuration (state, head, tape) that
// occurs twice.
type Cycler struct {
	runner *machine.Runner
	steps  uint64
	seen   map[string]struct{}
	key    []byte
}

// NewCycler returns a cycler that simulates at most steps transitions. Its
// tape is wide enough that the head never leaves it within the budget.
func NewCycler(steps uint64) *Cycler {
	return &Cycler{
		runner: machine.NewRunner(int(steps) + 2),
		steps:  steps,
		seen:   make(map[string]struct{}),
	}
}

func (*Cycler) Name() string { return "cycler" }

func (c *Cycler) Decide(m *machine.Machine, _ machine.Cell) Result {
	clear(c.seen)
	c.runner.Load(m)
	for step := uint64(0); step <= c.steps; step++ {
		c.key = appendConfiguration(c.key[:0], c.runner)
		if _, ok := c.seen[string(c.key)]; ok {
			return Decided(domain.Loop)
		}
		c.seen[string(c.key)] = struct{}{}

		switch c.runner.Step() {
		case machine.StepHalt:
			return Decided(domain.Halt)
		case machine.StepUndefined:
			return Reached(c.runner.Cell())
		case machine.StepTapeFull:
			return Result{}
		}
	}
	return Result{}
}

// appendConfiguration encodes the state, the head and the tape between the
// outermost non-blank cells.
func appendConfiguration(dst []byte, r *machine.Runner) []byte {
	lo, hi := r.Window()
	for lo <= hi && r.SymbolAt(lo) == 0 {
		lo++
	}
	for hi >= lo && r.SymbolAt(hi) == 0 {
		hi--
	}
	if lo > hi {
		lo, hi = 0, -1
	}
	dst = append(dst, byte(r.State()))
	dst = binary.AppendVarint(dst, int64(r.Head()))
	dst = binary.AppendVarint(dst, int64(lo))
	return r.AppendTape(dst, lo, hi)
}
