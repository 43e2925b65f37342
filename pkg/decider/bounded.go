package decider

import (
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// BoundedRun simulates the machine within a step and tape budget. It
// decides Halt on an explicit halt cell and Loop when the machine stays
// inside fewer states for longer than their busy beaver bound.
type BoundedRun struct {
	runner *machine.Runner
	steps  uint64
}

// NewBoundedRun returns the strategy with its own runner.
func NewBoundedRun(steps uint64, tape int) *BoundedRun {
	return &BoundedRun{runner: machine.NewRunner(tape), steps: steps}
}

func (*BoundedRun) Name() string { return "bounded-run" }

func (b *BoundedRun) Decide(m *machine.Machine, _ machine.Cell) Result {
	b.runner.Load(m)
	out := b.runner.Run(b.steps)
	switch out.Kind {
	case machine.Halted:
		return Decided(domain.Halt)
	case machine.Reached:
		return Reached(out.Cell)
	case machine.Confined:
		return Decided(domain.Loop)
	}
	return Result{}
}
