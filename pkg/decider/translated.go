package decider

import (
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// record is the configuration at the moment the head first reached a new
// outermost cell.
type record struct {
	state machine.State
	pos   int
	step  int
	lo    int
	tape  []byte
}

func (r *record) symbolAt(pos int) byte {
	if i := pos - r.lo; i >= 0 && i < len(r.tape) {
		return r.tape[i]
	}
	return 0
}

// TranslatedCycler proves Loop for machines that repeat the same behaviour
// while drifting along the tape. It compares two record-breaking moves to
// the same side in the same state: if the tape segment the head visited
// between them reads the same at both records, everything after the second
// record is a shifted copy of what followed the first.
type TranslatedCycler struct {
	runner  *machine.Runner
	steps   uint64
	history []int
	right   []record
	left    []record
}

// NewTranslatedCycler returns a translated cycler that simulates at most
// steps transitions.
func NewTranslatedCycler(steps uint64) *TranslatedCycler {
	return &TranslatedCycler{
		runner: machine.NewRunner(int(steps) + 2),
		steps:  steps,
	}
}

func (*TranslatedCycler) Name() string { return "translated-cycler" }

func (c *TranslatedCycler) Decide(m *machine.Machine, _ machine.Cell) Result {
	c.runner.Load(m)
	c.history = append(c.history[:0], 0)
	c.right, c.left = c.right[:0], c.left[:0]
	lo, hi := 0, 0

	for step := uint64(0); step < c.steps; step++ {
		switch c.runner.Step() {
		case machine.StepHalt:
			return Decided(domain.Halt)
		case machine.StepUndefined:
			return Reached(c.runner.Cell())
		case machine.StepTapeFull:
			return Result{}
		}
		head := c.runner.Head()
		c.history = append(c.history, head)
		switch {
		case head > hi:
			hi = head
			if c.repeats(c.right, +1) {
				return Decided(domain.Loop)
			}
			c.right = append(c.right, c.snapshot())
		case head < lo:
			lo = head
			if c.repeats(c.left, -1) {
				return Decided(domain.Loop)
			}
			c.left = append(c.left, c.snapshot())
		}
	}
	return Result{}
}

func (c *TranslatedCycler) snapshot() record {
	lo, hi := c.runner.Window()
	return record{
		state: c.runner.State(),
		pos:   c.runner.Head(),
		step:  len(c.history) - 1,
		lo:    lo,
		tape:  c.runner.AppendTape(nil, lo, hi),
	}
}

// repeats compares the current configuration, which just broke a record in
// direction dir, against earlier records to the same side. For each earlier
// record the head stayed within span cells behind it until now; the segment
// of that width behind both records must match.
func (c *TranslatedCycler) repeats(records []record, dir int) bool {
	state := c.runner.State()
	pos := c.runner.Head()
	now := len(c.history) - 1

	// reach is the farthest the head went back, against dir, since the
	// record being looked at.
	reach := pos
	t := now
	for i := len(records) - 1; i >= 0; i-- {
		r := &records[i]
		for ; t >= r.step; t-- {
			if h := c.history[t]; h*dir < reach*dir {
				reach = h
			}
		}
		if r.state != state {
			continue
		}
		span := (r.pos - reach) * dir
		if c.segmentEqual(r, span, dir, pos) {
			return true
		}
	}
	return false
}

func (c *TranslatedCycler) segmentEqual(r *record, span, dir, pos int) bool {
	for d := 0; d <= span; d++ {
		if r.symbolAt(r.pos-d*dir) != byte(c.runner.SymbolAt(pos-d*dir)) {
			return false
		}
	}
	return true
}
