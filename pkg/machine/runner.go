package machine

import "fmt"

// busyBeaver holds the known maximum step counts of halting k-state
// two-symbol machines, indexed by k.
var busyBeaver = [...]uint64{0, 1, 6, 21, 107, 47176870}

// BusyBeaver returns BB(k) when it is known.
func BusyBeaver(k int) (uint64, bool) {
	if k < 1 || k >= len(busyBeaver) {
		return 0, false
	}
	return busyBeaver[k], true
}

// Limits bound a simulation.
type Limits struct {
	// Steps is the step budget.
	Steps uint64
	// Tape is the half-width of the tape window around the start cell.
	Tape int
}

// OutcomeKind classifies how a bounded run ended.
type OutcomeKind uint8

const (
	// Halted means an explicit Halt cell was executed.
	Halted OutcomeKind = iota
	// Reached means an Undefined cell was about to be executed.
	Reached
	// ExceededTape means the head tried to leave the tape window.
	ExceededTape
	// ExhaustedBudget means the step budget ran out.
	ExhaustedBudget
	// Confined means the machine ran more than BB(k) steps inside k < n
	// states, so it can never reach another state or halt.
	Confined
)

var outcomeNames = [...]string{"halted", "reached", "exceeded-tape", "exhausted-budget", "confined"}

func (k OutcomeKind) String() string {
	if int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return fmt.Sprintf("outcome(%d)", k)
}

// Outcome is the result of Runner.Run.
type Outcome struct {
	Kind  OutcomeKind
	Steps uint64
	// Cell is the cell being executed for Halted and Reached.
	Cell Cell
}

// StepResult is the result of a single Runner.Step.
type StepResult uint8

const (
	StepOK StepResult = iota
	StepHalt
	StepUndefined
	StepTapeFull
)

// Snapshot is a sparse view of a simulation state. Tape only holds the
// non-blank cells.
type Snapshot struct {
	Head  int
	State State
	Steps uint64
	Tape  map[int]Symbol
}

type compiled struct {
	kind  Kind
	write uint8
	next  uint8
	move  int8
}

// Runner executes machines on a dense, fixed-size tape. It is reused across
// machines and is not safe for concurrent use.
type Runner struct {
	table   [MaxStates * 2]compiled
	full    uint8
	confine uint64

	tape   []uint8
	origin int
	pos    int
	lo, hi int
	state  uint8
	steps  uint64
}

// NewRunner returns a runner with a tape window of 2*halfWidth cells. The
// head starts at cell halfWidth.
func NewRunner(halfWidth int) *Runner {
	if halfWidth < 1 {
		halfWidth = 1
	}
	r := &Runner{
		tape:   make([]uint8, 2*halfWidth),
		origin: halfWidth,
	}
	r.pos, r.lo, r.hi = r.origin, r.origin, r.origin
	return r
}

// Load compiles m into the runner and resets the tape.
func (r *Runner) Load(m *Machine) {
	for s := 0; s < int(m.n); s++ {
		for sym, t := range m.table[s] {
			c := compiled{kind: t.Kind, write: uint8(t.Write), next: uint8(t.Next), move: 1}
			if t.Move == Left {
				c.move = -1
			}
			r.table[s<<1|sym] = c
		}
	}
	r.full = uint8(1<<m.n - 1)
	// BB(n-1) exists for every supported n.
	r.confine = busyBeaver[m.n-1]
	r.Reset()
}

// Reset clears the tape and puts the head back at the start in state A.
func (r *Runner) Reset() {
	clear(r.tape[r.lo : r.hi+1])
	r.pos, r.lo, r.hi = r.origin, r.origin, r.origin
	r.state = 0
	r.steps = 0
}

// Step executes one transition. Running into the tape edge still applies
// the write and the state change but leaves the head in place.
func (r *Runner) Step() StepResult {
	c := &r.table[int(r.state)<<1|int(r.tape[r.pos])]
	if c.kind != Defined {
		if c.kind == Halt {
			return StepHalt
		}
		return StepUndefined
	}
	r.tape[r.pos] = c.write
	r.state = c.next
	r.steps++
	np := r.pos + int(c.move)
	if uint(np) >= uint(len(r.tape)) {
		return StepTapeFull
	}
	r.pos = np
	if np < r.lo {
		r.lo = np
	} else if np > r.hi {
		r.hi = np
	}
	return StepOK
}

// Run executes until the machine stops, leaves the tape window, exhausts
// maxSteps or is confined to a strict subset of its states for longer than
// the busy beaver bound of that subset. The checks run in the order of the
// reference enumeration so that its classification is reproduced exactly.
func (r *Runner) Run(maxSteps uint64) Outcome {
	var seen uint8
	var step uint64
	for {
		seen |= 1 << r.state
		all := seen == r.full
		res := r.Step()
		if !all && step > r.confine {
			return Outcome{Kind: Confined, Steps: step}
		}
		if step > maxSteps {
			return Outcome{Kind: ExhaustedBudget, Steps: step}
		}
		step++
		switch res {
		case StepOK:
		case StepHalt:
			return Outcome{Kind: Halted, Steps: step, Cell: r.Cell()}
		case StepUndefined:
			return Outcome{Kind: Reached, Steps: step, Cell: r.Cell()}
		default:
			return Outcome{Kind: ExceededTape, Steps: step}
		}
	}
}

// Cell returns the cell that executes next.
func (r *Runner) Cell() Cell {
	return Cell{State: State(r.state), Symbol: Symbol(r.tape[r.pos])}
}

// State returns the current state.
func (r *Runner) State() State {
	return State(r.state)
}

// Head returns the head position relative to the start cell.
func (r *Runner) Head() int {
	return r.pos - r.origin
}

// Steps returns how many transitions were applied since the last reset.
func (r *Runner) Steps() uint64 {
	return r.steps
}

// Window returns the lowest and highest head positions visited since the
// last reset, relative to the start cell.
func (r *Runner) Window() (lo, hi int) {
	return r.lo - r.origin, r.hi - r.origin
}

// SymbolAt reads the tape at a position relative to the start cell.
func (r *Runner) SymbolAt(pos int) Symbol {
	i := pos + r.origin
	if i < 0 || i >= len(r.tape) {
		return 0
	}
	return Symbol(r.tape[i])
}

// AppendTape appends the tape cells in [lo, hi] relative to the start cell.
func (r *Runner) AppendTape(dst []byte, lo, hi int) []byte {
	for p := lo; p <= hi; p++ {
		dst = append(dst, byte(r.SymbolAt(p)))
	}
	return dst
}

// Snapshot returns the sparse simulation state.
func (r *Runner) Snapshot() Snapshot {
	s := Snapshot{Head: r.Head(), State: State(r.state), Steps: r.steps, Tape: make(map[int]Symbol)}
	for i := r.lo; i <= r.hi; i++ {
		if r.tape[i] != 0 {
			s.Tape[i-r.origin] = Symbol(r.tape[i])
		}
	}
	return s
}

// Simulate runs m on a fresh runner within the given limits.
func Simulate(m Machine, l Limits) Outcome {
	r := NewRunner(l.Tape)
	r.Load(&m)
	return r.Run(l.Steps)
}
