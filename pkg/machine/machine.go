package machine

import (
	"errors"
	"fmt"
)

// MaxStates is the largest state count a Machine can hold.
const MaxStates = 6

// MinStates is the smallest state count the enumeration works with. The
// canonical root transitions from A to B, so there must be a second state.
const MinStates = 2

// State indexes a row of the transition table. State 0 is the start state A.
type State uint8

// Letter returns the conventional letter of the state ('A' for 0).
func (s State) Letter() byte {
	return 'A' + byte(s)
}

// Symbol is a tape symbol, 0 (blank) or 1.
type Symbol uint8

// Direction is a head move.
type Direction uint8

const (
	Right Direction = iota
	Left
)

// Kind tells how a transition table cell is filled.
type Kind uint8

const (
	// Undefined cells are not filled yet. Running into one stops the
	// simulation and is where the search tree branches.
	Undefined Kind = iota
	// Halt cells stop the machine.
	Halt
	// Defined cells write, move and change state.
	Defined
)

// Transition is one cell of the transition table.
type Transition struct {
	Kind  Kind
	Write Symbol
	Move  Direction
	Next  State
}

// Define returns a Defined transition.
func Define(write Symbol, move Direction, next State) Transition {
	return Transition{Kind: Defined, Write: write, Move: move, Next: next}
}

// HaltTransition is the explicit halting transition.
var HaltTransition = Transition{Kind: Halt}

// Cell addresses a transition table cell.
type Cell struct {
	State  State
	Symbol Symbol
}

func (c Cell) String() string {
	return string([]byte{c.State.Letter(), '0' + byte(c.Symbol)})
}

// ParseCell parses the "B0" notation produced by Cell.String.
func ParseCell(s string) (Cell, error) {
	if len(s) != 2 || s[0] < 'A' || s[0] >= 'A'+MaxStates || (s[1] != '0' && s[1] != '1') {
		return Cell{}, fmt.Errorf("invalid cell %q", s)
	}
	return Cell{State: State(s[0] - 'A'), Symbol: Symbol(s[1] - '0')}, nil
}

func (c Cell) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Cell) UnmarshalText(b []byte) error {
	parsed, err := ParseCell(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ErrStateCount is returned for state counts outside [MinStates, MaxStates].
var ErrStateCount = errors.New("unsupported state count")

// Machine is a two-symbol Turing machine transition table with a fixed
// number of states. The zero value is not usable; build one with New or
// Root. Machines are plain values and are copied on assignment.
type Machine struct {
	n     uint8
	table [MaxStates][2]Transition
}

// New returns a machine with every cell Undefined.
func New(states int) (Machine, error) {
	if states < MinStates || states > MaxStates {
		return Machine{}, fmt.Errorf("%w: %d", ErrStateCount, states)
	}
	return Machine{n: uint8(states)}, nil
}

// Root returns the root of the canonical search tree: A0 is 1RB, every
// other cell is Undefined.
func Root(states int) (Machine, error) {
	m, err := New(states)
	if err != nil {
		return Machine{}, err
	}
	m.Set(Cell{State: 0, Symbol: 0}, Define(1, Right, 1))
	return m, nil
}

// States returns the number of states.
func (m Machine) States() int {
	return int(m.n)
}

// At returns the transition stored in a cell.
func (m Machine) At(c Cell) Transition {
	return m.table[c.State][c.Symbol]
}

// Set overwrites a cell.
func (m *Machine) Set(c Cell, t Transition) {
	m.table[c.State][c.Symbol] = t
}

// With returns a copy of m with one cell replaced.
func (m Machine) With(c Cell, t Transition) Machine {
	m.table[c.State][c.Symbol] = t
	return m
}

// Undefined counts the Undefined cells.
func (m Machine) Undefined() int {
	count := 0
	for s := 0; s < int(m.n); s++ {
		for _, t := range m.table[s] {
			if t.Kind == Undefined {
				count++
			}
		}
	}
	return count
}

// FirstUndefined returns the first Undefined cell in row-major order.
func (m Machine) FirstUndefined() (Cell, bool) {
	for s := 0; s < int(m.n); s++ {
		for sym, t := range m.table[s] {
			if t.Kind == Undefined {
				return Cell{State: State(s), Symbol: Symbol(sym)}, true
			}
		}
	}
	return Cell{}, false
}

// HighestDefinedRow returns the highest state with at least one Defined
// cell, or false when no cell is Defined.
func (m Machine) HighestDefinedRow() (State, bool) {
	for s := int(m.n) - 1; s >= 0; s-- {
		if m.table[s][0].Kind == Defined || m.table[s][1].Kind == Defined {
			return State(s), true
		}
	}
	return 0, false
}

// Introduced returns how many states are in use once the branch cell is
// about to be filled: every row up to the highest Defined row or the branch
// row, whichever is higher. The value is also the index of the next fresh
// state, which may equal States() when every state is in use.
func (m Machine) Introduced(branch Cell) int {
	highest := branch.State
	if row, ok := m.HighestDefinedRow(); ok && row > highest {
		highest = row
	}
	return int(highest) + 1
}

// Relabel returns the machine with state s renamed to perm[s]. perm must be
// a permutation of the state indexes.
func (m Machine) Relabel(perm []State) Machine {
	out := Machine{n: m.n}
	for s := 0; s < int(m.n); s++ {
		for sym, t := range m.table[s] {
			if t.Kind == Defined {
				t.Next = perm[t.Next]
			}
			out.table[perm[s]][sym] = t
		}
	}
	return out
}
