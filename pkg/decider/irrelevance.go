package decider

import (
	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// Irrelevance prunes machines whose whole subtree duplicates another part of
// the search tree. It looks at the table only and has no budget.
//
// Two checks run against the changed cell:
//   - the changed state is fully defined and equivalent to another fully
//     defined state: equal writes and moves, and targets that are equal or
//     both inside the pair;
//   - the changed transition enters a state that writes back the symbol it
//     reads, moves the other way and continues in one state regardless of
//     the symbol, so the transition could be replaced by a shorter one.
type Irrelevance struct{}

func (Irrelevance) Name() string { return "irrelevance" }

func (Irrelevance) Decide(m *machine.Machine, changed machine.Cell) Result {
	t := m.At(changed)
	if t.Kind != machine.Defined {
		return Result{}
	}
	if hasEquivalentState(m, changed.State) || isRedundant(m, t) {
		return Decided(domain.Irrelevant)
	}
	return Result{}
}

func hasEquivalentState(m *machine.Machine, changed machine.State) bool {
	for s := 0; s < m.States(); s++ {
		if machine.State(s) != changed && equivalent(m, machine.State(s), changed) {
			return true
		}
	}
	return false
}

func equivalent(m *machine.Machine, a, b machine.State) bool {
	for sym := machine.Symbol(0); sym < 2; sym++ {
		ta := m.At(machine.Cell{State: a, Symbol: sym})
		tb := m.At(machine.Cell{State: b, Symbol: sym})
		if ta.Kind != machine.Defined || tb.Kind != machine.Defined {
			return false
		}
		if ta.Write != tb.Write || ta.Move != tb.Move {
			return false
		}
		inPair := (ta.Next == a || ta.Next == b) && (tb.Next == a || tb.Next == b)
		if ta.Next != tb.Next && !inPair {
			return false
		}
	}
	return true
}

func isRedundant(m *machine.Machine, t machine.Transition) bool {
	n0 := m.At(machine.Cell{State: t.Next, Symbol: 0})
	n1 := m.At(machine.Cell{State: t.Next, Symbol: 1})
	if n0.Kind != machine.Defined || n1.Kind != machine.Defined {
		return false
	}
	copies := n0.Write == 0 && n1.Write == 1
	movesBack := n0.Move != t.Move && n1.Move != t.Move
	return copies && movesBack && n0.Next == n1.Next
}
