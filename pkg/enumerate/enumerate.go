// Package enumerate generates the children of a search-tree node in
// canonical tree-normal form.
//
// The children of a node are the machines obtained by filling its branch
// cell. Index 0 is the Halt filling; the remaining indexes enumerate the
// defined transitions with the written symbol changing fastest, then the
// direction (right before left), then the target state. Targets are every
// state already in use plus exactly one fresh state, so no two children are
// relabelings of each other.
package enumerate

import (
	"fmt"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// Target is the next state of a generated transition. Fresh marks the single
// state that is not yet in use; State is its index once assigned.
type Target struct {
	Fresh bool
	State machine.State
}

// Targets returns the target states allowed at branch, in order.
func Targets(m machine.Machine, branch machine.Cell) []Target {
	return appendTargets(nil, m, branch)
}

func appendTargets(dst []Target, m machine.Machine, branch machine.Cell) []Target {
	introduced := m.Introduced(branch)
	last := min(introduced, m.States()-1)
	for s := 0; s <= last; s++ {
		dst = append(dst, Target{Fresh: s == introduced, State: machine.State(s)})
	}
	return dst
}

// Count returns the number of children of m at branch, the Halt filling
// included.
func Count(m machine.Machine, branch machine.Cell) int {
	return 1 + 4*(min(m.Introduced(branch), m.States()-1)+1)
}

// Child returns child i of m at branch.
func Child(m machine.Machine, branch machine.Cell, i int) (machine.Machine, error) {
	c, err := New(m, branch)
	if err != nil {
		return machine.Machine{}, err
	}
	if i < 0 || i >= c.Len() {
		return machine.Machine{}, fmt.Errorf("%w: child %d of %d at %s", domain.ErrInvariant, i, c.Len(), branch)
	}
	return c.At(i), nil
}

func check(m machine.Machine, branch machine.Cell) error {
	if int(branch.State) >= m.States() || m.At(branch).Kind != machine.Undefined {
		return fmt.Errorf("%w: cannot branch on %s of %s", domain.ErrInvariant, branch, m)
	}
	return nil
}

// Children is a lazy, index-addressable sequence of the children of a node.
// It owns its cursor and is not safe for concurrent use. The zero value is
// empty; Load fills it and may be called again to reuse it.
type Children struct {
	parent  machine.Machine
	branch  machine.Cell
	targets []Target
	cursor  int
}

// New returns the children of m at branch with the cursor at 0.
func New(m machine.Machine, branch machine.Cell) (*Children, error) {
	c := &Children{}
	if err := c.reset(m, branch); err != nil {
		return nil, err
	}
	return c, nil
}

// FromNode returns the children of a frontier node, resuming at its cursor.
func FromNode(n domain.Node) (*Children, error) {
	c := &Children{}
	if err := c.Load(n); err != nil {
		return nil, err
	}
	return c, nil
}

// Load replaces the sequence with the children of n, resuming at its
// cursor.
func (c *Children) Load(n domain.Node) error {
	if err := c.reset(n.Machine, n.Branch); err != nil {
		return err
	}
	return c.Seek(n.Next)
}

func (c *Children) reset(m machine.Machine, branch machine.Cell) error {
	if err := check(m, branch); err != nil {
		return err
	}
	c.parent, c.branch = m, branch
	c.targets = appendTargets(c.targets[:0], m, branch)
	c.cursor = 0
	return nil
}

// Len returns the number of children.
func (c *Children) Len() int { return 1 + 4*len(c.targets) }

// Cursor returns the index Next will produce.
func (c *Children) Cursor() int { return c.cursor }

// Branch returns the cell being filled.
func (c *Children) Branch() machine.Cell { return c.branch }

// Transition returns the filling of the branch cell for child i. Index 0 is
// the Halt filling; after it the written symbol changes fastest, then the
// direction, then the target.
func (c *Children) Transition(i int) machine.Transition {
	if i == 0 {
		return machine.HaltTransition
	}
	k := i - 1
	return machine.Define(machine.Symbol(k%2), machine.Direction((k/2)%2), c.targets[k/4].State)
}

// At returns child i without moving the cursor.
func (c *Children) At(i int) machine.Machine {
	return c.parent.With(c.branch, c.Transition(i))
}

// Target returns the target of child i, which must be a defined child.
func (c *Children) Target(i int) Target {
	return c.targets[(i-1)/4]
}

// Next returns the child at the cursor and advances it. ok is false once
// the sequence is exhausted.
func (c *Children) Next() (m machine.Machine, ok bool) {
	if c.cursor >= c.Len() {
		return machine.Machine{}, false
	}
	m = c.At(c.cursor)
	c.cursor++
	return m, true
}

// Seek moves the cursor. Seeking to Len is allowed and exhausts the sequence.
func (c *Children) Seek(i int) error {
	if i < 0 || i > c.Len() {
		return fmt.Errorf("%w: cursor %d outside [0, %d]", domain.ErrInvariant, i, c.Len())
	}
	c.cursor = i
	return nil
}

// Done reports whether the cursor is past the last child.
func (c *Children) Done() bool { return c.cursor >= c.Len() }
