package domain

import (
	"fmt"

	"github.com/aretw0/bbseed/pkg/machine"
)

// Node is a frontier entry of the search tree: a partially defined machine,
// the undefined cell its run reached and the index of the next child to
// generate at that cell. A node is owned by exactly one worker, the shared
// pool or a checkpoint at any time.
type Node struct {
	Machine machine.Machine `json:"machine"`
	Branch  machine.Cell    `json:"branch"`
	Next    int             `json:"next"`
}

// Validate checks the structural invariants of a node. The upper bound of
// Next depends on the enumeration and is checked by its caller.
func (n Node) Validate() error {
	if int(n.Branch.State) >= n.Machine.States() {
		return fmt.Errorf("%w: branch %s outside %d-state machine %s", ErrInvariant, n.Branch, n.Machine.States(), n.Machine)
	}
	if n.Machine.At(n.Branch).Kind != machine.Undefined {
		return fmt.Errorf("%w: branch %s of %s is not undefined", ErrInvariant, n.Branch, n.Machine)
	}
	if n.Machine.Undefined() < 2 {
		return fmt.Errorf("%w: %s has no cell left to branch on", ErrInvariant, n.Machine)
	}
	if n.Next < 1 {
		return fmt.Errorf("%w: cursor %d of %s", ErrInvariant, n.Next, n.Machine)
	}
	return nil
}
