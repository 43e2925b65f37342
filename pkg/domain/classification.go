package domain

import (
	"fmt"

	"github.com/aretw0/bbseed/pkg/machine"
)

// Classification is the verdict attached to every emitted machine.
type Classification uint8

const (
	// Halt machines stop, or reached their last undefined cell.
	Halt Classification = iota
	// Loop machines provably run forever.
	Loop
	// Undecided machines exhausted every decider's budget.
	Undecided
	// Irrelevant machines duplicate another subtree and are pruned.
	Irrelevant
)

// Classifications lists every classification in counter order.
var Classifications = [...]Classification{Halt, Loop, Undecided, Irrelevant}

var (
	classificationCodes = [...]byte{'h', 'l', 'u', 'i'}
	classificationNames = [...]string{"halt", "loop", "undecided", "irrelevant"}
)

// Code returns the one-letter log code.
func (c Classification) Code() byte {
	if int(c) < len(classificationCodes) {
		return classificationCodes[c]
	}
	return '?'
}

func (c Classification) String() string {
	if int(c) < len(classificationNames) {
		return classificationNames[c]
	}
	return fmt.Sprintf("classification(%d)", c)
}

// ParseCode is the inverse of Code.
func ParseCode(b byte) (Classification, error) {
	for i, code := range classificationCodes {
		if code == b {
			return Classification(i), nil
		}
	}
	return 0, fmt.Errorf("unknown classification code %q", b)
}

// Classified is one emitted machine and its verdict.
type Classified struct {
	Machine machine.Machine
	Class   Classification
}
