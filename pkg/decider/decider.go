// Package decider classifies enumerated machines.
//
// A Pipeline runs an ordered list of strategies. Each strategy either
// decides the machine, reports the undefined cell the machine reached, or
// defers to the next strategy. A machine every strategy defers on is
// Undecided.
package decider

import (
	"fmt"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// Outcome tells how a strategy ended.
type Outcome uint8

const (
	// Defer passes the machine to the next strategy.
	Defer Outcome = iota
	// Decide means Result.Class is final.
	Decide
	// Reach means the machine ran into the undefined cell Result.Cell.
	Reach
)

// Result is the answer of a single strategy.
type Result struct {
	Outcome Outcome
	Class   domain.Classification
	Cell    machine.Cell
}

// Decided returns a Decide result.
func Decided(cl domain.Classification) Result {
	return Result{Outcome: Decide, Class: cl}
}

// Reached returns a Reach result.
func Reached(c machine.Cell) Result {
	return Result{Outcome: Reach, Cell: c}
}

// Decider is one classification strategy. Implementations may keep scratch
// state and are used by a single goroutine.
type Decider interface {
	Name() string
	// Decide classifies m. changed is the cell that was filled last.
	Decide(m *machine.Machine, changed machine.Cell) Result
}

// Verdict is the answer of a Pipeline. When Branch is set the machine
// reached the undefined cell Cell and Class is not meaningful.
type Verdict struct {
	Class  domain.Classification
	Branch bool
	Cell   machine.Cell
	// By names the strategy that produced the verdict, empty for Undecided.
	By string
}

// Pipeline runs strategies in order until one of them does not defer.
type Pipeline struct {
	deciders []Decider
}

// NewPipeline returns a pipeline over the given strategies.
func NewPipeline(deciders ...Decider) *Pipeline {
	return &Pipeline{deciders: deciders}
}

// Names lists the strategies in order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.deciders))
	for i, d := range p.deciders {
		names[i] = d.Name()
	}
	return names
}

// Classify returns the verdict for m. Reaching the last undefined cell is a
// Halt: filling it leaves a machine without any way to stop.
func (p *Pipeline) Classify(m machine.Machine, changed machine.Cell) Verdict {
	for _, d := range p.deciders {
		r := d.Decide(&m, changed)
		switch r.Outcome {
		case Decide:
			return Verdict{Class: r.Class, By: d.Name()}
		case Reach:
			if m.Undefined() < 2 {
				return Verdict{Class: domain.Halt, By: d.Name()}
			}
			return Verdict{Branch: true, Cell: r.Cell, By: d.Name()}
		}
	}
	return Verdict{Class: domain.Undecided}
}

// Profile selects the strategies of a pipeline.
type Profile string

const (
	// ProfileSeed reproduces the published seed database: irrelevance
	// pruning followed by the bounded run.
	ProfileSeed Profile = "seed"
	// ProfileExtended adds the cycler and the translated cycler.
	ProfileExtended Profile = "extended"
)

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(s); p {
	case ProfileSeed, ProfileExtended:
		return p, nil
	}
	return "", fmt.Errorf("unknown decider profile %q", s)
}

// New builds the pipeline of a profile.
func New(p Profile, b Budgets) (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	deciders := []Decider{Irrelevance{}, NewBoundedRun(b.Steps, b.Tape)}
	switch p {
	case ProfileSeed:
	case ProfileExtended:
		deciders = append(deciders, NewCycler(b.CyclerSteps), NewTranslatedCycler(b.TranslatedSteps))
	default:
		return nil, fmt.Errorf("unknown decider profile %q", p)
	}
	return NewPipeline(deciders...), nil
}
