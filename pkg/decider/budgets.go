package decider

import (
	"errors"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/machine"
)

// Budgets bound the simulating strategies.
type Budgets struct {
	// Steps and Tape bound the bounded run. Tape is the half-width of its
	// tape window.
	Steps uint64 `mapstructure:"steps" yaml:"steps"`
	Tape  int    `mapstructure:"tape" yaml:"tape"`
	// CyclerSteps bounds the exact configuration cycler.
	CyclerSteps uint64 `mapstructure:"cycler_steps" yaml:"cycler_steps"`
	// TranslatedSteps bounds the translated cycler.
	TranslatedSteps uint64 `mapstructure:"translated_steps" yaml:"translated_steps"`
}

// seedTape is the tape half-width of the seed run.
const seedTape = 12289

// DefaultBudgets returns the budgets for an n-state run. The bounded run gets
// BB(n) steps, the longest any halting machine can run. For five states the
// tape matches the seed run; smaller machines get a tape they cannot leave
// within the step budget. Six states have no known bound and reuse the five
// state budget.
func DefaultBudgets(states int) Budgets {
	b := Budgets{CyclerSteps: 1000, TranslatedSteps: 1000}
	steps, ok := machine.BusyBeaver(states)
	switch {
	case !ok:
		b.Steps, _ = machine.BusyBeaver(machine.SeedStates)
		b.Tape = seedTape
	case states == machine.SeedStates:
		b.Steps, b.Tape = steps, seedTape
	default:
		b.Steps, b.Tape = steps, int(steps)+2
	}
	if states >= machine.SeedStates {
		b.CyclerSteps, b.TranslatedSteps = 10000, 10000
	}
	return b
}

// Validate rejects budgets no strategy can work with.
func (b Budgets) Validate() error {
	if b.Steps == 0 {
		return errors.New("step budget must be positive")
	}
	if b.Tape < 1 {
		return errors.New("tape half-width must be positive")
	}
	return nil
}

// Fingerprint returns the run fingerprint of a profile. Budgets of strategies
// the profile does not run are left out so changing them does not block a
// resume.
func (b Budgets) Fingerprint(states int, p Profile) domain.Fingerprint {
	f := domain.Fingerprint{States: states, Profile: string(p), Steps: b.Steps, Tape: b.Tape}
	if p == ProfileExtended {
		f.CyclerSteps, f.TranslatedSteps = b.CyclerSteps, b.TranslatedSteps
	}
	return f
}
