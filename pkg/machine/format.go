package machine

import (
	"fmt"
	"strings"
)

// SeedRecordLen is the size of one machine in the published seed database.
const SeedRecordLen = 30

// SeedStates is the state count of the seed database records.
const SeedStates = 5

// CompactLen is the length of the compact form of an n-state machine.
func CompactLen(states int) int {
	return 7*states - 1
}

// LineLen is the length of one classification log line for an n-state
// machine: the compact form, a space, the code and a newline.
func LineLen(states int) int {
	return CompactLen(states) + 3
}

// AppendCompact appends the compact form of m, for example
// "1RB1LC_1RC1RB_1RD0LE_1LA1LD_---0LA". Undefined and Halt cells are both
// written as "---".
func (m Machine) AppendCompact(dst []byte) []byte {
	for s := 0; s < int(m.n); s++ {
		if s != 0 {
			dst = append(dst, '_')
		}
		for _, t := range m.table[s] {
			if t.Kind != Defined {
				dst = append(dst, '-', '-', '-')
				continue
			}
			move := byte('R')
			if t.Move == Left {
				move = 'L'
			}
			dst = append(dst, '0'+byte(t.Write), move, t.Next.Letter())
		}
	}
	return dst
}

func (m Machine) String() string {
	return string(m.AppendCompact(make([]byte, 0, CompactLen(int(m.n)))))
}

// Parse reads the compact form. "---" cells become Undefined.
func Parse(s string) (Machine, error) {
	rows := strings.Split(s, "_")
	m, err := New(len(rows))
	if err != nil {
		return Machine{}, fmt.Errorf("parse %q: %w", s, err)
	}
	for i, row := range rows {
		if len(row) != 6 {
			return Machine{}, fmt.Errorf("parse %q: row %d has length %d", s, i, len(row))
		}
		for sym := 0; sym < 2; sym++ {
			t, err := parseTransition(row[3*sym:3*sym+3], len(rows))
			if err != nil {
				return Machine{}, fmt.Errorf("parse %q: %w", s, err)
			}
			m.table[i][sym] = t
		}
	}
	return m, nil
}

func parseTransition(s string, states int) (Transition, error) {
	if s == "---" {
		return Transition{}, nil
	}
	var t Transition
	switch s[0] {
	case '0', '1':
		t.Write = Symbol(s[0] - '0')
	default:
		return t, fmt.Errorf("invalid symbol %q", s[0])
	}
	switch s[1] {
	case 'R':
		t.Move = Right
	case 'L':
		t.Move = Left
	default:
		return t, fmt.Errorf("invalid move direction %q", s[1])
	}
	if s[2] < 'A' || int(s[2]-'A') >= states {
		return t, fmt.Errorf("invalid state %q", s[2])
	}
	t.Next = State(s[2] - 'A')
	t.Kind = Defined
	return t, nil
}

func (m Machine) MarshalText() ([]byte, error) {
	return m.AppendCompact(nil), nil
}

func (m *Machine) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ReadSeedRecord decodes one 30-byte seed database record. An all-zero
// cell becomes Undefined so that records compare equal to parsed log lines.
func ReadSeedRecord(b []byte) (Machine, error) {
	if len(b) != SeedRecordLen {
		return Machine{}, fmt.Errorf("seed record has length %d, want %d", len(b), SeedRecordLen)
	}
	m, _ := New(SeedStates)
	for i := 0; i < 2*SeedStates; i++ {
		c := b[3*i : 3*i+3]
		if c[0] == 0 && c[1] == 0 && c[2] == 0 {
			continue
		}
		if c[0] > 1 || c[1] > 1 || c[2] < 1 || c[2] > SeedStates {
			return Machine{}, fmt.Errorf("invalid seed record cell %d: %v", i, c)
		}
		// The database encodes right as 0 and left as 1, like Direction.
		m.table[i/2][i%2] = Define(Symbol(c[0]), Direction(c[1]), State(c[2]-1))
	}
	return m, nil
}

// AppendSeedRecord appends the seed database encoding of a 5-state machine.
func (m Machine) AppendSeedRecord(dst []byte) ([]byte, error) {
	if m.n != SeedStates {
		return dst, fmt.Errorf("%w: seed records hold %d states, machine has %d", ErrStateCount, SeedStates, m.n)
	}
	for s := 0; s < SeedStates; s++ {
		for _, t := range m.table[s] {
			if t.Kind != Defined {
				dst = append(dst, 0, 0, 0)
				continue
			}
			dst = append(dst, byte(t.Write), byte(t.Move), byte(t.Next)+1)
		}
	}
	return dst, nil
}
