package machine_test

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/bbseed/pkg/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	bb5Champion = "1RB1LC_1RC1RB_1RD0LE_1LA1LD_---0LA"
	bb4Champion = "1RB1LB_1LA0LC_---1LD_1RD0RA"
	bb2Champion = "1RB1LB_1LA---"
)

func TestParse_RoundTrip(t *testing.T) {
	for _, s := range []string{bb5Champion, bb4Champion, bb2Champion, "1RB---_------_------"} {
		m, err := machine.Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, m.String())
		assert.Len(t, s, machine.CompactLen(m.States()))
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"single state":  "1RA---",
		"short row":     "1RB1L_1LA---",
		"bad symbol":    "2RB1LB_1LA---",
		"bad direction": "1XB1LB_1LA---",
		"unknown state": "1RC1LB_1LA---",
		"too many rows": "------_------_------_------_------_------_------",
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := machine.Parse(s)
			assert.Error(t, err)
		})
	}
}

func TestRoot(t *testing.T) {
	m, err := machine.Root(5)
	require.NoError(t, err)
	assert.Equal(t, "1RB---_------_------_------_------", m.String())
	assert.Equal(t, 9, m.Undefined())

	first, ok := m.FirstUndefined()
	require.True(t, ok)
	assert.Equal(t, "A1", first.String())

	_, err = machine.Root(1)
	assert.ErrorIs(t, err, machine.ErrStateCount)
	_, err = machine.Root(machine.MaxStates + 1)
	assert.ErrorIs(t, err, machine.ErrStateCount)
}

func TestIntroduced(t *testing.T) {
	m, err := machine.Root(5)
	require.NoError(t, err)
	// The root has only row A defined; branching at B brings B in.
	assert.Equal(t, 2, m.Introduced(machine.Cell{State: 1, Symbol: 0}))

	m, err = machine.Parse("1RB---_1LC---_------_------_------")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Introduced(machine.Cell{State: 0, Symbol: 1}))
	assert.Equal(t, 3, m.Introduced(machine.Cell{State: 2, Symbol: 0}))
}

func TestRelabel(t *testing.T) {
	m, err := machine.Parse("1RB1LC_0LA---_1RB0RC")
	require.NoError(t, err)
	swapped := m.Relabel([]machine.State{0, 2, 1})
	assert.Equal(t, "1RC1LB_1RC0RB_0LA---", swapped.String())
	assert.Equal(t, m, swapped.Relabel([]machine.State{0, 2, 1}))
}

func TestSeedRecord(t *testing.T) {
	record := []byte{
		1, 0, 2, 0, 1, 4, 0, 1, 3, 1, 1, 5, 1, 1, 4, 1, 1, 3, 0, 0, 1, 0, 0, 0, 1, 0, 2, 1, 0, 5,
	}
	m, err := machine.ReadSeedRecord(record)
	require.NoError(t, err)
	assert.Equal(t, "1RB0LD_0LC1LE_1LD1LC_0RA---_1RB1RE", m.String())

	encoded, err := m.AppendSeedRecord(nil)
	require.NoError(t, err)
	assert.Equal(t, record, encoded)

	small, err := machine.Parse(bb2Champion)
	require.NoError(t, err)
	_, err = small.AppendSeedRecord(nil)
	assert.ErrorIs(t, err, machine.ErrStateCount)
}

func TestCell_Text(t *testing.T) {
	c, err := machine.ParseCell("D1")
	require.NoError(t, err)
	assert.Equal(t, machine.Cell{State: 3, Symbol: 1}, c)

	_, err = machine.ParseCell("D2")
	assert.Error(t, err)
}

func TestMachine_JSON(t *testing.T) {
	type wrapper struct {
		Machine machine.Machine `json:"machine"`
		Branch  machine.Cell    `json:"branch"`
	}
	m, err := machine.Parse(bb4Champion)
	require.NoError(t, err)
	in := wrapper{Machine: m, Branch: machine.Cell{State: 2, Symbol: 0}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"machine":"1RB1LB_1LA0LC_---1LD_1RD0RA","branch":"C0"}`, string(data))

	var out wrapper
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
