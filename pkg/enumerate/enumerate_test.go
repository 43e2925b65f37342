package enumerate_test

import (
	"testing"

	"github.com/aretw0/bbseed/pkg/domain"
	"github.com/aretw0/bbseed/pkg/enumerate"
	"github.com/aretw0/bbseed/pkg/machine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var b0 = machine.Cell{State: 1, Symbol: 0}

func root(t *testing.T, states int) machine.Machine {
	t.Helper()
	m, err := machine.Root(states)
	require.NoError(t, err)
	return m
}

func TestChildren_TwoStateRootOrder(t *testing.T) {
	children, err := enumerate.New(root(t, 2), b0)
	require.NoError(t, err)
	require.Equal(t, 9, children.Len())

	first, ok := children.Next()
	require.True(t, ok)
	assert.Equal(t, machine.Halt, first.At(b0).Kind)

	want := []string{"0RA", "1RA", "0LA", "1LA", "0RB", "1RB", "0LB", "1LB"}
	for _, cell := range want {
		m, ok := children.Next()
		require.True(t, ok)
		assert.Equal(t, "1RB---_"+cell+"---", m.String())
	}
	_, ok = children.Next()
	assert.False(t, ok)
	assert.True(t, children.Done())
}

func TestCount(t *testing.T) {
	tests := []struct {
		name   string
		m      string
		branch machine.Cell
		want   int
	}{
		{"five state root brings in one fresh state", "1RB---_------_------_------_------", b0, 13},
		{"all states in use", "1RB1LC_0RC---_1LA---", machine.Cell{State: 1, Symbol: 1}, 13},
		{"D is the fresh state", "1RB1LC_0RC---_1LD---_------", machine.Cell{State: 1, Symbol: 1}, 17},
		{"branch row counts as introduced", "1RB---_1LA---_------", machine.Cell{State: 2, Symbol: 0}, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := machine.Parse(tt.m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, enumerate.Count(m, tt.branch))
		})
	}
}

func TestTargets(t *testing.T) {
	targets := enumerate.Targets(root(t, 5), b0)
	require.Len(t, targets, 3)
	assert.Equal(t, enumerate.Target{State: 0}, targets[0])
	assert.Equal(t, enumerate.Target{State: 1}, targets[1])
	assert.Equal(t, enumerate.Target{Fresh: true, State: 2}, targets[2])

	// With every state in use there is no fresh target.
	for _, tg := range enumerate.Targets(root(t, 2), b0) {
		assert.False(t, tg.Fresh)
	}

	children, err := enumerate.New(root(t, 5), b0)
	require.NoError(t, err)
	assert.True(t, children.Target(children.Len()-1).Fresh)
	assert.False(t, children.Target(1).Fresh)
}

func TestChild_RejectsDefinedBranch(t *testing.T) {
	m := root(t, 3)
	_, err := enumerate.Child(m, machine.Cell{State: 0, Symbol: 0}, 1)
	assert.ErrorIs(t, err, domain.ErrInvariant)

	_, err = enumerate.New(m, machine.Cell{State: 4, Symbol: 0})
	assert.ErrorIs(t, err, domain.ErrInvariant)

	_, err = enumerate.Child(m, b0, enumerate.Count(m, b0))
	assert.ErrorIs(t, err, domain.ErrInvariant)
}

func TestFromNode_ResumesAtCursor(t *testing.T) {
	n := domain.Node{Machine: root(t, 3), Branch: b0, Next: 5}
	children, err := enumerate.FromNode(n)
	require.NoError(t, err)
	assert.Equal(t, 5, children.Cursor())

	m, ok := children.Next()
	require.True(t, ok)
	want, err := enumerate.Child(n.Machine, b0, 5)
	require.NoError(t, err)
	assert.Equal(t, want, m)
	assert.Equal(t, children.At(5), m)

	assert.Error(t, children.Seek(children.Len()+1))
}

func permutationsFixingA(n int) [][]machine.State {
	var out [][]machine.State
	var rec func(perm []machine.State, used []bool)
	rec = func(perm []machine.State, used []bool) {
		if len(perm) == n {
			out = append(out, append([]machine.State(nil), perm...))
			return
		}
		for s := 1; s < n; s++ {
			if !used[s] {
				used[s] = true
				rec(append(perm, machine.State(s)), used)
				used[s] = false
			}
		}
	}
	rec([]machine.State{0}, make([]bool, n))
	return out
}

func TestChildren_NoRelabeledSiblings(t *testing.T) {
	m, err := machine.Parse("1RB---_1LA---_------_------")
	require.NoError(t, err)
	branch := machine.Cell{State: 0, Symbol: 1}
	children, err := enumerate.New(m, branch)
	require.NoError(t, err)

	seen := make(map[string]int)
	for i := 1; i < children.Len(); i++ {
		seen[children.At(i).String()] = i
	}
	perms := permutationsFixingA(4)
	for i := 1; i < children.Len(); i++ {
		child := children.At(i)
		for _, perm := range perms[1:] {
			if j, ok := seen[child.Relabel(perm).String()]; ok && j != i {
				t.Fatalf("child %d %s is a relabeling of child %d", i, child, j)
			}
		}
	}
}

func TestChildren_LoadReusesSequence(t *testing.T) {
	var c enumerate.Children
	require.NoError(t, c.Load(domain.Node{Machine: root(t, 5), Branch: b0, Next: 1}))
	assert.Equal(t, 13, c.Len())
	assert.Equal(t, 1, c.Cursor())

	// The last children go to the fresh state, C.
	last := c.At(c.Len() - 1)
	assert.Equal(t, machine.State(2), last.At(b0).Next)
	assert.True(t, c.Target(c.Len()-1).Fresh)

	require.NoError(t, c.Load(domain.Node{Machine: root(t, 2), Branch: b0, Next: 9}))
	assert.Equal(t, 9, c.Len())
	assert.True(t, c.Done())
	_, ok := c.Next()
	assert.False(t, ok)

	assert.ErrorIs(t, c.Load(domain.Node{Machine: root(t, 3), Branch: b0, Next: 14}), domain.ErrInvariant)
}
