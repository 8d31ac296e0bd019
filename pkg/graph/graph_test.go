package graph

import (
	"testing"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignLevelsSourcelessNodesAreZero(t *testing.T) {
	g := New()
	g.AddNode(0)
	g.AddNode(1)

	levels, err := g.AssignLevels()
	require.NoError(t, err)
	assert.Equal(t, 0, levels[keys.ReactionKey(0)])
	assert.Equal(t, 0, levels[keys.ReactionKey(1)])
}

func TestAssignLevelsRespectsEdgeOrdering(t *testing.T) {
	g := New()
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)

	levels, err := g.AssignLevels()
	require.NoError(t, err)
	assert.Less(t, levels[keys.ReactionKey(0)], levels[keys.ReactionKey(1)])
	assert.Less(t, levels[keys.ReactionKey(1)], levels[keys.ReactionKey(2)])
}

func TestAssignLevelsDiamondTakesLongestPath(t *testing.T) {
	// 0 -> 1 -> 3
	// 0 -> 2 -> 3
	g := New()
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(1, 3)
	g.AddEdge(2, 3)

	levels, err := g.AssignLevels()
	require.NoError(t, err)
	assert.Equal(t, 0, levels[keys.ReactionKey(0)])
	assert.Equal(t, 1, levels[keys.ReactionKey(1)])
	assert.Equal(t, 1, levels[keys.ReactionKey(2)])
	assert.Equal(t, 2, levels[keys.ReactionKey(3)])
}

func TestDetectCycleFindsMinimalWitness(t *testing.T) {
	g := New()
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 0)

	witness, found := g.DetectCycle()
	require.True(t, found)
	assert.LessOrEqual(t, len(witness), 4)
	assert.Equal(t, witness[0], witness[len(witness)-1])
}

func TestAssignLevelsReturnsCycleError(t *testing.T) {
	g := New()
	g.AddEdge(0, 1)
	g.AddEdge(1, 0)

	_, err := g.AssignLevels()
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestAcyclicGraphHasNoCycle(t *testing.T) {
	g := New()
	g.AddEdge(0, 1)
	_, found := g.DetectCycle()
	assert.False(t, found)
}
