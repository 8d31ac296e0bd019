package scheduler

import (
	"testing"

	"github.com/cuemby/reactix/pkg/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionSetAscendingLevelIteration(t *testing.T) {
	rs := newReactionSet()
	rs.Add(3, keys.RuntimeReactionKey(1))
	rs.Add(1, keys.RuntimeReactionKey(2))
	rs.Add(2, keys.RuntimeReactionKey(3))
	rs.Add(1, keys.RuntimeReactionKey(4))

	require.Equal(t, 3, rs.LevelCount())
	assert.Equal(t, 1, rs.LevelAt(0))
	assert.Equal(t, 2, rs.LevelAt(1))
	assert.Equal(t, 3, rs.LevelAt(2))
	assert.ElementsMatch(t, []keys.RuntimeReactionKey{2, 4}, rs.At(1))
}

func TestReactionSetAddIsIdempotent(t *testing.T) {
	rs := newReactionSet()
	rs.Add(0, keys.RuntimeReactionKey(1))
	rs.Add(0, keys.RuntimeReactionKey(1))
	assert.Equal(t, 1, rs.LevelCount())
	assert.Len(t, rs.At(0), 1)
}

func TestReactionSetMerge(t *testing.T) {
	a := newReactionSet()
	a.Add(0, keys.RuntimeReactionKey(1))
	b := newReactionSet()
	b.Add(0, keys.RuntimeReactionKey(2))
	b.Add(5, keys.RuntimeReactionKey(3))

	a.Merge(b)
	require.Equal(t, 2, a.LevelCount())
	assert.ElementsMatch(t, []keys.RuntimeReactionKey{1, 2}, a.At(0))
	assert.ElementsMatch(t, []keys.RuntimeReactionKey{3}, a.At(5))
}

func TestReactionSetResetClearsButKeepsCapacity(t *testing.T) {
	rs := newReactionSet()
	rs.Add(0, keys.RuntimeReactionKey(1))
	rs.Add(4, keys.RuntimeReactionKey(2))
	rs.Reset()

	assert.True(t, rs.IsEmpty())
	assert.Equal(t, 0, rs.LevelCount())

	rs.Add(0, keys.RuntimeReactionKey(9))
	assert.Equal(t, 1, rs.LevelCount())
	assert.Equal(t, []keys.RuntimeReactionKey{9}, rs.At(0))
}
