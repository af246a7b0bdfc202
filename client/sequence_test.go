package client

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/taskboard/ordering"
)

func TestSequencePlaceInsertsAndMoves(t *testing.T) {
	seq := NewSequence()
	seq.Reset(1, 2, 3, 4)

	seq.Place(9, 1)
	assert.Equal(t, []int64{1, 9, 2, 3, 4}, seq.IDs())

	// card at index 3 moves to 1
	seq.Reset(1, 2, 3, 4)
	seq.Place(4, 1)
	assert.Equal(t, []int64{1, 4, 2, 3}, seq.IDs())
	require.NoError(t, ordering.Validate(seq.Members()))
}

func TestSequencePlaceIsIdempotent(t *testing.T) {
	seq := NewSequence()
	seq.Reset(1, 2, 3)

	seq.Place(7, 0)
	seq.Place(7, 0)
	assert.Equal(t, []int64{7, 1, 2, 3}, seq.IDs())

	seq.Place(3, 1)
	seq.Place(3, 1)
	assert.Equal(t, []int64{7, 3, 1, 2}, seq.IDs())
	require.NoError(t, ordering.Validate(seq.Members()))
}

func TestSequencePlaceClamps(t *testing.T) {
	seq := NewSequence()
	seq.Reset(1, 2)

	seq.Place(3, 50)
	assert.Equal(t, []int64{1, 2, 3}, seq.IDs())

	seq.Place(1, 50)
	assert.Equal(t, []int64{2, 3, 1}, seq.IDs())
	idx, ok := seq.Index(1)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
}

func TestSequenceRemove(t *testing.T) {
	seq := NewSequence()
	seq.Reset(1, 2, 3)

	seq.Remove(2)
	seq.Remove(2)
	seq.Remove(42)
	assert.Equal(t, []int64{1, 3}, seq.IDs())
	idx, _ := seq.Index(3)
	assert.Equal(t, 1, idx)

	seq.Place(1, ordering.Removed)
	assert.Equal(t, []int64{3}, seq.IDs())
}

func TestSequenceSpeculateUndo(t *testing.T) {
	seq := NewSequence()
	seq.Reset(1, 2, 3)

	undo := seq.Speculate(3, 0)
	assert.Equal(t, []int64{3, 1, 2}, seq.IDs())
	assert.True(t, seq.Pending(3))

	undo()
	assert.Equal(t, []int64{1, 2, 3}, seq.IDs())
	assert.False(t, seq.Pending(3))

	// a second undo is a no-op
	undo()
	assert.Equal(t, []int64{1, 2, 3}, seq.IDs())
}

func TestSequenceSpeculateNewItemUndo(t *testing.T) {
	seq := NewSequence()
	seq.Reset(1, 2)

	undo := seq.Speculate(5, 1)
	assert.Equal(t, []int64{1, 5, 2}, seq.IDs())
	undo()
	assert.Equal(t, []int64{1, 2}, seq.IDs())
}

func TestSequenceBroadcastSettlesSpeculation(t *testing.T) {
	seq := NewSequence()
	seq.Reset(1, 2, 3)

	// the server agrees with the local move
	undo := seq.Speculate(3, 0)
	seq.Place(3, 0)
	undo()
	assert.Equal(t, []int64{3, 1, 2}, seq.IDs())

	// another client won and the server placed it elsewhere
	seq.Reset(1, 2, 3)
	undo = seq.Speculate(3, 0)
	seq.Place(3, 1)
	undo()
	assert.Equal(t, []int64{1, 3, 2}, seq.IDs())

	seq.Reset(1, 2, 3)
	undo = seq.Speculate(1, 2)
	seq.Confirm(1)
	undo()
	assert.Equal(t, []int64{2, 3, 1}, seq.IDs())
}

func TestSequenceStaysContiguous(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	seq := NewSequence()
	for step := 0; step < 1000; step++ {
		id := int64(rng.Intn(20) + 1)
		switch rng.Intn(3) {
		case 0, 1:
			seq.Place(id, rng.Intn(25))
		case 2:
			seq.Remove(id)
		}
		require.NoError(t, ordering.Validate(seq.Members()), "step %d", step)
	}
}
