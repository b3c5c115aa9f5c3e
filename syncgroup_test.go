package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskHeapOrdering(t *testing.T) {
	r := newTestReaction("r")
	var h taskHeap

	h.push(taskItem{task: newReactionTask(r, PriorityLow, func() {}), seq: 1})
	h.push(taskItem{task: newReactionTask(r, PriorityRealtime, func() {}), seq: 2})
	h.push(taskItem{task: newReactionTask(r, PriorityDefault, func() {}), seq: 3})
	h.push(taskItem{task: newReactionTask(r, PriorityDefault, func() {}), seq: 4})

	first, ok := h.pop()
	require.True(t, ok)
	assert.Equal(t, PriorityRealtime, first.task.Priority())

	second, ok := h.pop()
	require.True(t, ok)
	assert.Equal(t, uint64(3), second.seq, "equal priority breaks ties by submission sequence")

	third, ok := h.pop()
	require.True(t, ok)
	assert.Equal(t, uint64(4), third.seq)

	fourth, ok := h.pop()
	require.True(t, ok)
	assert.Equal(t, PriorityLow, fourth.task.Priority())

	_, ok = h.pop()
	assert.False(t, ok)
}
