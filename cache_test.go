package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cacheTestEvent struct{ N int }

func TestTypedCacheLatest(t *testing.T) {
	c := NewTypedCache()

	_, ok := Latest[cacheTestEvent](c)
	assert.False(t, ok, "no value set yet")

	Set(c, cacheTestEvent{N: 1})
	v, ok := Latest[cacheTestEvent](c)
	require.True(t, ok)
	assert.Equal(t, 1, v.N)

	Set(c, cacheTestEvent{N: 2})
	v, ok = Latest[cacheTestEvent](c)
	require.True(t, ok)
	assert.Equal(t, 2, v.N, "setting replaces the latest value")
}

// TestTypedCacheLastN matches Last<N,T>: oldest first, and
// a history of capacity 3 keeps only the three newest values.
func TestTypedCacheLastN(t *testing.T) {
	c := NewTypedCache()
	RequireHistory[cacheTestEvent](c, 3)

	for i := 1; i <= 5; i++ {
		Set(c, cacheTestEvent{N: i})
	}

	last := LastN[cacheTestEvent](c, 3)
	require.Len(t, last, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{last[0].N, last[1].N, last[2].N})
}

func TestTypedCacheLastNFewerThanRequested(t *testing.T) {
	c := NewTypedCache()
	RequireHistory[cacheTestEvent](c, 10)
	Set(c, cacheTestEvent{N: 1})
	Set(c, cacheTestEvent{N: 2})

	last := LastN[cacheTestEvent](c, 10)
	assert.Len(t, last, 2)
}

// TestTaskContextPoolReset verifies acquireTaskContext always returns a
// zeroed context, even after a release that left flags set (the
// pooled object must not leak state between stimuli).
func TestTaskContextPoolReset(t *testing.T) {
	tc := acquireTaskContext()
	tc.hasIOEvents = true
	tc.ioEvents = EventRead
	releaseTaskContext(tc)

	tc2 := acquireTaskContext()
	assert.False(t, tc2.hasIOEvents)
	assert.False(t, tc2.hasChronoTime)
	releaseTaskContext(tc2)
}
