package reactor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChronoCoalescing checks "Chrono coalescing": two
// registrations at the same period share one scheduling slot (one
// *chronoStep), and firing it invokes every entry.
func TestChronoCoalescing(t *testing.T) {
	c := NewChrono(SystemClock, nil)
	go c.Run()
	defer c.Shutdown()

	var mu sync.Mutex
	var fired []string

	require.NoError(t, c.Register(20*time.Millisecond, 1, "a", func(time.Time) {
		mu.Lock()
		fired = append(fired, "a")
		mu.Unlock()
	}))
	require.NoError(t, c.Register(20*time.Millisecond, 1, "b", func(time.Time) {
		mu.Lock()
		fired = append(fired, "b")
		mu.Unlock()
	}))

	c.mu.Lock()
	assert.Len(t, c.steps, 1, "equal periods share a single step")
	assert.Len(t, c.steps[20*time.Millisecond].entries, 2)
	c.mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fired) >= 2
	}, time.Second, time.Millisecond)
}

// TestChronoRegisterIdempotent verifies registering the same (period,
// key) pair twice is a no-op.
func TestChronoRegisterIdempotent(t *testing.T) {
	c := NewChrono(SystemClock, nil)

	require.NoError(t, c.Register(time.Second, 1, "k", func(time.Time) {}))
	require.NoError(t, c.Register(time.Second, 1, "k", func(time.Time) {}))

	c.mu.Lock()
	assert.Len(t, c.steps[time.Second].entries, 1)
	c.mu.Unlock()
}

// TestChronoImmediateFire verifies Every<0,period> fires immediately,
// not after waiting a full period.
func TestChronoImmediateFire(t *testing.T) {
	c := NewChrono(SystemClock, nil)
	go c.Run()
	defer c.Shutdown()

	fired := make(chan struct{}, 1)
	require.NoError(t, c.Register(time.Hour, 0, "k", func(time.Time) {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))

	select {
	case <-fired:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("ticks=0 did not fire immediately")
	}
}

// TestChronoUnregister verifies an unregistered entry no longer fires,
// and the last entry leaving a step removes the step entirely.
func TestChronoUnregister(t *testing.T) {
	c := NewChrono(SystemClock, nil)

	require.NoError(t, c.Register(time.Second, 1, "k", func(time.Time) {}))
	c.Unregister(time.Second, "k")

	c.mu.Lock()
	_, ok := c.steps[time.Second]
	c.mu.Unlock()
	assert.False(t, ok, "step with no remaining entries is removed")
}

// TestChronoShutdownStopsRun verifies Shutdown makes a blocked Run
// return promptly and rejects further registration.
func TestChronoShutdownStopsRun(t *testing.T) {
	c := NewChrono(SystemClock, nil)
	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	c.Shutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Shutdown")
	}

	assert.ErrorIs(t, c.Register(time.Second, 0, "k", func(time.Time) {}), ErrChronoClosed)
}
