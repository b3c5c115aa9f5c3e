package reactor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestReactionSingleGuardIsExclusive races many concurrent generate+
// buildTask attempts against one Single reaction and asserts the
// guard never lets two tasks be simultaneously active, even though
// every caller races the same check against the same reaction.
func TestReactionSingleGuardIsExclusive(t *testing.T) {
	var concurrent atomic.Int32
	var maxConcurrent atomic.Int32
	var built atomic.Int32

	r := &Reaction{id: nextReactionID(), label: "single", single: true}
	r.enabled.Store(true)
	r.generator = func(rt *Runtime, tc *taskContext) (Priority, func(), bool) {
		return PriorityDefault, func() {
			n := concurrent.Add(1)
			for {
				m := maxConcurrent.Load()
				if n <= m || maxConcurrent.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			concurrent.Add(-1)
		}, true
	}

	const attempts = 50
	var wg sync.WaitGroup
	errLimit := newErrorLogLimiter(nil)
	logger := discardLogger()
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			priority, runnable, ok := r.generate(nil, nil)
			if !ok {
				return
			}
			built.Add(1)
			task := r.buildTask(nil, priority, runnable)
			require.NotNil(t, task)
			task.started = timeNow()
			task.run(errLimit, logger)
			task.ended = timeNow()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxConcurrent.Load(), int32(1), "Single reaction ran more than one task at a time")
	assert.Equal(t, int64(0), r.activeTasks.Load(), "activeTasks must settle back to 0")
	assert.Greater(t, built.Load(), int32(0), "at least one of the racing attempts should have won the guard")
}

// TestReactionSingleGuardReleasesOnGeneratorDecline verifies that a
// Single reaction's generator declining (precondition/input miss)
// after the guard reserved a slot releases that reservation, rather
// than leaving the reaction permanently busy.
func TestReactionSingleGuardReleasesOnGeneratorDecline(t *testing.T) {
	var allow atomic.Bool

	r := &Reaction{id: nextReactionID(), label: "single", single: true}
	r.enabled.Store(true)
	r.generator = func(rt *Runtime, tc *taskContext) (Priority, func(), bool) {
		if !allow.Load() {
			return 0, nil, false
		}
		return PriorityDefault, func() {}, true
	}

	_, _, ok := r.generate(nil, nil)
	assert.False(t, ok)
	assert.Equal(t, int64(0), r.activeTasks.Load(), "a declined generator must release its reservation")

	allow.Store(true)
	_, _, ok = r.generate(nil, nil)
	assert.True(t, ok, "the guard must still be available after a prior decline")
}
