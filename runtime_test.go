package reactor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRuntimeStartupShutdownLifecycle verifies the basic lifecycle: a
// reactor subscribes to Startup, fires once, and emitting Shutdown
// from inside that callback brings the runtime down without deadlock.
func TestRuntimeStartupShutdownLifecycle(t *testing.T) {
	rt := New(Config{Workers: 2})

	var startupCount int
	var mu sync.Mutex

	react := NewReactor(rt, "lifecycle")
	_, err := react.On(StartupWord()).Then("on-startup", func([]any) {
		mu.Lock()
		startupCount++
		mu.Unlock()
		rt.Emit(Local, Shutdown{})
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- rt.Start(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not shut down")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, startupCount, "Startup fires exactly once")
	assert.Equal(t, StateTerminated, rt.state.Load())
}

// TestRuntimeInitializeScopeQueuesUntilStart verifies that
// an Initialize emit issued before Start() is delivered once the
// runtime finishes its startup phase, not before.
func TestRuntimeInitializeScopeQueuesUntilStart(t *testing.T) {
	rt := New(Config{Workers: 1})

	received := make(chan dispatchTestEvent, 1)
	react := NewReactor(rt, "init")
	_, err := react.On(Trigger[dispatchTestEvent]()).Then("on-event", func(args []any) {
		received <- args[0].(dispatchTestEvent)
	})
	require.NoError(t, err)

	require.NoError(t, rt.Emit(Initialize, dispatchTestEvent{N: 9}))

	select {
	case <-received:
		t.Fatal("Initialize emit delivered before Start")
	case <-time.After(30 * time.Millisecond):
	}

	go rt.Start(context.Background())
	defer rt.Shutdown(context.Background())

	select {
	case v := <-received:
		assert.Equal(t, 9, v.N)
	case <-time.After(time.Second):
		t.Fatal("Initialize emit never delivered after Start")
	}
}

// TestRuntimeZeroWorkersBoundary checks "zero workers" edge
// case: ordinary tasks never run, but main-thread tasks still run on
// the goroutine that called Start.
func TestRuntimeZeroWorkersBoundary(t *testing.T) {
	rt := New(Config{NoWorkers: true})

	mainRan := make(chan struct{})
	react := NewReactor(rt, "main-only")
	_, err := react.On(Trigger[dispatchTestEvent](), MainThread()).Then("main-task", func([]any) {
		close(mainRan)
	})
	require.NoError(t, err)

	ordinaryRan := make(chan struct{})
	_, err = react.On(Trigger[dispatchTestEvent]()).Then("ordinary-task", func([]any) {
		close(ordinaryRan)
	})
	require.NoError(t, err)

	go rt.Start(context.Background())
	defer rt.Shutdown(context.Background())

	require.Eventually(t, func() bool {
		return rt.state.Load() == StateRunning
	}, time.Second, time.Millisecond)

	require.NoError(t, rt.Emit(Local, dispatchTestEvent{N: 1}))

	select {
	case <-mainRan:
	case <-time.After(time.Second):
		t.Fatal("main-thread task never ran with zero ordinary workers")
	}

	select {
	case <-ordinaryRan:
		t.Fatal("ordinary task ran despite zero workers")
	case <-time.After(50 * time.Millisecond):
	}
}

// TestRuntimePanicDoesNotStopLaterTasks verifies that a
// reaction whose callback panics still lets later tasks for the same
// reaction run.
func TestRuntimePanicDoesNotStopLaterTasks(t *testing.T) {
	rt := New(Config{Workers: 2})

	var calls int
	var mu sync.Mutex
	ran := make(chan struct{}, 2)

	react := NewReactor(rt, "flaky")
	_, err := react.On(Trigger[dispatchTestEvent]()).Then("flaky-task", func([]any) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		ran <- struct{}{}
		if n == 1 {
			panic("boom")
		}
	})
	require.NoError(t, err)

	go rt.Start(context.Background())
	defer rt.Shutdown(context.Background())

	require.Eventually(t, func() bool {
		return rt.state.Load() == StateRunning
	}, time.Second, time.Millisecond)

	require.NoError(t, rt.Emit(Local, dispatchTestEvent{N: 1}))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("first task never ran")
	}

	require.NoError(t, rt.Emit(Local, dispatchTestEvent{N: 2}))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("second task never ran after the first panicked")
	}
}

// TestRuntimeDoubleStartFails verifies a second concurrent Start call
// observes the state machine and returns an error rather than starting
// a second worker pool.
func TestRuntimeDoubleStartFails(t *testing.T) {
	rt := New(Config{Workers: 1})

	go rt.Start(context.Background())
	defer rt.Shutdown(context.Background())

	require.Eventually(t, func() bool {
		return rt.state.Load() == StateRunning
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, rt.Start(context.Background()), ErrRuntimeAlreadyRunning)
}

// TestRuntimeEmitAfterTerminatedFails verifies a terminated runtime
// rejects further emits.
func TestRuntimeEmitAfterTerminatedFails(t *testing.T) {
	rt := New(Config{Workers: 1})
	go rt.Start(context.Background())

	require.Eventually(t, func() bool {
		return rt.state.Load() == StateRunning
	}, time.Second, time.Millisecond)

	require.NoError(t, rt.Shutdown(context.Background()))

	require.Eventually(t, func() bool {
		return rt.state.Load() == StateTerminated
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, rt.Emit(Local, dispatchTestEvent{N: 1}), ErrRuntimeTerminated)
}
