package reactor

import "sync/atomic"

// RuntimeState is the lifecycle of a Runtime.
//
//	StateAwake (0)       → StateRunning (3)       [Start()]
//	StateRunning (3)     → StateTerminating (4)    [Shutdown()]
//	StateTerminating (4) → StateTerminated (1)     [drain complete]
//
// Shutdown of a Runtime that never started moves StateAwake straight to
// StateTerminated. StateSleeping (2) is defined but no Runtime
// transition uses it.
type RuntimeState uint32

const (
	StateAwake RuntimeState = iota
	StateTerminated
	StateSleeping
	StateRunning
	StateTerminating
)

func (s RuntimeState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine built on a single atomic word,
// holding a Runtime's lifecycle state.
type fastState struct {
	v atomic.Uint32
}

func newFastState(initial RuntimeState) *fastState {
	s := &fastState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *fastState) Load() RuntimeState { return RuntimeState(s.v.Load()) }

func (s *fastState) Store(state RuntimeState) { s.v.Store(uint32(state)) }

func (s *fastState) TryTransition(from, to RuntimeState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
