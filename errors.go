package reactor

import "errors"

// Standard errors returned by the runtime and its components.
var (
	// ErrRuntimeAlreadyRunning is returned when Start() is called on a runtime that is already running.
	ErrRuntimeAlreadyRunning = errors.New("reactor: runtime is already running")

	// ErrRuntimeTerminated is returned when operations are attempted on a terminated runtime.
	ErrRuntimeTerminated = errors.New("reactor: runtime has been terminated")

	// ErrRuntimeNotRunning describes an operation on a runtime that hasn't started.
	// No function in this package returns it.
	ErrRuntimeNotRunning = errors.New("reactor: runtime is not running")

	// ErrReactionUnbound describes a submission that targets an unbound reaction.
	// No function in this package returns it; an unbound reaction is disabled and
	// its generator is simply not run.
	ErrReactionUnbound = errors.New("reactor: reaction has been unbound")

	// ErrNoTriggerWord is returned by Binding.Then when none of the
	// supplied words registers a bind-time stimulus.
	ErrNoTriggerWord = errors.New("reactor: binding has no triggering word")

	// ErrReactionSingleBusy describes a Single reaction that already has an active task.
	// No function in this package returns it; Reaction.generate reports a busy Single
	// reaction as ok=false.
	ErrReactionSingleBusy = errors.New("reactor: single reaction already has an active task")

	// ErrSyncGroupClosed describes a submission against a sync group that no longer
	// accepts work. No function in this package returns it; after shutdown,
	// TaskScheduler.Submit returns ErrRuntimeTerminated for every task.
	ErrSyncGroupClosed = errors.New("reactor: sync group is closed")

	// ErrFDOutOfRange is returned when a file descriptor is negative or exceeds the poller's indexing range.
	ErrFDOutOfRange = errors.New("reactor: fd out of range")

	// ErrFDAlreadyRegistered is returned by IOMultiplexer.Bind when the same reaction has
	// already bound that fd (other reactions may bind it too), and by the poller's RegisterFD.
	ErrFDAlreadyRegistered = errors.New("reactor: fd already registered")

	// ErrFDNotRegistered is returned by the poller's UnregisterFD and ModifyFD for an fd
	// it has no registration for.
	ErrFDNotRegistered = errors.New("reactor: fd not registered")

	// ErrPollerClosed is returned once the I/O multiplexer has been shut down.
	ErrPollerClosed = errors.New("reactor: io multiplexer closed")

	// ErrChronoClosed is returned once the periodic event source has been shut down.
	ErrChronoClosed = errors.New("reactor: chrono closed")

	// ErrCacheMiss describes a TypedCache read with no value yet. No function in this
	// package returns it: TypedCache reads report a miss as ok=false.
	ErrCacheMiss = errors.New("reactor: no cached value for type")
)
