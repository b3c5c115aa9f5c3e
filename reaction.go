package reactor

import "sync/atomic"

// reactionIDCounter is explicit process-wide state, same
// rationale as taskIDCounter.
var reactionIDCounter atomic.Uint64

func nextReactionID() uint64 { return reactionIDCounter.Add(1) }

// Generator consults the runtime and the current stimulus's per-task
// context, and returns either ok=false (a precondition failed, or a
// required input was missing — both silent) or the priority to run
// at plus the runnable closure to execute.
type Generator func(rt *Runtime, tc *taskContext) (priority Priority, runnable func(), ok bool)

// Reschedule is the optional post-schedule transform a binding can
// supply; it may redirect a task (e.g. onto the main-thread queue)
// or suppress it entirely by returning nil, in which case the
// scheduler never sees it.
type Reschedule func(rt *Runtime, t *ReactionTask) *ReactionTask

// Reaction is an immutable descriptor of a callback plus its binding
// options. It is also a task factory: generate is called
// once per matching stimulus and may produce a ReactionTask.
type Reaction struct {
	id          uint64
	reactorName string
	label       string
	triggers    []string

	enabled     atomic.Bool
	activeTasks atomic.Int64

	generator  Generator
	reschedule Reschedule
	unbind     func()

	syncKey any
	single  bool
}

// ID returns the reaction's monotonic identity.
func (r *Reaction) ID() uint64 { return r.id }

// Label is a human-readable identifier for tracing.
func (r *Reaction) Label() string { return r.reactorName + "." + r.label }

// Enabled reports whether the reaction currently produces tasks.
func (r *Reaction) Enabled() bool { return r.enabled.Load() }

// Enable flips the reaction to the enabled state.
func (r *Reaction) Enable() { r.enabled.Store(true) }

// Disable flips the reaction to the disabled state; disabled reactions'
// generators are never invoked.
func (r *Reaction) Disable() { r.enabled.Store(false) }

// ActiveTasks returns the number of tasks currently queued or running
// for this reaction.
func (r *Reaction) ActiveTasks() int64 { return r.activeTasks.Load() }

// Unbind removes the reaction from all subscription tables; in-flight
// tasks continue, but no new ones start.
func (r *Reaction) Unbind() {
	r.Disable()
	if r.unbind != nil {
		r.unbind()
	}
}

// generate runs the reaction's generator if the reaction is enabled and
// (for Single reactions) not already active. It does not recover a
// panic raised by the generator: a misbehaving generator is the
// binding layer's bug, not the runtime's to survive mid-dispatch.
//
// For Single reactions the busy check and the reservation it guards
// are one atomic CAS, not a load followed by a later increment in
// buildTask — two concurrent callers racing a plain load-then-increment
// could otherwise both observe activeTasks == 0 and both proceed.
func (r *Reaction) generate(rt *Runtime, tc *taskContext) (priority Priority, runnable func(), ok bool) {
	if !r.Enabled() {
		return 0, nil, false
	}
	if r.single {
		if !r.activeTasks.CompareAndSwap(0, 1) {
			return 0, nil, false
		}
		priority, runnable, ok = r.generator(rt, tc)
		if !ok {
			// generator declined after we reserved the slot; release it.
			r.activeTasks.Store(0)
		}
		return priority, runnable, ok
	}
	return r.generator(rt, tc)
}

// buildTask wraps runnable so activeTasks is incremented on submit and
// decremented on completion, then applies the optional reschedule
// transform. Single reactions already reserved their slot in generate;
// everyone else is counted here.
func (r *Reaction) buildTask(rt *Runtime, priority Priority, runnable func()) *ReactionTask {
	if !r.single {
		r.activeTasks.Add(1)
	}
	wrapped := func() {
		defer r.activeTasks.Add(-1)
		runnable()
	}
	t := newReactionTask(r, priority, wrapped)
	t.reaction = r
	if t.syncKey == nil {
		t.syncKey = r.syncKey
	}
	if r.reschedule != nil {
		return r.reschedule(rt, t)
	}
	return t
}
