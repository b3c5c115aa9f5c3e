package reactor

import (
	"sync/atomic"
	"time"
)

// taskIDCounter is process-wide, explicit, and lazily-safe global state
//; it requires no once-guard because atomic.Uint64's
// zero value is ready to use.
var taskIDCounter atomic.Uint64

func nextTaskID() uint64 { return taskIDCounter.Add(1) }

// TaskStats is the statistics record attached to a completed ReactionTask
//. A batch of these is periodically re-emitted as a
// TaskStatsBatch (see statsstream.go) for subscribing reactions.
type TaskStats struct {
	TaskID     uint64
	ReactionID uint64
	Label      string
	Priority   Priority
	Created    time.Time
	Started    time.Time
	Ended      time.Time
	Err        any // recovered panic value, or nil
}

// QueueWait is the duration the task spent queued before it started running.
func (s TaskStats) QueueWait() time.Duration {
	if s.Started.IsZero() || s.Created.IsZero() {
		return 0
	}
	return s.Started.Sub(s.Created)
}

// Duration is how long the task's runnable took to execute.
func (s TaskStats) Duration() time.Duration {
	if s.Ended.IsZero() || s.Started.IsZero() {
		return 0
	}
	return s.Ended.Sub(s.Started)
}

// TaskStatsBatch is the synthetic emit type for the task-event stream.
type TaskStatsBatch struct {
	Stats []TaskStats
}

// ReactionTask is a single scheduled invocation of a Reaction with
// concrete, already-bound arguments.
type ReactionTask struct {
	id       uint64
	reaction *Reaction
	priority Priority
	syncKey  any // nil if no sync group
	mainOnly bool
	runnable func()

	created time.Time
	started time.Time
	ended   time.Time
	err     any
}

// newReactionTask constructs a task; runnable must not be nil.
func newReactionTask(r *Reaction, priority Priority, runnable func()) *ReactionTask {
	return &ReactionTask{
		id:       nextTaskID(),
		reaction: r,
		priority: priority,
		runnable: runnable,
		created:  timeNow(),
	}
}

// ID returns the task's monotonic identity.
func (t *ReactionTask) ID() uint64 { return t.id }

// Priority returns the task's scheduling priority.
func (t *ReactionTask) Priority() Priority { return t.priority }

// run executes the task's runnable with panic recovery. Callers (the scheduler's workers, and the
// dispatcher's Direct path) are responsible for setting t.started
// beforehand and t.ended afterward.
func (t *ReactionTask) run(errLimit *errorLogLimiter, logger *Logger) {
	defer func() {
		if rec := recover(); rec != nil {
			t.err = rec
			if errLimit.allow(t.reaction.id) {
				logger.Err().Str("reaction", t.reaction.Label()).Log("reaction panicked")
			}
		}
	}()
	t.runnable()
}

// stats snapshots the task's statistics record after it has run.
func (t *ReactionTask) stats() TaskStats {
	return TaskStats{
		TaskID:     t.id,
		ReactionID: t.reaction.id,
		Label:      t.reaction.label,
		Priority:   t.priority,
		Created:    t.created,
		Started:    t.started,
		Ended:      t.ended,
		Err:        t.err,
	}
}

// timeNow is overridable in tests without threading a Clock through
// every call site that just wants wall-clock time for statistics
// purposes. Chrono does not use it; it reads its own Clock.
var timeNow = time.Now
