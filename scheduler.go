package reactor

import (
	"sync"
	"sync/atomic"
)

// TaskScheduler accepts ReactionTask submissions and hands them to
// worker threads in an order consistent with priority and sync-group
// policy.
type TaskScheduler struct {
	mu         sync.Mutex
	cond       *sync.Cond
	mainCond   *sync.Cond
	ready      taskHeap
	mainReady  taskHeap
	groups     map[any]*syncGroup
	seq        atomic.Uint64
	terminated bool

	metrics *SchedulerMetrics
}

// NewTaskScheduler constructs a scheduler ready to accept submissions.
func NewTaskScheduler() *TaskScheduler {
	s := &TaskScheduler{
		groups:  make(map[any]*syncGroup),
		metrics: newSchedulerMetrics(),
	}
	s.cond = sync.NewCond(&s.mu)
	s.mainCond = sync.NewCond(&s.mu)
	return s
}

// Metrics exposes the scheduler's streaming latency percentiles.
func (s *TaskScheduler) Metrics() SchedulerMetricsSnapshot { return s.metrics.snapshot() }

// Submit enqueues a task, respecting sync-group exclusivity.
// Equal-priority, equal-readiness tasks are released FIFO by
// submission sequence.
func (s *TaskScheduler) Submit(t *ReactionTask) error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return ErrRuntimeTerminated
	}

	item := taskItem{task: t, seq: s.seq.Add(1)}

	if t.mainOnly {
		s.mainReady.push(item)
		s.mu.Unlock()
		s.mainCond.Signal()
		return nil
	}

	if t.syncKey != nil {
		g, ok := s.groups[t.syncKey]
		if !ok {
			g = &syncGroup{}
			s.groups[t.syncKey] = g
		}
		if g.active {
			g.pending.push(item)
			s.mu.Unlock()
			return nil
		}
		g.active = true
	}

	s.ready.push(item)
	s.mu.Unlock()
	s.cond.Signal()
	return nil
}

// Next blocks until a ready ordinary task exists or the scheduler is
// shut down, then returns it. Workers other than the main-thread worker
// call this.
func (s *TaskScheduler) Next() (*ReactionTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.ready.Len() == 0 && !s.terminated {
		s.cond.Wait()
	}
	item, ok := s.ready.pop()
	if !ok {
		return nil, false
	}
	item.task.started = timeNow()
	return item.task, true
}

// NextMain is Next's counterpart for the dedicated main-thread worker,
// which drains only the main-thread queue.
func (s *TaskScheduler) NextMain() (*ReactionTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.mainReady.Len() == 0 && !s.terminated {
		s.mainCond.Wait()
	}
	item, ok := s.mainReady.pop()
	if !ok {
		return nil, false
	}
	item.task.started = timeNow()
	return item.task, true
}

// Complete is called by a worker after a task's runnable returns (or
// panics and is recovered); it releases the task's sync group to the
// next highest-priority pending task, if any.
func (s *TaskScheduler) Complete(t *ReactionTask) {
	t.ended = timeNow()
	s.metrics.observe(t)

	if t.syncKey == nil {
		return
	}

	s.mu.Lock()
	g, ok := s.groups[t.syncKey]
	if !ok {
		s.mu.Unlock()
		return
	}
	next, ok := g.pending.pop()
	if !ok {
		g.active = false
		s.mu.Unlock()
		return
	}
	s.ready.push(next)
	s.mu.Unlock()
	s.cond.Signal()
}

// Shutdown wakes all workers; after this, Submit rejects further work
// and Next/NextMain return ok=false once their queues drain.
func (s *TaskScheduler) Shutdown() {
	s.mu.Lock()
	s.terminated = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.mainCond.Broadcast()
}

// Len reports the number of ordinary-queue tasks awaiting a worker,
// for overload/backpressure observation.
func (s *TaskScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.Len()
}
