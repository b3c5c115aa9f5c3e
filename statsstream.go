package reactor

import (
	"context"

	"github.com/joeycumines/go-microbatch"
)

// statsStream batches completed ReactionTask statistics and re-emits
// them as a TaskStatsBatch Local emit,
// using microbatch.Batcher so a busy Runtime doesn't re-enter the
// Dispatcher once per completed task.
type statsStream struct {
	batcher *microbatch.Batcher[TaskStats]
	cancel  context.CancelFunc
}

func newStatsStream(rt *Runtime, cfg microbatch.BatcherConfig) *statsStream {
	ctx, cancel := context.WithCancel(context.Background())
	ss := &statsStream{cancel: cancel}
	ss.batcher = microbatch.NewBatcher[TaskStats](&cfg, func(_ context.Context, jobs []TaskStats) error {
		batch := make([]TaskStats, len(jobs))
		copy(batch, jobs)
		rt.Emit(Local, TaskStatsBatch{Stats: batch})
		return nil
	})
	_ = ctx // not passed to the batcher or to Submit; shutdown only calls cancel
	return ss
}

// report submits a completed task's statistics for batching. It never
// blocks the caller for more than the time it takes to hand the job to
// the batcher's internal goroutine, by running the (synchronous)
// Submit call in its own goroutine.
func (ss *statsStream) report(s TaskStats) {
	if ss == nil {
		return
	}
	go func() {
		_, _ = ss.batcher.Submit(context.Background(), s)
	}()
}

func (ss *statsStream) shutdown() {
	if ss == nil {
		return
	}
	ss.cancel()
	_ = ss.batcher.Close()
}
