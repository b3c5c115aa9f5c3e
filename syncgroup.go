package reactor

import "container/heap"

// syncGroup is the mutual-exclusion key state: at most one task
// bearing this group's key is ever handed to a worker at a time; the
// rest wait in a priority queue keyed the same way the global ready
// queue is.
type syncGroup struct {
	active  bool
	pending taskHeap
}

// taskItem is one entry in a priority queue: a task plus its submission
// sequence number, used to break priority ties FIFO.
type taskItem struct {
	task *ReactionTask
	seq  uint64
}

// taskHeap is a max-priority heap ordered by (priority desc, seq asc),
// implementing ordering guarantee directly via heap.Interface.
type taskHeap []taskItem

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.priority != h[j].task.priority {
		return h[i].task.priority > h[j].task.priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(taskItem)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

func (h *taskHeap) push(item taskItem) { heap.Push(h, item) }

func (h *taskHeap) pop() (taskItem, bool) {
	if h.Len() == 0 {
		return taskItem{}, false
	}
	return heap.Pop(h).(taskItem), true
}
