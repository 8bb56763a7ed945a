package factory

import (
	"sort"
	"sync"

	"github.com/py-baudin/machines/task"
)

// maxTaskListLength bounds the factory's append-only task history, mirroring
// factory.py's Factory.MAX_TASKLIST_LENGTH.
const maxTaskListLength = 1000

// taskQueue is a thread-safe, sorted queue of pending tasks, ported from
// factory.py's TaskQueue: Put rejects a task already present (by pointer
// identity, matching Python's list membership check) and keeps the queue
// sorted by (Index, Branch), the same ordering indices_as_key imposes.
type taskQueue struct {
	mu    sync.Mutex
	tasks []*task.Task
}

// put mirrors TaskQueue.Duplicate: it silently drops a task already queued
// (reports false) rather than treating it as an error to the caller.
func (q *taskQueue) put(t *task.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, existing := range q.tasks {
		if existing == t {
			return false
		}
	}
	q.tasks = append(q.tasks, t)
	sort.Slice(q.tasks, func(i, j int) bool {
		return q.tasks[i].Identifier().Compare(q.tasks[j].Identifier()) < 0
	})
	return true
}

// get pops the first (lowest-keyed) task, or nil if the queue is empty.
func (q *taskQueue) get() *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t
}

func (q *taskQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *taskQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = nil
}
