package queue

import "fmt"

// Queue is the ordered collection of tasks. Order is enqueue order.
type Queue struct {
	tasks []*Task
	byID  map[string]*Task
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{byID: make(map[string]*Task)}
}

// Add appends task. Adding a second task with an existing ID fails.
func (q *Queue) Add(task Task) (*Task, error) {
	if _, exists := q.byID[task.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
	}
	stored := &task
	q.tasks = append(q.tasks, stored)
	q.byID[task.ID] = stored
	return stored, nil
}

// Get returns the live task for id. Callers must not retain the pointer
// beyond the critical section that owns the queue.
func (q *Queue) Get(id string) (*Task, bool) {
	task, ok := q.byID[id]
	return task, ok
}

// Items returns the live tasks in queue order.
func (q *Queue) Items() []*Task {
	out := make([]*Task, len(q.tasks))
	copy(out, q.tasks)
	return out
}

// Tasks returns detached copies of every task in queue order.
func (q *Queue) Tasks() []Task {
	out := make([]Task, len(q.tasks))
	for i, task := range q.tasks {
		out[i] = task.Clone()
	}
	return out
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Remove deletes every task the filter matches in one pass and returns them,
// in queue order, with their handles still attached. The relative order of
// the remaining tasks is unchanged.
func (q *Queue) Remove(filter Filter) []*Task {
	var removed []*Task
	kept := q.tasks[:0]
	for _, task := range q.tasks {
		if filter.Matches(task) {
			removed = append(removed, task)
			delete(q.byID, task.ID)
			continue
		}
		kept = append(kept, task)
	}
	for i := len(kept); i < len(q.tasks); i++ {
		q.tasks[i] = nil
	}
	q.tasks = kept
	return removed
}
