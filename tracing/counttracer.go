package tracing

import (
	"sync"
)

// CountTracer counts the tasks that pass its filter, grouped by kind and by
// what, and the steps reached while processing them.
type CountTracer struct {
	filter        TaskFilter
	lock          sync.Mutex
	inflightTasks map[string]Task
	taskCount     map[string]uint64
	stepCount     map[string]uint64
	stepNames     []string
}

// NewCountTracer creates a new CountTracer
func NewCountTracer(filter TaskFilter) *CountTracer {
	return &CountTracer{
		filter:        filter,
		inflightTasks: make(map[string]Task),
		taskCount:     make(map[string]uint64),
		stepCount:     make(map[string]uint64),
	}
}

// TaskCount returns the number of completed tasks with the given kind and
// what. An empty what counts every task of the kind.
func (t *CountTracer) TaskCount(kind, what string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount[countKey(kind, what)]
}

// StepCount returns the number of times a step with the given name was
// reached.
func (t *CountTracer) StepCount(stepName string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stepCount[stepName]
}

// StepNames returns all the step names collected, in first-seen order.
func (t *CountTracer) StepNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.stepNames...)
}

// NumInflight returns the number of tasks started but not yet ended.
func (t *CountTracer) NumInflight() int {
	t.lock.Lock()
	defer t.lock.Unlock()

	return len(t.inflightTasks)
}

// StartTask records the task as in flight.
func (t *CountTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask counts the step if the task is tracked.
func (t *CountTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflightTasks[task.ID]; !ok {
		return
	}

	for _, step := range task.Steps {
		if _, seen := t.stepCount[step.What]; !seen {
			t.stepNames = append(t.stepNames, step.What)
		}
		t.stepCount[step.What]++
	}
}

// EndTask counts the task and forgets it.
func (t *CountTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	delete(t.inflightTasks, task.ID)
	t.taskCount[countKey(original.Kind, "")]++
	t.taskCount[countKey(original.Kind, original.What)]++
}

func countKey(kind, what string) string {
	return kind + "/" + what
}
