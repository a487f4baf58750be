package tracing

import (
	"encoding/json"
	"io"
	"sync"
)

type jsonTask struct {
	Task
	Detail any `json:"detail,omitempty"`
}

// JSONTracer writes every ended task as an element of a JSON array. A task
// carries the steps reached while it was in flight and the detail it ended
// with.
type JSONTracer struct {
	w             io.Writer
	lock          sync.Mutex
	firstTask     bool
	closed        bool
	inflightTasks map[string]*Task
}

// NewJSONTracer creates a JSONTracer that writes to w. Close must be called
// to terminate the array.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{
		w:             w,
		firstTask:     true,
		inflightTasks: make(map[string]*Task),
	}

	t.mustWrite([]byte("[\n"))

	return t
}

// StartTask records the start of a task
func (t *JSONTracer) StartTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	task.Steps = nil
	t.inflightTasks[task.ID] = &task
}

// StepTask appends the steps to the task if it is in flight.
func (t *JSONTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	original.Steps = append(original.Steps, task.Steps...)
}

// EndTask writes the task.
func (t *JSONTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	original, ok := t.inflightTasks[task.ID]
	if !ok || t.closed {
		return
	}

	delete(t.inflightTasks, task.ID)

	b, err := json.Marshal(jsonTask{Task: *original, Detail: task.Detail})
	if err != nil {
		panic(err)
	}

	if t.firstTask {
		t.firstTask = false
	} else {
		t.mustWrite([]byte(",\n"))
	}

	t.mustWrite(b)
}

// Close terminates the array. Tasks that end later are dropped.
func (t *JSONTracer) Close() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.closed {
		return
	}

	t.closed = true
	t.mustWrite([]byte("\n]\n"))
}

func (t *JSONTracer) mustWrite(b []byte) {
	_, err := t.w.Write(b)
	if err != nil {
		panic(err)
	}
}
