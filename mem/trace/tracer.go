// Package trace provides tracers that record the translations of an engine
// and the page-ins they trigger.
package trace

import (
	"log"

	"github.com/sarchlab/segvm/datarecording"
	"github.com/sarchlab/segvm/mem/vm/mmu"
	"github.com/sarchlab/segvm/tracing"
)

// Table names written by the DB tracer.
const (
	TranslationTable = "translations"
	PageInTable      = "page_ins"
)

// TranslationEntry is a row of the translations table. Physical is -1 and
// Error holds the message when the translation failed.
type TranslationEntry struct {
	ID       string
	Raw      uint32
	Segment  uint16
	Page     uint16
	Word     uint16
	Physical int64
	Error    string
}

// PageInEntry is a row of the page_ins table. Frame is -1 when no frame
// could be allocated.
type PageInEntry struct {
	ID            string
	TranslationID string
	Unit          string
	Segment       uint16
	Page          uint16
	Block         uint32
	Frame         int64
}

// A tracer is a hook that writes the tasks of an engine to a logger.
type tracer struct {
	logger *log.Logger
}

// NewTracer creates a tracer that logs one line per task event.
func NewTracer(logger *log.Logger) tracing.Tracer {
	return &tracer{logger: logger}
}

// StartTask logs the start of a translation or a page-in.
func (t *tracer) StartTask(task tracing.Task) {
	switch d := task.Detail.(type) {
	case mmu.TranslationDetail:
		t.logger.Printf("start, %s, %s, %s, %s\n",
			task.Where, task.ID, task.What, d.Address)
	case mmu.PageInDetail:
		t.logger.Printf("start, %s, %s, %s, parent %s, block %d\n",
			task.Where, task.ID, task.What, task.ParentID, d.Block)
	}
}

// StepTask logs a step.
func (t *tracer) StepTask(task tracing.Task) {
	for _, step := range task.Steps {
		t.logger.Printf("step, %s, %s\n", task.ID, step.What)
	}
}

// EndTask logs the outcome of a task.
func (t *tracer) EndTask(task tracing.Task) {
	switch d := task.Detail.(type) {
	case mmu.TranslationDetail:
		if d.Err != nil {
			t.logger.Printf("end, %s, error, %v\n", task.ID, d.Err)
			return
		}

		t.logger.Printf("end, %s, physical %d\n", task.ID, d.Physical)
	case mmu.PageInDetail:
		t.logger.Printf("end, %s, frame %d\n", task.ID, d.Frame)
	default:
		t.logger.Printf("end, %s\n", task.ID)
	}
}

// A dbTracer is a hook that records the tasks of an engine into a database
// using the data recorder.
type dbTracer struct {
	dataRecorder datarecording.DataRecorder
	pendingIns   map[string]*PageInEntry
}

// NewDBTracer creates a tracer that records translations and page-ins into
// the tables TranslationTable and PageInTable.
func NewDBTracer(dataRecorder datarecording.DataRecorder) tracing.Tracer {
	t := &dbTracer{
		dataRecorder: dataRecorder,
		pendingIns:   make(map[string]*PageInEntry),
	}

	t.dataRecorder.CreateTable(TranslationTable, TranslationEntry{})
	t.dataRecorder.CreateTable(PageInTable, PageInEntry{})

	return t
}

// StartTask remembers a page-in until it ends.
func (t *dbTracer) StartTask(task tracing.Task) {
	d, ok := task.Detail.(mmu.PageInDetail)
	if !ok {
		return
	}

	t.pendingIns[task.ID] = &PageInEntry{
		ID:            task.ID,
		TranslationID: task.ParentID,
		Unit:          d.Unit,
		Segment:       d.Segment,
		Page:          d.Page,
		Block:         d.Block,
		Frame:         -1,
	}
}

// StepTask does nothing. Page-ins carry the same information.
func (t *dbTracer) StepTask(tracing.Task) {
}

// EndTask records a finished translation or page-in.
func (t *dbTracer) EndTask(task tracing.Task) {
	switch d := task.Detail.(type) {
	case mmu.TranslationDetail:
		t.dataRecorder.InsertData(TranslationTable, translationEntry(task.ID, d))
	case mmu.PageInDetail:
		entry, exists := t.pendingIns[task.ID]
		if !exists {
			return
		}

		delete(t.pendingIns, task.ID)

		if d.Frame != 0 {
			entry.Frame = int64(d.Frame)
		}

		t.dataRecorder.InsertData(PageInTable, *entry)
	}
}

func translationEntry(id string, d mmu.TranslationDetail) TranslationEntry {
	entry := TranslationEntry{
		ID:       id,
		Raw:      d.Address.Raw(),
		Segment:  d.Address.S,
		Page:     d.Address.P,
		Word:     d.Address.W,
		Physical: int64(d.Physical),
	}

	if d.Err != nil {
		entry.Physical = -1
		entry.Error = d.Err.Error()
	}

	return entry
}
