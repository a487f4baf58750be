// Package mmu implements the translation engine of a segmented, demand-paged
// memory. The engine walks a virtual address through the segment table and a
// page table, paging in from the backing store whatever is not resident.
package mmu

import (
	"fmt"

	"github.com/sarchlab/segvm/mem/vm"
	"github.com/sarchlab/segvm/memory"
	"github.com/sarchlab/segvm/sim"
	"github.com/sarchlab/segvm/tracing"
)

// Engine owns a physical memory and a backing store and translates virtual
// addresses against the tables they hold. An Engine must be used by one
// caller at a time.
type Engine struct {
	*sim.HookableBase

	name        string
	idGenerator sim.IDGenerator

	physical *memory.PhysicalMemory
	disk     *memory.BackingStore

	translations    uint64
	failures        uint64
	pageTableFaults uint64
	pageFaults      uint64
}

// Initialize builds an engine with the default geometry and loads the given
// tables into it.
func Initialize(
	segments []vm.SegmentTableEntry,
	pages []vm.PageTableEntry,
) (*Engine, error) {
	e := MakeBuilder().Build("MMU")

	err := e.Initialize(segments, pages)
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Name returns the name of the engine.
func (e *Engine) Name() string {
	return e.name
}

// PhysicalMemory returns the physical memory owned by the engine.
func (e *Engine) PhysicalMemory() *memory.PhysicalMemory {
	return e.physical
}

// BackingStore returns the backing store owned by the engine.
func (e *Engine) BackingStore() *memory.BackingStore {
	return e.disk
}

// Stats returns the counters of the engine.
func (e *Engine) Stats() Stats {
	return Stats{
		Translations:    e.translations,
		Failures:        e.failures,
		PageTableFaults: e.pageTableFaults,
		PageFaults:      e.pageFaults,
		FreeFrames:      e.physical.FreeFrameCount(),
	}
}

func (e *Engine) reserveSegmentTable() {
	for i := 0; i < vm.SegmentWordCount; i++ {
		e.physical.SetFree(i, false)
	}
}

// Initialize applies segment-table entries and then page-table entries, in
// order. Later entries for the same slot overwrite earlier ones. Page-table
// entries are written wherever the page table of their segment currently
// lives, in a frame or in a backing-store block.
func (e *Engine) Initialize(
	segments []vm.SegmentTableEntry,
	pages []vm.PageTableEntry,
) error {
	for _, s := range segments {
		base := segmentBase(s.Segment)
		e.physical.WriteWord(base+vm.SegmentSizeOffset, int32(s.Size))
		e.physical.WriteWord(base+vm.SegmentPageTableOffset, int32(s.PageTable))
		e.markUsedIfResident(s.PageTable.Location())
	}

	for _, p := range pages {
		pageTable := e.SegmentLocation(p.Segment)

		switch pageTable.Kind {
		case vm.OnDisk:
			e.disk.WriteWordInBlock(
				int(pageTable.Index), int(p.Page), int32(p.Frame))
		case vm.Resident:
			e.physical.WriteWordInFrame(
				int(pageTable.Index), int(p.Page), int32(p.Frame))
		default:
			// Location 0 means the segment was never loaded. Writing the
			// entry into frame 0 would clobber the segment table.
			return fmt.Errorf("%w: segment %d has no page table",
				vm.ErrMemoryNotInitialized, p.Segment)
		}

		e.markUsedIfResident(p.Frame.Location())
	}

	return nil
}

func (e *Engine) markUsedIfResident(loc vm.Location) {
	if loc.Kind == vm.Resident {
		e.physical.SetFree(int(loc.Index), false)
	}
}

// SegmentSize returns the declared size of a segment.
func (e *Engine) SegmentSize(s vm.SegmentOffset) vm.SegmentSize {
	return vm.SegmentSize(
		e.physical.ReadWord(segmentBase(s) + vm.SegmentSizeOffset))
}

// SegmentLocation returns where the page table of a segment lives.
func (e *Engine) SegmentLocation(s vm.SegmentOffset) vm.Location {
	return vm.DecodeLocation(
		e.physical.ReadWord(segmentBase(s) + vm.SegmentPageTableOffset))
}

// PageLocation returns where a page lives without paging anything in.
func (e *Engine) PageLocation(
	s vm.SegmentOffset,
	p vm.PageOffset,
) (vm.Location, error) {
	pageTable := e.SegmentLocation(s)

	switch pageTable.Kind {
	case vm.OnDisk:
		return vm.DecodeLocation(
			e.disk.ReadWordInBlock(int(pageTable.Index), int(p))), nil
	case vm.Resident:
		return vm.DecodeLocation(
			e.physical.ReadWordInFrame(int(pageTable.Index), int(p))), nil
	default:
		return vm.Location{}, fmt.Errorf("%w: segment %d has no page table",
			vm.ErrMemoryNotInitialized, s)
	}
}

// TranslateRaw decodes a raw address and translates it.
func (e *Engine) TranslateRaw(raw uint32) (uint32, error) {
	va, err := vm.DecodeVirtualAddress(raw)
	if err != nil {
		return 0, err
	}

	return e.Translate(va)
}

// Translate returns the physical word address of a virtual address. Page
// tables and pages that live on the backing store are paged into the lowest
// free frames. A failed translation leaves the tables consistent, so
// retrying it is safe.
func (e *Engine) Translate(va vm.VirtualAddress) (uint32, error) {
	id := e.idGenerator.Generate()
	tracing.StartTask(id, "", e,
		TaskKindTranslation, TaskWhatTranslate,
		TranslationDetail{Address: va})

	physical, err := e.translate(id, va)

	e.translations++
	if err != nil {
		e.failures++
	}

	tracing.EndTask(id, e, TranslationDetail{
		Address:  va,
		Physical: physical,
		Err:      err,
	})

	return physical, err
}

func (e *Engine) translate(taskID string, va vm.VirtualAddress) (uint32, error) {
	segment := vm.SegmentOffset(va.S)

	size := e.SegmentSize(segment)
	if va.PW >= uint32(size) {
		return 0, fmt.Errorf("%w: segment %d offset %d size %d",
			vm.ErrVirtualAddressOutOfBounds, va.S, va.PW, size)
	}

	pageTableFrame, err := e.resolve(taskID, va,
		segmentBase(segment)+vm.SegmentPageTableOffset,
		PageInUnitPageTable)
	if err != nil {
		return 0, err
	}

	pageFrame, err := e.resolve(taskID, va,
		pageTableFrame*vm.PageSize+int(va.P),
		PageInUnitPage)
	if err != nil {
		return 0, err
	}

	return uint32(pageFrame*vm.PageSize + int(va.W)), nil
}

// resolve returns the frame named by the slot at slotAddress, paging the
// unit in first if the slot names a backing-store block.
func (e *Engine) resolve(
	taskID string,
	va vm.VirtualAddress,
	slotAddress int,
	unit string,
) (int, error) {
	loc := vm.DecodeLocation(e.physical.ReadWord(slotAddress))

	switch loc.Kind {
	case vm.Resident:
		return int(loc.Index), nil
	case vm.OnDisk:
		return e.pageIn(taskID, va, slotAddress, unit, loc.Index)
	default:
		return 0, fmt.Errorf("%w: %s of s=%d p=%d",
			vm.ErrMemoryNotInitialized, unit, va.S, va.P)
	}
}

func (e *Engine) pageIn(
	taskID string,
	va vm.VirtualAddress,
	slotAddress int,
	unit string,
	block uint32,
) (int, error) {
	id := e.idGenerator.Generate()
	detail := PageInDetail{
		Unit:    unit,
		Segment: va.S,
		Page:    va.P,
		Block:   block,
	}
	tracing.StartTask(id, taskID, e, TaskKindPageIn, unit, detail)
	tracing.AddTaskStep(taskID, e, "fault_"+unit)

	frame, err := e.AllocatePage()
	if err != nil {
		tracing.EndTask(id, e, detail)
		return 0, err
	}

	e.physical.LoadFrame(frame, e.disk.ReadBlock(int(block)))
	e.physical.WriteWord(slotAddress, vm.ResidentAt(uint32(frame)).Encode())

	if unit == PageInUnitPageTable {
		e.pageTableFaults++
	} else {
		e.pageFaults++
	}

	detail.Frame = uint32(frame)
	tracing.EndTask(id, e, detail)

	return frame, nil
}

// AllocatePage takes the lowest-index free frame outside the segment table.
// Frames are never returned.
func (e *Engine) AllocatePage() (int, error) {
	for i := vm.SegmentWordCount; i < e.physical.NumFrames(); i++ {
		if e.physical.IsFree(i) {
			e.physical.SetFree(i, false)
			return i, nil
		}
	}

	return 0, vm.ErrMemoryFull
}

func segmentBase(s vm.SegmentOffset) int {
	return int(s) * vm.SegmentWordCount
}
