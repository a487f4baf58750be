package mmu

import (
	"fmt"

	"github.com/sarchlab/segvm/mem/vm"
	"github.com/sarchlab/segvm/memory"
	"github.com/sarchlab/segvm/sim"
)

// A Builder can build translation engines.
type Builder struct {
	physical    *memory.PhysicalMemory
	disk        *memory.BackingStore
	idGenerator sim.IDGenerator
}

// MakeBuilder creates a new builder
func MakeBuilder() Builder {
	return Builder{}
}

// WithPhysicalMemory sets the physical memory the engine owns. A fresh one is
// created if not set.
func (b Builder) WithPhysicalMemory(m *memory.PhysicalMemory) Builder {
	b.physical = m
	return b
}

// WithBackingStore sets the backing store the engine owns. A fresh one is
// created if not set.
func (b Builder) WithBackingStore(s *memory.BackingStore) Builder {
	b.disk = s
	return b
}

// WithIDGenerator sets the generator of task IDs. If not set, the engine
// numbers its tasks sequentially on its own.
func (b Builder) WithIDGenerator(g sim.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

// Build returns a newly created engine with an empty segment table.
func (b Builder) Build(name string) *Engine {
	e := &Engine{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		physical:     b.physical,
		disk:         b.disk,
		idGenerator:  b.idGenerator,
	}

	if e.physical == nil {
		e.physical = memory.NewPhysicalMemory(vm.PageCount, vm.PageSize)
	}

	if e.disk == nil {
		e.disk = memory.NewBackingStore(vm.PageCount, vm.PageSize)
	}

	if e.idGenerator == nil {
		e.idGenerator = sim.NewSequentialIDGenerator()
	}

	mustMatchGeometry("physical memory", e.physical.NumFrames(), e.physical.FrameSize())
	mustMatchGeometry("backing store", e.disk.NumBlocks(), e.disk.BlockSize())

	e.reserveSegmentTable()

	return e
}

func mustMatchGeometry(what string, count, size int) {
	if count != vm.PageCount || size != vm.PageSize {
		panic(fmt.Sprintf(
			"%s has %d units of %d words, want %d units of %d words",
			what, count, size, vm.PageCount, vm.PageSize))
	}
}
