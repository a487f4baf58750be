package mmu

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/segvm/mem/vm"
	"github.com/sarchlab/segvm/memory"
	"github.com/sarchlab/segvm/sim"
	"github.com/sarchlab/segvm/tracing"
)

func mustSegments(triples ...[3]int) []vm.SegmentTableEntry {
	entries := make([]vm.SegmentTableEntry, 0, len(triples))
	for _, t := range triples {
		e, err := vm.NewSegmentTableEntry(uint16(t[0]), uint32(t[1]), int16(t[2]))
		Expect(err).NotTo(HaveOccurred())
		entries = append(entries, e)
	}

	return entries
}

func mustPages(triples ...[3]int) []vm.PageTableEntry {
	entries := make([]vm.PageTableEntry, 0, len(triples))
	for _, t := range triples {
		e, err := vm.NewPageTableEntry(uint16(t[0]), uint16(t[1]), int16(t[2]))
		Expect(err).NotTo(HaveOccurred())
		entries = append(entries, e)
	}

	return entries
}

func raw(s, p, w uint32) uint32 {
	return s<<18 | p<<9 | w
}

var _ = Describe("Engine", func() {
	var (
		engine *Engine
	)

	BeforeEach(func() {
		engine = MakeBuilder().
			WithIDGenerator(sim.NewSequentialIDGenerator()).
			Build("MMU")

		err := engine.Initialize(
			mustSegments([3]int{8, 4000, 3}, [3]int{9, 5000, -7}),
			mustPages(
				[3]int{8, 0, 10}, [3]int{8, 1, -20},
				[3]int{9, 0, 13}, [3]int{9, 1, -25},
			),
		)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("initialize", func() {
		It("should write the segment table", func() {
			m := engine.PhysicalMemory()

			Expect(m.ReadWord(8*vm.SegmentWordCount + vm.SegmentSizeOffset)).
				To(Equal(int32(4000)))
			Expect(m.ReadWord(8*vm.SegmentWordCount + vm.SegmentPageTableOffset)).
				To(Equal(int32(3)))
			Expect(m.ReadWord(9*vm.SegmentWordCount + vm.SegmentSizeOffset)).
				To(Equal(int32(5000)))
			Expect(m.ReadWord(9*vm.SegmentWordCount + vm.SegmentPageTableOffset)).
				To(Equal(int32(-7)))
		})

		It("should write page tables where they live", func() {
			Expect(engine.BackingStore().ReadWordInBlock(7, 0)).To(Equal(int32(13)))
			Expect(engine.BackingStore().ReadWordInBlock(7, 1)).To(Equal(int32(-25)))
			Expect(engine.PhysicalMemory().ReadWord(3 * vm.PageSize)).
				To(Equal(int32(10)))
			Expect(engine.PhysicalMemory().ReadWord(3*vm.PageSize + 1)).
				To(Equal(int32(-20)))
		})

		It("should mark resident frames as used", func() {
			m := engine.PhysicalMemory()

			Expect(m.IsFree(0)).To(BeFalse())
			Expect(m.IsFree(1)).To(BeFalse())
			Expect(m.IsFree(2)).To(BeTrue())
			Expect(m.IsFree(3)).To(BeFalse())
			Expect(m.IsFree(10)).To(BeFalse())
			Expect(m.IsFree(13)).To(BeFalse())
			Expect(m.IsFree(20)).To(BeTrue())
			Expect(engine.Stats().FreeFrames).To(Equal(vm.PageCount - 5))
		})

		It("should let later entries overwrite earlier ones", func() {
			err := engine.Initialize(
				mustSegments([3]int{8, 100, 3}),
				mustPages([3]int{8, 0, 11}),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(engine.SegmentSize(8)).To(Equal(vm.SegmentSize(100)))
			Expect(engine.PageLocation(8, 0)).To(Equal(vm.ResidentAt(11)))
		})

		It("should refuse page entries of a segment without page table", func() {
			err := engine.Initialize(nil, mustPages([3]int{30, 0, 12}))

			Expect(err).To(MatchError(vm.ErrMemoryNotInitialized))
			Expect(engine.PhysicalMemory().ReadWord(0)).To(Equal(int32(0)))
		})

		It("should build an engine in one call", func() {
			e, err := Initialize(
				mustSegments([3]int{8, 4000, 3}),
				mustPages([3]int{8, 0, 10}),
			)

			Expect(err).NotTo(HaveOccurred())
			Expect(e.TranslateRaw(2097162)).To(Equal(uint32(5130)))
		})
	})

	Context("translate", func() {
		It("should resolve addresses in sequence", func() {
			Expect(engine.TranslateRaw(2097162)).To(Equal(uint32(5130)))
			Expect(engine.TranslateRaw(2097674)).To(Equal(uint32(1034)))
			Expect(engine.TranslateRaw(2359306)).To(Equal(uint32(6666)))
			Expect(engine.TranslateRaw(2359818)).To(Equal(uint32(2570)))
		})

		It("should page in a page table and a page on one fault", func() {
			Expect(engine.TranslateRaw(2359818)).To(Equal(uint32(2058)))
			Expect(engine.SegmentLocation(9)).To(Equal(vm.ResidentAt(2)))
			Expect(engine.PageLocation(9, 1)).To(Equal(vm.ResidentAt(4)))
		})

		It("should page in a page exactly once", func() {
			freeBefore := engine.Stats().FreeFrames

			first, err := engine.TranslateRaw(raw(8, 1, 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.PageLocation(8, 1)).To(Equal(vm.ResidentAt(2)))
			Expect(engine.Stats().PageFaults).To(Equal(uint64(1)))
			Expect(engine.Stats().FreeFrames).To(Equal(freeBefore - 1))

			second, err := engine.TranslateRaw(raw(8, 1, 20))
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first + 10))
			Expect(engine.Stats().PageFaults).To(Equal(uint64(1)))
			Expect(engine.Stats().FreeFrames).To(Equal(freeBefore - 1))
		})

		It("should copy the backing-store block into the new frame", func() {
			engine.BackingStore().WriteWordInBlock(20, 10, 1234)

			physical, err := engine.TranslateRaw(raw(8, 1, 10))

			Expect(err).NotTo(HaveOccurred())
			Expect(engine.PhysicalMemory().ReadWord(int(physical))).
				To(Equal(int32(1234)))
		})

		It("should page in a page table once and reuse it", func() {
			_, err := engine.TranslateRaw(raw(9, 0, 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.SegmentLocation(9)).To(Equal(vm.ResidentAt(2)))
			Expect(engine.Stats().PageTableFaults).To(Equal(uint64(1)))

			_, err = engine.TranslateRaw(raw(9, 1, 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.Stats().PageTableFaults).To(Equal(uint64(1)))
			Expect(engine.Stats().PageFaults).To(Equal(uint64(1)))
		})

		It("should check the segment bound before touching tables", func() {
			freeBefore := engine.Stats().FreeFrames

			_, err := engine.TranslateRaw(raw(8, 0, 0) + 4000)
			Expect(err).To(MatchError(vm.ErrVirtualAddressOutOfBounds))

			_, err = engine.TranslateRaw(raw(9, 0, 0) + 5000)
			Expect(err).To(MatchError(vm.ErrVirtualAddressOutOfBounds))

			Expect(engine.Stats().FreeFrames).To(Equal(freeBefore))
			Expect(engine.SegmentLocation(9)).To(Equal(vm.OnDiskAt(7)))
			Expect(engine.Stats().Failures).To(Equal(uint64(2)))
		})

		It("should treat an undeclared segment as empty", func() {
			_, err := engine.TranslateRaw(raw(100, 0, 0))

			Expect(err).To(MatchError(vm.ErrVirtualAddressOutOfBounds))
		})

		It("should fail on a segment without page table", func() {
			Expect(engine.Initialize(mustSegments([3]int{5, 100, 0}), nil)).
				To(Succeed())

			_, err := engine.TranslateRaw(raw(5, 0, 1))

			Expect(err).To(MatchError(vm.ErrMemoryNotInitialized))
		})

		It("should fail on a page without location", func() {
			_, err := engine.TranslateRaw(raw(8, 2, 0))

			Expect(err).To(MatchError(vm.ErrMemoryNotInitialized))
		})

		It("should fail when no frame is free", func() {
			m := engine.PhysicalMemory()
			for i := vm.SegmentWordCount; i < vm.PageCount; i++ {
				m.SetFree(i, false)
			}

			_, err := engine.TranslateRaw(raw(8, 1, 10))
			Expect(err).To(MatchError(vm.ErrMemoryFull))
			Expect(engine.PageLocation(8, 1)).To(Equal(vm.OnDiskAt(20)))

			_, err = engine.TranslateRaw(raw(8, 1, 10))
			Expect(err).To(MatchError(vm.ErrMemoryFull))
		})

		It("should keep resident translations working when memory is full", func() {
			m := engine.PhysicalMemory()
			for i := vm.SegmentWordCount; i < vm.PageCount; i++ {
				m.SetFree(i, false)
			}

			Expect(engine.TranslateRaw(2097162)).To(Equal(uint32(5130)))
		})

		It("should be idempotent", func() {
			for _, address := range []uint32{2097162, 2097674, 2359306, 2359818} {
				first, err := engine.TranslateRaw(address)
				Expect(err).NotTo(HaveOccurred())

				second, err := engine.TranslateRaw(address)
				Expect(err).NotTo(HaveOccurred())

				Expect(second).To(Equal(first))
			}

			Expect(engine.Stats().Translations).To(Equal(uint64(8)))
		})

		It("should reject raw addresses with leading bits", func() {
			_, err := engine.TranslateRaw(1 << 27)

			Expect(err).To(MatchError(vm.ErrVirtualAddressLeadingBits))
			Expect(engine.Stats().Translations).To(BeZero())
		})
	})

	Context("allocate page", func() {
		It("should allocate the lowest free frame", func() {
			e := MakeBuilder().Build("Fresh")

			Expect(e.AllocatePage()).To(Equal(2))
			Expect(e.AllocatePage()).To(Equal(3))

			e.PhysicalMemory().SetFree(4, false)
			Expect(e.AllocatePage()).To(Equal(5))
		})

		It("should skip a frame holding a resident page table", func() {
			Expect(engine.PhysicalMemory().IsFree(3)).To(BeFalse())

			Expect(engine.AllocatePage()).To(Equal(2))
			Expect(engine.AllocatePage()).To(Equal(4))
		})

		It("should report a full memory", func() {
			e := MakeBuilder().Build("Fresh")
			for i := 0; i < vm.PageCount-vm.SegmentWordCount; i++ {
				_, err := e.AllocatePage()
				Expect(err).NotTo(HaveOccurred())
			}

			_, err := e.AllocatePage()
			Expect(err).To(MatchError(vm.ErrMemoryFull))
		})
	})

	Context("tracing", func() {
		var (
			mockCtrl *gomock.Controller
			tracer   *MockTracer
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			tracer = NewMockTracer(mockCtrl)
			tracing.CollectTrace(engine, tracer)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report a page-in inside the translation", func() {
			gomock.InOrder(
				tracer.EXPECT().StartTask(gomock.Any()).Do(func(t tracing.Task) {
					Expect(t.Kind).To(Equal(TaskKindTranslation))
					Expect(t.Where).To(Equal("MMU"))
				}),
				tracer.EXPECT().StartTask(gomock.Any()).Do(func(t tracing.Task) {
					Expect(t.Kind).To(Equal(TaskKindPageIn))
					Expect(t.What).To(Equal(PageInUnitPage))
					Expect(t.ParentID).To(Equal("1"))
					Expect(t.Detail).To(Equal(PageInDetail{
						Unit: PageInUnitPage, Segment: 8, Page: 1, Block: 20,
					}))
				}),
				tracer.EXPECT().StepTask(gomock.Any()).Do(func(t tracing.Task) {
					Expect(t.ID).To(Equal("1"))
					Expect(t.Steps[0].What).To(Equal("fault_page"))
				}),
				tracer.EXPECT().EndTask(gomock.Any()).Do(func(t tracing.Task) {
					Expect(t.ID).To(Equal("2"))
					Expect(t.Detail.(PageInDetail).Frame).To(Equal(uint32(2)))
				}),
				tracer.EXPECT().EndTask(gomock.Any()).Do(func(t tracing.Task) {
					Expect(t.ID).To(Equal("1"))
					d := t.Detail.(TranslationDetail)
					Expect(d.Physical).To(Equal(uint32(1034)))
					Expect(d.Err).NotTo(HaveOccurred())
				}),
			)

			Expect(engine.TranslateRaw(2097674)).To(Equal(uint32(1034)))
		})

		It("should report the error of a failed translation", func() {
			tracer.EXPECT().StartTask(gomock.Any())
			tracer.EXPECT().EndTask(gomock.Any()).Do(func(t tracing.Task) {
				d := t.Detail.(TranslationDetail)
				Expect(d.Err).To(MatchError(vm.ErrVirtualAddressOutOfBounds))
			})

			_, err := engine.TranslateRaw(raw(8, 0, 0) + 4000)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("counting", func() {
		It("should count translations and page-ins", func() {
			counter := tracing.NewCountTracer(tracing.AcceptAll)
			tracing.CollectTrace(engine, counter)

			for _, address := range []uint32{2097162, 2097674, 2359306, 2359818} {
				_, err := engine.TranslateRaw(address)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(counter.TaskCount(TaskKindTranslation, "")).To(Equal(uint64(4)))
			Expect(counter.TaskCount(TaskKindPageIn, PageInUnitPage)).
				To(Equal(uint64(2)))
			Expect(counter.TaskCount(TaskKindPageIn, PageInUnitPageTable)).
				To(Equal(uint64(1)))
			Expect(counter.StepCount("fault_page")).To(Equal(uint64(2)))
			Expect(counter.StepNames()).
				To(Equal([]string{"fault_page", "fault_page_table"}))
			Expect(counter.NumInflight()).To(BeZero())
		})
	})

	Context("builder", func() {
		It("should use the given stores", func() {
			m := memory.NewPhysicalMemory(vm.PageCount, vm.PageSize)
			s := memory.NewBackingStore(vm.PageCount, vm.PageSize)

			e := MakeBuilder().
				WithPhysicalMemory(m).
				WithBackingStore(s).
				Build("Custom")

			Expect(e.PhysicalMemory()).To(BeIdenticalTo(m))
			Expect(e.BackingStore()).To(BeIdenticalTo(s))
			Expect(e.Name()).To(Equal("Custom"))
		})

		It("should panic on a foreign geometry", func() {
			Expect(func() {
				MakeBuilder().
					WithPhysicalMemory(memory.NewPhysicalMemory(16, vm.PageSize)).
					Build("Small")
			}).To(Panic())
		})
	})
})

var _ = Describe("TranslationDetail", func() {
	It("should marshal the raw address and the error message", func() {
		va, err := vm.DecodeVirtualAddress(2097674)
		Expect(err).NotTo(HaveOccurred())

		b, err := json.Marshal(TranslationDetail{
			Address: va,
			Err:     vm.ErrMemoryFull,
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(MatchJSON(
			`{"address":2097674,"physical":0,"error":"memory full"}`))
	})
})

var _ = Describe("Builder", func() {
	It("should give every engine its own task numbering", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		for _, name := range []string{"A", "B"} {
			e := MakeBuilder().Build(name)
			tracer := NewMockTracer(mockCtrl)
			tracing.CollectTrace(e, tracer)

			tracer.EXPECT().StartTask(gomock.Any()).Do(func(t tracing.Task) {
				Expect(t.ID).To(Equal("1"))
			})
			tracer.EXPECT().EndTask(gomock.Any())

			_, err := e.TranslateRaw(raw(1, 0, 0))
			Expect(err).To(MatchError(vm.ErrVirtualAddressOutOfBounds))
		}
	})
})
