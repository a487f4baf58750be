package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		domain   *HookableBase
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		domain = NewHookableBase()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should start without hooks", func() {
		Expect(domain.NumHooks()).To(Equal(0))
		Expect(domain.Hooks()).To(BeEmpty())
	})

	It("should invoke hooks in registration order", func() {
		first := NewMockHook(mockCtrl)
		second := NewMockHook(mockCtrl)
		domain.AcceptHook(first)
		domain.AcceptHook(second)

		pos := &HookPos{Name: "Test"}
		ctx := HookCtx{Domain: domain, Pos: pos, Item: 42}

		gomock.InOrder(
			first.EXPECT().Func(ctx),
			second.EXPECT().Func(ctx),
		)

		domain.InvokeHook(ctx)

		Expect(domain.NumHooks()).To(Equal(2))
	})
})

var _ = Describe("IDGenerator", func() {
	It("should generate sequential ids", func() {
		g := NewSequentialIDGenerator()

		Expect(g.Generate()).To(Equal("1"))
		Expect(g.Generate()).To(Equal("2"))
		Expect(g.Generate()).To(Equal("3"))
	})

	It("should generate unique parallel ids", func() {
		g := parallelIDGenerator{}

		a := g.Generate()
		b := g.Generate()

		Expect(a).NotTo(BeEmpty())
		Expect(a).NotTo(Equal(b))
	})
})
