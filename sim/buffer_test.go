package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BufferImpl", func() {
	var (
		buf Buffer
	)

	BeforeEach(func() {
		buf = NewBuffer("Buf", 2)
	})

	It("should allow push and pop", func() {
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())

		buf.Push(1)
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		buf.Push(2)
		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))
		Expect(func() {
			buf.Push(3)
		}).To(Panic())

		Expect(buf.Peek()).To(Equal(1))
		Expect(buf.Pop()).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))
		Expect(buf.Peek()).To(Equal(2))
		Expect(buf.Pop()).To(Equal(2))
		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
		Expect(buf.Pop()).To(BeNil())
	})

	It("should never accept an element with zero capacity", func() {
		empty := NewBuffer("Empty", 0)
		Expect(empty.CanPush()).To(BeFalse())
		Expect(func() { empty.Push(1) }).To(Panic())
	})

	It("should invoke hooks on push and pop", func() {
		var positions []*HookPos
		buf.AcceptHook(HookFunc(func(ctx HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		buf.Push(1)
		buf.Pop()

		Expect(positions).To(Equal([]*HookPos{HookPosBufPush, HookPosBufPop}))
	})

	It("should clear", func() {
		buf.Push(2)
		Expect(buf.Size()).To(Equal(1))

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
		Expect(buf.Peek()).To(BeNil())
	})
})

var _ = Describe("Naming", func() {
	It("should accept hierarchical names", func() {
		Expect(func() { NameMustBeValid("Ctrl.HostPort") }).NotTo(Panic())
		Expect(func() { NameMustBeValid("Ctrl.Port[2].Buf") }).NotTo(Panic())
	})

	It("should reject malformed names", func() {
		Expect(func() { NameMustBeValid("Ctrl.") }).To(Panic())
		Expect(func() { NameMustBeValid("ctrl") }).To(Panic())
		Expect(func() { NameMustBeValid("Ctrl.Host_Port") }).To(Panic())
		Expect(func() { NameMustBeValid("Ctrl.Port[a]") }).To(Panic())
		Expect(func() { NameMustBeValid("Ctrl.Port[1") }).To(Panic())
	})

	It("should build names", func() {
		Expect(BuildName("", "Ctrl")).To(Equal("Ctrl"))
		Expect(BuildName("Ctrl", "Host")).To(Equal("Ctrl.Host"))
	})
})
