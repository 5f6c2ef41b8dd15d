package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Freq", func() {
	It("should get period", func() {
		Expect((1 * GHz).Period()).To(Equal(1 * Ns))
		Expect((2 * GHz).Period()).To(Equal(500 * Ps))
	})

	It("should panic on zero frequency", func() {
		Expect(func() { Freq(0).Period() }).To(Panic())
	})

	It("should get this tick", func() {
		f := 1 * GHz
		Expect(f.ThisTick(0)).To(Equal(VTime(0)))
		Expect(f.ThisTick(1000)).To(Equal(VTime(1000)))
		Expect(f.ThisTick(1001)).To(Equal(VTime(2000)))
	})

	It("should get the next tick", func() {
		f := 1 * GHz
		Expect(f.NextTick(1000)).To(Equal(VTime(2000)))
		Expect(f.NextTick(1999)).To(Equal(VTime(2000)))
		Expect(f.NextTick(0)).To(Equal(VTime(1000)))
	})

	It("should get the n cycles later", func() {
		f := 1 * GHz
		Expect(f.NCyclesLater(12, 102*Ns)).To(Equal(114 * Ns))
		Expect(f.NCyclesLater(12, 102*Ns+1)).To(Equal(115 * Ns))
	})

	It("should convert durations to cycles rounding up", func() {
		f := 1 * GHz
		Expect(f.Cycles(15 * Ns)).To(Equal(uint64(15)))
		Expect(f.Cycles(15*Ns + 1)).To(Equal(uint64(16)))
		Expect(f.Cycle(15*Ns + 999)).To(Equal(uint64(15)))
		Expect(f.CyclesToTime(3)).To(Equal(3 * Ns))
	})
})
