package cxl

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
)

var _ = Describe("Deferred Queue", func() {
	var (
		engine *sim.SerialEngine
		ctrl   *Comp
		queue  *deferredQueue
		sent   []*mem.Transaction
		accept bool
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		ctrl = MakeBuilder().WithEngine(engine).Build("CXL")
		queue = ctrl.memSide.reqQueue
		sent = nil
		accept = true
		queue.send = func(t *mem.Transaction) bool {
			if !accept {
				return false
			}

			sent = append(sent, t)

			return true
		}
		queue.afterSend = nil
	})

	It("should send at the scheduled time", func() {
		t := read(0)
		queue.schedule(t, 7*sim.Ns)

		Expect(queue.sendPending).To(BeTrue())
		Expect(engine.Run()).To(Succeed())
		Expect(sent).To(ConsistOf(t))
		Expect(engine.CurrentTime()).To(Equal(7 * sim.Ns))
		Expect(queue.sendPending).To(BeFalse())
	})

	It("should keep a single pending send", func() {
		queue.schedule(read(0), 5*sim.Ns)
		queue.schedule(read(64), 3*sim.Ns)

		Expect(engine.Run()).To(Succeed())
		Expect(sent).To(HaveLen(2))
		Expect(engine.CurrentTime()).To(Equal(5 * sim.Ns))
	})

	It("should wait for a retry after a refusal", func() {
		accept = false
		queue.schedule(read(0), 0)

		Expect(engine.Run()).To(Succeed())
		Expect(queue.len()).To(Equal(1))
		Expect(queue.sendPending).To(BeFalse())

		accept = true
		queue.retry()

		Expect(queue.len()).To(Equal(0))
		Expect(sent).To(HaveLen(1))
	})

	It("should ignore a retry while a send is pending", func() {
		queue.schedule(read(0), 10*sim.Ns)
		queue.retry()

		Expect(sent).To(BeEmpty())
	})

	It("should panic when scheduling on a full queue", func() {
		small := newDeferredQueue(ctrl, "CXL.Small", 1, queue.stats)
		small.schedule(read(0), 0)

		Expect(func() { small.schedule(read(64), 0) }).To(Panic())
	})
})
