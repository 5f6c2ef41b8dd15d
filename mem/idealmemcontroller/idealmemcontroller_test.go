package idealmemcontroller

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
)

type requester struct {
	port      *mem.RequestPort
	responses []*mem.Transaction
	refuse    bool
	retries   int
}

func newRequester(name string) *requester {
	r := &requester{}
	r.port = mem.NewRequestPort(name, r)

	return r
}

func (r *requester) RecvResponse(t *mem.Transaction) bool {
	if r.refuse {
		return false
	}

	r.responses = append(r.responses, t)

	return true
}

func (r *requester) RecvReqRetry() {
	r.retries++
}

var _ = Describe("Ideal Memory Controller", func() {
	var (
		mockCtrl      *gomock.Controller
		engine        *MockEngine
		memController *Comp
		agent         *requester
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		engine = NewMockEngine(mockCtrl)

		memController = MakeBuilder().
			WithEngine(engine).
			WithLatency(10).
			WithMaxInflight(1).
			WithAddrRange(mem.AddrRange{Start: 0, Size: 1 * mem.MB}).
			Build("MemCtrl")

		agent = newRequester("Agent.Mem")
		mem.Connect(agent.port, memController.TopPort(0))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should process read request", func() {
		memController.Write(0x40, []byte{1, 2, 3, 4})
		req := mem.TransactionBuilder{}.
			AsRead().
			WithAddress(0x40).
			WithByteSize(4).
			Build()

		engine.EXPECT().CurrentTime().Return(sim.VTime(10 * sim.Ns))
		engine.EXPECT().
			Schedule(gomock.AssignableToTypeOf(&respondEvent{})).
			Do(func(e sim.Event) {
				Expect(e.Time()).To(Equal(20 * sim.Ns))
			})

		Expect(agent.port.SendRequest(req)).To(BeTrue())
		Expect(req.Data).To(Equal([]byte{1, 2, 3, 4}))
		Expect(memController.Inflight()).To(Equal(1))
	})

	It("should process write request", func() {
		req := mem.TransactionBuilder{}.
			AsWrite().
			WithAddress(0x80).
			WithData([]byte{9, 8}).
			Build()

		engine.EXPECT().CurrentTime().Return(sim.VTime(0))
		engine.EXPECT().Schedule(gomock.AssignableToTypeOf(&respondEvent{}))

		Expect(agent.port.SendRequest(req)).To(BeTrue())
		Expect(memController.Read(0x80, 2)).To(Equal([]byte{9, 8}))
	})

	It("should refuse requests when all slots are busy", func() {
		engine.EXPECT().CurrentTime().Return(sim.VTime(0)).AnyTimes()
		engine.EXPECT().Schedule(gomock.Any())

		Expect(agent.port.SendRequest(
			mem.TransactionBuilder{}.AsRead().WithByteSize(4).Build(),
		)).To(BeTrue())
		Expect(agent.port.SendRequest(
			mem.TransactionBuilder{}.AsRead().WithByteSize(4).Build(),
		)).To(BeFalse())
	})

	It("should respond and send a retry when a slot frees", func() {
		var evt *respondEvent
		engine.EXPECT().CurrentTime().Return(sim.VTime(0)).AnyTimes()
		engine.EXPECT().
			Schedule(gomock.AssignableToTypeOf(&respondEvent{})).
			Do(func(e sim.Event) { evt = e.(*respondEvent) })

		req := mem.TransactionBuilder{}.AsRead().WithByteSize(4).Build()
		agent.port.SendRequest(req)
		agent.port.SendRequest(
			mem.TransactionBuilder{}.AsRead().WithByteSize(4).Build())

		Expect(memController.Handle(evt)).To(Succeed())

		Expect(agent.responses).To(ConsistOf(req))
		Expect(req.IsResponse).To(BeTrue())
		Expect(agent.retries).To(Equal(1))
		Expect(memController.Inflight()).To(Equal(0))
	})

	It("should hold the slot until a refused response is delivered", func() {
		var evt *respondEvent
		engine.EXPECT().CurrentTime().Return(sim.VTime(0)).AnyTimes()
		engine.EXPECT().
			Schedule(gomock.AssignableToTypeOf(&respondEvent{})).
			Do(func(e sim.Event) { evt = e.(*respondEvent) })

		req := mem.TransactionBuilder{}.AsRead().WithByteSize(4).Build()
		agent.port.SendRequest(req)

		agent.refuse = true
		Expect(memController.Handle(evt)).To(Succeed())
		Expect(memController.Inflight()).To(Equal(1))

		agent.refuse = false
		agent.port.SendRetryResp()
		Expect(agent.responses).To(ConsistOf(req))
		Expect(memController.Inflight()).To(Equal(0))
	})

	It("should serve atomic accesses", func() {
		req := mem.TransactionBuilder{}.AsRead().WithByteSize(4).Build()

		Expect(agent.port.SendAtomic(req)).To(Equal(10 * sim.Ns))
		Expect(req.Data).To(HaveLen(4))
	})

	It("should panic on an address out of range", func() {
		engine.EXPECT().CurrentTime().Return(sim.VTime(0)).AnyTimes()
		req := mem.TransactionBuilder{}.
			AsRead().
			WithAddress(2 * mem.MB).
			Build()

		Expect(func() { agent.port.SendRequest(req) }).To(Panic())
	})
})

var _ = Describe("Ideal Memory Controller with shared slots", func() {
	It("should share slots and retry every refused port", func() {
		engine := sim.NewSerialEngine()
		memController := MakeBuilder().
			WithEngine(engine).
			WithNumPorts(2).
			WithMaxInflight(1).
			Build("MemCtrl")

		a := newRequester("AgentA.Mem")
		b := newRequester("AgentB.Mem")
		mem.Connect(a.port, memController.TopPort(0))
		mem.Connect(b.port, memController.TopPort(1))

		Expect(a.port.SendRequest(
			mem.TransactionBuilder{}.AsRead().WithByteSize(4).Build(),
		)).To(BeTrue())
		Expect(b.port.SendRequest(
			mem.TransactionBuilder{}.AsRead().WithByteSize(4).Build(),
		)).To(BeFalse())

		Expect(engine.Run()).To(Succeed())

		Expect(a.responses).To(HaveLen(1))
		Expect(b.retries).To(Equal(1))
		Expect(a.retries).To(Equal(0))
		Expect(engine.CurrentTime()).To(Equal(50 * sim.Ns))
	})
})
