package mem

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cxlsim/sim"
)

type fakeRequester struct {
	responses    []*Transaction
	acceptRsp    bool
	reqRetries   int
	rangeChanges int
}

func (r *fakeRequester) RecvResponse(t *Transaction) bool {
	if !r.acceptRsp {
		return false
	}

	r.responses = append(r.responses, t)

	return true
}

func (r *fakeRequester) RecvReqRetry() { r.reqRetries++ }

func (r *fakeRequester) RecvRangeChange() { r.rangeChanges++ }

type fakeResponder struct {
	requests    []*Transaction
	acceptReq   bool
	rspRetries  int
	atomicDelay sim.VTime
}

func (r *fakeResponder) RecvRequest(t *Transaction) bool {
	if !r.acceptReq {
		return false
	}

	r.requests = append(r.requests, t)

	return true
}

func (r *fakeResponder) RecvRespRetry() { r.rspRetries++ }

func (r *fakeResponder) RecvAtomic(_ *Transaction) sim.VTime {
	return r.atomicDelay
}

func (r *fakeResponder) AddrRanges() []AddrRange {
	return []AddrRange{{Start: 0x1000, Size: 0x1000}}
}

var _ = Describe("Ports", func() {
	var (
		requester *fakeRequester
		responder *fakeResponder
		reqPort   *RequestPort
		rspPort   *ResponsePort
	)

	BeforeEach(func() {
		requester = &fakeRequester{acceptRsp: true}
		responder = &fakeResponder{acceptReq: true, atomicDelay: 20 * sim.Ns}
		reqPort = NewRequestPort("Agent.Mem", requester)
		rspPort = NewResponsePort("Media.Top", responder)
	})

	It("should panic when sending on an unconnected port", func() {
		t := TransactionBuilder{}.AsRead().Build()
		Expect(reqPort.IsConnected()).To(BeFalse())
		Expect(func() { reqPort.SendRequest(t) }).To(Panic())
	})

	It("should refuse a second connection", func() {
		Connect(reqPort, rspPort)

		other := NewRequestPort("Other.Mem", requester)
		Expect(func() { Connect(other, rspPort) }).To(Panic())
	})

	Context("when connected", func() {
		BeforeEach(func() {
			Connect(reqPort, rspPort)
		})

		It("should deliver requests and report refusal", func() {
			t := TransactionBuilder{}.AsRead().WithAddress(0x40).Build()

			Expect(reqPort.SendRequest(t)).To(BeTrue())
			Expect(responder.requests).To(ConsistOf(t))

			responder.acceptReq = false
			Expect(reqPort.SendRequest(t)).To(BeFalse())
		})

		It("should deliver responses and retries", func() {
			t := TransactionBuilder{}.AsRead().Build()
			t.MakeResponse()

			Expect(rspPort.SendResponse(t)).To(BeTrue())
			Expect(requester.responses).To(ConsistOf(t))

			rspPort.SendRetryReq()
			reqPort.SendRetryResp()
			rspPort.SendRangeChange()

			Expect(requester.reqRetries).To(Equal(1))
			Expect(responder.rspRetries).To(Equal(1))
			Expect(requester.rangeChanges).To(Equal(1))
		})

		It("should forward atomic accesses and ranges", func() {
			t := TransactionBuilder{}.AsRead().Build()
			Expect(reqPort.SendAtomic(t)).To(Equal(20 * sim.Ns))
			Expect(reqPort.AddrRanges()).To(HaveLen(1))
		})

		It("should invoke hooks with the outcome of a send", func() {
			var positions []*sim.HookPos
			reqPort.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
				positions = append(positions, ctx.Pos)
			}))

			t := TransactionBuilder{}.AsRead().Build()
			reqPort.SendRequest(t)
			responder.acceptReq = false
			reqPort.SendRequest(t)

			Expect(positions).To(Equal(
				[]*sim.HookPos{HookPosPortSend, HookPosPortRefused}))
		})
	})
})

var _ = Describe("Transaction", func() {
	It("should build tagged reads and writes", func() {
		read := TransactionBuilder{}.
			AsRead().
			WithAddress(0x100).
			WithByteSize(64).
			Build()
		Expect(read.IsRead()).To(BeTrue())
		Expect(read.Cmd).To(Equal(CmdM2SReq))
		Expect(read.NeedsResponse).To(BeTrue())

		write := TransactionBuilder{}.
			AsWrite().
			WithData([]byte{1, 2, 3, 4}).
			Posted().
			Build()
		Expect(write.IsWrite()).To(BeTrue())
		Expect(write.Cmd).To(Equal(CmdM2SRwD))
		Expect(write.Size).To(Equal(uint64(4)))
		Expect(write.NeedsResponse).To(BeFalse())
	})

	It("should hand over the receive delay exactly once", func() {
		t := TransactionBuilder{}.
			WithHeaderDelay(3 * sim.Ns).
			WithPayloadDelay(2 * sim.Ns).
			Build()

		Expect(t.TakeReceiveDelay()).To(Equal(5 * sim.Ns))
		Expect(t.TakeReceiveDelay()).To(Equal(sim.VTime(0)))
	})

	It("should refuse to respond to a posted request", func() {
		t := TransactionBuilder{}.AsWrite().Posted().Build()
		Expect(t.MakeResponse).To(Panic())
	})

	It("should find the range of an address", func() {
		ranges := []AddrRange{
			{Start: 0, Size: 4 * KB},
			{Start: 4 * GB, Size: 2 * GB},
		}

		r, ok := FindRange(ranges, 5*GB)
		Expect(ok).To(BeTrue())
		Expect(r.Start).To(Equal(4 * GB))

		_, ok = FindRange(ranges, 8*GB)
		Expect(ok).To(BeFalse())
	})
})
