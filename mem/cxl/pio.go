package cxl

import (
	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sirupsen/logrus"
)

// pioPort serves programmed IO accesses to the BAR registers. Every access
// completes after a fixed latency.
type pioPort struct {
	comp    *Comp
	port    *mem.ResponsePort
	queue   *deferredQueue
	latency sim.VTime

	regs     map[uint64]byte
	retryReq bool
}

func newPIOPort(
	comp *Comp,
	latency sim.VTime,
	capacity int,
	s queueStats,
) *pioPort {
	p := &pioPort{
		comp:    comp,
		latency: latency,
		regs:    make(map[uint64]byte),
	}
	p.port = mem.NewResponsePort(comp.Name()+".PIO", p)
	p.queue = newDeferredQueue(comp, comp.Name()+".PIOQueue", capacity, s)
	p.queue.send = p.port.SendResponse
	p.queue.afterSend = p.afterSend

	return p
}

// RecvRequest accesses the registers. The response leaves after the PIO
// latency.
func (p *pioPort) RecvRequest(t *mem.Transaction) bool {
	if p.retryReq {
		return false
	}

	if t.NeedsResponse && p.queue.isFull() {
		p.retryReq = true
		return false
	}

	p.access(t)

	if t.NeedsResponse {
		t.MakeResponse()
		p.queue.schedule(t, p.comp.now()+p.latency)
	}

	return true
}

func (p *pioPort) access(t *mem.Transaction) {
	logrus.Debugf("[tick %d] %s: %s", p.comp.now(), p.port.Name(), t)

	if t.IsWrite() {
		for i, b := range t.Data {
			p.regs[t.Address+uint64(i)] = b
		}

		return
	}

	t.Data = make([]byte, t.Size)
	for i := range t.Data {
		t.Data[i] = p.regs[t.Address+uint64(i)]
	}
}

func (p *pioPort) afterSend() {
	if p.retryReq {
		p.retryReq = false
		p.port.SendRetryReq()
	}
}

// RecvRespRetry resends the head response.
func (p *pioPort) RecvRespRetry() {
	p.queue.retry()
}

// RecvAtomic accesses the registers and reports the PIO latency.
func (p *pioPort) RecvAtomic(t *mem.Transaction) sim.VTime {
	p.access(t)
	return p.latency
}

// AddrRanges returns the BAR range.
func (p *pioPort) AddrRanges() []mem.AddrRange {
	if !p.comp.barRange.Valid() {
		return nil
	}

	return []mem.AddrRange{p.comp.barRange}
}
