// Package idealmemcontroller provides a fixed-latency memory media model.
package idealmemcontroller

import (
	"log"
	"reflect"

	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/stats"
	"github.com/sirupsen/logrus"
)

type respondEvent struct {
	*sim.EventBase
	port *topPort
	txn  *mem.Transaction
}

func newRespondEvent(
	time sim.VTime,
	handler sim.Handler,
	port *topPort,
	txn *mem.Transaction,
) *respondEvent {
	return &respondEvent{sim.NewEventBase(time, handler), port, txn}
}

// A Comp is an ideal memory controller. Every access completes a fixed
// number of cycles after it arrives. The number of accesses in flight is
// bounded and shared by all the top ports. A refused request is retried
// once a slot frees.
type Comp struct {
	*sim.ComponentBase

	engine      sim.Engine
	freq        sim.Freq
	latency     uint64
	maxInflight int
	inflight    int
	addrRange   mem.AddrRange

	storage  *storage
	topPorts []*topPort

	reads   *stats.Counter
	writes  *stats.Counter
	refused *stats.Counter
}

// Handle defines how the Comp handles events.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *respondEvent:
		c.handleRespondEvent(e)
	default:
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

// TopPort returns the i-th port facing the requesters.
func (c *Comp) TopPort(i int) *mem.ResponsePort {
	return c.topPorts[i].port
}

// NumTopPorts returns the number of ports facing the requesters.
func (c *Comp) NumTopPorts() int {
	return len(c.topPorts)
}

// Inflight returns the number of accesses being served.
func (c *Comp) Inflight() int {
	return c.inflight
}

// Read returns the stored bytes. Bytes never written read as zero.
func (c *Comp) Read(addr, size uint64) []byte {
	return c.storage.read(addr, size)
}

// Write stores bytes directly, without timing.
func (c *Comp) Write(addr uint64, data []byte) {
	c.storage.write(addr, data)
}

func (c *Comp) now() sim.VTime {
	return c.engine.CurrentTime()
}

func (c *Comp) access(t *mem.Transaction) {
	if !c.addrRange.Contains(t.Address) {
		log.Panicf("%s: address 0x%x out of %s", c.Name(), t.Address,
			c.addrRange)
	}

	if t.IsWrite() {
		c.writes.Inc()
		c.storage.write(t.Address, t.Data)

		return
	}

	c.reads.Inc()
	t.Data = c.storage.read(t.Address, t.Size)
}

func (c *Comp) handleRespondEvent(e *respondEvent) {
	if !e.txn.NeedsResponse {
		c.releaseSlot()
		return
	}

	e.txn.MakeResponse()
	e.port.respond(e.txn)
}

func (c *Comp) releaseSlot() {
	if c.inflight == 0 {
		log.Panicf("%s: releasing a slot with nothing in flight", c.Name())
	}

	c.inflight--

	for _, p := range c.topPorts {
		if c.inflight >= c.maxInflight {
			return
		}

		if p.reqRefused {
			p.reqRefused = false
			p.port.SendRetryReq()
		}
	}
}

// topPort is one requester-facing port. Responses the requester refused wait
// in rspQueue and keep their slot until delivered.
type topPort struct {
	comp     *Comp
	port     *mem.ResponsePort
	rspQueue []*mem.Transaction

	reqRefused bool
}

func (p *topPort) RecvRequest(t *mem.Transaction) bool {
	c := p.comp

	if c.inflight >= c.maxInflight {
		logrus.Debugf("[tick %d] %s: busy, refusing %s",
			c.now(), p.port.Name(), t)
		c.refused.Inc()
		p.reqRefused = true

		return false
	}

	c.inflight++
	c.access(t)

	when := c.freq.NCyclesLater(c.latency, c.now())
	c.engine.Schedule(newRespondEvent(when, c, p, t))

	return true
}

func (p *topPort) respond(t *mem.Transaction) {
	if len(p.rspQueue) > 0 {
		p.rspQueue = append(p.rspQueue, t)
		return
	}

	if !p.port.SendResponse(t) {
		p.rspQueue = append(p.rspQueue, t)
		return
	}

	p.comp.releaseSlot()
}

func (p *topPort) RecvRespRetry() {
	for len(p.rspQueue) > 0 {
		if !p.port.SendResponse(p.rspQueue[0]) {
			return
		}

		p.rspQueue = p.rspQueue[1:]
		p.comp.releaseSlot()
	}
}

func (p *topPort) RecvAtomic(t *mem.Transaction) sim.VTime {
	p.comp.access(t)
	return p.comp.freq.CyclesToTime(p.comp.latency)
}

func (p *topPort) AddrRanges() []mem.AddrRange {
	return []mem.AddrRange{p.comp.addrRange}
}
