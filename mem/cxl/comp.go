// Package cxl models a CXL memory expansion controller. The controller
// bridges a host-facing port and a media-facing port through bounded,
// deferred send queues, and optionally hosts a near-memory processor that
// reaches the media directly.
package cxl

import (
	"log"
	"reflect"

	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sirupsen/logrus"
)

// A Comp is a CXL memory controller.
type Comp struct {
	*sim.ComponentBase

	engine       sim.Engine
	freq         sim.Freq
	protoProcLat uint64

	hostSide *hostSidePort
	memSide  *memSidePort
	pio      *pioPort
	nmp      *NMP

	barRange mem.AddrRange
	memRange mem.AddrRange

	prevRspTime sim.VTime
	hasPrevRsp  bool

	stats *CtrlStats
}

// Handle defines how the Comp handles events.
func (c *Comp) Handle(e sim.Event) error {
	switch e := e.(type) {
	case *sendEvent:
		e.queue.handleSendEvent()
	default:
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

// Port returns a port by its local name. "Host" faces the host, "Mem" faces
// the memory media, "NMPMem" is the near-memory processor's media port and
// "PIO" serves the BAR registers.
func (c *Comp) Port(name string) mem.Port {
	switch name {
	case "Host":
		return c.hostSide.port
	case "Mem":
		return c.memSide.port
	case "NMPMem":
		if !c.nmp.enabled {
			logrus.Panicf("%s: NMP memory port requested but NMP is disabled",
				c.Name())
		}

		return c.nmp.port
	case "PIO":
		return c.pio.port
	default:
		logrus.Panicf("%s: no port named %q", c.Name(), name)
	}

	return nil
}

// HostPort returns the port that faces the host.
func (c *Comp) HostPort() *mem.ResponsePort {
	return c.hostSide.port
}

// MemPort returns the port that faces the memory media.
func (c *Comp) MemPort() *mem.RequestPort {
	return c.memSide.port
}

// PIOPort returns the port that serves the BAR registers.
func (c *Comp) PIOPort() *mem.ResponsePort {
	return c.pio.port
}

// NMP returns the near-memory processor. It is never nil, but may be
// disabled.
func (c *Comp) NMP() *NMP {
	return c.nmp
}

// Stats returns the controller stats.
func (c *Comp) Stats() *CtrlStats {
	return c.stats
}

// Init checks the topology and announces the address ranges to the host.
// It must be called after all ports are connected.
func (c *Comp) Init() {
	if !c.hostSide.port.IsConnected() || !c.memSide.port.IsConnected() {
		logrus.Panicf("CXL port of %s not connected to anything", c.Name())
	}

	c.hostSide.port.SendRangeChange()
	c.nmp.Init()
}

// AddrRanges returns the BAR range followed by the expander memory range.
func (c *Comp) AddrRanges() []mem.AddrRange {
	var ranges []mem.AddrRange

	if c.barRange.Valid() {
		ranges = append(ranges, c.barRange)
	}

	return append(ranges, c.memRange)
}

// OutstandingResponses returns the number of admitted requests that still
// wait for a response.
func (c *Comp) OutstandingResponses() int {
	return c.hostSide.outstandingResponses
}

// RetryPending tells if a refused host request still waits for a retry.
func (c *Comp) RetryPending() bool {
	return c.hostSide.retryReq
}

// ReqQueueLen returns the number of requests waiting to go to the media.
func (c *Comp) ReqQueueLen() int {
	return c.memSide.reqQueue.len()
}

// RspQueueLen returns the number of responses waiting to go to the host.
func (c *Comp) RspQueueLen() int {
	return c.hostSide.rspQueue.len()
}

// Buffers returns the queues of the controller.
func (c *Comp) Buffers() []sim.Buffer {
	return []sim.Buffer{
		c.memSide.reqQueue.buf,
		c.hostSide.rspQueue.buf,
		c.pio.queue.buf,
	}
}

func (c *Comp) now() sim.VTime {
	return c.engine.CurrentTime()
}

// clockEdge returns the clock edge the given number of cycles after the
// current one.
func (c *Comp) clockEdge(cycles uint64) sim.VTime {
	return c.freq.NCyclesLater(cycles, c.now())
}

// recordMemResponse samples the gap since the previous media response. The
// first response has no predecessor and is not sampled.
func (c *Comp) recordMemResponse() {
	edge := c.clockEdge(0)

	if c.hasPrevRsp {
		gap := c.freq.Cycles(edge - c.prevRspTime)
		c.stats.MemToCtrlRspGap.Sample(int64(gap))
	}

	c.prevRspTime = edge
	c.hasPrevRsp = true
}

// processCXLMem checks the command tag of a request and returns the protocol
// processing cycles of a round trip.
func (c *Comp) processCXLMem(t *mem.Transaction) uint64 {
	switch t.Cmd {
	case mem.CmdM2SReq:
		if !t.IsRead() {
			log.Panicf("%s: %s tagged M2SReq is not a read", c.Name(), t.ID)
		}
	case mem.CmdM2SRwD:
		if !t.IsWrite() {
			log.Panicf("%s: %s tagged M2SRwD is not a write", c.Name(), t.ID)
		}
	}

	return c.protoProcLat + c.protoProcLat
}
