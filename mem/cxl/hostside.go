package cxl

import (
	"log"

	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/tracing"
	"github.com/sirupsen/logrus"
)

// hostSidePort admits host requests and returns responses to the host.
type hostSidePort struct {
	comp     *Comp
	port     *mem.ResponsePort
	memSide  *memSidePort
	rspQueue *deferredQueue

	respQueueLimit       int
	outstandingResponses int
	retryReq             bool
}

func newHostSidePort(comp *Comp, capacity int) *hostSidePort {
	p := &hostSidePort{
		comp:           comp,
		respQueueLimit: capacity,
	}
	p.port = mem.NewResponsePort(comp.Name()+".Host", p)

	s := comp.stats
	p.rspQueue = newDeferredQueue(comp, comp.Name()+".RspQueue", capacity,
		queueStats{
			lenDist:     s.RspQueueLenDist,
			latDist:     s.RspQueueLatDist,
			sendSucceed: s.RspSendSucceed,
			sendFailed:  s.RspSendFailed,
		})
	p.rspQueue.send = p.sendResponse
	p.rspQueue.afterSend = p.afterRspSent

	return p
}

func (p *hostSidePort) respQueueFull() bool {
	if p.outstandingResponses == p.respQueueLimit {
		p.comp.stats.RspQueueFullEvents.Inc()
		return true
	}

	return false
}

// RecvRequest admits a request if both the request queue and the response
// budget have room. A refused request is remembered and the host gets
// exactly one retry once room frees.
func (p *hostSidePort) RecvRequest(t *mem.Transaction) bool {
	now := p.comp.now()

	logrus.Debugf("[tick %d] %s: recvRequest %s", now, p.port.Name(), t)

	if t.CacheResponding {
		log.Panicf("%s: should not see %s where a cache is responding",
			p.port.Name(), t.ID)
	}

	if p.retryReq {
		return false
	}

	if p.memSide.isFull() {
		logrus.Debugf("[tick %d] %s: request queue full", now, p.port.Name())
		p.retryReq = true

		return false
	}

	if t.NeedsResponse {
		if p.respQueueFull() {
			logrus.Debugf("[tick %d] %s: response queue full",
				now, p.port.Name())
			p.retryReq = true

			return false
		}

		p.outstandingResponses++
		p.comp.stats.RspOutstandingDist.Sample(int64(p.outstandingResponses))
	}

	tracing.StartTask(t.ID, "", p.comp, "req_in", t.Kind.String(), t)

	receiveDelay := t.TakeReceiveDelay()
	p.memSide.scheduleRequest(t,
		p.comp.clockEdge(p.comp.protoProcLat)+receiveDelay)

	return true
}

// retryStalledReq tells the host to resend a refused request.
func (p *hostSidePort) retryStalledReq() {
	if !p.retryReq {
		return
	}

	logrus.Debugf("[tick %d] %s: request waiting for retry, now retrying",
		p.comp.now(), p.port.Name())

	p.retryReq = false
	p.comp.stats.ReqRetryCounts.Inc()
	p.port.SendRetryReq()
}

func (p *hostSidePort) scheduleResponse(t *mem.Transaction, when sim.VTime) {
	p.rspQueue.schedule(t, when)
}

func (p *hostSidePort) sendResponse(t *mem.Transaction) bool {
	if !p.port.SendResponse(t) {
		return false
	}

	tracing.EndTask(t.ID, p.comp)

	return true
}

func (p *hostSidePort) afterRspSent() {
	if p.outstandingResponses == 0 {
		log.Panicf("%s: response sent with no outstanding request",
			p.port.Name())
	}

	p.outstandingResponses--
	p.comp.stats.RspOutstandingDist.Sample(int64(p.outstandingResponses))

	// The response slot just freed, so only the request queue can still
	// block a stalled request.
	if !p.memSide.isFull() && p.retryReq {
		p.retryStalledReq()
	}
}

// RecvRespRetry resends the head response after the host refused it.
func (p *hostSidePort) RecvRespRetry() {
	p.rspQueue.retry()
}

// RecvAtomic serves a request without queueing. The latency covers the
// protocol processing of both legs plus the media's own latency.
func (p *hostSidePort) RecvAtomic(t *mem.Transaction) sim.VTime {
	logrus.Debugf("%s: recvAtomic %s", p.port.Name(), t)

	if t.CacheResponding {
		log.Panicf("%s: should not see %s where a cache is responding",
			p.port.Name(), t.ID)
	}

	delay := p.comp.processCXLMem(t)
	accessDelay := p.memSide.port.SendAtomic(t)

	logrus.Debugf("%s: access delay %d, protocol delay %d cycles",
		p.port.Name(), accessDelay, delay)

	return p.comp.freq.CyclesToTime(delay) + accessDelay
}

// AddrRanges lists the BAR range and the expander memory range.
func (p *hostSidePort) AddrRanges() []mem.AddrRange {
	return p.comp.AddrRanges()
}
