package cxl

import (
	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/tracing"
	"github.com/sirupsen/logrus"
)

// memSidePort sends admitted requests to the memory media and hands media
// responses back to the host side.
type memSidePort struct {
	comp     *Comp
	port     *mem.RequestPort
	hostSide *hostSidePort
	reqQueue *deferredQueue
}

func newMemSidePort(comp *Comp, capacity int) *memSidePort {
	p := &memSidePort{comp: comp}
	p.port = mem.NewRequestPort(comp.Name()+".Mem", p)

	s := comp.stats
	p.reqQueue = newDeferredQueue(comp, comp.Name()+".ReqQueue", capacity,
		queueStats{
			lenDist:     s.ReqQueueLenDist,
			latDist:     s.ReqQueueLatDist,
			sendSucceed: s.ReqSendSucceed,
			sendFailed:  s.ReqSendFailed,
		})
	p.reqQueue.send = p.sendRequest
	p.reqQueue.afterSend = p.afterReqSent

	return p
}

// isFull reports whether another request can be queued. Every full result
// is counted.
func (p *memSidePort) isFull() bool {
	if p.reqQueue.isFull() {
		p.comp.stats.ReqQueueFullEvents.Inc()
		return true
	}

	return false
}

func (p *memSidePort) scheduleRequest(t *mem.Transaction, when sim.VTime) {
	p.reqQueue.schedule(t, when)
}

// sendRequest forwards a request. A posted write is done once the media
// takes it.
func (p *memSidePort) sendRequest(t *mem.Transaction) bool {
	if !p.port.SendRequest(t) {
		return false
	}

	if t.NeedsResponse {
		tracing.AddTaskStep(t.ID, p.comp, "mem_send")
	} else {
		tracing.EndTask(t.ID, p.comp)
	}

	return true
}

func (p *memSidePort) afterReqSent() {
	// A slot has freed. A request stalled on the response budget rather
	// than this queue may be refused again.
	p.hostSide.retryStalledReq()
}

// RecvResponse accepts every media response. Room for it was reserved when
// the request was admitted.
func (p *memSidePort) RecvResponse(t *mem.Transaction) bool {
	now := p.comp.now()

	logrus.Debugf("[tick %d] %s: recvResponse %s, request queue size %d",
		now, p.port.Name(), t, p.reqQueue.len())

	p.comp.recordMemResponse()
	tracing.AddTaskStep(t.ID, p.comp, "mem_rsp")

	receiveDelay := t.TakeReceiveDelay()
	p.hostSide.scheduleResponse(t,
		p.comp.clockEdge(p.comp.protoProcLat)+receiveDelay)

	return true
}

// RecvReqRetry resends the head request after the media refused it.
func (p *memSidePort) RecvReqRetry() {
	p.reqQueue.retry()
}

// RecvRangeChange is a no-op as the controller forwards every address in
// its ranges.
func (p *memSidePort) RecvRangeChange() {}
