package cxl

import (
	"log"

	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/stats"
	"github.com/sirupsen/logrus"
)

// deferredEntry is a transaction waiting in a deferredQueue.
type deferredEntry struct {
	txn       *mem.Transaction
	sendTime  sim.VTime
	entryTime sim.VTime
}

// sendEvent fires when the head of a deferredQueue is due.
type sendEvent struct {
	*sim.EventBase
	queue *deferredQueue
}

func newSendEvent(
	time sim.VTime,
	handler sim.Handler,
	queue *deferredQueue,
) *sendEvent {
	return &sendEvent{sim.NewEventBase(time, handler), queue}
}

// queueStats are the stats a deferredQueue reports to.
type queueStats struct {
	lenDist     *stats.Distribution
	latDist     *stats.Distribution
	sendSucceed *stats.Counter
	sendFailed  *stats.Counter
}

// A deferredQueue is a bounded FIFO of transactions that are sent at or after
// a scheduled time. At most one send event is pending at any time. If the
// peer refuses the head, the queue waits for retry to be called.
type deferredQueue struct {
	comp *Comp
	buf  sim.Buffer

	sendPending bool

	// send offers a transaction to the peer.
	send func(t *mem.Transaction) bool

	// afterSend runs after the head has been sent and popped.
	afterSend func()

	stats queueStats
}

func newDeferredQueue(
	comp *Comp,
	name string,
	capacity int,
	s queueStats,
) *deferredQueue {
	return &deferredQueue{
		comp:  comp,
		buf:   sim.NewBuffer(name, capacity),
		stats: s,
	}
}

func (q *deferredQueue) len() int {
	return q.buf.Size()
}

func (q *deferredQueue) capacity() int {
	return q.buf.Capacity()
}

func (q *deferredQueue) isFull() bool {
	return q.buf.Size() == q.buf.Capacity()
}

// schedule appends a transaction that must not be sent before when.
func (q *deferredQueue) schedule(t *mem.Transaction, when sim.VTime) {
	if q.isFull() {
		log.Panicf("%s: schedule on a full queue, capacity %d",
			q.buf.Name(), q.buf.Capacity())
	}

	if q.buf.Size() == 0 {
		q.scheduleSend(when)
	}

	q.buf.Push(&deferredEntry{
		txn:       t,
		sendTime:  when,
		entryTime: q.comp.now(),
	})

	q.stats.lenDist.Sample(int64(q.buf.Size()))
}

func (q *deferredQueue) scheduleSend(when sim.VTime) {
	if q.sendPending {
		log.Panicf("%s: a send is already pending", q.buf.Name())
	}

	q.sendPending = true
	q.comp.engine.Schedule(newSendEvent(when, q.comp, q))
}

func (q *deferredQueue) handleSendEvent() {
	q.sendPending = false
	q.trySend()
}

// retry re-attempts the head after the peer signalled it has room.
func (q *deferredQueue) retry() {
	if q.sendPending {
		return
	}

	q.trySend()
}

func (q *deferredQueue) trySend() {
	item := q.buf.Peek()
	if item == nil {
		log.Panicf("%s: nothing to send", q.buf.Name())
	}

	now := q.comp.now()

	entry := item.(*deferredEntry)
	if entry.sendTime > now {
		log.Panicf("%s: sending %s before it is due",
			q.buf.Name(), entry.txn.ID)
	}

	logrus.Debugf("[tick %d] %s: trySend %s, queue size %d",
		now, q.buf.Name(), entry.txn, q.buf.Size())

	if !q.send(entry.txn) {
		q.stats.sendFailed.Inc()
		return
	}

	q.stats.sendSucceed.Inc()
	q.stats.latDist.Sample(int64(now - entry.entryTime))

	q.buf.Pop()

	q.stats.lenDist.Sample(int64(q.buf.Size()))

	if next := q.buf.Peek(); next != nil {
		nextEntry := next.(*deferredEntry)
		q.scheduleSend(sim.MaxVTime(nextEntry.sendTime, q.comp.clockEdge(0)))
	}

	if q.afterSend != nil {
		q.afterSend()
	}
}
