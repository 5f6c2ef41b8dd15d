package workload

import (
	"log"
	"reflect"

	"github.com/sarchlab/cxlsim/mem/cxl"
	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sirupsen/logrus"
)

// MemoryAccessor sends an access toward memory and reports whether it was
// taken.
type MemoryAccessor interface {
	HandleMemoryAccess(t *mem.Transaction) bool
}

// An NMPCore is a single-thread core that runs a Pattern next to the
// memory. Each access depends on the previous one. It is attached to the
// controller's NMP as its CPU.
type NMPCore struct {
	*sim.ComponentBase

	engine  sim.Engine
	freq    sim.Freq
	mem     MemoryAccessor
	pattern Pattern
	thread  *nmpThread

	next         int
	stalled      *mem.Transaction
	waiting      bool
	issuePending bool

	completed  int
	checksum   uint64
	finishTime sim.VTime
}

// NewNMPCore creates an NMPCore. The accessor is usually the controller's
// NMP, set through SetMemoryAccessor once both exist.
func NewNMPCore(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	pattern Pattern,
) *NMPCore {
	c := &NMPCore{
		engine:  engine,
		freq:    freq,
		pattern: pattern,
	}
	c.ComponentBase = sim.NewComponentBase(name)
	c.thread = &nmpThread{core: c, status: cxl.ThreadSuspended}

	return c
}

// SetMemoryAccessor sets where the core sends its accesses.
func (c *NMPCore) SetMemoryAccessor(m MemoryAccessor) {
	c.mem = m
}

// NumThreads returns 1.
func (c *NMPCore) NumThreads() int {
	return 1
}

// ThreadContext returns the only thread.
func (c *NMPCore) ThreadContext(i int) cxl.ThreadContext {
	if i != 0 {
		log.Panicf("%s: no thread %d", c.Name(), i)
	}

	return c.thread
}

// CurCycle returns the cycle count of the current time.
func (c *NMPCore) CurCycle() uint64 {
	return c.freq.Cycle(c.engine.CurrentTime())
}

// Done tells if every access has completed.
func (c *NMPCore) Done() bool {
	return c.completed == c.pattern.Accesses
}

// Completed returns the number of accesses completed.
func (c *NMPCore) Completed() int {
	return c.completed
}

// FinishTime returns when the last access completed.
func (c *NMPCore) FinishTime() sim.VTime {
	return c.finishTime
}

// Checksum returns the sum of the first byte read by each access.
func (c *NMPCore) Checksum() uint64 {
	return c.checksum
}

// Handle defines how the NMPCore handles events.
func (c *NMPCore) Handle(e sim.Event) error {
	switch e.(type) {
	case *issueEvent:
		c.issuePending = false
		c.issue()
	default:
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

func (c *NMPCore) scheduleIssue() {
	if c.issuePending {
		return
	}

	c.issuePending = true
	now := c.engine.CurrentTime()
	c.engine.Schedule(&issueEvent{sim.NewEventBase(c.freq.ThisTick(now), c)})
}

func (c *NMPCore) issue() {
	if c.thread.status != cxl.ThreadActive || c.waiting {
		return
	}

	t := c.stalled
	if t == nil {
		if c.next >= c.pattern.Accesses {
			return
		}

		t = mem.TransactionBuilder{}.
			AsRead().
			WithAddress(c.pattern.Address(c.next)).
			WithByteSize(c.pattern.AccessSize).
			WithIssueTime(c.engine.CurrentTime()).
			Build()
		c.next++
	}

	if !c.mem.HandleMemoryAccess(t) {
		c.stalled = t
		return
	}

	c.stalled = nil
	c.waiting = true
}

// RecvMemResponse completes the current access.
func (c *NMPCore) RecvMemResponse(t *mem.Transaction) {
	c.waiting = false
	c.completed++

	if len(t.Data) > 0 {
		c.checksum += uint64(t.Data[0])
	}

	if c.Done() {
		c.finishTime = c.engine.CurrentTime()
		c.thread.status = cxl.ThreadHalted

		logrus.Infof("[tick %d] %s: %d accesses completed",
			c.finishTime, c.Name(), c.completed)

		return
	}

	c.scheduleIssue()
}

// RecvMemRetry resends a refused access.
func (c *NMPCore) RecvMemRetry() {
	if c.stalled != nil {
		c.scheduleIssue()
	}
}

type nmpThread struct {
	core   *NMPCore
	pc     uint64
	status cxl.ThreadStatus
}

func (t *nmpThread) PC() uint64 {
	return t.pc
}

func (t *nmpThread) SetPC(pc uint64) {
	t.pc = pc
}

func (t *nmpThread) Status() cxl.ThreadStatus {
	return t.status
}

func (t *nmpThread) Activate() {
	t.status = cxl.ThreadActive
	t.core.scheduleIssue()
}

func (t *nmpThread) Suspend() {
	if t.status == cxl.ThreadActive {
		t.status = cxl.ThreadSuspended
	}
}
