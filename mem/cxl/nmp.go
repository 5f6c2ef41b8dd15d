package cxl

import (
	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/tracing"
	"github.com/sirupsen/logrus"
)

// ThreadStatus is the run state of a hardware thread.
type ThreadStatus int

// Thread statuses.
const (
	ThreadSuspended ThreadStatus = iota
	ThreadActive
	ThreadHalted
)

func (s ThreadStatus) String() string {
	switch s {
	case ThreadSuspended:
		return "Suspended"
	case ThreadActive:
		return "Active"
	case ThreadHalted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// A ThreadContext is one hardware thread of a CPU.
type ThreadContext interface {
	PC() uint64
	SetPC(pc uint64)
	Status() ThreadStatus
	Activate()
	Suspend()
}

// A CPU is the compute unit that the near-memory processor drives.
type CPU interface {
	Name() string
	NumThreads() int
	ThreadContext(i int) ThreadContext
	CurCycle() uint64
}

// MemResponseReceiver is implemented by a CPU that consumes media responses.
type MemResponseReceiver interface {
	RecvMemResponse(t *mem.Transaction)
}

// MemRetryReceiver is implemented by a CPU that resends refused accesses.
type MemRetryReceiver interface {
	RecvMemRetry()
}

// NMPState is the lifecycle state of the near-memory processor.
type NMPState int

// NMP lifecycle states.
const (
	NMPDisabled NMPState = iota
	NMPUninitialized
	NMPInitializedNoContext
	NMPReady
	NMPActive
)

func (s NMPState) String() string {
	switch s {
	case NMPDisabled:
		return "Disabled"
	case NMPUninitialized:
		return "Uninitialized"
	case NMPInitializedNoContext:
		return "InitializedNoContext"
	case NMPReady:
		return "Ready"
	case NMPActive:
		return "Active"
	default:
		return "Unknown"
	}
}

// An NMP is a near-memory processor. It owns a direct port to the memory
// media and never touches the host-facing queues.
type NMP struct {
	comp    *Comp
	enabled bool
	port    *mem.RequestPort

	cpu        CPU
	tc         ThreadContext
	startAddr  uint64
	binary     string
	state      NMPState
	startCycle uint64

	stats *NMPStats
}

func newNMP(comp *Comp, enabled bool, binary string, startAddr uint64) *NMP {
	n := &NMP{
		comp:      comp,
		enabled:   enabled,
		binary:    binary,
		startAddr: startAddr,
		state:     NMPDisabled,
	}

	if !enabled {
		logrus.Debugf("%s: NMP disabled", comp.Name())
		return n
	}

	logrus.Debugf("%s: NMP enabled, binary=%s, start_addr=0x%x",
		comp.Name(), binary, startAddr)

	n.state = NMPUninitialized
	n.port = mem.NewRequestPort(comp.Name()+".NMPMem", n)

	return n
}

// Enabled tells if the NMP was configured.
func (n *NMP) Enabled() bool { return n.enabled }

// State returns the lifecycle state. An active NMP whose thread has halted
// reports NMPReady.
func (n *NMP) State() NMPState {
	if n.state == NMPActive && n.tc.Status() == ThreadHalted {
		return NMPReady
	}

	return n.state
}

// StartAddr returns the address execution starts from by default.
func (n *NMP) StartAddr() uint64 { return n.startAddr }

// Binary returns the identifier of the program the NMP runs.
func (n *NMP) Binary() string { return n.binary }

// Port returns the media port, or nil when disabled.
func (n *NMP) Port() *mem.RequestPort { return n.port }

// Stats returns the NMP stats, or nil when disabled.
func (n *NMP) Stats() *NMPStats { return n.stats }

// SetCPU attaches the CPU. A CPU can be attached only once.
func (n *NMP) SetCPU(cpu CPU) {
	if !n.enabled {
		logrus.Panicf("%s: cannot attach CPU %s, NMP is disabled",
			n.comp.Name(), cpu.Name())
	}

	if n.cpu != nil {
		logrus.Panicf("%s: NMP CPU %s already attached, cannot attach %s",
			n.comp.Name(), n.cpu.Name(), cpu.Name())
	}

	n.cpu = cpu

	if n.state == NMPInitializedNoContext {
		n.acquireContext()
	}
}

// Init checks the media port and takes the first thread of the attached
// CPU. Problems are reported as warnings and leave the NMP unusable.
func (n *NMP) Init() {
	if !n.enabled {
		logrus.Debugf("%s: NMP CPU disabled, skipping initialization",
			n.comp.Name())
		return
	}

	logrus.Infof("Initializing NMP CPU at CXL memory device %s", n.comp.Name())

	if !n.port.IsConnected() {
		logrus.Warn("NMP memory port not connected to backend memory!")
		logrus.Warn("Please connect the NMPMem port to backend memory.")
		n.state = NMPUninitialized

		return
	}

	if n.cpu == nil {
		logrus.Info("NMP CPU not yet attached, waiting for SetCPU")
		n.state = NMPInitializedNoContext

		return
	}

	n.acquireContext()
}

func (n *NMP) acquireContext() {
	if n.cpu.NumThreads() == 0 {
		logrus.Warn("NMP CPU has no thread contexts!")
		n.cpu = nil
		n.state = NMPUninitialized

		return
	}

	n.tc = n.cpu.ThreadContext(0)
	n.state = NMPReady

	logrus.Infof("NMP CPU thread context acquired: %s", n.cpu.Name())
	logrus.Debugf("  binary: %s, start address: 0x%x", n.binary, n.startAddr)
}

// StartExecution points the thread at pc and activates it. It returns false
// if the NMP has no usable thread. Setting up the stack at sp is left to the
// program loader. Restarting an active NMP credits the cycles of the run so
// far before the new run begins.
func (n *NMP) StartExecution(pc, sp uint64) bool {
	switch {
	case !n.enabled:
		logrus.Warn("Attempt to start NMP execution but NMP is disabled")
		return false
	case n.cpu == nil:
		logrus.Warn("NMP CPU not initialized, cannot start execution")
		return false
	case n.tc == nil:
		logrus.Warn("NMP thread context not available")
		return false
	}

	logrus.Infof("Starting NMP CPU execution at PC=0x%x, SP=0x%x", pc, sp)

	n.stats.Executions.Inc()
	n.tc.SetPC(pc)

	if n.tc.Status() != ThreadActive {
		n.tc.Activate()
		logrus.Info("NMP CPU thread context activated")
	}

	now := n.cpu.CurCycle()
	if n.state == NMPActive {
		n.stats.ActiveCycles.Add(now - n.startCycle)
	}

	n.startCycle = now
	n.state = NMPActive

	return true
}

// StopExecution suspends the thread and adds the cycles since the start to
// the active cycle count.
func (n *NMP) StopExecution() {
	if n.state != NMPActive {
		return
	}

	n.stats.ActiveCycles.Add(n.cpu.CurCycle() - n.startCycle)
	n.tc.Suspend()
	n.state = NMPReady
}

// HandleMemoryAccess sends an access straight to the media. It returns
// false if the media refused it, in which case the CPU gets RecvMemRetry.
// An access without an issue time is stamped with the current time.
func (n *NMP) HandleMemoryAccess(t *mem.Transaction) bool {
	if !n.enabled {
		logrus.Warn("NMP memory access received but NMP is disabled")
		return false
	}

	if !n.port.IsConnected() {
		logrus.Warn("NMP memory access received but the port is not connected")
		return false
	}

	if t.IssueTime == 0 {
		t.IssueTime = n.comp.now()
	}

	logrus.Debugf("[tick %d] %s: NMP memory access %s",
		n.comp.now(), n.port.Name(), t)

	ok := n.port.SendRequest(t)
	if !ok {
		logrus.Debugf("[tick %d] %s: NMP memory request blocked, will retry",
			n.comp.now(), n.port.Name())

		return false
	}

	if t.NeedsResponse {
		tracing.StartTask(t.ID, "", n.comp, "nmp_access", t.Kind.String(), t)
	}

	return true
}

// RecvResponse samples the access latency and hands the response to the
// CPU.
func (n *NMP) RecvResponse(t *mem.Transaction) bool {
	now := n.comp.now()
	latency := now - t.IssueTime

	n.stats.AccessLatency.Sample(int64(latency / sim.Ns))

	if t.IsRead() {
		n.stats.MemReads.Inc()
	} else {
		n.stats.MemWrites.Inc()
	}

	logrus.Debugf("[tick %d] %s: NMP %s complete, latency %d",
		now, n.port.Name(), t, latency)

	tracing.EndTask(t.ID, n.comp)

	if n.cpu == nil {
		logrus.Warnf("[tick %d] %s: response %s with no NMP CPU attached",
			now, n.port.Name(), t.ID)
		n.stats.OrphanResponses.Inc()

		return true
	}

	if r, ok := n.cpu.(MemResponseReceiver); ok {
		r.RecvMemResponse(t)
	}

	return true
}

// RecvReqRetry tells the CPU that the media has room again.
func (n *NMP) RecvReqRetry() {
	logrus.Debugf("[tick %d] %s: NMP received retry from backend memory",
		n.comp.now(), n.port.Name())

	if r, ok := n.cpu.(MemRetryReceiver); ok {
		r.RecvMemRetry()
	}
}
