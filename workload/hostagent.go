package workload

import (
	"log"
	"reflect"

	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/stats"
	"github.com/sirupsen/logrus"
)

type issueEvent struct {
	*sim.EventBase
}

// A HostAgent walks a Pattern through a memory port with a bounded number
// of requests in flight. A refused request is resent after the retry.
type HostAgent struct {
	*sim.ComponentBase

	engine sim.Engine
	freq   sim.Freq
	port   *mem.RequestPort

	pattern Pattern
	window  int

	next         int
	stalled      *mem.Transaction
	outstanding  int
	issuePending bool

	completed  int
	checksum   uint64
	finishTime sim.VTime

	latency  *stats.Distribution
	requests *stats.Counter
	retries  *stats.Counter
}

// NewHostAgent creates a HostAgent. A window of 1 makes every access wait
// for the previous one.
func NewHostAgent(
	name string,
	engine sim.Engine,
	freq sim.Freq,
	pattern Pattern,
	window int,
	collector stats.Collector,
) *HostAgent {
	if window <= 0 {
		logrus.Panicf("%s: window must be positive", name)
	}

	a := &HostAgent{
		engine:  engine,
		freq:    freq,
		pattern: pattern,
		window:  window,
	}
	a.ComponentBase = sim.NewComponentBase(name)
	a.port = mem.NewRequestPort(name+".Mem", a)

	a.latency = collector.NewDistribution(name+".RoundTripLatency",
		"Request round trip latency (ns)").Init(0, 999, 10).NoZero()
	a.requests = collector.NewCounter(name+".Requests", "Requests issued")
	a.retries = collector.NewCounter(name+".Retries",
		"Retries received after a refused request")

	return a
}

// Port returns the port the agent sends requests through.
func (a *HostAgent) Port() *mem.RequestPort {
	return a.port
}

// Start schedules the first request at the current time.
func (a *HostAgent) Start() {
	a.scheduleIssue()
}

// Done tells if every access has completed.
func (a *HostAgent) Done() bool {
	return a.completed == a.pattern.Accesses
}

// Completed returns the number of accesses completed.
func (a *HostAgent) Completed() int {
	return a.completed
}

// FinishTime returns when the last access completed.
func (a *HostAgent) FinishTime() sim.VTime {
	return a.finishTime
}

// Checksum returns the sum of the first byte read by each access.
func (a *HostAgent) Checksum() uint64 {
	return a.checksum
}

// Latency returns the round trip latency distribution.
func (a *HostAgent) Latency() *stats.Distribution {
	return a.latency
}

// Handle defines how the HostAgent handles events.
func (a *HostAgent) Handle(e sim.Event) error {
	switch e.(type) {
	case *issueEvent:
		a.issuePending = false
		a.issue()
	default:
		log.Panicf("cannot handle event of %s", reflect.TypeOf(e))
	}

	return nil
}

func (a *HostAgent) scheduleIssue() {
	if a.issuePending {
		return
	}

	a.issuePending = true
	now := a.engine.CurrentTime()
	a.engine.Schedule(&issueEvent{sim.NewEventBase(a.freq.ThisTick(now), a)})
}

func (a *HostAgent) issue() {
	for a.outstanding < a.window {
		t := a.stalled
		if t == nil {
			if a.next >= a.pattern.Accesses {
				return
			}

			t = mem.TransactionBuilder{}.
				AsRead().
				WithAddress(a.pattern.Address(a.next)).
				WithByteSize(a.pattern.AccessSize).
				WithIssueTime(a.engine.CurrentTime()).
				Build()
			a.next++
			a.requests.Inc()
		}

		if !a.port.SendRequest(t) {
			a.stalled = t
			return
		}

		a.stalled = nil
		a.outstanding++
	}
}

// RecvResponse completes an access and issues the next one.
func (a *HostAgent) RecvResponse(t *mem.Transaction) bool {
	now := a.engine.CurrentTime()

	a.latency.Sample(int64((now - t.IssueTime) / sim.Ns))
	a.outstanding--
	a.completed++

	if len(t.Data) > 0 {
		a.checksum += uint64(t.Data[0])
	}

	if a.Done() {
		a.finishTime = now
		logrus.Infof("[tick %d] %s: %d accesses completed",
			now, a.Name(), a.completed)

		return true
	}

	a.scheduleIssue()

	return true
}

// RecvReqRetry resends the refused request.
func (a *HostAgent) RecvReqRetry() {
	a.retries.Inc()
	a.scheduleIssue()
}

// RecvRangeChange checks that the pattern is served by the peer.
func (a *HostAgent) RecvRangeChange() {
	ranges := a.port.AddrRanges()

	for _, addr := range []uint64{
		a.pattern.Base,
		a.pattern.Base + a.pattern.ArraySize - 1,
	} {
		if _, ok := mem.FindRange(ranges, addr); !ok {
			logrus.Warnf("%s: address 0x%x is not served by %s",
				a.Name(), addr, a.port.Peer().Name())
		}
	}
}
