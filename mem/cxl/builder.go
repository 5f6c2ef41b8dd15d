package cxl

import (
	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/stats"
	"github.com/sirupsen/logrus"
)

// A Builder can build CXL memory controllers.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	protoProcLat sim.VTime
	reqQueueSize int
	rspQueueSize int
	memRange     mem.AddrRange
	barRange     mem.AddrRange
	pioLatency   sim.VTime
	pioQueueSize int
	enableNMP    bool
	nmpBinary    string
	nmpStartAddr uint64
	collector    stats.Collector
}

// MakeBuilder returns a Builder with the default parameters.
func MakeBuilder() Builder {
	return Builder{
		freq:         1 * sim.GHz,
		protoProcLat: 15 * sim.Ns,
		reqQueueSize: 48,
		rspQueueSize: 48,
		memRange:     mem.AddrRange{Start: 4 * mem.GB, Size: 2 * mem.GB},
		barRange:     mem.AddrRange{Start: 2 * mem.GB, Size: 2 * mem.GB},
		pioLatency:   30 * sim.Ns,
		pioQueueSize: 4,
		nmpStartAddr: 0x100000000,
	}
}

// WithEngine sets the engine that schedules the controller's events.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithProtoProcLatency sets the time to process a CXL.mem packet. It is
// rounded up to whole cycles.
func (b Builder) WithProtoProcLatency(lat sim.VTime) Builder {
	b.protoProcLat = lat
	return b
}

// WithReqQueueSize sets the number of requests buffered toward the media.
func (b Builder) WithReqQueueSize(n int) Builder {
	b.reqQueueSize = n
	return b
}

// WithRspQueueSize sets the number of responses the controller can owe the
// host.
func (b Builder) WithRspQueueSize(n int) Builder {
	b.rspQueueSize = n
	return b
}

// WithMemRange sets the expander memory range exposed to the host.
func (b Builder) WithMemRange(r mem.AddrRange) Builder {
	b.memRange = r
	return b
}

// WithBARRange sets the register range served by the PIO port.
func (b Builder) WithBARRange(r mem.AddrRange) Builder {
	b.barRange = r
	return b
}

// WithPIOLatency sets the latency of a register access.
func (b Builder) WithPIOLatency(lat sim.VTime) Builder {
	b.pioLatency = lat
	return b
}

// WithNMP enables the near-memory processor.
func (b Builder) WithNMP(enable bool) Builder {
	b.enableNMP = enable
	return b
}

// WithNMPBinary sets the program the near-memory processor runs.
func (b Builder) WithNMPBinary(binary string) Builder {
	b.nmpBinary = binary
	return b
}

// WithNMPStartAddr sets the address execution starts from.
func (b Builder) WithNMPStartAddr(addr uint64) Builder {
	b.nmpStartAddr = addr
	return b
}

// WithStatsCollector sets where the controller reports its stats. Without
// one, the stats are kept in a private registry.
func (b Builder) WithStatsCollector(c stats.Collector) Builder {
	b.collector = c
	return b
}

// Build creates a controller.
func (b Builder) Build(name string) *Comp {
	b.mustBeValid(name)

	collector := b.collector
	if collector == nil {
		collector = stats.NewRegistry()
	}

	c := &Comp{
		engine:       b.engine,
		freq:         b.freq,
		protoProcLat: b.freq.Cycles(b.protoProcLat),
		barRange:     b.barRange,
		memRange:     b.memRange,
	}
	c.ComponentBase = sim.NewComponentBase(name)
	c.stats = newCtrlStats(collector, name)

	c.hostSide = newHostSidePort(c, b.rspQueueSize)
	c.memSide = newMemSidePort(c, b.reqQueueSize)
	c.hostSide.memSide = c.memSide
	c.memSide.hostSide = c.hostSide

	c.pio = newPIOPort(c, b.pioLatency, b.pioQueueSize, queueStats{
		lenDist: collector.NewDistribution(name+".PIOQueueLenDist",
			"PIO response queue length distribution (Count)").Init(0, 49, 10),
		latDist: collector.NewDistribution(name+".PIOQueueLatDist",
			"PIO response queue latency distribution (ps)").
			Init(0, 99999, 10000),
		sendSucceed: collector.NewCounter(name+".PIOSendSucceed",
			"Number of times a PIO response send succeeded"),
		sendFailed: collector.NewCounter(name+".PIOSendFailed",
			"Number of times a PIO response send failed"),
	})

	c.nmp = newNMP(c, b.enableNMP, b.nmpBinary, b.nmpStartAddr)
	if b.enableNMP {
		c.nmp.stats = newNMPStats(collector, name+".NMP")
	}

	logrus.Debugf("%s: BAR %s, memory %s", name, b.barRange, b.memRange)

	return c
}

func (b Builder) mustBeValid(name string) {
	if b.engine == nil {
		logrus.Panicf("%s: engine is not set", name)
	}

	if b.freq == 0 {
		logrus.Panicf("%s: frequency must be positive", name)
	}

	if b.reqQueueSize < 0 || b.rspQueueSize < 0 || b.pioQueueSize < 0 {
		logrus.Panicf("%s: queue sizes cannot be negative", name)
	}

	if b.reqQueueSize == 0 {
		logrus.Warnf("%s: request queue size is 0, every request will be "+
			"refused", name)
	}

	if !b.memRange.Valid() {
		logrus.Panicf("%s: memory range is empty", name)
	}
}
