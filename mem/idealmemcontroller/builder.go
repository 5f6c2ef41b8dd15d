package idealmemcontroller

import (
	"fmt"

	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/stats"
	"github.com/sirupsen/logrus"
)

// Builder can build ideal memory controllers.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	latency     uint64
	maxInflight int
	numPorts    int
	addrRange   mem.AddrRange
	collector   stats.Collector
}

// MakeBuilder returns a new Builder
func MakeBuilder() Builder {
	return Builder{
		freq:        1 * sim.GHz,
		latency:     50,
		maxInflight: 64,
		numPorts:    1,
		addrRange:   mem.AddrRange{Start: 0, Size: 4 * mem.GB},
	}
}

// WithEngine sets the engine of the memory controller
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the memory controller
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithLatency sets the latency of the memory controller, in cycles
func (b Builder) WithLatency(latency uint64) Builder {
	b.latency = latency
	return b
}

// WithMaxInflight sets the number of accesses that can be served at the
// same time
func (b Builder) WithMaxInflight(n int) Builder {
	b.maxInflight = n
	return b
}

// WithNumPorts sets the number of top ports
func (b Builder) WithNumPorts(n int) Builder {
	b.numPorts = n
	return b
}

// WithAddrRange sets the address range served
func (b Builder) WithAddrRange(r mem.AddrRange) Builder {
	b.addrRange = r
	return b
}

// WithStatsCollector sets where the access counts are reported
func (b Builder) WithStatsCollector(c stats.Collector) Builder {
	b.collector = c
	return b
}

// Build builds a new Comp
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		logrus.Panicf("%s: engine is not set", name)
	}

	if b.maxInflight <= 0 || b.numPorts <= 0 {
		logrus.Panicf("%s: in-flight limit and port count must be positive",
			name)
	}

	collector := b.collector
	if collector == nil {
		collector = stats.NewRegistry()
	}

	c := &Comp{
		engine:      b.engine,
		freq:        b.freq,
		latency:     b.latency,
		maxInflight: b.maxInflight,
		addrRange:   b.addrRange,
		storage:     newStorage(),
		reads:       collector.NewCounter(name+".Reads", "Reads served"),
		writes:      collector.NewCounter(name+".Writes", "Writes served"),
		refused: collector.NewCounter(name+".RefusedReqs",
			"Requests refused while all slots were busy"),
	}
	c.ComponentBase = sim.NewComponentBase(name)

	for i := 0; i < b.numPorts; i++ {
		p := &topPort{comp: c}
		p.port = mem.NewResponsePort(fmt.Sprintf("%s.Top[%d]", name, i), p)
		c.topPorts = append(c.topPorts, p)
	}

	return c
}
