// Package platform assembles a host, a CXL memory expander, and its media
// into a runnable simulation.
package platform

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/cxlsim/config"
	"github.com/sarchlab/cxlsim/mem/cxl"
	"github.com/sarchlab/cxlsim/mem/idealmemcontroller"
	"github.com/sarchlab/cxlsim/mem/mem"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/sim/bottleneckanalysis"
	"github.com/sarchlab/cxlsim/stats"
	"github.com/sarchlab/cxlsim/workload"
)

// A Platform is a connected set of components driven by one engine.
type Platform struct {
	cfg *config.Config

	Engine     *sim.SerialEngine
	Stats      *stats.Registry
	Controller *cxl.Comp
	Media      *idealmemcontroller.Comp
	Host       *workload.HostAgent
	NMPCore    *workload.NMPCore
	Queues     *bottleneckanalysis.BufferAnalyzer
}

// Summary reports the outcome of a run.
type Summary struct {
	RunOn      string
	Accesses   int
	Completed  int
	FinishTime sim.VTime
	Checksum   uint64
	// AvgLatency is the mean access latency seen by the workload, in ns.
	AvgLatency float64
}

// Build creates and connects every component described by cfg.
func Build(cfg *config.Config) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("building platform: %w", err)
	}

	p := &Platform{
		cfg:    cfg,
		Engine: sim.NewSerialEngine(),
		Stats:  stats.NewRegistry(),
	}

	p.buildMedia()
	p.buildController()
	p.buildHost()
	p.connect()

	if cfg.Controller.EnableNMP {
		p.buildNMPCore()
	}

	p.Controller.Init()

	p.Queues = bottleneckanalysis.NewBufferAnalyzer(p.Engine)
	for _, b := range p.Controller.Buffers() {
		p.Queues.Watch(b)
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		p.Engine.AcceptHook(sim.NewEventLogger(logrus.StandardLogger()))
	}

	return p, nil
}

func (p *Platform) buildMedia() {
	numPorts := 1
	if p.cfg.Controller.EnableNMP {
		numPorts = 2
	}

	freq := p.cfg.Media.Freq.Freq()

	p.Media = idealmemcontroller.MakeBuilder().
		WithEngine(p.Engine).
		WithFreq(freq).
		WithLatency(freq.Cycles(p.cfg.Media.Latency.VTime())).
		WithMaxInflight(p.cfg.Media.MaxInflight).
		WithNumPorts(numPorts).
		WithAddrRange(p.memRange()).
		WithStatsCollector(p.Stats).
		Build("Media")
}

func (p *Platform) buildController() {
	c := p.cfg.Controller

	p.Controller = cxl.MakeBuilder().
		WithEngine(p.Engine).
		WithFreq(c.Freq.Freq()).
		WithProtoProcLatency(c.ProtoProcLat.VTime()).
		WithReqQueueSize(c.ReqSize).
		WithRspQueueSize(c.RspSize).
		WithMemRange(p.memRange()).
		WithBARRange(mem.AddrRange{
			Start: c.BARStart,
			Size:  uint64(c.BARSize),
		}).
		WithPIOLatency(c.PIOLatency.VTime()).
		WithNMP(c.EnableNMP).
		WithNMPBinary(c.NMPBinary).
		WithNMPStartAddr(c.NMPStartAddr).
		WithStatsCollector(p.Stats).
		Build("CXLMem")
}

func (p *Platform) buildHost() {
	p.Host = workload.NewHostAgent(
		"Host",
		p.Engine,
		p.cfg.Host.Freq.Freq(),
		p.cfg.Workload,
		p.cfg.Host.Window,
		p.Stats,
	)
}

func (p *Platform) buildNMPCore() {
	p.NMPCore = workload.NewNMPCore(
		"NMPCore",
		p.Engine,
		p.cfg.Host.Freq.Freq(),
		p.cfg.Workload,
	)

	nmp := p.Controller.NMP()
	p.NMPCore.SetMemoryAccessor(nmp)
	nmp.SetCPU(p.NMPCore)
}

func (p *Platform) connect() {
	mem.Connect(p.Host.Port(), p.Controller.HostPort())
	mem.Connect(p.Controller.MemPort(), p.Media.TopPort(0))

	if p.cfg.Controller.EnableNMP {
		mem.Connect(p.Controller.NMP().Port(), p.Media.TopPort(1))
	}
}

func (p *Platform) memRange() mem.AddrRange {
	return mem.AddrRange{
		Start: p.cfg.Controller.MemStart,
		Size:  uint64(p.cfg.Controller.MemSize),
	}
}

// Components returns every simulated component.
func (p *Platform) Components() []sim.Component {
	comps := []sim.Component{p.Host, p.Controller, p.Media}
	if p.NMPCore != nil {
		comps = append(comps, p.NMPCore)
	}

	return comps
}

// A ProgressTracker follows accesses from the media request to the media
// response.
type ProgressTracker interface {
	IncrementInProgress(amount uint64)
	IncrementFinished(amount uint64)
	MoveInProgressToFinished(amount uint64)
}

// TrackProgress reports every access that reaches the media to t. Posted
// writes finish when they are sent, the rest when the media responds.
func (p *Platform) TrackProgress(t ProgressTracker) {
	issued := sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos != mem.HookPosPortSend {
			return
		}

		if ctx.Item.(*mem.Transaction).NeedsResponse {
			t.IncrementInProgress(1)
		} else {
			t.IncrementFinished(1)
		}
	})

	p.Controller.MemPort().AcceptHook(issued)
	if p.NMPCore != nil {
		p.Controller.NMP().Port().AcceptHook(issued)
	}

	done := sim.HookFunc(func(ctx sim.HookCtx) {
		if ctx.Pos == mem.HookPosPortSend {
			t.MoveInProgressToFinished(1)
		}
	})

	for i := 0; i < p.Media.NumTopPorts(); i++ {
		p.Media.TopPort(i).AcceptHook(done)
	}
}

// Buffers returns the controller queues that can hold up the simulation.
func (p *Platform) Buffers() []sim.Buffer {
	return p.Controller.Buffers()
}

// Run starts the workload on the configured target and runs the engine
// until no event is left.
func (p *Platform) Run() (Summary, error) {
	switch p.cfg.RunOn {
	case config.RunOnNMP:
		return p.runOnNMP()
	default:
		return p.runOnHost()
	}
}

func (p *Platform) runOnHost() (Summary, error) {
	logrus.Infof("running %d accesses from the host", p.cfg.Workload.Accesses)

	p.Host.Start()

	if err := p.runEngine(); err != nil {
		return Summary{}, err
	}

	return Summary{
		RunOn:      config.RunOnHost,
		Accesses:   p.cfg.Workload.Accesses,
		Completed:  p.Host.Completed(),
		FinishTime: p.Host.FinishTime(),
		Checksum:   p.Host.Checksum(),
		AvgLatency: p.Host.Latency().Mean(),
	}, nil
}

func (p *Platform) runOnNMP() (Summary, error) {
	logrus.Infof("running %d accesses on the near-memory processor",
		p.cfg.Workload.Accesses)

	nmp := p.Controller.NMP()
	if !nmp.StartExecution(nmp.StartAddr(), p.cfg.Host.StackPointer) {
		return Summary{}, fmt.Errorf("NMP of %s cannot start execution",
			p.Controller.Name())
	}

	if err := p.runEngine(); err != nil {
		return Summary{}, err
	}

	nmp.StopExecution()

	return Summary{
		RunOn:      config.RunOnNMP,
		Accesses:   p.cfg.Workload.Accesses,
		Completed:  p.NMPCore.Completed(),
		FinishTime: p.NMPCore.FinishTime(),
		Checksum:   p.NMPCore.Checksum(),
		AvgLatency: nmp.Stats().AccessLatency.Mean(),
	}, nil
}

func (p *Platform) runEngine() error {
	if err := p.Engine.Run(); err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	p.Engine.Finished()

	return nil
}
