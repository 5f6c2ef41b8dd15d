package cxl

import "github.com/sarchlab/cxlsim/stats"

// CtrlStats are the stats of the host and media facing queues.
type CtrlStats struct {
	ReqQueueFullEvents *stats.Counter
	ReqRetryCounts     *stats.Counter
	RspQueueFullEvents *stats.Counter
	ReqSendFailed      *stats.Counter
	RspSendFailed      *stats.Counter
	ReqSendSucceed     *stats.Counter
	RspSendSucceed     *stats.Counter

	ReqQueueLenDist    *stats.Distribution
	RspQueueLenDist    *stats.Distribution
	RspOutstandingDist *stats.Distribution
	ReqQueueLatDist    *stats.Distribution
	RspQueueLatDist    *stats.Distribution

	// MemToCtrlRspGap samples the cycles between consecutive media
	// responses.
	MemToCtrlRspGap *stats.Distribution
}

func newCtrlStats(c stats.Collector, prefix string) *CtrlStats {
	name := func(n string) string { return prefix + "." + n }

	return &CtrlStats{
		ReqQueueFullEvents: c.NewCounter(name("ReqQueueFullEvents"),
			"Number of times the request queue has become full"),
		ReqRetryCounts: c.NewCounter(name("ReqRetryCounts"),
			"Number of times the request was sent for retry"),
		RspQueueFullEvents: c.NewCounter(name("RspQueueFullEvents"),
			"Number of times the response queue has become full"),
		ReqSendFailed: c.NewCounter(name("ReqSendFailed"),
			"Number of times the request send failed"),
		RspSendFailed: c.NewCounter(name("RspSendFailed"),
			"Number of times the response send failed"),
		ReqSendSucceed: c.NewCounter(name("ReqSendSucceed"),
			"Number of times the request send succeeded"),
		RspSendSucceed: c.NewCounter(name("RspSendSucceed"),
			"Number of times the response send succeeded"),

		ReqQueueLenDist: c.NewDistribution(name("ReqQueueLenDist"),
			"Request queue length distribution (Count)").
			Init(0, 49, 10).NoZero(),
		RspQueueLenDist: c.NewDistribution(name("RspQueueLenDist"),
			"Response queue length distribution (Count)").
			Init(0, 49, 10).NoZero(),
		RspOutstandingDist: c.NewDistribution(name("RspOutstandingDist"),
			"Outstanding responses distribution (Count)").
			Init(0, 49, 10).NoZero(),
		ReqQueueLatDist: c.NewDistribution(name("ReqQueueLatDist"),
			"Request queue latency distribution (ps)").
			Init(12000, 41999, 1000).NoZero(),
		RspQueueLatDist: c.NewDistribution(name("RspQueueLatDist"),
			"Response queue latency distribution (ps)").
			Init(12000, 41999, 1000).NoZero(),
		MemToCtrlRspGap: c.NewDistribution(name("MemToCtrlRspGap"),
			"Cycles between consecutive responses from the memory media").
			Init(0, 299, 10).NoZero(),
	}
}

// NMPStats are the stats of the near-memory processor.
type NMPStats struct {
	MemReads  *stats.Counter
	MemWrites *stats.Counter

	// AccessLatency is sampled in nanoseconds.
	AccessLatency *stats.Distribution

	ActiveCycles    *stats.Counter
	Executions      *stats.Counter
	OrphanResponses *stats.Counter
}

func newNMPStats(c stats.Collector, prefix string) *NMPStats {
	name := func(n string) string { return prefix + "." + n }

	return &NMPStats{
		MemReads: c.NewCounter(name("MemReads"),
			"Number of memory reads from the NMP CPU"),
		MemWrites: c.NewCounter(name("MemWrites"),
			"Number of memory writes from the NMP CPU"),
		AccessLatency: c.NewDistribution(name("AccessLatency"),
			"NMP memory access latency distribution (ns)").
			Init(0, 500, 10).NoZero(),
		ActiveCycles: c.NewCounter(name("ActiveCycles"),
			"Total cycles the NMP CPU has been active"),
		Executions: c.NewCounter(name("Executions"),
			"Number of times NMP CPU execution was started"),
		OrphanResponses: c.NewCounter(name("OrphanResponses"),
			"Responses that arrived with no NMP CPU attached"),
	}
}
