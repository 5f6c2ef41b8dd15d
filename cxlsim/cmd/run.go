package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sarchlab/cxlsim/config"
	"github.com/sarchlab/cxlsim/datarecording"
	"github.com/sarchlab/cxlsim/monitoring"
	"github.com/sarchlab/cxlsim/platform"
	"github.com/sarchlab/cxlsim/sim"
	"github.com/sarchlab/cxlsim/tracing"
)

type runOptions struct {
	configFile  string
	runOn       string
	logLevel    string
	statsDB     string
	trace       bool
	parallelIDs bool
	monitor     bool
	monitorPort int
	openBrowser bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation and print its stats.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), opts)
		},
	}

	runCmd.Flags().StringVar(&opts.configFile, "config", "",
		"Configuration file to load")
	runCmd.Flags().StringVar(&opts.runOn, "run-on", "",
		"Where the workload runs (host, nmp); nmp enables the NMP")
	runCmd.Flags().StringVar(&opts.logLevel, "log-level", "warn",
		"Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&opts.statsDB, "stats-db", "",
		"SQLite file to record the stats into")
	runCmd.Flags().BoolVar(&opts.trace, "trace", false,
		"Record every controller transaction into --stats-db")
	runCmd.Flags().BoolVar(&opts.parallelIDs, "parallel-ids", false,
		"Use globally unique xids instead of sequential IDs")
	runCmd.Flags().BoolVar(&opts.monitor, "monitor", false,
		"Serve the monitoring page while the simulation runs")
	runCmd.Flags().IntVar(&opts.monitorPort, "monitor-port", 0,
		"Port of the monitoring server, random if 0")
	runCmd.Flags().BoolVar(&opts.openBrowser, "open-browser", false,
		"Open the monitoring page in a browser")

	return runCmd
}

func run(out io.Writer, opts *runOptions) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
	}
	logrus.SetLevel(level)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if opts.trace && opts.statsDB == "" {
		return fmt.Errorf("--trace needs --stats-db")
	}

	if opts.parallelIDs {
		sim.UseParallelIDGenerator()
	}

	p, err := platform.Build(cfg)
	if err != nil {
		return err
	}

	var rec *datarecording.SQLiteWriter
	if opts.statsDB != "" {
		rec, err = datarecording.New(opts.statsDB)
		if err != nil {
			return err
		}
	}

	var tracer *tracing.DBTracer
	var taskTimes []*tracing.AverageTimeTracer
	if opts.trace {
		tracer, err = tracing.NewDBTracer(p.Engine, rec)
		if err != nil {
			return err
		}

		tracing.CollectTrace(p.Controller, tracer)
		taskTimes = collectTaskTimes(p)
	}

	var m *monitoring.Monitor
	var bar *monitoring.ProgressBar
	if opts.monitor || opts.openBrowser {
		m, bar, err = startMonitor(p, cfg, opts)
		if err != nil {
			return err
		}
	}

	start := time.Now()

	summary, err := p.Run()
	if err != nil {
		return err
	}

	if m != nil {
		m.CompleteProgressBar(bar)
	}

	printSummary(out, summary, time.Since(start))
	printTaskTimes(out, taskTimes)

	fmt.Fprintln(out, "Queue levels (name, tick, current, max, average, "+
		"period average, capacity):")
	p.Queues.Report(out)
	fmt.Fprintln(out)

	if err := p.Stats.Dump(out); err != nil {
		return err
	}

	if tracer != nil {
		if err := tracer.Terminate(); err != nil {
			return err
		}
	}

	if rec != nil {
		return recordStats(p, rec)
	}

	return nil
}

func loadConfig(opts *runOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	if opts.runOn == "" {
		return cfg, nil
	}

	cfg.RunOn = opts.runOn
	if opts.runOn == config.RunOnNMP {
		cfg.Controller.EnableNMP = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func startMonitor(
	p *platform.Platform,
	cfg *config.Config,
	opts *runOptions,
) (*monitoring.Monitor, *monitoring.ProgressBar, error) {
	m := monitoring.NewMonitor().
		WithPortNumber(opts.monitorPort).
		WithOpenBrowser(opts.openBrowser)

	m.RegisterEngine(p.Engine)
	m.RegisterStats(p.Stats)

	for _, c := range p.Components() {
		m.RegisterComponent(c)
	}

	bar := m.CreateProgressBar("Accesses", uint64(cfg.Workload.Accesses))
	p.TrackProgress(bar)

	if _, err := m.StartServer(); err != nil {
		return nil, nil, err
	}

	return m, bar, nil
}

var tracedKinds = []string{"req_in", "nmp_access"}

func collectTaskTimes(p *platform.Platform) []*tracing.AverageTimeTracer {
	tracers := make([]*tracing.AverageTimeTracer, 0, len(tracedKinds))

	for _, kind := range tracedKinds {
		t := tracing.NewAverageTimeTracer(p.Engine, tracing.KindIs(kind))
		tracing.CollectTrace(p.Controller, t)
		tracers = append(tracers, t)
	}

	return tracers
}

func printTaskTimes(out io.Writer, tracers []*tracing.AverageTimeTracer) {
	for i, t := range tracers {
		if t.TotalCount() == 0 {
			continue
		}

		fmt.Fprintf(out, "Traced %s: %s tasks, avg %s\n",
			tracedKinds[i],
			humanize.Comma(int64(t.TotalCount())),
			humanize.SIWithDigits(t.AverageTime().InSec(), 3, "s"))
	}
}

func printSummary(out io.Writer, s platform.Summary, wall time.Duration) {
	fmt.Fprintf(out, "Run on:          %s\n", s.RunOn)
	fmt.Fprintf(out, "Accesses:        %s / %s\n",
		humanize.Comma(int64(s.Completed)), humanize.Comma(int64(s.Accesses)))
	fmt.Fprintf(out, "Simulated time:  %s\n",
		humanize.SIWithDigits(s.FinishTime.InSec(), 3, "s"))
	fmt.Fprintf(out, "Avg latency:     %.2f ns\n", s.AvgLatency)
	fmt.Fprintf(out, "Checksum:        %d\n", s.Checksum)
	fmt.Fprintf(out, "Wall time:       %s\n", wall.Round(time.Millisecond))
	fmt.Fprintln(out)
}

func recordStats(p *platform.Platform, rec *datarecording.SQLiteWriter) error {
	if err := p.Stats.Record(rec); err != nil {
		return err
	}

	logrus.Infof("stats recorded to %s", rec.Filename())

	return nil
}
