package stats

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/cxlsim/datarecording"
)

// ErrDuplicateStat is returned when a stat name is registered twice.
var ErrDuplicateStat = errors.New("duplicate stat")

// A Collector creates the stats a component reports to.
type Collector interface {
	NewCounter(name, desc string) *Counter
	NewDistribution(name, desc string) *Distribution
}

// A Registry is a Collector that keeps every stat it creates so that they
// can be printed or persisted at the end of a simulation.
type Registry struct {
	stats  []Stat
	byName map[string]Stat
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Stat)}
}

// Register adds a stat. Names must be unique.
func (r *Registry) Register(s Stat) error {
	if _, ok := r.byName[s.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStat, s.Name())
	}

	r.stats = append(r.stats, s)
	r.byName[s.Name()] = s

	return nil
}

// NewCounter creates and registers a counter. It panics if the name is
// taken, as two components sharing a name is a configuration error.
func (r *Registry) NewCounter(name, desc string) *Counter {
	c := NewCounter(name, desc)
	r.mustRegister(c)

	return c
}

// NewDistribution creates and registers a distribution.
func (r *Registry) NewDistribution(name, desc string) *Distribution {
	d := NewDistribution(name, desc)
	r.mustRegister(d)

	return d
}

func (r *Registry) mustRegister(s Stat) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Get returns the stat with the given name, or nil.
func (r *Registry) Get(name string) Stat {
	return r.byName[name]
}

// All returns the stats in registration order.
func (r *Registry) All() []Stat {
	return append([]Stat(nil), r.stats...)
}

// Reset resets every stat.
func (r *Registry) Reset() {
	for _, s := range r.stats {
		s.Reset()
	}
}

// Dump writes all the stats in a human readable table.
func (r *Registry) Dump(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, s := range r.stats {
		switch s := s.(type) {
		case *Counter:
			fmt.Fprintf(tw, "%s\t%d\t# %s\n", s.Name(), s.Value(), s.Desc())
		case *Distribution:
			dumpDistribution(tw, s)
		}
	}

	return tw.Flush()
}

func dumpDistribution(w io.Writer, d *Distribution) {
	name := d.Name()

	fmt.Fprintf(w, "%s::samples\t%d\t# %s\n", name, d.Samples(), d.Desc())
	fmt.Fprintf(w, "%s::mean\t%.2f\t\n", name, d.Mean())
	fmt.Fprintf(w, "%s::stdev\t%.2f\t\n", name, d.Stdev())

	if d.Underflows() > 0 || !d.noZero {
		fmt.Fprintf(w, "%s::underflows\t%d\t\n", name, d.Underflows())
	}

	for _, b := range d.Buckets() {
		if b.Count == 0 && d.noZero {
			continue
		}

		fmt.Fprintf(w, "%s::%d-%d\t%d\t\n", name, b.Low, b.High, b.Count)
	}

	if d.Overflows() > 0 || !d.noZero {
		fmt.Fprintf(w, "%s::overflows\t%d\t\n", name, d.Overflows())
	}

	fmt.Fprintf(w, "%s::min_value\t%d\t\n", name, d.MinValue())
	fmt.Fprintf(w, "%s::max_value\t%d\t\n", name, d.MaxValue())
}

// CounterEntry is the row stored for a counter.
type CounterEntry struct {
	Name  string
	Value uint64
}

// DistributionEntry is the row stored for a distribution summary.
type DistributionEntry struct {
	Name       string
	Samples    uint64
	Mean       float64
	Stdev      float64
	MinValue   int64
	MaxValue   int64
	Underflows uint64
	Overflows  uint64
}

// BucketEntry is the row stored for one non-empty bucket.
type BucketEntry struct {
	Name  string
	Low   int64
	High  int64
	Count uint64
}

// Table names used by Record.
const (
	CounterTable      = "counters"
	DistributionTable = "distributions"
	BucketTable       = "buckets"
)

// Record writes all the stats into a data recorder and flushes it.
func (r *Registry) Record(rec datarecording.DataRecorder) error {
	if err := createTables(rec); err != nil {
		return err
	}

	for _, s := range r.stats {
		var err error

		switch s := s.(type) {
		case *Counter:
			err = rec.InsertData(CounterTable,
				CounterEntry{Name: s.Name(), Value: s.Value()})
		case *Distribution:
			err = recordDistribution(rec, s)
		}

		if err != nil {
			return fmt.Errorf("recording %s: %w", s.Name(), err)
		}
	}

	return rec.Flush()
}

func createTables(rec datarecording.DataRecorder) error {
	tables := []struct {
		name  string
		entry any
	}{
		{CounterTable, CounterEntry{}},
		{DistributionTable, DistributionEntry{}},
		{BucketTable, BucketEntry{}},
	}

	for _, t := range tables {
		if err := rec.CreateTable(t.name, t.entry); err != nil {
			return err
		}
	}

	return nil
}

func recordDistribution(
	rec datarecording.DataRecorder,
	d *Distribution,
) error {
	err := rec.InsertData(DistributionTable, DistributionEntry{
		Name:       d.Name(),
		Samples:    d.Samples(),
		Mean:       d.Mean(),
		Stdev:      d.Stdev(),
		MinValue:   d.MinValue(),
		MaxValue:   d.MaxValue(),
		Underflows: d.Underflows(),
		Overflows:  d.Overflows(),
	})
	if err != nil {
		return err
	}

	for _, b := range d.Buckets() {
		if b.Count == 0 {
			continue
		}

		err := rec.InsertData(BucketTable, BucketEntry{
			Name:  d.Name(),
			Low:   b.Low,
			High:  b.High,
			Count: b.Count,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
