// Package stats provides counters and distributions that components report
// their telemetry to.
package stats

import (
	"fmt"
	"math"
)

// A Stat is a named statistic.
type Stat interface {
	Name() string
	Desc() string
	Reset()
}

// A Counter counts events.
type Counter struct {
	name  string
	desc  string
	value uint64
}

// NewCounter creates a standalone counter.
func NewCounter(name, desc string) *Counter {
	return &Counter{name: name, desc: desc}
}

// Name returns the name of the counter.
func (c *Counter) Name() string { return c.name }

// Desc returns the description of the counter.
func (c *Counter) Desc() string { return c.desc }

// Inc adds one.
func (c *Counter) Inc() { c.value++ }

// Add adds n.
func (c *Counter) Add(n uint64) { c.value += n }

// Set overwrites the value.
func (c *Counter) Set(n uint64) { c.value = n }

// Value returns the current count.
func (c *Counter) Value() uint64 { return c.value }

// Reset sets the counter back to zero.
func (c *Counter) Reset() { c.value = 0 }

// A Distribution buckets samples into fixed-width bins between a minimum and
// a maximum. Samples outside the range go to the underflow and overflow
// bins.
type Distribution struct {
	name string
	desc string

	min, max, bucketSize int64
	buckets              []uint64
	underflows           uint64
	overflows            uint64

	samples  uint64
	sum      float64
	squares  float64
	minValue int64
	maxValue int64

	noZero bool
}

// NewDistribution creates a standalone distribution. It must be initialized
// with Init before sampling.
func NewDistribution(name, desc string) *Distribution {
	return &Distribution{name: name, desc: desc}
}

// Init sets the range and the bucket size. The number of buckets is
// ceil((max - min + 1) / bucketSize).
func (d *Distribution) Init(min, max, bucketSize int64) *Distribution {
	if bucketSize <= 0 {
		panic(fmt.Sprintf("distribution %s: bucket size must be positive",
			d.name))
	}

	if max < min {
		panic(fmt.Sprintf("distribution %s: max %d is smaller than min %d",
			d.name, max, min))
	}

	d.min = min
	d.max = max
	d.bucketSize = bucketSize
	d.buckets = make([]uint64, (max-min+bucketSize)/bucketSize)

	return d
}

// NoZero hides empty buckets when the distribution is printed.
func (d *Distribution) NoZero() *Distribution {
	d.noZero = true
	return d
}

// Name returns the name of the distribution.
func (d *Distribution) Name() string { return d.name }

// Desc returns the description of the distribution.
func (d *Distribution) Desc() string { return d.desc }

// Sample records one value.
func (d *Distribution) Sample(v int64) {
	if d.buckets == nil {
		panic(fmt.Sprintf("distribution %s sampled before Init", d.name))
	}

	switch {
	case v < d.min:
		d.underflows++
	case v > d.max:
		d.overflows++
	default:
		d.buckets[(v-d.min)/d.bucketSize]++
	}

	if d.samples == 0 || v < d.minValue {
		d.minValue = v
	}

	if d.samples == 0 || v > d.maxValue {
		d.maxValue = v
	}

	d.samples++
	d.sum += float64(v)
	d.squares += float64(v) * float64(v)
}

// Samples returns the number of values sampled.
func (d *Distribution) Samples() uint64 { return d.samples }

// Underflows returns the number of samples below the minimum.
func (d *Distribution) Underflows() uint64 { return d.underflows }

// Overflows returns the number of samples above the maximum.
func (d *Distribution) Overflows() uint64 { return d.overflows }

// MinValue returns the smallest value sampled.
func (d *Distribution) MinValue() int64 { return d.minValue }

// MaxValue returns the largest value sampled.
func (d *Distribution) MaxValue() int64 { return d.maxValue }

// Mean returns the average of the samples, or 0 without samples.
func (d *Distribution) Mean() float64 {
	if d.samples == 0 {
		return 0
	}

	return d.sum / float64(d.samples)
}

// Stdev returns the sample standard deviation.
func (d *Distribution) Stdev() float64 {
	if d.samples < 2 {
		return 0
	}

	n := float64(d.samples)
	variance := (d.squares - d.sum*d.sum/n) / (n - 1)

	if variance < 0 {
		return 0
	}

	return math.Sqrt(variance)
}

// A Bucket is one bin of a distribution, covering [Low, High].
type Bucket struct {
	Low, High int64
	Count     uint64
}

// Buckets returns the bins in ascending order. Empty bins are included.
func (d *Distribution) Buckets() []Bucket {
	out := make([]Bucket, len(d.buckets))

	for i, c := range d.buckets {
		low := d.min + int64(i)*d.bucketSize
		high := low + d.bucketSize - 1

		if high > d.max {
			high = d.max
		}

		out[i] = Bucket{Low: low, High: high, Count: c}
	}

	return out
}

// Reset drops all samples and keeps the bucket setup.
func (d *Distribution) Reset() {
	for i := range d.buckets {
		d.buckets[i] = 0
	}

	d.underflows = 0
	d.overflows = 0
	d.samples = 0
	d.sum = 0
	d.squares = 0
	d.minValue = 0
	d.maxValue = 0
}
