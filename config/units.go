package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/cxlsim/sim"
)

// Size is a byte count written like "2GiB" or "128 MiB".
type Size uint64

// ParseSize parses a byte count. Plain integers are bytes.
func ParseSize(s string) (Size, error) {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parsing size %q: %w", s, err)
	}

	return Size(v), nil
}

func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// UnmarshalYAML accepts an integer or a size string.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseSize(node.Value)
	if err != nil {
		return err
	}

	*s = v

	return nil
}

// MarshalYAML writes the size in binary units.
func (s Size) MarshalYAML() (any, error) {
	return s.String(), nil
}

// Latency is a duration written like "15ns".
type Latency sim.VTime

// ParseLatency parses a duration with an SI prefix on seconds.
// Microseconds may be written as "us".
func ParseLatency(s string) (Latency, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasSuffix(trimmed, "us") {
		trimmed = strings.TrimSuffix(trimmed, "us") + "µs"
	}

	v, unit, err := humanize.ParseSI(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parsing latency %q: %w", s, err)
	}

	if unit != "s" {
		return 0, fmt.Errorf("parsing latency %q: unit must be seconds", s)
	}

	if v < 0 {
		return 0, fmt.Errorf("parsing latency %q: must not be negative", s)
	}

	return Latency(math.Round(v * float64(sim.S))), nil
}

// VTime converts the latency to simulation time.
func (l Latency) VTime() sim.VTime {
	return sim.VTime(l)
}

func (l Latency) String() string {
	return humanize.SIWithDigits(sim.VTime(l).InSec(), 3, "s")
}

// UnmarshalYAML accepts a latency string.
func (l *Latency) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseLatency(node.Value)
	if err != nil {
		return err
	}

	*l = v

	return nil
}

// MarshalYAML writes the latency with an SI prefix.
func (l Latency) MarshalYAML() (any, error) {
	return l.String(), nil
}

// Frequency is a clock frequency written like "1GHz".
type Frequency sim.Freq

// ParseFrequency parses a frequency in Hz with an SI prefix.
func ParseFrequency(s string) (Frequency, error) {
	v, unit, err := humanize.ParseSI(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parsing frequency %q: %w", s, err)
	}

	if unit != "Hz" {
		return 0, fmt.Errorf("parsing frequency %q: unit must be Hz", s)
	}

	if v < 0 {
		return 0, fmt.Errorf("parsing frequency %q: must not be negative", s)
	}

	return Frequency(math.Round(v)), nil
}

// Freq converts to the simulation frequency type.
func (f Frequency) Freq() sim.Freq {
	return sim.Freq(f)
}

func (f Frequency) String() string {
	return humanize.SIWithDigits(float64(f), 3, "Hz")
}

// UnmarshalYAML accepts a frequency string.
func (f *Frequency) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseFrequency(node.Value)
	if err != nil {
		return err
	}

	*f = v

	return nil
}

// MarshalYAML writes the frequency with an SI prefix.
func (f Frequency) MarshalYAML() (any, error) {
	return f.String(), nil
}
