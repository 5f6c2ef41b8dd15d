package sim

import "fmt"

// VTime is a point in (or a span of) simulated time, counted in
// picoseconds.
type VTime uint64

// Units of simulated time.
const (
	Ps VTime = 1
	Ns VTime = 1000 * Ps
	Us VTime = 1000 * Ns
	Ms VTime = 1000 * Us
	S  VTime = 1000 * Ms
)

// InNs returns the time in nanoseconds.
func (t VTime) InNs() float64 {
	return float64(t) / float64(Ns)
}

// InSec returns the time in seconds.
func (t VTime) InSec() float64 {
	return float64(t) / float64(S)
}

func (t VTime) String() string {
	return fmt.Sprintf("%dps", uint64(t))
}

// MaxVTime returns the later of the two times.
func MaxVTime(a, b VTime) VTime {
	if a > b {
		return a
	}

	return b
}
