package sim

import "log"

// Freq defines the type of frequency, in Hz.
type Freq uint64

// Defines the unit of frequency
const (
	Hz  Freq = 1
	KHz Freq = 1e3
	MHz Freq = 1e6
	GHz Freq = 1e9
)

// Period returns the time between two consecutive ticks. Frequencies that do
// not divide one second evenly into picoseconds are truncated.
func (f Freq) Period() VTime {
	if f == 0 {
		log.Panic("frequency cannot be 0")
	}

	p := S / VTime(f)
	if p == 0 {
		log.Panicf("frequency %d Hz is finer than the time resolution", f)
	}

	return p
}

// Cycle converts a time to the number of cycles passed since time 0.
func (f Freq) Cycle(t VTime) uint64 {
	return uint64(t / f.Period())
}

// Cycles converts a duration to a number of cycles, rounding up.
func (f Freq) Cycles(d VTime) uint64 {
	p := f.Period()

	return uint64((d + p - 1) / p)
}

// CyclesToTime converts a number of cycles to a duration.
func (f Freq) CyclesToTime(n uint64) VTime {
	return VTime(n) * f.Period()
}

// ThisTick returns the current tick time, that is, the first clock edge at or
// after now.
//
//	              Input
//	              (          ]
//	   |----------|----------|----------|----->
//	                         |
//	                         Output
func (f Freq) ThisTick(now VTime) VTime {
	p := f.Period()

	return (now + p - 1) / p * p
}

// NextTick returns the next tick time.
//
//	              Input
//	              [          )
//	   |----------|----------|----------|----->
//	                         |
//	                         Output
func (f Freq) NextTick(now VTime) VTime {
	p := f.Period()

	return (now/p + 1) * p
}

// NCyclesLater returns the time after N cycles, counted from the current
// tick.
func (f Freq) NCyclesLater(n uint64, now VTime) VTime {
	return f.ThisTick(now) + f.CyclesToTime(n)
}
