package mem

import "fmt"

// Byte size units.
const (
	KB uint64 = 1 << 10
	MB uint64 = 1 << 20
	GB uint64 = 1 << 30
)

// An AddrRange is a contiguous range of physical addresses.
type AddrRange struct {
	Start uint64
	Size  uint64
}

// End returns the first address after the range.
func (r AddrRange) End() uint64 {
	return r.Start + r.Size
}

// Contains returns true if addr falls in the range.
func (r AddrRange) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End()
}

// Valid returns true if the range is not empty.
func (r AddrRange) Valid() bool {
	return r.Size > 0
}

func (r AddrRange) String() string {
	return fmt.Sprintf("[0x%x:0x%x]", r.Start, r.End())
}

// FindRange returns the first range containing addr.
func FindRange(ranges []AddrRange, addr uint64) (AddrRange, bool) {
	for _, r := range ranges {
		if r.Contains(addr) {
			return r, true
		}
	}

	return AddrRange{}, false
}
