// Package workload provides the traffic generators that drive the CXL
// controller: a host agent behind the host port and a near-memory core
// behind the NMP.
package workload

import (
	"errors"
	"fmt"
)

// ErrInvalidPattern is returned by Pattern.Validate.
var ErrInvalidPattern = errors.New("invalid access pattern")

// A Pattern is a strided pointer-chasing walk over an array. Access i reads
// Base + (i * Stride) mod ArraySize.
type Pattern struct {
	Base       uint64 `yaml:"base"`
	ArraySize  uint64 `yaml:"array_size"`
	Accesses   int    `yaml:"accesses"`
	Stride     uint64 `yaml:"stride"`
	AccessSize uint64 `yaml:"access_size"`
}

// DefaultPointerChase returns the pointer chase over 128 MiB of expander
// memory with a page stride.
func DefaultPointerChase() Pattern {
	return Pattern{
		Base:       0x100000000,
		ArraySize:  128 << 20,
		Accesses:   10000,
		Stride:     4096,
		AccessSize: 64,
	}
}

// Address returns the address of the i-th access.
func (p Pattern) Address(i int) uint64 {
	return p.Base + (uint64(i)*p.Stride)%p.ArraySize
}

// Validate checks that the pattern can be walked.
func (p Pattern) Validate() error {
	switch {
	case p.ArraySize == 0:
		return fmt.Errorf("%w: array size is 0", ErrInvalidPattern)
	case p.Accesses < 0:
		return fmt.Errorf("%w: negative access count", ErrInvalidPattern)
	case p.AccessSize == 0:
		return fmt.Errorf("%w: access size is 0", ErrInvalidPattern)
	case p.AccessSize > p.ArraySize:
		return fmt.Errorf("%w: access size %d exceeds array size %d",
			ErrInvalidPattern, p.AccessSize, p.ArraySize)
	}

	return nil
}
