package spawn

import (
	"fmt"
	"math"
)

// Handle identifies one object created by a Pool. The lower 32 bits are the slot
// index and the upper 32 bits the slot's generation at the time of Create.
type Handle uint64

const (
	// NoHandle is never returned by Create. Slot generations start at 1.
	NoHandle Handle = 0

	noSlot uint32 = math.MaxUint32
	// maxSlots keeps every index below noSlot and representable as an int on 32-bit platforms
	maxSlots int = math.MaxInt32
)

func newHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

// Index returns the pool-wide slot index the handle addresses
func (h Handle) Index() uint32 { return uint32(h) }

// Generation returns the generation of the slot when the handle was issued
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

func (h Handle) String() string {
	if h == NoHandle {
		return "NoHandle"
	}
	return fmt.Sprintf("%d@%d", h.Index(), h.Generation())
}

func nextGeneration(generation uint32) uint32 {
	generation++
	if generation == 0 {
		generation = 1
	}
	return generation
}
