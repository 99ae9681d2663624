package memutils

import "math"

// Statistics is a cheap summary of one or more slot pools. Values are summed across
// every page passed to it, so a single Statistics may describe several pools.
type Statistics struct {
	PageCount  int
	SlotCount  int
	AliveCount int
	PageBytes  int
	AliveBytes int
}

func (s *Statistics) Clear() {
	s.PageCount = 0
	s.SlotCount = 0
	s.AliveCount = 0
	s.PageBytes = 0
	s.AliveBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.PageCount += other.PageCount
	s.SlotCount += other.SlotCount
	s.AliveCount += other.AliveCount
	s.PageBytes += other.PageBytes
	s.AliveBytes += other.AliveBytes
}

// FreeCount is the number of slots that could be handed out without growing
func (s *Statistics) FreeCount() int {
	return s.SlotCount - s.AliveCount
}

// DetailedStatistics extends Statistics with per-page extremes. Call Clear before
// accumulating into it: the zero value does not have the min fields primed.
type DetailedStatistics struct {
	Statistics
	EmptyPageCount int
	PageSlotsMin   int
	PageSlotsMax   int
	PageAliveMin   int
	PageAliveMax   int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.EmptyPageCount = 0
	s.PageSlotsMin = math.MaxInt
	s.PageSlotsMax = 0
	s.PageAliveMin = math.MaxInt
	s.PageAliveMax = 0
}

// AddPage records a single page holding slotCount slots of slotSize bytes, alive of
// which currently hold a live object.
func (s *DetailedStatistics) AddPage(slotCount, alive, slotSize int) {
	s.PageCount++
	s.SlotCount += slotCount
	s.AliveCount += alive
	s.PageBytes += slotCount * slotSize
	s.AliveBytes += alive * slotSize

	if alive == 0 {
		s.EmptyPageCount++
	}

	if slotCount < s.PageSlotsMin {
		s.PageSlotsMin = slotCount
	}

	if slotCount > s.PageSlotsMax {
		s.PageSlotsMax = slotCount
	}

	if alive < s.PageAliveMin {
		s.PageAliveMin = alive
	}

	if alive > s.PageAliveMax {
		s.PageAliveMax = alive
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.EmptyPageCount += other.EmptyPageCount

	if other.PageSlotsMin < s.PageSlotsMin {
		s.PageSlotsMin = other.PageSlotsMin
	}

	if other.PageSlotsMax > s.PageSlotsMax {
		s.PageSlotsMax = other.PageSlotsMax
	}

	if other.PageAliveMin < s.PageAliveMin {
		s.PageAliveMin = other.PageAliveMin
	}

	if other.PageAliveMax > s.PageAliveMax {
		s.PageAliveMax = other.PageAliveMax
	}
}
