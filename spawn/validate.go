package spawn

import (
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
)

// lockedPool lets memutils.DebugValidate run against a pool whose lock is already held
type lockedPool[T any] struct {
	pool *Pool[T]
}

func (l lockedPool[T]) Validate() error {
	return l.pool.validateAfterLock()
}

// Validate walks every page, the live list and the free list and returns an error
// describing the first inconsistency it finds. It is O(capacity) and meant for tests
// and diagnostics.
func (p *Pool[T]) Validate() error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.validateAfterLock()
}

func (p *Pool[T]) validateAfterLock() error {
	if p.closed {
		if p.pages.Capacity() != 0 || p.live.count != 0 || p.free.count != 0 {
			return errors.Errorf("closed pool still lists %d slots, %d live and %d free", p.pages.Capacity(), p.live.count, p.free.count)
		}
		return nil
	}

	err := p.validatePages()
	if err != nil {
		return err
	}

	capacity := p.pages.Capacity()
	visited := swiss.NewMap[uint32, slotState](uint32(capacity))

	err = p.validateLiveList(visited)
	if err != nil {
		return err
	}

	err = p.validateFreeList(visited)
	if err != nil {
		return err
	}

	if visited.Count() != capacity {
		return errors.Errorf("the live and free lists reach %d slots, but the pool has a capacity of %d", visited.Count(), capacity)
	}

	return nil
}

func (p *Pool[T]) validatePages() error {
	table := p.pages.table
	if len(table) == 0 {
		return errors.New("an open pool must have at least one page")
	}

	calculatedCapacity := 0
	calculatedAlive := 0
	expectedSlots := p.pages.firstPageSlots

	for i, pg := range table {
		if pg.index != i {
			return errors.Errorf("page at table position %d reports index %d", i, pg.index)
		}

		if int(pg.firstSlot) != calculatedCapacity {
			return errors.Errorf("page %d starts at slot %d, but the pages before it hold %d slots", i, pg.firstSlot, calculatedCapacity)
		}

		isLast := i == len(table)-1
		if pg.SlotCount() != expectedSlots && !(isLast && pg.SlotCount() < expectedSlots) {
			return errors.Errorf("page %d holds %d slots, but should hold %d", i, pg.SlotCount(), expectedSlots)
		}

		if pg.alive < 0 || pg.alive > pg.SlotCount() {
			return errors.Errorf("page %d claims %d live slots out of %d", i, pg.alive, pg.SlotCount())
		}

		expectedPrev := (*page[T])(nil)
		if i > 0 {
			expectedPrev = table[i-1]
		}
		if pg.prev != expectedPrev {
			return errors.Errorf("page %d does not link back to the page allocated before it", i)
		}

		calculatedCapacity += pg.SlotCount()
		calculatedAlive += pg.alive
		expectedSlots *= 2
	}

	if p.pages.newest != table[len(table)-1] {
		return errors.New("the newest page is not the last page allocated")
	}

	if calculatedCapacity != p.pages.Capacity() {
		return errors.Errorf("the pool has a capacity of %d, but its pages only add up to %d", p.pages.Capacity(), calculatedCapacity)
	}

	if calculatedAlive != p.live.count {
		return errors.Errorf("the live list holds %d slots, but the pages count %d live slots", p.live.count, calculatedAlive)
	}

	if p.live.count+p.free.count != calculatedCapacity {
		return errors.Errorf("%d live and %d free slots do not add up to a capacity of %d", p.live.count, p.free.count, calculatedCapacity)
	}

	return nil
}

func (p *Pool[T]) validateLiveList(visited *swiss.Map[uint32, slotState]) error {
	actualCount := 0
	prev := noSlot

	for index := p.live.head; index != noSlot; {
		_, s, ok := p.pages.slotAt(index)
		if !ok {
			return errors.Errorf("the live list links to slot %d, which is outside the pool", index)
		}

		if visited.Has(index) {
			return errors.Errorf("slot %d appears in the live list twice", index)
		}
		visited.Put(index, slotLive)

		if !s.IsLive() {
			return errors.Errorf("slot %d is in the live list but is %s", index, s.state)
		}

		if s.livePrev != prev {
			return errors.Errorf("slot %d follows slot %d in the live list, but the reverse reference is broken", index, prev)
		}

		if s.freeNext != noSlot {
			return errors.Errorf("live slot %d still has a free list link", index)
		}

		actualCount++
		prev = index
		index = s.liveNext
	}

	if p.live.tail != prev {
		return errors.Errorf("the live list ends at slot %d, but its tail is slot %d", prev, p.live.tail)
	}

	if actualCount != p.live.count {
		return errors.Errorf("the listed number of live slots (%d) does not match the actual number of slots (%d)", p.live.count, actualCount)
	}

	return nil
}

func (p *Pool[T]) validateFreeList(visited *swiss.Map[uint32, slotState]) error {
	actualCount := 0

	for index := p.free.head; index != noSlot; {
		_, s, ok := p.pages.slotAt(index)
		if !ok {
			return errors.Errorf("the free list links to slot %d, which is outside the pool", index)
		}

		state, seen := visited.Get(index)
		if seen {
			return errors.Errorf("free slot %d was already reached through the %s list", index, state)
		}
		visited.Put(index, slotFree)

		if s.IsLive() {
			return errors.Errorf("slot %d is in the free list but is live", index)
		}

		if s.livePrev != noSlot || s.liveNext != noSlot {
			return errors.Errorf("free slot %d still has live list links", index)
		}

		if s.generation == 0 {
			return errors.Errorf("free slot %d has generation 0", index)
		}

		actualCount++
		index = s.freeNext
	}

	if actualCount != p.free.count {
		return errors.Errorf("the listed number of free slots (%d) does not match the actual number of slots (%d)", p.free.count, actualCount)
	}

	return nil
}
