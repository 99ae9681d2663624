package spawn

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/assisi-engine/arsenal/memutils"
	"github.com/cockroachdb/errors"
)

type slotState uint8

const (
	slotFree slotState = iota
	slotLive
)

var slotStateMapping = map[slotState]string{
	slotFree: "Free",
	slotLive: "Live",
}

func (s slotState) String() string {
	return slotStateMapping[s]
}

type slot[T any] struct {
	object     T
	generation uint32
	state      slotState

	livePrev uint32
	liveNext uint32
	freeNext uint32
}

func (s *slot[T]) IsLive() bool {
	return s.state == slotLive
}

type page[T any] struct {
	index     int
	firstSlot uint32
	alive     int
	slots     []slot[T]

	// prev is the page allocated before this one
	prev *page[T]
}

func (p *page[T]) SlotCount() int {
	return len(p.slots)
}

// pageList owns every page of a pool. Page n holds first*2^n slots starting at
// global slot index first*(2^n - 1); only the final page may be shorter, when a
// slot limit cut it off. That geometry lets slotAt find a page without searching.
type pageList[T any] struct {
	newest *page[T]
	table  []*page[T]

	firstPageSlots int
	nextPageSlots  int
	capacity       int
	maxSlots       int
	slotSize       int

	callbacks *pageCallbacks
}

func (l *pageList[T]) Init(initialSlots, maxSlots int, callbacks *pageCallbacks) {
	var s slot[T]

	l.firstPageSlots = initialSlots
	l.nextPageSlots = initialSlots
	l.maxSlots = maxSlots
	l.slotSize = int(unsafe.Sizeof(s))
	l.callbacks = callbacks
}

func (l *pageList[T]) Capacity() int      { return l.capacity }
func (l *pageList[T]) NextPageSlots() int { return l.nextPageSlots }
func (l *pageList[T]) PageCount() int     { return len(l.table) }
func (l *pageList[T]) SlotSize() int      { return l.slotSize }

// Allocate adds a page of NextPageSlots slots (or whatever remains below the slot
// limit) and doubles NextPageSlots. Every slot of the new page is free with
// generation 1.
func (l *pageList[T]) Allocate() (*page[T], error) {
	slotCount, err := memutils.ClampSlots(l.nextPageSlots, l.capacity, l.maxSlots)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "could not allocate page %d", len(l.table)), ErrOutOfMemory)
	}

	p := &page[T]{
		index:     len(l.table),
		firstSlot: uint32(l.capacity),
		slots:     make([]slot[T], slotCount),
		prev:      l.newest,
	}
	for i := range p.slots {
		p.slots[i].generation = 1
		p.slots[i].livePrev = noSlot
		p.slots[i].liveNext = noSlot
		p.slots[i].freeNext = noSlot
	}

	l.newest = p
	l.table = append(l.table, p)
	l.capacity += slotCount
	l.nextPageSlots = memutils.DoubleClamped(l.nextPageSlots, l.maxSlots)

	l.callbacks.Allocate(p.index, slotCount, slotCount*l.slotSize)
	return p, nil
}

// slotAt resolves a global slot index. It returns false for indices the pool never
// allocated.
func (l *pageList[T]) slotAt(index uint32) (*page[T], *slot[T], bool) {
	if uint64(index) >= uint64(l.capacity) {
		return nil, nil, false
	}

	pageIndex := bits.Len64(uint64(index)/uint64(l.firstPageSlots)+1) - 1
	if pageIndex >= len(l.table) {
		panic(fmt.Sprintf("slot %d is below capacity %d but maps to page %d of %d", index, l.capacity, pageIndex, len(l.table)))
	}

	p := l.table[pageIndex]
	return p, &p.slots[index-p.firstSlot], true
}

// mustSlot is slotAt for indices taken from the pool's own links
func (l *pageList[T]) mustSlot(index uint32) *slot[T] {
	_, s, ok := l.slotAt(index)
	if !ok {
		panic(fmt.Sprintf("internal link to slot %d is outside the pool capacity of %d", index, l.capacity))
	}
	return s
}

// Release drops every page, newest first
func (l *pageList[T]) Release() {
	for p := l.newest; p != nil; p = p.prev {
		l.callbacks.Free(p.index, len(p.slots), len(p.slots)*l.slotSize)
		p.slots = nil
	}

	l.newest = nil
	l.table = nil
	l.capacity = 0
}
