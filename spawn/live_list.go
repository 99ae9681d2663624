package spawn

// liveList threads the live slots together in creation order. Links are global slot
// indices, so the list never holds a pointer into a page.
type liveList[T any] struct {
	pages *pageList[T]

	count int
	head  uint32
	tail  uint32
}

func (l *liveList[T]) PushBack(index uint32, s *slot[T]) {
	s.livePrev = l.tail
	s.liveNext = noSlot

	if l.tail != noSlot {
		l.pages.mustSlot(l.tail).liveNext = index
	} else {
		l.head = index
	}

	l.tail = index
	l.count++
}

func (l *liveList[T]) Remove(s *slot[T]) {
	prev := s.livePrev
	next := s.liveNext

	if prev != noSlot {
		l.pages.mustSlot(prev).liveNext = next
	} else {
		l.head = next
	}

	if next != noSlot {
		l.pages.mustSlot(next).livePrev = prev
	} else {
		l.tail = prev
	}

	s.livePrev = noSlot
	s.liveNext = noSlot

	l.count--
}

// Walk calls fn for every live slot from head to tail. fn must not link or unlink
// slots.
func (l *liveList[T]) Walk(fn func(index uint32, s *slot[T]) error) error {
	for index := l.head; index != noSlot; {
		s := l.pages.mustSlot(index)
		next := s.liveNext

		err := fn(index, s)
		if err != nil {
			return err
		}

		index = next
	}

	return nil
}

func (l *liveList[T]) Clear() {
	l.count = 0
	l.head = noSlot
	l.tail = noSlot
}

// freeList is a stack of free slots linked through freeNext
type freeList[T any] struct {
	pages *pageList[T]

	count int
	head  uint32
}

func (l *freeList[T]) Push(index uint32, s *slot[T]) {
	s.freeNext = l.head
	l.head = index
	l.count++
}

// Pop returns noSlot when the list is empty
func (l *freeList[T]) Pop() (uint32, *slot[T]) {
	if l.head == noSlot {
		return noSlot, nil
	}

	index := l.head
	s := l.pages.mustSlot(index)
	l.head = s.freeNext
	s.freeNext = noSlot
	l.count--

	return index, s
}

func (l *freeList[T]) IsEmpty() bool {
	return l.head == noSlot
}

func (l *freeList[T]) Clear() {
	l.count = 0
	l.head = noSlot
}
