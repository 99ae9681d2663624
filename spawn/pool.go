package spawn

import (
	"github.com/assisi-engine/arsenal/memutils"
	"github.com/assisi-engine/arsenal/spawn/internal/utils"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Pool creates, destroys and iterates objects of type T stored in pages of slots.
// Pages are allocated as the pool fills, each twice the size of the last, and are only
// released by Close. Destroyed slots are reused by later calls to Create.
//
// Unless the pool was created with PoolCreateSynchronized, it must only be used by
// one goroutine at a time.
type Pool[T any] struct {
	logger *slog.Logger
	mutex  utils.OptionalRWMutex
	flags  CreateFlags
	name   string

	pages pageList[T]
	free  freeList[T]
	live  liveList[T]

	construct   func(object *T)
	destruct    func(object *T)
	tickHandler TickHandler[T]

	iterating bool
	closed    bool
}

func (p *Pool[T]) permissive() bool {
	return p.flags&PoolCreatePermissiveHandles != 0
}

func (p *Pool[T]) grow() error {
	newPage, err := p.pages.Allocate()
	if err != nil {
		p.logger.Debug("  Pool::grow FAILED", slog.Int("Capacity", p.pages.Capacity()))
		return err
	}

	p.logger.Debug("  Pool::grow",
		slog.Int("Page", newPage.index),
		slog.Int("PageSlots", newPage.SlotCount()),
		slog.Int("Capacity", p.pages.Capacity()),
	)

	for i := range newPage.slots {
		p.free.Push(newPage.firstSlot+uint32(i), &newPage.slots[i])
	}

	return nil
}

func (p *Pool[T]) checkMutable() error {
	if p.closed {
		return ErrPoolClosed
	}
	if p.iterating {
		return ErrIterating
	}
	return nil
}

// Create constructs a new object and returns its handle. The object starts as the zero
// value of T, passed through CreateOptions.Construct or the payload's Initializer, and
// is appended to the end of the tick order. A page is allocated first if no slot is free.
func (p *Pool[T]) Create() (Handle, error) {
	p.logger.Debug("Pool::Create")

	p.mutex.Lock()
	defer p.mutex.Unlock()

	err := p.checkMutable()
	if err != nil {
		return NoHandle, err
	}

	if p.free.IsEmpty() {
		err = p.grow()
		if err != nil {
			return NoHandle, err
		}
	}

	index, s := p.free.Pop()
	owner, _, _ := p.pages.slotAt(index)

	constructed := false
	defer func() {
		if !constructed {
			// Construct or Init panicked
			var zero T
			s.object = zero
			p.free.Push(index, s)
		}
	}()
	p.initObject(&s.object)
	constructed = true

	s.state = slotLive
	p.live.PushBack(index, s)
	owner.alive++

	memutils.DebugValidate(lockedPool[T]{p})

	return newHandle(index, s.generation), nil
}

// resolve finds the slot a handle addresses. In strict mode the slot must be live and
// carry the handle's generation.
func (p *Pool[T]) resolve(handle Handle) (*page[T], *slot[T], error) {
	if handle == NoHandle {
		return nil, nil, errors.Wrap(ErrInvalidHandle, "received NoHandle")
	}

	owner, s, ok := p.pages.slotAt(handle.Index())
	if !ok {
		return nil, nil, errors.Wrapf(ErrInvalidHandle, "handle %s is outside the pool capacity of %d", handle, p.pages.Capacity())
	}

	if p.permissive() {
		return owner, s, nil
	}

	if s.generation != handle.Generation() {
		return nil, nil, errors.Wrapf(ErrStaleHandle, "handle %s, slot is at generation %d", handle, s.generation)
	}

	if !s.IsLive() {
		// The generation matches a slot that was never handed out
		return nil, nil, errors.Wrapf(ErrInvalidHandle, "handle %s addresses a slot that was never created", handle)
	}

	return owner, s, nil
}

// Destroy returns the slot of the object addressed by handle to the free list and then
// finalizes the object.
// The handle, and every copy of it, is stale afterward: Get and Destroy will fail with
// ErrStaleHandle, and in particular destroying twice changes nothing the second time.
//
// Pools created with PoolCreatePermissiveHandles skip the generation check. Destroying a
// slot that is not live returns nil without doing anything, and destroying through a
// stale handle whose slot has been reused destroys the new object.
func (p *Pool[T]) Destroy(handle Handle) error {
	p.logger.Debug("Pool::Destroy", slog.String("Handle", handle.String()))

	p.mutex.Lock()
	defer p.mutex.Unlock()

	err := p.checkMutable()
	if err != nil {
		return err
	}

	owner, s, err := p.resolve(handle)
	if err != nil {
		return err
	}

	if !s.IsLive() {
		// Only reachable in permissive mode: a generation match implies a live slot
		return nil
	}

	index := handle.Index()
	p.live.Remove(s)
	s.state = slotFree
	s.generation = nextGeneration(s.generation)
	p.free.Push(index, s)
	owner.alive--

	memutils.DebugValidate(lockedPool[T]{p})

	p.finalizeObject(&s.object)

	return nil
}

// Get returns the object addressed by handle. The pointer remains valid until the object
// is destroyed or the pool is closed; it must not be used after that.
//
// Pools created with PoolCreatePermissiveHandles only check that the handle is inside the
// pool: the returned pointer may be a free slot or a different object.
func (p *Pool[T]) Get(handle Handle) (*T, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	_, s, err := p.resolve(handle)
	if err != nil {
		return nil, err
	}

	return &s.object, nil
}

// Alive reports whether handle addresses a live object with a matching generation,
// whatever the pool's handle mode
func (p *Pool[T]) Alive(handle Handle) bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.closed || handle == NoHandle {
		return false
	}

	_, s, ok := p.pages.slotAt(handle.Index())
	return ok && s.IsLive() && s.generation == handle.Generation()
}

// beginIteration marks the live list as frozen. The lock is only held while the flag
// flips, so handlers can call Get without deadlocking a synchronized pool.
func (p *Pool[T]) beginIteration() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.iterating {
		return ErrIterating
	}

	p.iterating = true
	return nil
}

func (p *Pool[T]) endIteration() {
	p.mutex.Do(func() {
		p.iterating = false
	})
}

// Tick calls the pool's TickHandler once for every live object, oldest first. Objects
// destroyed and created again are ticked in their new position at the end. Tick on a
// closed pool does nothing.
//
// Only one Tick or Visit may walk the pool at a time. A Tick that starts while another
// walk is in progress, whether from a TickHandler or from another goroutine sharing a
// synchronized pool, logs a warning and returns without ticking anything. It does not
// wait for the walk to finish.
func (p *Pool[T]) Tick(deltaSeconds float32) {
	p.logger.Debug("Pool::Tick", slog.Float64("DeltaSeconds", float64(deltaSeconds)))

	err := p.beginIteration()
	if errors.Is(err, ErrIterating) {
		p.logger.Warn("Pool::Tick called while the live list was already being iterated")
		return
	} else if err != nil {
		return
	}
	defer p.endIteration()

	_ = p.live.Walk(func(index uint32, s *slot[T]) error {
		p.tickHandler.TickObject(newHandle(index, s.generation), &s.object, deltaSeconds)
		return nil
	})
}

// Visit calls fn for every live object in tick order. If fn returns an error, the walk
// stops and Visit returns that error unchanged.
func (p *Pool[T]) Visit(fn func(handle Handle, object *T) error) error {
	p.logger.Debug("Pool::Visit")

	err := p.beginIteration()
	if err != nil {
		return err
	}
	defer p.endIteration()

	return p.live.Walk(func(index uint32, s *slot[T]) error {
		return fn(newHandle(index, s.generation), &s.object)
	})
}

// Close finalizes every live object in tick order and releases every page, newest
// first. Closing a closed pool does nothing.
func (p *Pool[T]) Close() error {
	p.logger.Debug("Pool::Close", slog.Int("AliveCount", p.AliveCount()))

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return nil
	}
	if p.iterating {
		return ErrIterating
	}

	_ = p.live.Walk(func(index uint32, s *slot[T]) error {
		p.finalizeObject(&s.object)
		s.state = slotFree
		return nil
	})

	p.live.Clear()
	p.free.Clear()
	p.pages.Release()
	p.closed = true

	return nil
}

// AliveCount returns the number of live objects
func (p *Pool[T]) AliveCount() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.live.count
}

// CapacitySlots returns the number of slots across every page. It only decreases when the
// pool is closed.
func (p *Pool[T]) CapacitySlots() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.pages.Capacity()
}

// PageCount returns the number of pages allocated so far
func (p *Pool[T]) PageCount() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.pages.PageCount()
}

// NextPageSlots returns the slot count the next page will be allocated with
func (p *Pool[T]) NextPageSlots() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.pages.NextPageSlots()
}

func (p *Pool[T]) Flags() CreateFlags {
	return p.flags
}

func (p *Pool[T]) SetName(name string) {
	p.logger.Debug("Pool::SetName")

	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.name = name
	p.pages.callbacks.PoolName = name
}

func (p *Pool[T]) Name() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.name
}
