package spawn

// Initializer may be implemented by a payload's pointer type. Init is called on the
// zeroed payload each time Create hands out a slot.
//
// Init runs while Create holds the pool's lock. It must not call back into a pool
// created with PoolCreateSynchronized, or it will deadlock. On other pools it may read
// from the pool, but Create, Destroy, Visit and Close fail with ErrIterating. If Init
// panics, the slot goes back to the free list and no object is created.
type Initializer interface {
	Init()
}

// Finalizer may be implemented by a payload's pointer type. Finalize is called when the
// object is destroyed, either by Destroy or by Close. The payload is zeroed afterward,
// even if Finalize panics.
//
// Finalize runs while the pool's lock is held, and the same restrictions as Init apply.
// When called from Destroy, the slot has already been returned to the free list.
type Finalizer interface {
	Finalize()
}

// Ticker may be implemented by a payload's pointer type to receive Tick calls when the
// pool has no TickHandler
type Ticker interface {
	Tick(deltaSeconds float32)
}

//go:generate mockgen -destination mocks/tick_handler.go -package mocks github.com/assisi-engine/arsenal/spawn TickHandler

// TickHandler receives one call per live object, in live-list order, for every call to
// Pool.Tick. It may read and modify the object and call Get, but Create, Destroy and
// Close fail with ErrIterating until Tick returns.
type TickHandler[T any] interface {
	TickObject(handle Handle, object *T, deltaSeconds float32)
}

// TickFunc adapts an ordinary function to TickHandler
type TickFunc[T any] func(handle Handle, object *T, deltaSeconds float32)

func (f TickFunc[T]) TickObject(handle Handle, object *T, deltaSeconds float32) {
	f(handle, object, deltaSeconds)
}

type tickerDispatch[T any] struct{}

func (tickerDispatch[T]) TickObject(handle Handle, object *T, deltaSeconds float32) {
	ticker, ok := any(object).(Ticker)
	if ok {
		ticker.Tick(deltaSeconds)
	}
}

// runHook freezes the pool's lists while a payload hook runs so that re-entrant calls
// from the hook fail with ErrIterating instead of relinking slots mid-operation. The
// caller holds the write lock.
func (p *Pool[T]) runHook(hook func()) {
	p.iterating = true
	defer func() {
		p.iterating = false
	}()

	hook()
}

func (p *Pool[T]) initObject(object *T) {
	p.runHook(func() {
		p.callInit(object)
	})
}

func (p *Pool[T]) callInit(object *T) {
	if p.construct != nil {
		p.construct(object)
		return
	}

	initializer, ok := any(object).(Initializer)
	if ok {
		initializer.Init()
	}
}

func (p *Pool[T]) finalizeObject(object *T) {
	defer func() {
		var zero T
		*object = zero
	}()

	p.runHook(func() {
		if p.destruct != nil {
			p.destruct(object)
		} else if finalizer, ok := any(object).(Finalizer); ok {
			finalizer.Finalize()
		}
	})
}
