package spawn

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfMemory is returned when the pool needs to grow but has reached its MaxSlots
	// limit or the 32-bit slot index space. Go runtime allocation failure is not
	// reported through it: like any other make, a page that cannot be allocated aborts
	// the process.
	ErrOutOfMemory = errors.New("spawn: pool cannot grow")
	// ErrInvalidHandle is returned for NoHandle or a handle whose slot index was never
	// allocated by the pool.
	ErrInvalidHandle = errors.New("spawn: handle does not address a slot in this pool")
	// ErrStaleHandle is returned when a handle's generation does not match its slot: the
	// object it referred to has been destroyed, and the slot may already hold another one.
	ErrStaleHandle = errors.New("spawn: handle refers to a destroyed object")
	// ErrPoolClosed is returned by every mutating operation after Close.
	ErrPoolClosed = errors.New("spawn: pool is closed")
	// ErrIterating is returned by Create, Destroy and Close while Tick or Visit is walking
	// the live list.
	ErrIterating = errors.New("spawn: live objects are being iterated")
)
