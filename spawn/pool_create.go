package spawn

import (
	"sort"
	"strings"

	"github.com/assisi-engine/arsenal/spawn/internal/utils"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific pool behaviors to activate or deactivate
type CreateFlags int32

var createFlagsMapping = make(map[CreateFlags]string)

func (f CreateFlags) Register(str string) {
	createFlagsMapping[f] = str
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	remaining := f
	for flag, name := range createFlagsMapping {
		if f&flag == flag {
			names = append(names, name)
			remaining &^= flag
		}
	}
	sort.Strings(names)

	if remaining != 0 {
		names = append(names, "Unknown")
	}

	return strings.Join(names, "|")
}

const (
	// PoolCreateSynchronized protects the pool with an internal reader/writer lock so it
	// may be shared between goroutines. Without it the pool must be used from one goroutine
	// at a time; nothing detects a violation.
	PoolCreateSynchronized CreateFlags = 1 << iota
	// PoolCreatePermissiveHandles disables generation checks. Destroy on a slot that is
	// not live silently does nothing, Destroy on a recycled slot destroys its new occupant,
	// and Get returns the slot storage whether or not it is live. Only useful for
	// reproducing the behavior of raw-pointer handles.
	PoolCreatePermissiveHandles
)

func init() {
	PoolCreateSynchronized.Register("PoolCreateSynchronized")
	PoolCreatePermissiveHandles.Register("PoolCreatePermissiveHandles")
}

// DefaultInitialSlots is a reasonable first page size for callers that have no better
// estimate. New does not apply it: a zero InitialSlots means a single slot.
const DefaultInitialSlots int = 1024

// CreateOptions contains optional settings when creating a pool. It is valid to leave
// all the fields blank.
type CreateOptions[T any] struct {
	// Name is reported in logs and statistics
	Name string
	// Flags indicates specific pool behaviors to activate or deactivate
	Flags CreateFlags

	// InitialSlots is the slot count of the first page. Values below 1 are raised to 1.
	// Every later page is twice the size of the page before it.
	InitialSlots int
	// MaxSlots limits the total capacity of the pool. Create fails with ErrOutOfMemory
	// once it is reached. 0 means no limit beyond the slot index space.
	MaxSlots int

	// Construct, if set, is called on the zeroed payload of every new object instead of
	// the payload's Initializer implementation. It runs under the same restrictions as
	// Initializer.Init: in a synchronized pool it must not call the pool.
	Construct func(object *T)
	// Destruct, if set, is called on the payload of every destroyed object instead of
	// the payload's Finalizer implementation. It runs under the same restrictions as
	// Finalizer.Finalize.
	Destruct func(object *T)
	// TickHandler receives every live object during Tick. If nil, objects implementing
	// Ticker are ticked and everything else is skipped.
	TickHandler TickHandler[T]

	// PageCallbacks is an optional set of callbacks that will be executed when the pool
	// allocates or releases a page
	PageCallbacks *PageCallbackOptions
}

// New creates a new Pool and allocates its first page
//
// logger - Receives debug output for every pool operation. It must not be nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New[T any](logger *slog.Logger, options CreateOptions[T]) (*Pool[T], error) {
	initialSlots := options.InitialSlots
	if initialSlots < 1 {
		initialSlots = 1
	}

	maxSlotCount := maxSlots
	if options.MaxSlots > 0 {
		if options.MaxSlots < initialSlots {
			return nil, errors.Newf("CreateOptions.MaxSlots (%d) cannot be smaller than CreateOptions.InitialSlots (%d)", options.MaxSlots, initialSlots)
		}
		maxSlotCount = options.MaxSlots
	}
	if initialSlots > maxSlotCount {
		return nil, errors.Wrapf(ErrOutOfMemory, "CreateOptions.InitialSlots (%d) exceeds the slot index space", initialSlots)
	}

	pool := &Pool[T]{
		logger: logger,
		name:   options.Name,
		flags:  options.Flags,
		mutex: utils.OptionalRWMutex{
			UseMutex: options.Flags&PoolCreateSynchronized != 0,
		},
		construct:   options.Construct,
		destruct:    options.Destruct,
		tickHandler: options.TickHandler,
	}
	pool.free = freeList[T]{pages: &pool.pages, head: noSlot}
	pool.live = liveList[T]{pages: &pool.pages, head: noSlot, tail: noSlot}
	pool.pages.Init(initialSlots, maxSlotCount, &pageCallbacks{
		Callbacks: options.PageCallbacks,
		PoolName:  options.Name,
	})

	if pool.tickHandler == nil {
		pool.tickHandler = tickerDispatch[T]{}
	}

	logger.Debug("Pool::New",
		slog.String("Name", options.Name),
		slog.String("Flags", options.Flags.String()),
		slog.Int("InitialSlots", initialSlots),
		slog.Int("MaxSlots", maxSlotCount),
	)

	err := pool.grow()
	if err != nil {
		return nil, err
	}

	return pool, nil
}
