package spawn_test

import (
	"io"
	"math/rand"
	"testing"

	"github.com/assisi-engine/arsenal/spawn"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type testObject struct {
	Value  int
	Serial int
}

type lifecycleCounts struct {
	constructed int
	destructed  int
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard))
}

func createPool(t require.TestingT, options spawn.CreateOptions[testObject]) *spawn.Pool[testObject] {
	pool, err := spawn.New[testObject](testLogger(), options)
	require.NoError(t, err)
	return pool
}

func countedOptions(initialSlots int, counts *lifecycleCounts) spawn.CreateOptions[testObject] {
	return spawn.CreateOptions[testObject]{
		InitialSlots: initialSlots,
		Construct: func(object *testObject) {
			counts.constructed++
		},
		Destruct: func(object *testObject) {
			counts.destructed++
		},
	}
}

func TestNewCoercesInitialSlots(t *testing.T) {
	for _, initialSlots := range []int{0, 1, -5} {
		pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: initialSlots})

		require.Equal(t, 1, pool.CapacitySlots())
		require.Equal(t, 0, pool.AliveCount())
		require.Equal(t, 1, pool.PageCount())
		require.Equal(t, 2, pool.NextPageSlots())
		require.NoError(t, pool.Validate())
		require.NoError(t, pool.Close())
	}
}

func TestCreateGrowsOnlyWhenFull(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 2})
	defer func() {
		require.NoError(t, pool.Close())
	}()

	_, err := pool.Create()
	require.NoError(t, err)
	_, err = pool.Create()
	require.NoError(t, err)

	require.Equal(t, 2, pool.CapacitySlots())
	require.Equal(t, 2, pool.AliveCount())
	require.Equal(t, 1, pool.PageCount())

	_, err = pool.Create()
	require.NoError(t, err)

	require.Equal(t, 6, pool.CapacitySlots())
	require.Equal(t, 3, pool.AliveCount())
	require.Equal(t, 2, pool.PageCount())
	require.Equal(t, 8, pool.NextPageSlots())

	for i := 0; i < 3; i++ {
		_, err = pool.Create()
		require.NoError(t, err)
	}
	require.Equal(t, 6, pool.CapacitySlots())

	// Each page doubles the page before it
	_, err = pool.Create()
	require.NoError(t, err)
	require.Equal(t, 14, pool.CapacitySlots())
	require.Equal(t, 3, pool.PageCount())
	require.Equal(t, 16, pool.NextPageSlots())
	require.NoError(t, pool.Validate())
}

// The second page is twice the first, so one object past the first page brings the
// capacity from k to k+2k
func TestSecondPageHoldsTwiceInitialSlots(t *testing.T) {
	for _, k := range []int{1, 3, 16, 100} {
		pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: k})

		for i := 0; i < k; i++ {
			_, err := pool.Create()
			require.NoError(t, err)
		}
		require.Equal(t, k, pool.CapacitySlots())

		_, err := pool.Create()
		require.NoError(t, err)
		require.Equal(t, 3*k, pool.CapacitySlots())
		require.Equal(t, 2, pool.PageCount())
		require.Equal(t, k+1, pool.AliveCount())

		require.NoError(t, pool.Close())
	}
}

func TestRecyclingNeverGrows(t *testing.T) {
	var counts lifecycleCounts
	pool := createPool(t, countedOptions(1, &counts))
	defer func() {
		require.NoError(t, pool.Close())
	}()

	for i := 0; i < 1000; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)

		object, err := pool.Get(handle)
		require.NoError(t, err)
		require.Equal(t, testObject{}, *object)

		object.Value = i + 1
		object.Serial = i

		require.NoError(t, pool.Destroy(handle))
		require.Equal(t, 0, pool.AliveCount())
	}

	require.Equal(t, 1, pool.CapacitySlots())
	require.Equal(t, 1, pool.PageCount())
	require.Equal(t, 1000, counts.constructed)
	require.Equal(t, 1000, counts.destructed)
}

func TestRecycledSlotIsFresh(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 1})
	defer func() {
		require.NoError(t, pool.Close())
	}()

	first, err := pool.Create()
	require.NoError(t, err)

	object, err := pool.Get(first)
	require.NoError(t, err)
	object.Value = 42

	require.NoError(t, pool.Destroy(first))

	second, err := pool.Create()
	require.NoError(t, err)
	require.Equal(t, first.Index(), second.Index())
	require.NotEqual(t, first, second)

	object, err = pool.Get(second)
	require.NoError(t, err)
	require.Equal(t, 0, object.Value)
	require.Equal(t, 1, pool.CapacitySlots())
}

func TestAliveCountMatchesModel(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 3})
	defer func() {
		require.NoError(t, pool.Close())
	}()

	rng := rand.New(rand.NewSource(7))
	var handles []spawn.Handle
	creates, destroys := 0, 0
	lastCapacity := pool.CapacitySlots()

	for i := 0; i < 5000; i++ {
		if len(handles) == 0 || rng.Intn(3) != 0 {
			handle, err := pool.Create()
			require.NoError(t, err)
			handles = append(handles, handle)
			creates++
		} else {
			victim := rng.Intn(len(handles))
			require.NoError(t, pool.Destroy(handles[victim]))
			handles[victim] = handles[len(handles)-1]
			handles = handles[:len(handles)-1]
			destroys++
		}

		require.Equal(t, creates-destroys, pool.AliveCount())
		require.GreaterOrEqual(t, pool.CapacitySlots(), lastCapacity)
		require.GreaterOrEqual(t, pool.CapacitySlots(), pool.AliveCount())
		lastCapacity = pool.CapacitySlots()
	}

	require.NoError(t, pool.Validate())
}

func TestHandlesAreUnique(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 4})
	defer func() {
		require.NoError(t, pool.Close())
	}()

	seen := make(map[spawn.Handle]struct{})
	indices := make(map[uint32]struct{})
	for i := 0; i < 64; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)
		require.NotEqual(t, spawn.NoHandle, handle)

		_, duplicate := seen[handle]
		require.False(t, duplicate)
		seen[handle] = struct{}{}
		indices[handle.Index()] = struct{}{}
	}

	require.Len(t, indices, 64)
	require.Equal(t, 4+8+16+32+64, pool.CapacitySlots())
}

func TestDoubleDestroy(t *testing.T) {
	var counts lifecycleCounts
	pool := createPool(t, countedOptions(4, &counts))
	defer func() {
		require.NoError(t, pool.Close())
	}()

	handle, err := pool.Create()
	require.NoError(t, err)
	_, err = pool.Create()
	require.NoError(t, err)

	require.NoError(t, pool.Destroy(handle))
	require.Equal(t, 1, pool.AliveCount())

	err = pool.Destroy(handle)
	require.True(t, errors.Is(err, spawn.ErrStaleHandle))
	require.Equal(t, 1, pool.AliveCount())
	require.Equal(t, 1, counts.destructed)
	require.NoError(t, pool.Validate())
}

func TestStaleHandleAfterRecycle(t *testing.T) {
	var counts lifecycleCounts
	pool := createPool(t, countedOptions(1, &counts))
	defer func() {
		require.NoError(t, pool.Close())
	}()

	stale, err := pool.Create()
	require.NoError(t, err)
	require.NoError(t, pool.Destroy(stale))

	current, err := pool.Create()
	require.NoError(t, err)
	require.Equal(t, stale.Index(), current.Index())
	require.Equal(t, stale.Generation()+1, current.Generation())

	_, err = pool.Get(stale)
	require.True(t, errors.Is(err, spawn.ErrStaleHandle))

	err = pool.Destroy(stale)
	require.True(t, errors.Is(err, spawn.ErrStaleHandle))

	require.False(t, pool.Alive(stale))
	require.True(t, pool.Alive(current))
	require.Equal(t, 1, pool.AliveCount())
	require.Equal(t, 1, counts.destructed)
}

func TestPermissiveHandles(t *testing.T) {
	var counts lifecycleCounts
	options := countedOptions(1, &counts)
	options.Flags = spawn.PoolCreatePermissiveHandles
	pool := createPool(t, options)
	defer func() {
		require.NoError(t, pool.Close())
	}()

	first, err := pool.Create()
	require.NoError(t, err)
	require.NoError(t, pool.Destroy(first))

	// Not live: tolerated as a no-op
	require.NoError(t, pool.Destroy(first))
	require.Equal(t, 0, pool.AliveCount())
	require.Equal(t, 1, counts.destructed)

	// Unchecked access still reaches the slot storage
	object, err := pool.Get(first)
	require.NoError(t, err)
	require.NotNil(t, object)

	second, err := pool.Create()
	require.NoError(t, err)
	secondObject, err := pool.Get(second)
	require.NoError(t, err)
	secondObject.Value = 7

	aliased, err := pool.Get(first)
	require.NoError(t, err)
	require.Same(t, secondObject, aliased)

	// The stale handle destroys whatever now occupies its slot
	require.NoError(t, pool.Destroy(first))
	require.Equal(t, 0, pool.AliveCount())
	require.Equal(t, 2, counts.destructed)
	require.False(t, pool.Alive(second))
	require.NoError(t, pool.Validate())
}

func TestInvalidHandles(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 4})
	defer func() {
		require.NoError(t, pool.Close())
	}()

	handle, err := pool.Create()
	require.NoError(t, err)

	_, err = pool.Get(spawn.NoHandle)
	require.True(t, errors.Is(err, spawn.ErrInvalidHandle))
	require.True(t, errors.Is(pool.Destroy(spawn.NoHandle), spawn.ErrInvalidHandle))

	outside := spawn.Handle(uint64(1)<<32 | 4)
	_, err = pool.Get(outside)
	require.True(t, errors.Is(err, spawn.ErrInvalidHandle))
	require.True(t, errors.Is(pool.Destroy(outside), spawn.ErrInvalidHandle))

	// A free slot that was never handed out still has generation 1
	neverCreated := spawn.Handle(uint64(1)<<32 | uint64((handle.Index()+1)%4))
	_, err = pool.Get(neverCreated)
	require.True(t, errors.Is(err, spawn.ErrInvalidHandle))
	require.True(t, errors.Is(pool.Destroy(neverCreated), spawn.ErrInvalidHandle))

	require.Equal(t, 1, pool.AliveCount())
	require.False(t, pool.Alive(spawn.NoHandle))
	require.False(t, pool.Alive(outside))
	require.False(t, pool.Alive(neverCreated))
}

func TestMaxSlots(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 2, MaxSlots: 5})
	defer func() {
		require.NoError(t, pool.Close())
	}()

	var handles []spawn.Handle
	for i := 0; i < 5; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)
		handles = append(handles, handle)
	}
	require.Equal(t, 5, pool.CapacitySlots())
	require.Equal(t, 2, pool.PageCount())

	_, err := pool.Create()
	require.True(t, errors.Is(err, spawn.ErrOutOfMemory))
	require.Equal(t, 5, pool.AliveCount())
	require.Equal(t, 5, pool.CapacitySlots())

	require.NoError(t, pool.Destroy(handles[2]))
	_, err = pool.Create()
	require.NoError(t, err)
	require.NoError(t, pool.Validate())
}

func TestNewRejectsSmallMaxSlots(t *testing.T) {
	_, err := spawn.New[testObject](testLogger(), spawn.CreateOptions[testObject]{InitialSlots: 8, MaxSlots: 4})
	require.Error(t, err)
}

type initializedObject struct {
	Scale     float32
	finalized *int
}

func (o *initializedObject) Init() {
	o.Scale = 1
}

func (o *initializedObject) Finalize() {
	if o.finalized != nil {
		*o.finalized++
	}
}

func TestInitializerAndFinalizer(t *testing.T) {
	pool, err := spawn.New[initializedObject](testLogger(), spawn.CreateOptions[initializedObject]{InitialSlots: 2})
	require.NoError(t, err)

	finalized := 0

	handle, err := pool.Create()
	require.NoError(t, err)

	object, err := pool.Get(handle)
	require.NoError(t, err)
	require.Equal(t, float32(1), object.Scale)
	object.finalized = &finalized
	object.Scale = 3

	require.NoError(t, pool.Destroy(handle))
	require.Equal(t, 1, finalized)

	handle, err = pool.Create()
	require.NoError(t, err)
	object, err = pool.Get(handle)
	require.NoError(t, err)
	require.Equal(t, float32(1), object.Scale)
	require.Nil(t, object.finalized)

	require.NoError(t, pool.Close())
}

func TestCloseFinalizesLiveObjects(t *testing.T) {
	var counts lifecycleCounts
	var allocated, freed []int
	options := countedOptions(2, &counts)
	options.Name = "close"
	options.PageCallbacks = &spawn.PageCallbackOptions{
		Allocate: func(poolName string, pageIndex int, slotCount int, byteSize int, userData interface{}) {
			require.Equal(t, "close", poolName)
			require.Equal(t, "userdata", userData)
			require.Greater(t, byteSize, 0)
			allocated = append(allocated, pageIndex)
		},
		Free: func(poolName string, pageIndex int, slotCount int, byteSize int, userData interface{}) {
			freed = append(freed, pageIndex)
		},
		UserData: "userdata",
	}
	pool := createPool(t, options)

	var handles []spawn.Handle
	for i := 0; i < 7; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)
		handles = append(handles, handle)
	}
	require.NoError(t, pool.Destroy(handles[0]))
	require.NoError(t, pool.Destroy(handles[5]))

	require.Equal(t, 7, counts.constructed)
	require.Equal(t, 2, counts.destructed)
	require.Equal(t, []int{0, 1, 2}, allocated)

	require.NoError(t, pool.Close())
	require.Equal(t, 7, counts.destructed)
	require.Equal(t, []int{2, 1, 0}, freed)
	require.Equal(t, 0, pool.AliveCount())
	require.Equal(t, 0, pool.CapacitySlots())
	require.NoError(t, pool.Validate())

	_, err := pool.Create()
	require.True(t, errors.Is(err, spawn.ErrPoolClosed))
	require.True(t, errors.Is(pool.Destroy(handles[1]), spawn.ErrPoolClosed))
	_, err = pool.Get(handles[1])
	require.True(t, errors.Is(err, spawn.ErrPoolClosed))
	require.False(t, pool.Alive(handles[1]))

	pool.Tick(1)
	require.NoError(t, pool.Close())
	require.Equal(t, 7, counts.destructed)
	require.Equal(t, []int{2, 1, 0}, freed)
}

func TestVisitOrderAndEarlyStop(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 2})
	defer func() {
		require.NoError(t, pool.Close())
	}()

	var handles []spawn.Handle
	for i := 0; i < 5; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)
		handles = append(handles, handle)
	}

	require.NoError(t, pool.Destroy(handles[1]))
	recreated, err := pool.Create()
	require.NoError(t, err)

	var visited []spawn.Handle
	err = pool.Visit(func(handle spawn.Handle, object *testObject) error {
		visited = append(visited, handle)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []spawn.Handle{handles[0], handles[2], handles[3], handles[4], recreated}, visited)

	stop := errors.New("stop")
	visited = nil
	err = pool.Visit(func(handle spawn.Handle, object *testObject) error {
		visited = append(visited, handle)
		if len(visited) == 2 {
			return stop
		}
		return nil
	})
	require.Equal(t, stop, err)
	require.Len(t, visited, 2)

	// The pool is mutable again once Visit returns
	_, err = pool.Create()
	require.NoError(t, err)
}

func TestSetName(t *testing.T) {
	var names []string
	pool := createPool(t, spawn.CreateOptions[testObject]{
		Name:         "before",
		InitialSlots: 1,
		PageCallbacks: &spawn.PageCallbackOptions{
			Allocate: func(poolName string, pageIndex int, slotCount int, byteSize int, userData interface{}) {
				names = append(names, poolName)
			},
		},
	})

	require.Equal(t, "before", pool.Name())
	pool.SetName("after")
	require.Equal(t, "after", pool.Name())

	_, err := pool.Create()
	require.NoError(t, err)
	_, err = pool.Create()
	require.NoError(t, err)

	require.Equal(t, []string{"before", "after"}, names)
	require.NoError(t, pool.Close())
}

func TestCreateFlagsString(t *testing.T) {
	require.Equal(t, "None", spawn.CreateFlags(0).String())
	require.Equal(t, "PoolCreateSynchronized", spawn.PoolCreateSynchronized.String())
	require.Equal(t, "PoolCreatePermissiveHandles|PoolCreateSynchronized",
		(spawn.PoolCreateSynchronized | spawn.PoolCreatePermissiveHandles).String())
	require.Equal(t, "PoolCreateSynchronized|Unknown", (spawn.PoolCreateSynchronized | 1<<10).String())
}

func TestHandleString(t *testing.T) {
	require.Equal(t, "NoHandle", spawn.NoHandle.String())

	handle := spawn.Handle(uint64(3)<<32 | 17)
	require.Equal(t, uint32(17), handle.Index())
	require.Equal(t, uint32(3), handle.Generation())
	require.Equal(t, "17@3", handle.String())
}

func TestCloseFinalizesInLiveListOrder(t *testing.T) {
	var finalized []int
	serial := 0
	pool := createPool(t, spawn.CreateOptions[testObject]{
		InitialSlots: 2,
		Construct: func(object *testObject) {
			serial++
			object.Serial = serial
		},
		Destruct: func(object *testObject) {
			finalized = append(finalized, object.Serial)
		},
	})

	var handles []spawn.Handle
	for i := 0; i < 4; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)
		handles = append(handles, handle)
	}

	require.NoError(t, pool.Destroy(handles[1]))
	require.Equal(t, []int{2}, finalized)

	// Reuses the slot of serial 2 but joins the live list at the end
	handle, err := pool.Create()
	require.NoError(t, err)
	require.Equal(t, handles[1].Index(), handle.Index())

	require.NoError(t, pool.Close())
	require.Equal(t, []int{2, 1, 3, 4, 5}, finalized)
}

func TestHooksCanReadPool(t *testing.T) {
	var pool *spawn.Pool[testObject]
	var handles []spawn.Handle
	var aliveInDestruct []int
	var createErr, destroyErr, getErr error

	pool = createPool(t, spawn.CreateOptions[testObject]{
		InitialSlots: 2,
		Construct: func(object *testObject) {
			object.Value = pool.AliveCount()
			_, createErr = pool.Create()
		},
		Destruct: func(object *testObject) {
			aliveInDestruct = append(aliveInDestruct, pool.AliveCount())
			_, getErr = pool.Get(handles[0])
			destroyErr = pool.Destroy(handles[0])
		},
	})

	for i := 0; i < 3; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)
		require.True(t, errors.Is(createErr, spawn.ErrIterating))
		handles = append(handles, handle)

		object, err := pool.Get(handle)
		require.NoError(t, err)
		require.Equal(t, i, object.Value)
	}
	require.Equal(t, 3, pool.AliveCount())

	require.NoError(t, pool.Destroy(handles[2]))
	require.Equal(t, []int{2}, aliveInDestruct)
	require.NoError(t, getErr)
	require.True(t, errors.Is(destroyErr, spawn.ErrIterating))
	require.True(t, pool.Alive(handles[0]))
	require.NoError(t, pool.Validate())

	// Destruct runs once for each remaining object, and still cannot destroy
	require.NoError(t, pool.Close())
	require.Equal(t, 3, len(aliveInDestruct))
	require.True(t, errors.Is(destroyErr, spawn.ErrIterating))
}

func TestPanickingConstructorKeepsPoolValid(t *testing.T) {
	fail := false
	pool := createPool(t, spawn.CreateOptions[testObject]{
		InitialSlots: 2,
		Flags:        spawn.PoolCreateSynchronized,
		Construct: func(object *testObject) {
			object.Value = 7
			if fail {
				panic("construct failed")
			}
		},
	})

	first, err := pool.Create()
	require.NoError(t, err)

	fail = true
	require.Panics(t, func() {
		_, _ = pool.Create()
	})
	fail = false

	require.Equal(t, 1, pool.AliveCount())
	require.Equal(t, 2, pool.CapacitySlots())
	require.NoError(t, pool.Validate())

	second, err := pool.Create()
	require.NoError(t, err)
	require.NotEqual(t, first.Index(), second.Index())
	require.Equal(t, 2, pool.CapacitySlots())

	object, err := pool.Get(second)
	require.NoError(t, err)
	require.Equal(t, 7, object.Value)

	require.NoError(t, pool.Destroy(first))
	require.NoError(t, pool.Validate())
	require.NoError(t, pool.Close())
}

func TestPanickingDestructorKeepsPoolValid(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{
		InitialSlots: 2,
		Flags:        spawn.PoolCreateSynchronized,
		Destruct: func(object *testObject) {
			if object.Value == 13 {
				panic("destruct failed")
			}
		},
	})

	handle, err := pool.Create()
	require.NoError(t, err)
	object, err := pool.Get(handle)
	require.NoError(t, err)
	object.Value = 13

	require.Panics(t, func() {
		_ = pool.Destroy(handle)
	})

	require.Equal(t, 0, pool.AliveCount())
	require.False(t, pool.Alive(handle))
	require.NoError(t, pool.Validate())

	handle, err = pool.Create()
	require.NoError(t, err)
	object, err = pool.Get(handle)
	require.NoError(t, err)
	require.Equal(t, testObject{}, *object)

	require.NoError(t, pool.Close())
}
