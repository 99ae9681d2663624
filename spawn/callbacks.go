package spawn

// AllocatePageCallback is called after the pool allocates a page. pageIndex counts pages in
// allocation order starting at 0.
type AllocatePageCallback func(
	poolName string,
	pageIndex int,
	slotCount int,
	byteSize int,
	userData interface{},
)

// FreePageCallback is called for every page when the pool is closed, newest page first
type FreePageCallback func(
	poolName string,
	pageIndex int,
	slotCount int,
	byteSize int,
	userData interface{},
)

type PageCallbackOptions struct {
	Allocate AllocatePageCallback
	Free     FreePageCallback
	UserData interface{}
}

type pageCallbacks struct {
	Callbacks *PageCallbackOptions
	PoolName  string
}

func (c *pageCallbacks) Allocate(
	pageIndex int,
	slotCount int,
	byteSize int,
) {
	if c.Callbacks != nil && c.Callbacks.Allocate != nil {
		c.Callbacks.Allocate(c.PoolName, pageIndex, slotCount, byteSize, c.Callbacks.UserData)
	}
}

func (c *pageCallbacks) Free(
	pageIndex int,
	slotCount int,
	byteSize int,
) {
	if c.Callbacks != nil && c.Callbacks.Free != nil {
		c.Callbacks.Free(c.PoolName, pageIndex, slotCount, byteSize, c.Callbacks.UserData)
	}
}
