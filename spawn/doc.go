// Package spawn provides Pool, a slot allocator for large numbers of objects of a single
// type.
//
// Objects live in pages of slots. The first page holds CreateOptions.InitialSlots slots
// and every page after it twice as many as the one before; pages are allocated only when
// Create finds no free slot, and are never released before Close. Destroyed slots go onto
// a free list and are handed out again by later calls to Create, so a pool that has
// reached its working size creates and destroys objects without allocating.
//
// Create returns a Handle carrying the slot index and the slot's generation. Destroy bumps
// the generation, so handles kept past Destroy are detected as stale instead of silently
// addressing whichever object reuses the slot:
//
//	pool, err := spawn.New[Particle](logger, spawn.CreateOptions[Particle]{InitialSlots: 256})
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	handle, err := pool.Create()
//	if err != nil {
//		return err
//	}
//
//	particle, err := pool.Get(handle)
//	...
//	pool.Tick(deltaSeconds)
//	err = pool.Destroy(handle)
//
// A Pool is not safe for concurrent use unless it was created with PoolCreateSynchronized.
package spawn
