package spawn_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/assisi-engine/arsenal/memutils"
	"github.com/assisi-engine/arsenal/spawn"
	"github.com/stretchr/testify/require"
)

type statsDocument struct {
	Name          string
	Flags         string
	Closed        bool
	SlotBytes     int
	NextPageSlots int
	Total         struct {
		Pages        int
		EmptyPages   int
		Slots        int
		Alive        int
		Free         int
		PageBytes    int
		AliveBytes   int
		PageSlotsMin *int
		PageSlotsMax *int
	}
	Pages map[string]struct {
		FirstSlot int
		Slots     int
		Alive     int
		Bytes     int
	}
	LiveObjects []struct {
		Handle string
		Page   int
		Slot   int
	}
}

func TestCalculateStatistics(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 2})
	defer func() {
		require.NoError(t, pool.Close())
	}()

	var handles []spawn.Handle
	for i := 0; i < 3; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)
		handles = append(handles, handle)
	}

	// Empty the page holding the third object
	require.NoError(t, pool.Destroy(handles[2]))

	stats := pool.CalculateStatistics()
	require.Equal(t, 2, stats.PageCount)
	require.Equal(t, 6, stats.SlotCount)
	require.Equal(t, 2, stats.AliveCount)
	require.Equal(t, 4, stats.FreeCount())
	require.Equal(t, 1, stats.EmptyPageCount)
	require.Equal(t, 2, stats.PageSlotsMin)
	require.Equal(t, 4, stats.PageSlotsMax)
	require.Equal(t, 0, stats.PageAliveMin)
	require.Equal(t, 2, stats.PageAliveMax)
	require.Equal(t, stats.PageBytes, 3*stats.AliveBytes)
}

func TestAddStatisticsAcrossPools(t *testing.T) {
	first := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 4})
	second := createPool(t, spawn.CreateOptions[testObject]{InitialSlots: 1})

	for i := 0; i < 5; i++ {
		_, err := first.Create()
		require.NoError(t, err)
	}
	_, err := second.Create()
	require.NoError(t, err)

	var stats memutils.Statistics
	first.AddStatistics(&stats)
	second.AddStatistics(&stats)

	require.Equal(t, 3, stats.PageCount)
	require.Equal(t, 4+8+1, stats.SlotCount)
	require.Equal(t, 6, stats.AliveCount)
	require.Equal(t, 7, stats.FreeCount())
	require.Equal(t, stats.SlotCount*stats.AliveBytes/stats.AliveCount, stats.PageBytes)

	var detailed memutils.DetailedStatistics
	detailed.Clear()
	first.AddDetailedStatistics(&detailed)
	second.AddDetailedStatistics(&detailed)

	require.Equal(t, stats, detailed.Statistics)
	require.Equal(t, 1, detailed.PageSlotsMin)
	require.Equal(t, 8, detailed.PageSlotsMax)
	require.Equal(t, 0, detailed.EmptyPageCount)

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
}

func TestBuildStatsString(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{
		Name:         "stats",
		InitialSlots: 2,
		Flags:        spawn.PoolCreateSynchronized,
	})

	var handles []spawn.Handle
	for i := 0; i < 3; i++ {
		handle, err := pool.Create()
		require.NoError(t, err)
		handles = append(handles, handle)
	}

	var doc statsDocument
	require.NoError(t, json.Unmarshal([]byte(pool.BuildStatsString(true)), &doc))

	require.Equal(t, "stats", doc.Name)
	require.Equal(t, "PoolCreateSynchronized", doc.Flags)
	require.False(t, doc.Closed)
	require.Greater(t, doc.SlotBytes, 0)
	require.Equal(t, 8, doc.NextPageSlots)
	require.Equal(t, 2, doc.Total.Pages)
	require.Equal(t, 6, doc.Total.Slots)
	require.Equal(t, 3, doc.Total.Alive)
	require.Equal(t, 3, doc.Total.Free)
	require.NotNil(t, doc.Total.PageSlotsMin)
	require.Equal(t, 2, *doc.Total.PageSlotsMin)
	require.Equal(t, 4, *doc.Total.PageSlotsMax)

	require.Len(t, doc.Pages, 2)
	require.Equal(t, 2, doc.Pages["1"].FirstSlot)
	require.Equal(t, 4, doc.Pages["1"].Slots)
	require.Equal(t, 1, doc.Pages["1"].Alive)
	require.Equal(t, 4*doc.SlotBytes, doc.Pages["1"].Bytes)

	require.Len(t, doc.LiveObjects, 3)
	for i, handle := range handles {
		require.Equal(t, handle.String(), doc.LiveObjects[i].Handle)
	}
	require.Equal(t, 1, doc.LiveObjects[2].Page)

	doc = statsDocument{}
	require.NoError(t, json.Unmarshal([]byte(pool.BuildStatsString(false)), &doc))
	require.Nil(t, doc.LiveObjects)

	require.NoError(t, pool.Close())

	doc = statsDocument{}
	require.NoError(t, json.Unmarshal([]byte(pool.BuildStatsString(false)), &doc))
	require.True(t, doc.Closed)
	require.Equal(t, 0, doc.Total.Pages)
	require.Nil(t, doc.Total.PageSlotsMin)
	require.Empty(t, doc.Pages)
}

func TestSynchronizedPoolConcurrentUse(t *testing.T) {
	pool := createPool(t, spawn.CreateOptions[testObject]{
		InitialSlots: 4,
		Flags:        spawn.PoolCreateSynchronized,
	})

	const workers = 8
	const iterations = 500

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			var owned []spawn.Handle
			for i := 0; i < iterations; i++ {
				handle, err := pool.Create()
				if err != nil {
					errs <- err
					return
				}

				object, err := pool.Get(handle)
				if err != nil {
					errs <- err
					return
				}
				object.Value = worker
				owned = append(owned, handle)

				if i%3 == 2 {
					err = pool.Destroy(owned[0])
					if err != nil {
						errs <- err
						return
					}
					owned = owned[1:]
				}
			}
		}(w)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, workers*(iterations-iterations/3), pool.AliveCount())
	require.NoError(t, pool.Validate())
	require.NoError(t, pool.Close())
}
