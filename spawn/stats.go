package spawn

import (
	"strconv"

	"github.com/assisi-engine/arsenal/memutils"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// AddStatistics sums this pool's page and slot counts into stats
func (p *Pool[T]) AddStatistics(stats *memutils.Statistics) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	slotSize := p.pages.SlotSize()
	stats.PageCount += p.pages.PageCount()
	stats.SlotCount += p.pages.Capacity()
	stats.AliveCount += p.live.count
	stats.PageBytes += p.pages.Capacity() * slotSize
	stats.AliveBytes += p.live.count * slotSize
}

// AddDetailedStatistics sums this pool's per-page statistics into stats. stats must have
// been cleared at some point before the first call.
func (p *Pool[T]) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	for _, pg := range p.pages.table {
		stats.AddPage(pg.SlotCount(), pg.alive, p.pages.SlotSize())
	}
}

// CalculateStatistics returns detailed statistics for this pool alone
func (p *Pool[T]) CalculateStatistics() memutils.DetailedStatistics {
	p.logger.Debug("Pool::CalculateStatistics")

	var stats memutils.DetailedStatistics
	stats.Clear()
	p.AddDetailedStatistics(&stats)
	return stats
}

// BuildStatsString returns a JSON document describing the pool's configuration and the
// usage of every page. When detailedMap is true, it also lists every live object in tick
// order.
func (p *Pool[T]) BuildStatsString(detailedMap bool) string {
	p.logger.Debug("Pool::BuildStatsString")

	stats := p.CalculateStatistics()

	p.mutex.RLock()
	defer p.mutex.RUnlock()

	writer := jwriter.NewWriter()
	root := writer.Object()

	root.Name("Name").String(p.name)
	root.Name("Flags").String(p.flags.String())
	root.Name("Closed").Bool(p.closed)
	root.Name("SlotBytes").Int(p.pages.SlotSize())
	root.Name("NextPageSlots").Int(p.pages.NextPageSlots())

	total := root.Name("Total").Object()
	printStatistics(&total, &stats)
	total.End()

	p.printPages(&root)

	if detailedMap {
		p.printLiveObjects(&root)
	}

	root.End()
	return string(writer.Bytes())
}

func printStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("Pages").Int(stats.PageCount)
	json.Name("EmptyPages").Int(stats.EmptyPageCount)
	json.Name("Slots").Int(stats.SlotCount)
	json.Name("Alive").Int(stats.AliveCount)
	json.Name("Free").Int(stats.FreeCount())
	json.Name("PageBytes").Int(stats.PageBytes)
	json.Name("AliveBytes").Int(stats.AliveBytes)

	if stats.PageCount > 0 {
		json.Name("PageSlotsMin").Int(stats.PageSlotsMin)
		json.Name("PageSlotsMax").Int(stats.PageSlotsMax)
		json.Name("PageAliveMin").Int(stats.PageAliveMin)
		json.Name("PageAliveMax").Int(stats.PageAliveMax)
	}
}

func (p *Pool[T]) printPages(json *jwriter.ObjectState) {
	pages := json.Name("Pages").Object()
	defer pages.End()

	for _, pg := range p.pages.table {
		pageObj := pages.Name(strconv.Itoa(pg.index)).Object()

		pageObj.Name("FirstSlot").Int(int(pg.firstSlot))
		pageObj.Name("Slots").Int(pg.SlotCount())
		pageObj.Name("Alive").Int(pg.alive)
		pageObj.Name("Bytes").Int(pg.SlotCount() * p.pages.SlotSize())

		pageObj.End()
	}
}

func (p *Pool[T]) printLiveObjects(json *jwriter.ObjectState) {
	arrayState := json.Name("LiveObjects").Array()
	defer arrayState.End()

	_ = p.live.Walk(func(index uint32, s *slot[T]) error {
		owner, _, _ := p.pages.slotAt(index)

		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Handle").String(newHandle(index, s.generation).String())
		obj.Name("Page").Int(owner.index)
		obj.Name("Slot").Int(int(index - owner.firstSlot))
		return nil
	})
}
