package coalescence

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/rng"
)

// ConditionalSampler is the globally-coherent-store coalescence policy
// (spec §4.3): pick uniformly among the n(y) present lineages; collision
// probability is (n(y) - (1 if self already occupies y)) / capacity(y).
type ConditionalSampler struct {
	Habitat habitat.Habitat
	Store   lineage.LocallyCoherentStore
}

func NewConditionalSampler(h habitat.Habitat, store lineage.LocallyCoherentStore) *ConditionalSampler {
	return &ConditionalSampler{Habitat: h, Store: store}
}

// othersPresent returns every Ref at target other than self.
func (c *ConditionalSampler) othersPresent(target habitat.Location, self lineage.Ref) []lineage.Ref {
	all := c.Store.AtLocation(target)
	others := make([]lineage.Ref, 0, len(all))
	for _, ref := range all {
		if ref != self {
			others = append(others, ref)
		}
	}
	return others
}

// freeIndex finds the smallest index in [0, capacity) not currently held by
// any of present.
func freeIndex(present []lineage.Ref, get func(lineage.Ref) lineage.Lineage, capacity uint64) uint64 {
	used := make(map[uint64]bool, len(present))
	for _, ref := range present {
		used[get(ref).IndexedLocation.Index] = true
	}
	for idx := uint64(0); idx < capacity; idx++ {
		if !used[idx] {
			return idx
		}
	}
	panic("coalescence: no free index found within capacity; n(y) exceeded capacity(y)")
}

func (c *ConditionalSampler) Sample(target habitat.Location, self lineage.Ref, r rng.Stream) (habitat.IndexedLocation, Outcome) {
	capacity := c.Habitat.CapacityAt(target)
	others := c.othersPresent(target, self)
	n := uint64(len(others))

	if n > 0 {
		u := r.Uniform()
		if u < float64(n)/float64(capacity) {
			parentRef := others[r.UniformIndex(n)]
			parent := c.Store.Get(parentRef)
			return habitat.IndexedLocation{}, Outcome{Interaction: Coalescence, Parent: parent.GlobalRef}
		}
	}

	idx := freeIndex(others, c.Store.Get, capacity)
	return habitat.IndexedLocation{Location: target, Index: idx}, Outcome{Interaction: None}
}

func (c *ConditionalSampler) SampleWithRNGSample(target habitat.Location, rngSample uint64) (habitat.IndexedLocation, Outcome) {
	capacity := c.Habitat.CapacityAt(target)
	all := c.Store.AtLocation(target)
	n := uint64(len(all))

	if n > 0 {
		u := rng.UniformFromBits(rngSample)
		if u < float64(n)/float64(capacity) {
			parentRef := all[rng.IndexFromBits(rngSample, n)]
			parent := c.Store.Get(parentRef)
			return habitat.IndexedLocation{}, Outcome{Interaction: Coalescence, Parent: parent.GlobalRef}
		}
	}

	idx := freeIndex(all, c.Store.Get, capacity)
	return habitat.IndexedLocation{Location: target, Index: idx}, Outcome{Interaction: None}
}
