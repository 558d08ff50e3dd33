package coalescence

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/rng"
)

// IndexedLookup is the narrow store capability the unconditional sampler
// needs: a point lookup by IndexedLocation. An independent-coherence
// LineageStore supports this without supporting full location enumeration.
type IndexedLookup interface {
	AtIndexedLocation(il habitat.IndexedLocation) (lineage.Ref, bool)
	Get(ref lineage.Ref) lineage.Lineage
}

// UnconditionalSampler is the independent-store coalescence policy (spec
// §4.3): pick a uniform index in [0, capacity(y)); return Coalescence iff a
// lineage already holds that index, else Maybe — the receiving partition
// (or, in the monolithic case, nobody, since Maybe is resolved as a plain
// move) resolves the ambiguity later.
type UnconditionalSampler struct {
	Habitat habitat.Habitat
	Store   IndexedLookup
}

func NewUnconditionalSampler(h habitat.Habitat, store IndexedLookup) *UnconditionalSampler {
	return &UnconditionalSampler{Habitat: h, Store: store}
}

func (u *UnconditionalSampler) Sample(target habitat.Location, self lineage.Ref, r rng.Stream) (habitat.IndexedLocation, Outcome) {
	capacity := u.Habitat.CapacityAt(target)
	idx := r.UniformIndex(capacity)
	il := habitat.IndexedLocation{Location: target, Index: idx}

	if occupant, ok := u.Store.AtIndexedLocation(il); ok && occupant != self {
		parent := u.Store.Get(occupant)
		return habitat.IndexedLocation{}, Outcome{Interaction: Coalescence, Parent: parent.GlobalRef}
	}
	return il, Outcome{Interaction: Maybe}
}

func (u *UnconditionalSampler) SampleWithRNGSample(target habitat.Location, rngSample uint64) (habitat.IndexedLocation, Outcome) {
	capacity := u.Habitat.CapacityAt(target)
	idx := rng.IndexFromBits(rngSample, capacity)
	il := habitat.IndexedLocation{Location: target, Index: idx}

	if occupant, ok := u.Store.AtIndexedLocation(il); ok {
		parent := u.Store.Get(occupant)
		return habitat.IndexedLocation{}, Outcome{Interaction: Coalescence, Parent: parent.GlobalRef}
	}
	return il, Outcome{Interaction: Maybe}
}
