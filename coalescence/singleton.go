package coalescence

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/rng"
)

// SingletonSampler specialises UnconditionalSampler for a landscape whose
// capacities are all 0 or 1: the index is always 0 and, since no local
// knowledge can resolve a collision any more cheaply than deferring it, the
// result is always Maybe (spec §4.3 "Singleton-deme specialisation").
type SingletonSampler struct{}

func NewSingletonSampler() SingletonSampler { return SingletonSampler{} }

func (SingletonSampler) Sample(target habitat.Location, self lineage.Ref, r rng.Stream) (habitat.IndexedLocation, Outcome) {
	return habitat.IndexedLocation{Location: target, Index: 0}, Outcome{Interaction: Maybe}
}

func (SingletonSampler) SampleWithRNGSample(target habitat.Location, rngSample uint64) (habitat.IndexedLocation, Outcome) {
	return habitat.IndexedLocation{Location: target, Index: 0}, Outcome{Interaction: Maybe}
}
