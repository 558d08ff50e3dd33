// Package coalescence implements the CoalescenceSampler cog: deciding
// whether a dispersal to a target cell collides with an existing lineage.
package coalescence

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/rng"
)

// Interaction is the outcome of a coalescence sample.
type Interaction int

const (
	// None: the dispersing lineage occupies a previously-unoccupied slot.
	None Interaction = iota
	// Maybe: the target index's occupancy could not be determined locally
	// (independent store); the receiving partition resolves it later.
	Maybe
	// Coalescence: the dispersing lineage collided with Outcome.Parent.
	Coalescence
)

func (i Interaction) String() string {
	switch i {
	case None:
		return "None"
	case Maybe:
		return "Maybe"
	case Coalescence:
		return "Coalescence"
	default:
		return "Unknown"
	}
}

// Outcome is the result of a Sample call.
type Outcome struct {
	Interaction Interaction
	Parent      lineage.GlobalReference
}

// Sampler is the CoalescenceSampler cog.
type Sampler interface {
	// Sample decides the interaction of self dispersing to target. When
	// Interaction is None or Maybe, the returned IndexedLocation is where
	// self should be relocated to; when Interaction is Coalescence, the
	// IndexedLocation is the zero value and self is removed instead.
	Sample(target habitat.Location, self lineage.Ref, r rng.Stream) (habitat.IndexedLocation, Outcome)
	// SampleWithRNGSample is the immigration-step variant (spec §4.4): the
	// coalescence decision is re-derived from a carried RNG draw (an
	// already-generated uint64, typically produced by the sender's own
	// Sample call) instead of the local RNG, so the outcome is a pure
	// function of the sender's draw and duplicated migration cannot
	// diverge.
	SampleWithRNGSample(target habitat.Location, rngSample uint64) (habitat.IndexedLocation, Outcome)
}
