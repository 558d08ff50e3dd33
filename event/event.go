// Package event implements PackedEvent, the EventSampler cog, and the
// local-event commit logic that ties demography, dispersal, migration and
// coalescence together into a single lineage-advancing step (spec §4.3).
package event

import (
	"github.com/nsamarasinghe/coalescence/coalescence"
	"github.com/nsamarasinghe/coalescence/demography"
	"github.com/nsamarasinghe/coalescence/dispersal"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/migration"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

// Kind distinguishes the two event payloads a lineage can produce.
type Kind int

const (
	Speciation Kind = iota
	Dispersal
)

func (k Kind) String() string {
	if k == Speciation {
		return "Speciation"
	}
	return "Dispersal"
}

// PackedEvent is the persisted, log-friendly record of a single local event
// (spec §6): enough to reconstruct the coalescence tree and the dispersal
// history without re-running the simulation.
type PackedEvent struct {
	Global    lineage.GlobalReference `json:"global_reference"`
	PriorTime numeric.NonNegativeF64  `json:"prior_time"`
	EventTime numeric.PositiveF64     `json:"event_time"`
	Kind      Kind                    `json:"kind"`

	// Origin/Target are populated for Dispersal events; Target is the zero
	// Location for Speciation events.
	Origin habitat.Location `json:"origin"`
	Target habitat.Location `json:"target,omitempty"`

	// Coalesced is only meaningful when Kind == Dispersal and Outcome was
	// Coalescence; Parent names the lineage coalesced into.
	Coalesced bool                    `json:"coalesced,omitempty"`
	Parent    lineage.GlobalReference `json:"parent,omitempty"`

	// Emigrated reports whether the dispersal target belonged to another
	// partition and the lineage was handed off there. No coalescence is
	// resolved here, and Simulation does not report the event locally: the
	// receiving partition reports the arrival instead.
	Emigrated bool `json:"emigrated,omitempty"`
}

// Outcome is what the caller (the ActiveLineageSampler / engine loop) needs
// to know after committing one local event.
type Outcome struct {
	Event PackedEvent
	// Removed reports whether self was removed from the LineageStore
	// (speciation, coalescence, or successful emigration) and therefore
	// must not be reinserted into the active set.
	Removed bool
}

// Sampler is the EventSampler cog: given a lineage about to undergo its
// next local event at eventTime, decide what that event is and commit it
// to the LineageStore, returning the record and whether the lineage was
// removed from local bookkeeping.
type Sampler struct {
	Speciation demography.SpeciationProbability
	Dispersal  dispersal.DispersalSampler
	Coalesce   coalescence.Sampler
	Store      lineage.Store
	Exit       migration.EmigrationExit

	// nonSelf is set by WithEventSkipping. When non-nil, Commit draws the
	// dispersal target from it instead of Dispersal.
	nonSelf dispersal.Separable
}

func NewSampler(
	speciation demography.SpeciationProbability,
	disperser dispersal.DispersalSampler,
	coalescer coalescence.Sampler,
	store lineage.Store,
	exit migration.EmigrationExit,
) *Sampler {
	return &Sampler{Speciation: speciation, Dispersal: disperser, Coalesce: coalescer, Store: store, Exit: exit}
}

// WithEventSkipping configures the Sampler to commit only non-self
// dispersal targets, matching the gillespie scheduler's self-dispersal-
// thinned rate (scheduler/gillespie.ActiveLineageSampler.WithEventSkipping,
// spec §4.5): the skipped self-dispersal probability mass is already folded
// into the scheduler's inter-event time, so a fired event must always be a
// genuine relocation — committing a self-dispersal here would double-count
// that mass and distort the dispersal marginal against a plain gillespie
// run. sep should be the same Separable instance the scheduler was built
// with, so the rate thinning and the commit-time draw agree on one table.
func (s *Sampler) WithEventSkipping(sep dispersal.Separable) *Sampler {
	s.nonSelf = sep
	return s
}

// Commit performs the local-event protocol (spec §4.3):
//  1. Sample speciation with probability ν(x).
//  2. Otherwise, sample a dispersal target y. If y belongs to another
//     partition, hand off via EmigrationExit and remove self locally.
//  3. Otherwise, sample coalescence at y. On Coalescence, remove self and
//     record the parent; on None/Maybe, relocate self to the returned
//     IndexedLocation.
//  4. In every non-removed case, stamp LastEventTime = eventTime so the
//     caller can reinsert self into the active set at its new time.
func (s *Sampler) Commit(self lineage.Ref, eventTime numeric.PositiveF64, tieBreaker lineage.TieBreaker, r rng.Stream) Outcome {
	current := s.Store.Get(self)
	origin := current.IndexedLocation.Location

	if r.Uniform() < s.Speciation.ProbabilityAt(origin).Get() {
		s.Store.Remove(self)
		return Outcome{
			Event: PackedEvent{
				Global:    current.GlobalRef,
				PriorTime: current.LastEventTime,
				EventTime: eventTime,
				Kind:      Speciation,
				Origin:    origin,
			},
			Removed: true,
		}
	}

	var target habitat.Location
	if s.nonSelf != nil {
		target = s.nonSelf.SampleNonSelfDispersalFromLocation(origin, r)
	} else {
		target = s.Dispersal.SampleDispersalFromLocation(origin, r)
	}

	if s.Exit != nil {
		// A full-width draw carried with the migrating lineage so the
		// receiving partition can re-derive the same coalescence decision
		// (spec §4.4) without consulting its own RNG. UniformIndex(2^64-1)
		// is the widest draw the Stream cog exposes.
		coalescenceDraw := r.UniformIndex(^uint64(0))
		// The lineage handed to the exit already carries the dispersal
		// target as its location: the receiving partition resolves the
		// arrival index itself (via CoalescenceSampler.SampleWithRNGSample),
		// so only the target cell, not a specific index, needs to survive
		// the handoff.
		departing := current
		departing.IndexedLocation = habitat.IndexedLocation{Location: target, Index: 0}
		if s.Exit.TryEmigrate(departing, target, eventTime, tieBreaker, coalescenceDraw) {
			s.Store.Remove(self)
			return Outcome{
				Event: PackedEvent{
					Global:    current.GlobalRef,
					PriorTime: current.LastEventTime,
					EventTime: eventTime,
					Kind:      Dispersal,
					Origin:    origin,
					Target:    target,
					Emigrated: true,
				},
				Removed: true,
			}
		}
	}

	indexed, outcome := s.Coalesce.Sample(target, self, r)

	evt := PackedEvent{
		Global:    current.GlobalRef,
		PriorTime: current.LastEventTime,
		EventTime: eventTime,
		Kind:      Dispersal,
		Origin:    origin,
		Target:    target,
	}

	if outcome.Interaction == coalescence.Coalescence {
		s.Store.Remove(self)
		evt.Coalesced = true
		evt.Parent = outcome.Parent
		return Outcome{Event: evt, Removed: true}
	}

	s.Store.Move(self, indexed)
	moved := s.Store.Get(self)
	moved.LastEventTime = numeric.MustNonNegativeF64(eventTime.Get())
	s.Store.Set(self, moved)

	return Outcome{Event: evt, Removed: false}
}
