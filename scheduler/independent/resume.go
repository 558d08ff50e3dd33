package independent

import (
	"fmt"

	"github.com/nsamarasinghe/coalescence/event"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

// ResumeError reports that resuming a run against a modified scenario
// required fixing up one or more lineages (spec §7). It is not itself
// fatal — FixUp has already resolved every entry per strategy — but
// cmd/coalescence surfaces it to the operator via a distinct exit code and
// prints Exceptional to stderr as YAML so aborted/relocated lineages are
// auditable.
type ResumeError struct {
	Exceptional []ExceptionalLineage
}

func (e *ResumeError) Error() string {
	return fmt.Sprintf("resume: %d lineage(s) required fix-up against the current scenario", len(e.Exceptional))
}

// ExceptionalKind classifies a lineage a resumed run could not re-place
// cleanly, because the persisted snapshot's landscape no longer agrees
// with the one it is being resumed against.
type ExceptionalKind int

const (
	// OutOfHabitat: the lineage's stored location has zero capacity in the
	// resuming landscape.
	OutOfHabitat ExceptionalKind = iota
	// OutOfDeme: the location is still habitable, but the lineage's stored
	// index no longer fits within the (possibly shrunk) capacity there.
	OutOfDeme
	// Coalescence: the lineage's stored index is already held by another
	// resumed lineage at the same location.
	Coalescence
)

func (k ExceptionalKind) String() string {
	switch k {
	case OutOfHabitat:
		return "OutOfHabitat"
	case OutOfDeme:
		return "OutOfDeme"
	case Coalescence:
		return "Coalescence"
	default:
		return "Unknown"
	}
}

// ExceptionalLineage pairs a lineage with the reason it could not be
// resumed in-place.
type ExceptionalLineage struct {
	Lineage lineage.Lineage
	Kind    ExceptionalKind
}

// Strategy decides, for one exceptional kind, whether to abort (drop the
// lineage from the resumed run entirely) or relocate it uniformly at
// random within the current landscape.
type Strategy int

const (
	Abort Strategy = iota
	RelocateUniform
)

// RestartFixUpStrategy configures how a resumed run handles each kind of
// exceptional lineage collected during re-placement (spec §7 "Resuming a
// run against a modified scenario").
type RestartFixUpStrategy struct {
	OutOfHabitat Strategy
	OutOfDeme    Strategy
	Coalescence  Strategy
}

// Classify checks whether l's stored IndexedLocation is still valid
// against h, returning the ExceptionalKind if not (ok=true means l can be
// resumed in-place).
func Classify(l lineage.Lineage, h habitat.Habitat, occupied func(habitat.IndexedLocation) bool) (ExceptionalLineage, bool) {
	il := l.IndexedLocation
	capacity := h.CapacityAt(il.Location)
	switch {
	case capacity == 0:
		return ExceptionalLineage{Lineage: l, Kind: OutOfHabitat}, false
	case il.Index >= capacity:
		return ExceptionalLineage{Lineage: l, Kind: OutOfDeme}, false
	case occupied(il):
		return ExceptionalLineage{Lineage: l, Kind: Coalescence}, false
	default:
		return ExceptionalLineage{}, true
	}
}

// FixUp resolves a batch of exceptional lineages per strategy, returning the
// lineages to re-admit (with a newly chosen IndexedLocation), the
// GlobalReferences that were aborted instead, and a synthetic DispersalEvent
// per relocated lineage (spec §4.2.3). A rehabilitated lineage's event log
// would otherwise have a gap between its last recorded position and the one
// it resumes from; restartAt stamps every synthetic event at the run's
// resume time so the log stays consistent with where the lineage actually
// re-enters the simulation.
func FixUp(exceptional []ExceptionalLineage, strategy RestartFixUpStrategy, h habitat.Habitat, r rng.Stream, occupied func(habitat.IndexedLocation) bool, restartAt numeric.PositiveF64) (readmit []lineage.Lineage, aborted []lineage.GlobalReference, synthetic []event.PackedEvent) {
	width, height := h.Bounds()
	for _, ex := range exceptional {
		s := strategyFor(strategy, ex.Kind)
		if s == Abort {
			aborted = append(aborted, ex.Lineage.GlobalRef)
			continue
		}
		origin := ex.Lineage.IndexedLocation.Location
		priorTime := ex.Lineage.LastEventTime
		relocated := relocateUniform(h, width, height, r, occupied)
		ex.Lineage.IndexedLocation = relocated
		ex.Lineage.LastEventTime = numeric.MustNonNegativeF64(restartAt.Get())
		readmit = append(readmit, ex.Lineage)
		synthetic = append(synthetic, event.PackedEvent{
			Global:    ex.Lineage.GlobalRef,
			PriorTime: priorTime,
			EventTime: restartAt,
			Kind:      event.Dispersal,
			Origin:    origin,
			Target:    relocated.Location,
		})
	}
	return readmit, aborted, synthetic
}

func strategyFor(s RestartFixUpStrategy, kind ExceptionalKind) Strategy {
	switch kind {
	case OutOfHabitat:
		return s.OutOfHabitat
	case OutOfDeme:
		return s.OutOfDeme
	default:
		return s.Coalescence
	}
}

// relocateUniform picks a uniformly random habitable, currently-unoccupied
// IndexedLocation, redrawing until it finds one. Nothing checks beforehand
// that the landscape has free capacity for every exceptional lineage
// combined; on a landscape with no free slot it does not return.
func relocateUniform(h habitat.Habitat, width, height uint32, r rng.Stream, occupied func(habitat.IndexedLocation) bool) habitat.IndexedLocation {
	for {
		x := uint32(r.UniformIndex(uint64(width)))
		y := uint32(r.UniformIndex(uint64(height)))
		loc := habitat.Location{X: x, Y: y}
		capacity := h.CapacityAt(loc)
		if capacity == 0 {
			continue
		}
		idx := r.UniformIndex(capacity)
		il := habitat.IndexedLocation{Location: loc, Index: idx}
		if !occupied(il) {
			return il
		}
	}
}
