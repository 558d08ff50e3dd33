// Package gillespie implements the Gillespie-family ActiveLineageSampler: a
// dynamic weighted sampler over per-lineage event rates, grouped by binary
// exponent so that within-group sampling stays exact regardless of the
// overall dynamic range of weights (spec §4.2 "stacked rejection sampling").
package gillespie

import (
	"math"
	"sort"

	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

const mantissaBits = 52
const mantissaImplicitBit = uint64(1) << mantissaBits

// decomposeWeight splits w into a base-2 exponent and a mantissa such that
// w == mantissa * 2^(exponent-52), with the IEEE-754 implicit leading bit
// made explicit. Every event within one exponent group therefore carries a
// mantissa on the same 2^52 scale, so weighted selection inside a group
// never loses precision to the group's own exponent.
func decomposeWeight(w float64) (exponent int, mantissa uint64) {
	bits := math.Float64bits(w)
	rawExp := int((bits >> mantissaBits) & 0x7FF)
	frac := bits & (mantissaImplicitBit - 1)
	if rawExp == 0 {
		// Subnormal (or zero): no implicit leading bit, and the value is
		// frac * 2^(-1022-52), so the minimum normal exponent keeps the
		// formula above exact. Zero decomposes to (-1022, 0), a mantissa
		// that can never be selected.
		return -1022, frac
	}
	return rawExp - 1023, frac | mantissaImplicitBit
}

// group holds every event currently sharing one binary exponent, alongside
// a running mantissa-sum used to weight group selection.
type group struct {
	exponent int
	events   []uint32
	weights  []uint64 // mantissas, parallel to events
	total    uint64
}

func (g *group) add(event uint32, mantissa uint64) {
	g.events = append(g.events, event)
	g.weights = append(g.weights, mantissa)
	g.total += mantissa
}

// removeAt swap-removes index i in O(1).
func (g *group) removeAt(i int) {
	g.total -= g.weights[i]
	last := len(g.events) - 1
	g.events[i] = g.events[last]
	g.weights[i] = g.weights[last]
	g.events = g.events[:last]
	g.weights = g.weights[:last]
}

func (g *group) floatWeight() float64 {
	return float64(g.total) * math.Ldexp(1, g.exponent-mantissaBits)
}

// DynamicSampler is a weighted reservoir over events of type uint32 (arena
// handles — lineage.Ref or a scheduler-local index), supporting insert,
// remove and weighted pop, grouped by exponent so that a population
// spanning many orders of magnitude of event rate still samples exactly
// within each order of magnitude. Adding to an existing group is amortised
// O(1); removing an event scans its group linearly, and creating or
// dropping a group rewrites the cached group index of every held event.
//
// Event identity is the caller's arena handle; DynamicSampler tracks at
// most one weight per handle; re-inserting a handle already present first
// removes its prior weight.
type DynamicSampler struct {
	groups  []group // sorted by exponent, descending
	at      map[uint32]int
	total   float64 // running sum of every group's floatWeight(), used by SamplePop
	minExp  int
}

func NewDynamicSampler() *DynamicSampler {
	return &DynamicSampler{at: make(map[uint32]int), minExp: math.MaxInt}
}

func (d *DynamicSampler) Len() int { return len(d.at) }

// TotalWeight returns the sum of every currently-held weight, recomputed
// from each group's exact integer mantissa sum so that insert/remove churn
// leaves no floating-point residue (an emptied sampler reports exactly 0).
func (d *DynamicSampler) TotalWeight() numeric.NonNegativeF64 {
	total := 0.0
	for i := range d.groups {
		total += d.groups[i].floatWeight()
	}
	return numeric.MustNonNegativeF64(total)
}

// Insert adds or replaces event's weight. weight must be finite and > 0;
// the caller (the EventSampler wiring) never inserts a zero-rate lineage —
// a lineage with no possible event is simply absent from the sampler.
func (d *DynamicSampler) Insert(event uint32, weight numeric.PositiveF64) {
	if idx, ok := d.at[event]; ok {
		d.removeFromGroup(idx, event)
	}
	exponent, mantissa := decomposeWeight(weight.Get())
	gi := d.groupIndex(exponent)
	d.groups[gi].add(event, mantissa)
	d.at[event] = gi
	d.total += float64(mantissa) * math.Ldexp(1, exponent-mantissaBits)
	if exponent < d.minExp {
		d.minExp = exponent
	}
}

// Remove deletes event if present; a no-op otherwise (the caller may remove
// a lineage that never had a pending weight, e.g. one that just immigrated).
func (d *DynamicSampler) Remove(event uint32) {
	idx, ok := d.at[event]
	if !ok {
		return
	}
	d.removeFromGroup(idx, event)
}

func (d *DynamicSampler) removeFromGroup(gi int, event uint32) {
	g := &d.groups[gi]
	for i, e := range g.events {
		if e == event {
			before := g.floatWeight()
			g.removeAt(i)
			d.total -= before - g.floatWeight()
			break
		}
	}
	delete(d.at, event)
	if len(g.events) == 0 {
		d.dropGroup(gi)
	}
}

// groupIndex returns the slice index of the group for exponent, creating
// it (preserving descending order) if absent.
func (d *DynamicSampler) groupIndex(exponent int) int {
	i := sort.Search(len(d.groups), func(i int) bool { return d.groups[i].exponent <= exponent })
	if i < len(d.groups) && d.groups[i].exponent == exponent {
		return i
	}
	d.groups = append(d.groups, group{})
	copy(d.groups[i+1:], d.groups[i:])
	d.groups[i] = group{exponent: exponent}
	d.fixupIndexAfterInsert(i)
	return i
}

// fixupIndexAfterInsert shifts every cached group index >= at up by one,
// since inserting a new group in the middle of the slice displaces the
// groups after it.
func (d *DynamicSampler) fixupIndexAfterInsert(at int) {
	for event, idx := range d.at {
		if idx >= at {
			d.at[event] = idx + 1
		}
	}
}

// dropGroup removes an emptied group and fixes up cached indices.
func (d *DynamicSampler) dropGroup(gi int) {
	d.groups = append(d.groups[:gi], d.groups[gi+1:]...)
	for event, idx := range d.at {
		switch {
		case idx == gi:
			panic("gillespie: dropGroup called on a non-empty group")
		case idx > gi:
			d.at[event] = idx - 1
		}
	}
}

// SamplePop draws an event proportional to its weight and removes it. The
// caller (ActiveLineageSampler) is responsible for re-inserting the lineage
// with its next weight once its event is committed, unless the lineage was
// removed from the simulation entirely.
func (d *DynamicSampler) SamplePop(r rng.Stream) (event uint32, ok bool) {
	if len(d.groups) == 0 {
		return 0, false
	}
	target := r.Uniform() * d.total
	gi := 0
	for gi < len(d.groups)-1 {
		w := d.groups[gi].floatWeight()
		if target < w {
			break
		}
		target -= w
		gi++
	}

	g := &d.groups[gi]
	idx := sampleWithinGroup(g, r)
	event = g.events[idx]
	before := g.floatWeight()
	g.removeAt(idx)
	d.total -= before - g.floatWeight()
	delete(d.at, event)
	if len(g.events) == 0 {
		d.dropGroup(gi)
	}
	return event, true
}

// sampleWithinGroup rejection-samples an index proportional to g.weights,
// all of which share the same exponent and so compare exactly as integers.
func sampleWithinGroup(g *group, r rng.Stream) int {
	if len(g.events) == 1 {
		return 0
	}
	var max uint64
	for _, w := range g.weights {
		if w > max {
			max = w
		}
	}
	for {
		i := int(r.UniformIndex(uint64(len(g.events))))
		if r.Uniform()*float64(max) < float64(g.weights[i]) {
			return i
		}
	}
}
