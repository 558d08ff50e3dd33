package gillespie

import (
	"github.com/nsamarasinghe/coalescence/demography"
	"github.com/nsamarasinghe/coalescence/dispersal"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

// ActiveLineageSampler is the Gillespie-family scheduler: every active
// lineage is weighted by its local event rate, the next inter-event gap is
// drawn from the pooled exponential distribution over the total rate, and
// the lineage that fires is chosen proportional to its own weight (spec
// §4.2).
type ActiveLineageSampler struct {
	weights  *DynamicSampler
	time     numeric.NonNegativeF64
	turnover demography.TurnoverRate
	sep      dispersal.Separable // nil unless the configured dispersal sampler supports event-skipping

	// pending caches the candidate next event time drawn by
	// PeekNextEventTime, so PopNextEvent can commit to it without drawing
	// the pooled exponential a second time. The engine's RNG
	// snapshot/restore around Peek is what makes this draw undoable: on a
	// predicate break the engine restores the RNG and the caller simply
	// never calls PopNextEvent, leaving pending stale until overwritten by
	// the next Peek.
	pending   *numeric.PositiveF64
}

func NewActiveLineageSampler(turnover demography.TurnoverRate) *ActiveLineageSampler {
	return &ActiveLineageSampler{weights: NewDynamicSampler(), turnover: turnover}
}

// WithEventSkipping configures the sampler to weight lineages by their
// self-dispersal-thinned rate (EffectiveRate) rather than the raw turnover
// rate, using sep's self-dispersal probabilities.
func (a *ActiveLineageSampler) WithEventSkipping(sep dispersal.Separable) *ActiveLineageSampler {
	a.sep = sep
	return a
}

// EffectiveRate computes a lineage's event rate at loc, optionally thinned
// by a separable dispersal sampler's self-dispersal probability so that
// self-dispersals — which never change the lineage's state — are skipped
// rather than sampled and discarded (spec §4.2 "event-skipping"). The
// skipped probability mass is folded into the waiting-time law instead of
// being drawn and rejected, which is what lets a Gillespie run over a
// landscape with heavy self-recruitment stay fast.
func EffectiveRate(turnover demography.TurnoverRate, sep dispersal.Separable, loc habitat.Location) numeric.PositiveF64 {
	lambda := turnover.RateAt(loc).Get()
	if sep == nil {
		return numeric.MustPositiveF64(lambda)
	}
	self := sep.SelfDispersalProbabilityAt(loc).Get()
	effective := lambda * (1 - self)
	if effective <= 0 {
		// Every dispersal from loc is a self-dispersal: the lineage can
		// still speciate, so it must remain schedulable. Fall back to the
		// un-thinned rate rather than dropping it from the sampler.
		return numeric.MustPositiveF64(lambda)
	}
	return numeric.MustPositiveF64(effective)
}

// Populate seeds the sampler with every lineage currently in store, each
// weighted by turnover.RateAt its current location.
func (a *ActiveLineageSampler) Populate(store lineage.Store) {
	for _, ref := range store.All() {
		l := store.Get(ref)
		a.Insert(ref, l.IndexedLocation.Location)
	}
}

// Insert (re)weights ref at loc, using EffectiveRate if event-skipping is
// configured (WithEventSkipping), else the plain turnover rate.
func (a *ActiveLineageSampler) Insert(ref lineage.Ref, loc habitat.Location) {
	a.weights.Insert(uint32(ref), EffectiveRate(a.turnover, a.sep, loc))
}

// InsertWithRate (re)weights ref using an already-computed rate, e.g. from
// EffectiveRate when the configured dispersal sampler is Separable.
func (a *ActiveLineageSampler) InsertWithRate(ref lineage.Ref, rate numeric.PositiveF64) {
	a.weights.Insert(uint32(ref), rate)
}

// Remove drops ref from the schedulable set (the lineage speciated,
// coalesced, or emigrated).
func (a *ActiveLineageSampler) Remove(ref lineage.Ref) {
	a.weights.Remove(uint32(ref))
}

// Len reports how many lineages are currently schedulable.
func (a *ActiveLineageSampler) Len() int { return a.weights.Len() }

// Time returns the simulation clock as of the last PopNextEvent call.
func (a *ActiveLineageSampler) Time() numeric.NonNegativeF64 { return a.time }

// PeekNextEventTime draws the pooled inter-event gap Δt = −ln(U)/ΣW from
// the current total rate and caches it as the candidate next event time,
// without deciding (or removing) which lineage fires. A predicate break
// downstream of this call is undone by the engine restoring the RNG
// snapshot taken just before calling this method; pending is simply
// overwritten on the next Peek.
func (a *ActiveLineageSampler) PeekNextEventTime(r rng.Stream) (numeric.PositiveF64, bool) {
	total := a.weights.TotalWeight()
	if total.Get() <= 0 {
		return numeric.PositiveF64{}, false
	}
	dt := r.Exponential(total.Get())
	t := numeric.MaxAfter(a.time.Get(), a.time.Get()+dt)
	a.pending = &t
	return t, true
}

// PopNextEvent commits to the cached candidate time from PeekNextEventTime
// (calling Peek first if none is cached), draws which lineage fires
// proportional to its weight, and removes it from the schedulable set.
func (a *ActiveLineageSampler) PopNextEvent(r rng.Stream) (lineage.Ref, numeric.PositiveF64, bool) {
	if a.pending == nil {
		if _, ok := a.PeekNextEventTime(r); !ok {
			return 0, numeric.PositiveF64{}, false
		}
	}
	t := *a.pending
	a.pending = nil

	event, ok := a.weights.SamplePop(r)
	if !ok {
		return 0, numeric.PositiveF64{}, false
	}
	a.time = numeric.MustNonNegativeF64(t.Get())
	return lineage.Ref(event), t, true
}

// Reschedule re-weights ref at its new location after a committed local
// event, satisfying the simulation package's unifying Scheduler interface
// (lastEventTime is unused by this family; the Gillespie clock lives in
// a.time, advanced by PopNextEvent).
func (a *ActiveLineageSampler) Reschedule(ref lineage.Ref, il habitat.IndexedLocation, lastEventTime numeric.NonNegativeF64, r rng.Stream) {
	a.Insert(ref, il.Location)
}
