// Package independent implements the Independent-family ActiveLineageSampler:
// each lineage's next event time is drawn from an RNG primed deterministically
// from its habitat index and a logical time step, so any partition can
// replay any lineage's draw without coordinating a shared stream (spec §4.2
// "Independent algorithm").
package independent

import (
	"math"

	"github.com/nsamarasinghe/coalescence/demography"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

// EventTimeSampler computes a lineage's next event time, weakly after time,
// priming r as a side effect so the event itself (dispersal target,
// coalescence, speciation) is also a deterministic function of the same
// (location, time step) pair.
type EventTimeSampler interface {
	NextEventTimeWeaklyAfter(
		il habitat.IndexedLocation,
		time numeric.NonNegativeF64,
		h habitat.Habitat,
		r rng.Primeable,
		turnover demography.TurnoverRate,
	) numeric.PositiveF64
}

// FixedEventTimeSampler advances time in fixed steps of 1/λ(x): time_step =
// floor(time*λ)+1, primes r from (h.InjectiveIndex(il), time_step), and
// returns time_step/λ. Deterministic and cheap, at the cost of not
// resembling a true exponential waiting time.
type FixedEventTimeSampler struct{}

func (FixedEventTimeSampler) NextEventTimeWeaklyAfter(
	il habitat.IndexedLocation,
	time numeric.NonNegativeF64,
	h habitat.Habitat,
	r rng.Primeable,
	turnover demography.TurnoverRate,
) numeric.PositiveF64 {
	lambda := turnover.RateAt(il.Location).Get()
	timeStep := uint64(math.Floor(time.Get()*lambda)) + 1
	r.Prime(h.InjectiveIndex(il), timeStep)
	return numeric.MustPositiveF64(float64(timeStep) / lambda)
}

// ExponentialEventTimeSampler primes the same way as FixedEventTimeSampler
// (so the time step indexing two runs agree on stays identical), but then
// draws a true exponential increment from the primed stream, giving a
// Poisson-process waiting time instead of a fixed step.
type ExponentialEventTimeSampler struct{}

func (ExponentialEventTimeSampler) NextEventTimeWeaklyAfter(
	il habitat.IndexedLocation,
	time numeric.NonNegativeF64,
	h habitat.Habitat,
	r rng.Primeable,
	turnover demography.TurnoverRate,
) numeric.PositiveF64 {
	lambda := turnover.RateAt(il.Location).Get()
	timeStep := uint64(math.Floor(time.Get()*lambda)) + 1
	r.Prime(h.InjectiveIndex(il), timeStep)

	floor := float64(timeStep-1) / lambda
	dt := r.Exponential(lambda)
	return numeric.MaxAfter(time.Get(), floor+dt)
}
