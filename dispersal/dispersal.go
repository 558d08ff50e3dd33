// Package dispersal implements the DispersalSampler cog: sampling a target
// location given an origin, plus the separable variant used by the
// Gillespie event-skipping optimisation.
package dispersal

import (
	"fmt"

	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

// DispersalSampler samples a target location from an origin.
type DispersalSampler interface {
	SampleDispersalFromLocation(from habitat.Location, r rng.Stream) habitat.Location
}

// Separable is implemented by samplers that can factor self-dispersal out,
// enabling Gillespie event-skipping: self-events are skipped, and the
// skipped self-dispersal probability instead inflates the inter-event
// time.
type Separable interface {
	DispersalSampler
	SampleNonSelfDispersalFromLocation(from habitat.Location, r rng.Stream) habitat.Location
	SelfDispersalProbabilityAt(from habitat.Location) numeric.ClosedUnitF64
}

// buildWeightedRow weights each destination's raw dispersal probability by
// its capacity (individuals, not cells, receive dispersing lineages) and
// renormalises. Returns the weighted row and its sum. Shared by both
// concrete samplers below and validated identically (spec §4.5 validity
// contract).
func buildWeightedRow(h habitat.Habitat, width uint32, row []float64) (weighted []float64, sum float64) {
	weighted = make([]float64, len(row))
	for to, p := range row {
		loc := habitat.Location{X: uint32(to) % width, Y: uint32(to) / width}
		cap := float64(h.CapacityAt(loc))
		w := p * cap
		weighted[to] = w
		sum += w
	}
	return weighted, sum
}

// validateRow enforces the construction-time validity contract shared by
// every in-memory dispersal sampler: each row sums to 0 (a dead source
// cell) or a strictly positive value; every positive weight must target a
// positive-habitat cell; a positive-habitat source row must not be
// all-zero unless the cell is genuinely isolated (capacity 0 has already
// made it a dead cell, so the only way a habitable row sums to zero is
// if every entry the caller gave us was zero, which we accept since the
// spec explicitly allows a genuinely isolated habitable cell).
func validateRow(h habitat.Habitat, width uint32, from habitat.Location, weighted []float64, rawRow []float64) error {
	for to, w := range weighted {
		if w > 0 {
			loc := habitat.Location{X: uint32(to) % width, Y: uint32(to) / width}
			if !h.IsHabitable(loc) {
				return fmt.Errorf("dispersal: row for %s has positive weight %f into zero-habitat cell %s", from, rawRow[to], loc)
			}
		}
	}
	return nil
}
