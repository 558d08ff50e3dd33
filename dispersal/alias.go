package dispersal

import (
	"fmt"

	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

// aliasRow is one source row's Vose alias table.
type aliasRow struct {
	prob  []float64 // cutoff[i]: probability of staying on bucket i
	alias []int     // alias[i]: bucket to switch to on rejection
	// selfProb is the renormalised probability mass assigned to
	// dispersing to the source cell itself, used by the Separable
	// interface for Gillespie event-skipping.
	selfProb float64
}

// AliasSampler is the O(1)-per-draw alias-method dispersal sampler (spec
// §4.5), built with Vose's method over each source row's non-zero,
// capacity-weighted destination weights. It additionally implements
// Separable so the Gillespie event-skipping optimisation can factor self-
// dispersal out without a second table.
type AliasSampler struct {
	width, height uint32
	rows          []aliasRow
}

// NewAliasSampler builds a sampler from a row-major dispersal probability
// matrix D[from,to], under the same validity contract as CumulativeSampler.
func NewAliasSampler(h habitat.Habitat, width, height uint32, d []float64) (*AliasSampler, error) {
	n := int(width) * int(height)
	if len(d) != n*n {
		return nil, fmt.Errorf("dispersal: matrix has %d entries, want %d", len(d), n*n)
	}

	rows := make([]aliasRow, n)
	for from := 0; from < n; from++ {
		fromLoc := habitat.Location{X: uint32(from) % width, Y: uint32(from) / width}
		row := d[from*n : (from+1)*n]
		weighted, sum := buildWeightedRow(h, width, row)
		if err := validateRow(h, width, fromLoc, weighted, row); err != nil {
			return nil, err
		}

		var selfProb float64
		normalised := make([]float64, n)
		if sum > 0 {
			for to := range weighted {
				normalised[to] = weighted[to] / sum
			}
			selfProb = normalised[from]
		}

		rows[from] = buildVoseTable(normalised)
		rows[from].selfProb = selfProb
	}

	return &AliasSampler{width: width, height: height, rows: rows}, nil
}

// buildVoseTable runs Vose's alias method construction over a
// (possibly-zero-summing) probability vector p, scaled so Σp == 1.
func buildVoseTable(p []float64) aliasRow {
	n := len(p)
	prob := make([]float64, n)
	alias := make([]int, n)

	if n == 0 {
		return aliasRow{prob: prob, alias: alias}
	}

	scaled := make([]float64, n)
	for i, v := range p {
		scaled[i] = v * float64(n)
	}

	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, v := range scaled {
		if v < 1.0 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		l := small[len(small)-1]
		small = small[:len(small)-1]
		g := large[len(large)-1]
		large = large[:len(large)-1]

		prob[l] = scaled[l]
		alias[l] = g

		scaled[g] = (scaled[g] + scaled[l]) - 1.0
		if scaled[g] < 1.0 {
			small = append(small, g)
		} else {
			large = append(large, g)
		}
	}

	for len(large) > 0 {
		g := large[len(large)-1]
		large = large[:len(large)-1]
		prob[g] = 1.0
	}
	for len(small) > 0 {
		l := small[len(small)-1]
		small = small[:len(small)-1]
		prob[l] = 1.0
	}

	return aliasRow{prob: prob, alias: alias}
}

func (a *AliasSampler) fromIndex(loc habitat.Location) int {
	return int(loc.Y)*int(a.width) + int(loc.X)
}

func (a *AliasSampler) toLocation(i int) habitat.Location {
	return habitat.Location{X: uint32(i) % a.width, Y: uint32(i) / a.width}
}

func (a *AliasSampler) sample(row aliasRow, r rng.Stream) int {
	n := len(row.prob)
	if n == 0 {
		return -1
	}
	i := int(r.UniformIndex(uint64(n)))
	if r.Uniform() < row.prob[i] {
		return i
	}
	return row.alias[i]
}

func (a *AliasSampler) SampleDispersalFromLocation(from habitat.Location, r rng.Stream) habitat.Location {
	row := a.rows[a.fromIndex(from)]
	i := a.sample(row, r)
	if i < 0 {
		return from
	}
	return a.toLocation(i)
}

func (a *AliasSampler) SelfDispersalProbabilityAt(from habitat.Location) numeric.ClosedUnitF64 {
	return numeric.MustClosedUnitF64(a.rows[a.fromIndex(from)].selfProb)
}

// SampleNonSelfDispersalFromLocation re-draws until a non-self target is
// produced. This is only efficient when self-dispersal probability is not
// overwhelmingly dominant, which event-skipping callers are expected to
// check via SelfDispersalProbabilityAt before relying on it.
func (a *AliasSampler) SampleNonSelfDispersalFromLocation(from habitat.Location, r rng.Stream) habitat.Location {
	row := a.rows[a.fromIndex(from)]
	n := len(row.prob)
	if n <= 1 {
		return from
	}
	for {
		i := a.sample(row, r)
		if i < 0 {
			return from
		}
		to := a.toLocation(i)
		if to != from {
			return to
		}
	}
}
