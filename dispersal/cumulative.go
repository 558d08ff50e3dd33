package dispersal

import (
	"fmt"
	"sort"

	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/rng"
)

// CumulativeSampler is the in-memory cumulative-distribution dispersal
// sampler (spec §4.5): per source row, a capacity-weighted, renormalised
// cumulative distribution over destinations, plus — per cell of that row —
// the index of the last non-zero column at-or-before it, so a binary
// search that lands between two cumulative steps (possible under floating
// point slack) is coerced to a cell with positive weight rather than a
// zero-capacity gap.
type CumulativeSampler struct {
	width, height uint32
	// cumulative[from] is a non-decreasing slice of length width*height
	// (flat across zero-weight columns). For a row with positive weight
	// cumulative[from][width*height-1] == 1.0; an all-zero row stays 0.
	cumulative [][]float64
	// lastValid[from][i] is the index of the last column <= i with
	// positive weight.
	lastValid [][]int
	// firstValid[from] is the index of the first column with positive
	// weight in that row, or -1 if the row has no positive weight at all.
	firstValid []int
}

// NewCumulativeSampler builds a sampler from a row-major dispersal
// probability matrix D[from,to] (len == (width*height)^2).
func NewCumulativeSampler(h habitat.Habitat, width, height uint32, d []float64) (*CumulativeSampler, error) {
	n := int(width) * int(height)
	if len(d) != n*n {
		return nil, fmt.Errorf("dispersal: matrix has %d entries, want %d", len(d), n*n)
	}

	cumulative := make([][]float64, n)
	lastValid := make([][]int, n)
	firstValid := make([]int, n)

	for from := 0; from < n; from++ {
		fromLoc := habitat.Location{X: uint32(from) % width, Y: uint32(from) / width}
		row := d[from*n : (from+1)*n]
		weighted, sum := buildWeightedRow(h, width, row)
		if err := validateRow(h, width, fromLoc, weighted, row); err != nil {
			return nil, err
		}

		cum := make([]float64, n)
		last := make([]int, n)
		lastIdx := -1
		running := 0.0
		for to := 0; to < n; to++ {
			if sum > 0 {
				running += weighted[to] / sum
			}
			cum[to] = running
			if weighted[to] > 0 {
				lastIdx = to
			}
			last[to] = lastIdx
		}
		if sum > 0 {
			// Force exact 1.0 at the end to guard against float drift
			// putting the final cumulative slot fractionally below 1,
			// which would make the final column unreachable by a draw
			// of exactly 0.9999999999999999.
			cum[n-1] = 1.0
		}
		cumulative[from] = cum
		lastValid[from] = last
		first := -1
		for to := 0; to < n; to++ {
			if weighted[to] > 0 {
				first = to
				break
			}
		}
		firstValid[from] = first
	}

	return &CumulativeSampler{width: width, height: height, cumulative: cumulative, lastValid: lastValid, firstValid: firstValid}, nil
}

func (c *CumulativeSampler) fromIndex(loc habitat.Location) int {
	return int(loc.Y)*int(c.width) + int(loc.X)
}

func (c *CumulativeSampler) toLocation(i int) habitat.Location {
	return habitat.Location{X: uint32(i) % c.width, Y: uint32(i) / c.width}
}

func (c *CumulativeSampler) SampleDispersalFromLocation(from habitat.Location, r rng.Stream) habitat.Location {
	row := c.cumulative[c.fromIndex(from)]
	u := r.Uniform()
	i := sort.SearchFloat64s(row, u)
	if i >= len(row) {
		i = len(row) - 1
	}
	idx := c.fromIndex(from)
	i = c.lastValid[idx][i]
	if i < 0 {
		// lastValid has no column <= i with positive weight: either u fell
		// in the zero-weight gap before the row's first positive column
		// (coerce forward to it, the draw still belongs to some positively
		// weighted column), or the row has no positive weight at all (from
		// is an isolated habitable cell with a genuinely empty dispersal
		// kernel, and the only sensible target is self).
		if first := c.firstValid[idx]; first >= 0 {
			i = first
		} else {
			return from
		}
	}
	return c.toLocation(i)
}
