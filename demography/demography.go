// Package demography implements the TurnoverRate and SpeciationProbability
// cogs: per-location death rate λ(x) and per-location speciation
// probability ν(x) ∈ [0,1].
package demography

import (
	"fmt"

	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/numeric"
)

// TurnoverRate is the per-location death rate cog.
type TurnoverRate interface {
	RateAt(loc habitat.Location) numeric.PositiveF64
}

// SpeciationProbability is the per-location speciation probability cog.
type SpeciationProbability interface {
	ProbabilityAt(loc habitat.Location) numeric.ClosedUnitF64
}

// UniformTurnoverRate applies the same λ everywhere, the common case for a
// neutral model (spec §8 scenario S1-S4 all use a uniform landscape).
type UniformTurnoverRate struct {
	rate numeric.PositiveF64
}

func NewUniformTurnoverRate(rate numeric.PositiveF64) UniformTurnoverRate {
	return UniformTurnoverRate{rate: rate}
}

func (u UniformTurnoverRate) RateAt(habitat.Location) numeric.PositiveF64 { return u.rate }

// InMemoryTurnoverRate stores a per-cell λ, validated so every habitable
// cell has a strictly positive turnover rate (spec §7: "zero turnover at
// habitable cell" is an input-validation error).
type InMemoryTurnoverRate struct {
	h      habitat.Habitat
	width  uint32
	rate   []float64 // row-major
}

func NewInMemoryTurnoverRate(h habitat.Habitat, width, height uint32, rate []float64) (*InMemoryTurnoverRate, error) {
	if uint32(len(rate)) != width*height {
		return nil, fmt.Errorf("demography: turnover matrix has %d entries, want %d", len(rate), width*height)
	}
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			loc := habitat.Location{X: x, Y: y}
			if !h.IsHabitable(loc) {
				continue
			}
			r := rate[y*width+x]
			if !(r > 0) {
				return nil, fmt.Errorf("demography: habitable cell %s has non-positive turnover rate %f", loc, r)
			}
		}
	}
	return &InMemoryTurnoverRate{h: h, width: width, rate: rate}, nil
}

func (t *InMemoryTurnoverRate) RateAt(loc habitat.Location) numeric.PositiveF64 {
	return numeric.MustPositiveF64(t.rate[loc.Y*t.width+loc.X])
}

// UniformSpeciationProbability applies the same ν everywhere (the
// "spatially implicit" speciation model in the source material).
type UniformSpeciationProbability struct {
	p numeric.ClosedUnitF64
}

func NewUniformSpeciationProbability(p numeric.ClosedUnitF64) UniformSpeciationProbability {
	return UniformSpeciationProbability{p: p}
}

func (u UniformSpeciationProbability) ProbabilityAt(habitat.Location) numeric.ClosedUnitF64 {
	return u.p
}

// InMemorySpeciationProbability stores a per-cell ν.
type InMemorySpeciationProbability struct {
	width uint32
	prob  []float64 // row-major
}

func NewInMemorySpeciationProbability(width, height uint32, prob []float64) (*InMemorySpeciationProbability, error) {
	if uint32(len(prob)) != width*height {
		return nil, fmt.Errorf("demography: speciation matrix has %d entries, want %d", len(prob), width*height)
	}
	for _, p := range prob {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("demography: speciation probability %f outside [0,1]", p)
		}
	}
	return &InMemorySpeciationProbability{width: width, prob: prob}, nil
}

func (s *InMemorySpeciationProbability) ProbabilityAt(loc habitat.Location) numeric.ClosedUnitF64 {
	return numeric.MustClosedUnitF64(s.prob[loc.Y*s.width+loc.X])
}
