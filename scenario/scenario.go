// Package scenario builds the landscape/demography/dispersal graph a
// config.Scenario describes, and the initial lineage placement a run
// starts from (spec §3, §7).
package scenario

import (
	"fmt"

	"github.com/nsamarasinghe/coalescence/config"
	"github.com/nsamarasinghe/coalescence/demography"
	"github.com/nsamarasinghe/coalescence/dispersal"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
)

// Built is the fixed part of a scenario: everything that does not change
// once a run starts.
type Built struct {
	Habitat    habitat.Habitat
	Dispersal  dispersal.DispersalSampler
	Turnover   demography.TurnoverRate
	Speciation demography.SpeciationProbability
}

// Build constructs a scenario's landscape, dispersal kernel and demography
// from its YAML description.
func Build(s config.Scenario) (*Built, error) {
	h, err := habitat.NewInMemoryHabitat(s.Width, s.Height, s.Capacity)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	disperser, err := dispersal.NewCumulativeSampler(h, s.Width, s.Height, s.Dispersal)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}

	var turnover demography.TurnoverRate
	if len(s.Turnover) > 0 {
		turnover, err = demography.NewInMemoryTurnoverRate(h, s.Width, s.Height, s.Turnover)
		if err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
	} else {
		turnover = demography.NewUniformTurnoverRate(numeric.MustPositiveF64(1.0))
	}

	var speciation demography.SpeciationProbability
	switch {
	case s.UniformNu != nil:
		nu, err := numeric.NewClosedUnitF64(*s.UniformNu)
		if err != nil {
			return nil, fmt.Errorf("scenario: uniform_speciation_probability: %w", err)
		}
		speciation = demography.NewUniformSpeciationProbability(nu)
	case len(s.Speciation) > 0:
		speciation, err = demography.NewInMemorySpeciationProbability(s.Width, s.Height, s.Speciation)
		if err != nil {
			return nil, fmt.Errorf("scenario: %w", err)
		}
	default:
		return nil, fmt.Errorf("scenario: one of uniform_speciation_probability or speciation must be set")
	}

	return &Built{
		Habitat:    h,
		Dispersal:  disperser,
		Turnover:   turnover,
		Speciation: speciation,
	}, nil
}

// PopulateStore fills every habitable cell of h to capacity with a fresh
// lineage, the scenario's default "sample everyone" initial condition
// (spec §3's implicit full-capacity sample). cmd/coalescence uses it for
// every fresh run; Config's lineages_file is not read.
func PopulateStore(h habitat.Habitat) *lineage.ArenaStore {
	store := lineage.NewArenaStore()
	width, height := h.Bounds()

	var next lineage.GlobalReference
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			loc := habitat.Location{X: x, Y: y}
			capacity := h.CapacityAt(loc)
			for i := uint64(0); i < capacity; i++ {
				store.Insert(lineage.Lineage{
					GlobalRef:       next,
					IndexedLocation: habitat.IndexedLocation{Location: loc, Index: i},
				})
				next++
			}
		}
	}
	return store
}
