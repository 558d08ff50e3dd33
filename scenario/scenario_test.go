package scenario

import (
	"testing"

	"github.com/nsamarasinghe/coalescence/config"
)

func uniformScenario(nu float64) config.Scenario {
	d := make([]float64, 16)
	for i := range d {
		d[i] = 0.25
	}
	return config.Scenario{
		Width:     2,
		Height:    2,
		Capacity:  []uint64{2, 2, 2, 2},
		Dispersal: d,
		UniformNu: &nu,
		Seed:      1,
	}
}

func TestBuildUniformScenario(t *testing.T) {
	built, err := Build(uniformScenario(0.1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Habitat.TotalHabitat().Value() != 8 {
		t.Fatalf("TotalHabitat = %d, want 8", built.Habitat.TotalHabitat().Value())
	}
}

func TestBuildRejectsMissingSpeciation(t *testing.T) {
	s := uniformScenario(0.1)
	s.UniformNu = nil
	if _, err := Build(s); err == nil {
		t.Fatal("Build did not reject a scenario with neither uniform nor per-cell speciation")
	}
}

func TestPopulateStoreFillsToCapacity(t *testing.T) {
	built, err := Build(uniformScenario(0.1))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	store := PopulateStore(built.Habitat)
	if store.Len() != 8 {
		t.Fatalf("store.Len() = %d, want 8", store.Len())
	}
}
