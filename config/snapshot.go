package config

import (
	"fmt"
	"os"

	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/rng"
	"gopkg.in/yaml.v3"
)

// Snapshot is the persisted resume state a paused run writes to the path
// given by cmd/coalescence's -snapshot flag (spec §6 "Persisted resume
// state"): enough to
// reconstruct a Simulation without re-deriving any RNG draws already made.
type Snapshot struct {
	RNGState  rng.SplittableSnapshot `yaml:"rng_state"`
	FinalTime float64                `yaml:"final_time"`
	Survivors []lineage.Lineage      `yaml:"survivors"`
}

// WriteSnapshot YAML-serialises snap to path.
func WriteSnapshot(path string, snap *Snapshot) error {
	out, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("config: marshalling snapshot: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("config: writing snapshot %s: %w", path, err)
	}
	return nil
}

// ReadSnapshot loads a previously persisted Snapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading snapshot %s: %w", path, err)
	}
	snap := &Snapshot{}
	if err := yaml.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("config: decoding snapshot %s: %w", path, err)
	}
	return snap, nil
}
