// Package config implements structured scenario/algorithm/partitioning
// configuration loading (spec §7), generalising the teacher's
// reinforcement.FromYaml pattern: an outer viper-read document unmarshalled
// into a typed inner struct via a yaml.Marshal/yaml.Unmarshal round-trip.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// outerDocument mirrors the teacher's OuterConfig: a `kind` selector plus
// an opaque `def` payload, unmarshalled generically first and then
// re-marshalled into the typed inner Config.
type outerDocument struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Scenario describes the fixed landscape and demography a run simulates.
type Scenario struct {
	Width      uint32    `yaml:"width"`
	Height     uint32    `yaml:"height"`
	Capacity   []uint64  `yaml:"capacity"`
	Dispersal  []float64 `yaml:"dispersal"`
	Turnover   []float64 `yaml:"turnover,omitempty"`
	UniformNu  *float64  `yaml:"uniform_speciation_probability,omitempty"`
	Speciation []float64 `yaml:"speciation,omitempty"`
	Seed       uint64    `yaml:"seed"`
}

// AlgorithmKind selects the ActiveLineageSampler family (spec §4.2). Only
// gillespie, event-skipping and independent are implemented; cuda is
// accepted and validated (§7 configuration-mismatch checking) but
// intentionally left unimplemented — see DESIGN.md.
type AlgorithmKind string

const (
	Gillespie     AlgorithmKind = "gillespie"
	EventSkipping AlgorithmKind = "event-skipping"
	Independent   AlgorithmKind = "independent"
	CUDA          AlgorithmKind = "cuda"
)

// Algorithm selects and parameterises the scheduler family.
type Algorithm struct {
	Kind AlgorithmKind `yaml:"kind"`
	// EventTimeLaw selects the Independent family's per-lineage event time
	// law ("fixed" or "exponential"); ignored by the other kinds.
	EventTimeLaw string `yaml:"event_time_law,omitempty"`
}

// CoalescencePolicy selects the coalescence.Sampler a run's local-event
// commit protocol uses to resolve arrival-site collisions (spec §4.3). It
// defaults to Unconditional, the policy every partitioning kind supports.
// Validate accepts Conditional and Singleton only under monolithic
// partitioning; Conditional enumerates the lineages at a location, which
// needs the single whole-landscape store a monolithic run has.
type CoalescencePolicy string

const (
	Unconditional CoalescencePolicy = "unconditional"
	Conditional   CoalescencePolicy = "conditional"
	Singleton     CoalescencePolicy = "singleton"
)

// PartitioningKind selects how the landscape is split across partitions
// (spec §5). Only monolithic and threads are implemented; mpi is accepted
// and validated, not implemented — see DESIGN.md.
type PartitioningKind string

const (
	Monolithic PartitioningKind = "monolithic"
	Threads    PartitioningKind = "threads"
	MPI        PartitioningKind = "mpi"
)

// Partitioning selects and parameterises the partition topology.
type Partitioning struct {
	Kind                PartitioningKind `yaml:"kind"`
	Partitions          int              `yaml:"partitions,omitempty"`
	MigrationInterval   int              `yaml:"migration_interval,omitempty"`
	ProgressInterval    int              `yaml:"progress_interval,omitempty"`
	PanicIntervalMillis int              `yaml:"panic_interval_ms,omitempty"`
}

// Config is the full run configuration: scenario, algorithm, partitioning,
// plus the optional pause/resume fields cmd/coalescence consumes.
type Config struct {
	Scenario     Scenario     `yaml:"scenario"`
	Algorithm    Algorithm    `yaml:"algorithm"`
	Partitioning Partitioning `yaml:"partitioning"`
	// Coalescence selects the coalescence policy; defaults to Unconditional
	// when left empty.
	Coalescence CoalescencePolicy `yaml:"coalescence,omitempty"`

	// PauseBefore, if non-nil, is the simulated time at which
	// cmd/coalescence should stop early and persist a Snapshot instead of
	// running to completion.
	PauseBefore *float64 `yaml:"pause_before,omitempty"`
	// ResumeAfter, if set, is the path to a previously persisted Snapshot
	// to resume from instead of starting fresh.
	ResumeAfter string `yaml:"resume_after,omitempty"`
	// LineagesFile is decoded from the document but not read by
	// cmd/coalescence: a fresh run always fills every habitable cell to
	// capacity, and a resumed run takes its lineages from the Snapshot.
	LineagesFile string `yaml:"lineages_file,omitempty"`
}

// Load reads path (a YAML document with a top-level `kind`/`def` envelope,
// matching the teacher's own config convention) via viper and decodes its
// `def` payload into Config.
func Load(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	outer := &outerDocument{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, fmt.Errorf("config: decoding envelope of %s: %w", path, err)
	}

	spec, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, fmt.Errorf("config: re-marshalling def: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(spec, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding def: %w", err)
	}

	return cfg, nil
}

// ValidationError reports a configuration Validate rejects (spec §7): an
// unknown kind or policy, a partition count that contradicts the
// partitioning kind, a coalescence policy used outside monolithic
// partitioning, an unimplemented kind (cuda, mpi), or a capacity matrix
// whose length is not width*height.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "config: " + e.Reason }

// Validate checks cross-field consistency that per-field YAML decoding
// cannot catch on its own, returning the first mismatch it finds.
func Validate(cfg *Config) error {
	switch cfg.Algorithm.Kind {
	case Gillespie, EventSkipping, Independent, CUDA:
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown algorithm kind %q", cfg.Algorithm.Kind)}
	}

	switch cfg.Partitioning.Kind {
	case Monolithic, Threads, MPI:
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown partitioning kind %q", cfg.Partitioning.Kind)}
	}

	switch cfg.Coalescence {
	case "", Unconditional, Conditional, Singleton:
	default:
		return &ValidationError{Reason: fmt.Sprintf("unknown coalescence policy %q", cfg.Coalescence)}
	}
	if (cfg.Coalescence == Conditional || cfg.Coalescence == Singleton) && cfg.Partitioning.Kind != Monolithic {
		return &ValidationError{Reason: fmt.Sprintf(
			"coalescence policy %q requires monolithic partitioning", cfg.Coalescence)}
	}

	if cfg.Partitioning.Kind == Monolithic && cfg.Partitioning.Partitions > 1 {
		return &ValidationError{Reason: "monolithic partitioning cannot request more than one partition"}
	}
	if cfg.Partitioning.Kind == Threads && cfg.Partitioning.Partitions < 1 {
		return &ValidationError{Reason: "threads partitioning requires partitions >= 1"}
	}
	if cfg.Algorithm.Kind == CUDA {
		return &ValidationError{Reason: "cuda algorithm kind is accepted for compatibility but has no implementation in this build"}
	}
	if cfg.Partitioning.Kind == MPI {
		return &ValidationError{Reason: "mpi partitioning kind is accepted for compatibility but has no implementation in this build"}
	}

	if len(cfg.Scenario.Capacity) != int(cfg.Scenario.Width)*int(cfg.Scenario.Height) {
		return &ValidationError{Reason: fmt.Sprintf(
			"scenario capacity has %d entries, want width*height=%d",
			len(cfg.Scenario.Capacity), int(cfg.Scenario.Width)*int(cfg.Scenario.Height))}
	}

	return nil
}
