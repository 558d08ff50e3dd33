package rng

import "gopkg.in/yaml.v3"

// SplittableStream is the concrete Splittable RNG cog used by the
// Gillespie regime.
type SplittableStream struct {
	core       *splitMix64
	splitCount uint64
}

// NewSplittableStream seeds a fresh stream.
func NewSplittableStream(seed uint64) *SplittableStream {
	return &SplittableStream{core: newSplitMix64(seed)}
}

func (s *SplittableStream) Uniform() float64 {
	return uniformFromUint64(s.core.next())
}

func (s *SplittableStream) UniformIndex(n uint64) uint64 {
	if n == 0 {
		panic("rng: UniformIndex called with n=0")
	}
	// Rejection sampling (lemireBounded) avoids the modulo bias of next()%n.
	return lemireBounded(s.core.next, n)
}

func (s *SplittableStream) Exponential(rate float64) float64 {
	return exponentialFromUniform(s.Uniform(), rate)
}

// Split derives an independent child stream, seeded from this stream's
// current state mixed with a monotonically increasing split counter so
// repeated splits from the same parent never collide.
func (s *SplittableStream) Split() Splittable {
	s.splitCount++
	childSeed := mix64(s.core.state, s.splitCount)
	return NewSplittableStream(childSeed)
}

// Snapshot and Restore give the simulation engine the exact
// peek-then-rollback behaviour SimulateIncrementalEarlyStop requires: the
// engine snapshots the RNG before asking for a candidate event time, and
// restores it verbatim if the early-stop predicate breaks.
func (s *SplittableStream) Snapshot() SplittableSnapshot {
	return SplittableSnapshot{state: s.core.state, splitCount: s.splitCount}
}

func (s *SplittableStream) Restore(snap SplittableSnapshot) {
	s.core.state = snap.state
	s.splitCount = snap.splitCount
}

// SnapshotAny and RestoreAny adapt Snapshot/Restore to the Checkpoint
// interface, so the simulation engine can treat any checkpointable stream
// uniformly without depending on the concrete SplittableSnapshot type.
func (s *SplittableStream) SnapshotAny() any { return s.Snapshot() }

func (s *SplittableStream) RestoreAny(snap any) { s.Restore(snap.(SplittableSnapshot)) }

// SplittableSnapshot is an opaque, restorable RNG state. Its fields are
// unexported so callers can't reach in and perturb them, but it still
// round-trips through YAML (config.Snapshot persistence) via the
// marshalled form below.
type SplittableSnapshot struct {
	state      uint64
	splitCount uint64
}

type splittableSnapshotYAML struct {
	State      uint64 `yaml:"state"`
	SplitCount uint64 `yaml:"split_count"`
}

func (s SplittableSnapshot) MarshalYAML() (interface{}, error) {
	return splittableSnapshotYAML{State: s.state, SplitCount: s.splitCount}, nil
}

func (s *SplittableSnapshot) UnmarshalYAML(value *yaml.Node) error {
	var raw splittableSnapshotYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.state = raw.State
	s.splitCount = raw.SplitCount
	return nil
}

func lemireBounded(next func() uint64, n uint64) uint64 {
	if n&(n-1) == 0 {
		// n is a power of two: masking is exact and bias-free.
		return next() & (n - 1)
	}
	// Rejection sampling against the largest multiple of n that fits in a
	// uint64, so the result is exactly uniform in [0,n) with no modulo
	// bias.
	limit := ^uint64(0) - (^uint64(0) % n)
	for {
		v := next()
		if v < limit {
			return v % n
		}
	}
}
