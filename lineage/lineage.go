// Package lineage implements the Lineage/MigratingLineage data model and
// the LineageStore cog, an arena of lineages addressed by opaque integer
// handles rather than shared pointers (spec §9: "Weak/back references").
package lineage

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/numeric"
)

// GlobalReference is a process-wide unique identifier for a lineage,
// stable across migration between partitions.
type GlobalReference uint64

// Lineage is a backward-time trace of a single sampled individual.
type Lineage struct {
	GlobalRef       GlobalReference
	IndexedLocation habitat.IndexedLocation
	LastEventTime   numeric.NonNegativeF64
}

// TieBreaker resolves an exact tie between a migrating lineage's event
// time and a local candidate event time.
type TieBreaker int

const (
	PreferLocal TieBreaker = iota
	PreferImmigrant
)

// MigratingLineage is a Lineage in transit between partitions. It carries
// the RNG draw needed to resolve arrival-site coalescence deterministically
// without consulting the receiving partition's local RNG (spec §4.4).
type MigratingLineage struct {
	Lineage
	EventTime            numeric.PositiveF64
	TieBreaker           TieBreaker
	CoalescenceRNGSample uint64
}

// Ref is an opaque arena handle into a LineageStore. It carries no
// ownership semantics: callers look up the current Lineage by Ref, they
// never hold a Lineage pointer across mutations.
type Ref uint32

// Coherence describes how much cross-lineage querying a LineageStore
// implementation supports, from the spec's three levels.
type Coherence int

const (
	// Independent: no cross-lineage queries; only Get/Set by Ref.
	Independent Coherence = iota
	// LocallyCoherent: can additionally enumerate lineages at one location.
	LocallyCoherent
	// GloballyCoherent: can additionally enumerate across all locations.
	GloballyCoherent
)

// Store is the LineageStore cog.
type Store interface {
	Coherence() Coherence
	// Get returns the current Lineage for ref.
	Get(ref Ref) Lineage
	// Set overwrites ref's indexed location and/or last event time. It is
	// the caller's responsibility to keep any location index (used by
	// LocallyCoherent/GloballyCoherent implementations) consistent — use
	// Move instead of Set when relocating a lineage.
	Set(ref Ref, l Lineage)
	// Move relocates ref to a new IndexedLocation, updating any
	// location-keyed index the implementation maintains.
	Move(ref Ref, to habitat.IndexedLocation)
	// Insert adds a new lineage and returns its handle.
	Insert(l Lineage) Ref
	// Remove deletes ref from the store (speciation or coalescence).
	Remove(ref Ref)
	// Len returns the number of currently-stored lineages.
	Len() int
	// All returns every currently-stored Ref, order unspecified.
	All() []Ref
}

// LocallyCoherentStore additionally supports per-location enumeration.
type LocallyCoherentStore interface {
	Store
	// AtLocation returns every Ref currently at loc.
	AtLocation(loc habitat.Location) []Ref
	// CountAtLocation returns len(AtLocation(loc)) without allocating.
	CountAtLocation(loc habitat.Location) int
}
