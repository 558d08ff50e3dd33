// Package migration implements the EmigrationExit / ImmigrationEntry cogs
// and the migration-balance accumulator the simulation engine uses to
// hand lineages between partitions (spec §4.4, §5).
package migration

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
)

// EmigrationExit intercepts a dispersal whose target belongs to another
// partition and hands it off.
type EmigrationExit interface {
	// TryEmigrate reports whether target is foreign and, if so, accepts
	// the lineage (ok=true) — the caller must then remove it from local
	// storage without reporting it locally, since the receiving partition
	// reports it.
	TryEmigrate(l lineage.Lineage, target habitat.Location, eventTime numeric.PositiveF64, tieBreaker lineage.TieBreaker, coalescenceRNGSample uint64) (ok bool)
}

// ImmigrationEntry surfaces lineages received from other partitions,
// time-ordered, so the engine can peek the next arrival's time without
// consuming it.
type ImmigrationEntry interface {
	// Peek returns the next pending immigrant's event time and tie-breaker
	// without consuming it, or ok=false if none is pending.
	Peek() (eventTime numeric.PositiveF64, tieBreaker lineage.TieBreaker, ok bool)
	// Pop consumes and returns the next pending immigrant.
	Pop() (lineage.MigratingLineage, bool)
}

// Balance is the wrapping signed migration-balance accumulator (spec
// §4.1): -1 per emigration, +1 per immigration, used purely for progress
// reporting so remaining-work estimates stay monotone under multi-
// partition reordering.
type Balance struct {
	value int64
}

func (b *Balance) Emigrate()    { b.value-- }
func (b *Balance) Immigrate()   { b.value++ }
func (b *Balance) Value() int64 { return b.value }
