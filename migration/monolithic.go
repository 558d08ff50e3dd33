package migration

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
)

// NeverEmigrates is the monolithic-partitioning EmigrationExit: every
// target is local, so TryEmigrate always declines.
type NeverEmigrates struct{}

func (NeverEmigrates) TryEmigrate(lineage.Lineage, habitat.Location, numeric.PositiveF64, lineage.TieBreaker, uint64) bool {
	return false
}

// EmptyImmigrationEntry is the monolithic-partitioning ImmigrationEntry:
// there are no other partitions, so nothing ever arrives.
type EmptyImmigrationEntry struct{}

func (EmptyImmigrationEntry) Peek() (numeric.PositiveF64, lineage.TieBreaker, bool) {
	return numeric.PositiveF64{}, lineage.PreferLocal, false
}

func (EmptyImmigrationEntry) Pop() (lineage.MigratingLineage, bool) {
	return lineage.MigratingLineage{}, false
}
