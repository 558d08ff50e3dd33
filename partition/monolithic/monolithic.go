// Package monolithic implements partition.LocalPartition for a single,
// unpartitioned run: every collective operation resolves from local state
// alone, since there are no peers to coordinate with.
package monolithic

import (
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/partition"
)

// Partition is the monolithic LocalPartition.
type Partition struct{}

func New() Partition { return Partition{} }

// MigrateIndividuals panics if handed any emigrants: under monolithic
// partitioning every dispersal target is local, so migration.NeverEmigrates
// guarantees the engine never calls this with a non-empty slice.
func (Partition) MigrateIndividuals(emigrants []lineage.MigratingLineage) []lineage.MigratingLineage {
	if len(emigrants) != 0 {
		panic("monolithic: MigrateIndividuals called with emigrants under monolithic partitioning")
	}
	return nil
}

func (Partition) ReduceVoteAny(vote bool) bool { return vote }

func (Partition) ReduceVoteMinTime(t numeric.PositiveF64) (numeric.PositiveF64, bool) {
	return t, true
}

func (Partition) WaitForTermination() partition.Decision { return partition.Break }
