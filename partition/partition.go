// Package partition defines the LocalPartition collective-operations cog
// (spec §5): the coordination surface a multi-partition run's engines call
// above the strictly single-threaded Simulation. monolithic implements it
// trivially for a single partition; threads implements it over goroutines
// and channels.
package partition

import (
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
)

// Decision mirrors simulation.Decision at the partition-coordination layer:
// whether a collective wait resolved to keep running or to stop.
type Decision int

const (
	Continue Decision = iota
	Break
)

// LocalPartition is the set of collective operations a partition's host
// calls between rounds of local simulation to exchange lineages with its
// peers and agree on termination (spec §5).
type LocalPartition interface {
	// MigrateIndividuals exchanges emigrants for immigrants originating on
	// other partitions, returning everything destined for this partition
	// this round.
	MigrateIndividuals(emigrants []lineage.MigratingLineage) []lineage.MigratingLineage
	// ReduceVoteAny reduces a per-partition bool across all partitions with
	// logical OR.
	ReduceVoteAny(vote bool) bool
	// ReduceVoteMinTime reduces a per-partition candidate next event time to
	// the global minimum, reporting whether this partition's own candidate
	// was (tied for) the minimum.
	ReduceVoteMinTime(t numeric.PositiveF64) (global numeric.PositiveF64, isLocalMinimum bool)
	// WaitForTermination reports whether the run stops (Break) or goes on,
	// without a rendezvous of its own: the threads partition returns the
	// outcome of its last ReduceVoteAny, the monolithic one always Break.
	WaitForTermination() Decision
}
