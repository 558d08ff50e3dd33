// Package threads implements partition.LocalPartition over goroutines: one
// OS goroutine per partition, a bounded channel per destination partition
// for emigration (wired through migration.ChannelEmigrationExit /
// ChannelImmigrationEntry), a barrier for round synchronisation, a
// broadcast progress channel fanned in with channerics.Merge, and a
// watchdog that panics on a configurable interval of silence (spec §5).
package threads

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nsamarasinghe/coalescence/atomic_float"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/partition"
	"github.com/nsamarasinghe/coalescence/reporter"
	"github.com/nsamarasinghe/coalescence/simulation"

	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

// barrier is a reusable rendezvous point for n goroutines: the round
// coordination primitive spec §5 calls for ("one barrier for
// synchronisation"), built from a channel close/recreate rather than a
// generic barrier library, in the teacher's own small-channel-primitive
// idiom.
type barrier struct {
	n       int
	mu      sync.Mutex
	count   int
	release chan struct{}
}

func newBarrier(n int) *barrier {
	return &barrier{n: n, release: make(chan struct{})}
}

func (b *barrier) Wait() {
	b.mu.Lock()
	ch := b.release
	b.count++
	if b.count == b.n {
		b.count = 0
		b.release = make(chan struct{})
		b.mu.Unlock()
		close(ch)
		return
	}
	b.mu.Unlock()
	<-ch
}

// coordinator is the shared state every rank's Partition reads and writes
// through atomics, rendezvousing at bar between rounds.
type coordinator struct {
	n         int
	bar       *barrier
	votes     []int32 // 1 == this rank still has local work
	times     []*atomic_float.AtomicFloat64
	anyActive int32 // result of the last ReduceVoteAny, read by WaitForTermination
	lastBeat  int64 // not read or written; Run's watchdog keeps its own timestamp
}

func newCoordinator(n int) *coordinator {
	times := make([]*atomic_float.AtomicFloat64, n)
	for i := range times {
		times[i] = atomic_float.NewAtomicFloat64(0)
	}
	return &coordinator{
		n:     n,
		bar:   newBarrier(n),
		votes: make([]int32, n),
		times: times,
	}
}

// Partition is the threads-family partition.LocalPartition. Migration
// itself already happens continuously through the
// migration.ChannelEmigrationExit/ChannelImmigrationEntry wired into each
// rank's Simulation, so MigrateIndividuals only exists to satisfy the
// interface and asserts it is never asked to do batched exchange.
type Partition struct {
	rank int
	c    *coordinator
}

func (p *Partition) MigrateIndividuals(emigrants []lineage.MigratingLineage) []lineage.MigratingLineage {
	if len(emigrants) != 0 {
		panic("threads: MigrateIndividuals called with emigrants; this partitioner exchanges lineages continuously through per-destination channels, not a batched collective")
	}
	return nil
}

// ReduceVoteAny publishes this rank's vote, rendezvouses, and returns
// whether any rank voted true (by convention: "I still have local work").
func (p *Partition) ReduceVoteAny(vote bool) bool {
	v := int32(0)
	if vote {
		v = 1
	}
	atomic.StoreInt32(&p.c.votes[p.rank], v)
	p.c.bar.Wait()

	any := int32(0)
	for i := 0; i < p.c.n; i++ {
		if atomic.LoadInt32(&p.c.votes[i]) != 0 {
			any = 1
			break
		}
	}
	if p.rank == 0 {
		atomic.StoreInt32(&p.c.anyActive, any)
	}
	p.c.bar.Wait()
	return atomic.LoadInt32(&p.c.anyActive) != 0
}

// ReduceVoteMinTime publishes this rank's candidate next event time,
// rendezvouses, and returns the global minimum plus whether this rank's
// own candidate was (tied for) that minimum.
func (p *Partition) ReduceVoteMinTime(t numeric.PositiveF64) (numeric.PositiveF64, bool) {
	p.c.times[p.rank].AtomicSet(t.Get())
	p.c.bar.Wait()

	min := t.Get()
	for i := 0; i < p.c.n; i++ {
		if v := p.c.times[i].AtomicRead(); v < min {
			min = v
		}
	}
	p.c.bar.Wait()
	return numeric.MustPositiveF64(min), t.Get() <= min
}

// WaitForTermination reports the outcome of the most recent ReduceVoteAny
// call: Continue if any rank still had work, Break otherwise. It does not
// itself rendezvous — ReduceVoteAny already did.
func (p *Partition) WaitForTermination() partition.Decision {
	if atomic.LoadInt32(&p.c.anyActive) == 0 {
		return partition.Break
	}
	return partition.Continue
}

// Config parameterises a multi-partition run (spec §6 Partitioning).
type Config struct {
	Partitions        int
	MigrationInterval uint64 // local engine steps per round before rendezvousing
	PanicInterval     time.Duration
}

// progressReporter wraps a rank's Reporter, forwarding every
// ReportProgress call onto a channel so the supervisor can fan every
// rank's progress into one stream (and reset the watchdog) while
// Speciation/Dispersal events still go straight to the wrapped Reporter.
type progressReporter struct {
	reporter.Reporter
	rank int
	out  chan<- reporter.ProgressSample
}

func (p *progressReporter) ReportProgress(sample reporter.ProgressSample) {
	p.Reporter.ReportProgress(sample)
	select {
	case p.out <- sample:
	default:
		// The supervisor's fan-in drains continuously; a full channel means
		// it is momentarily behind, and dropping a redundant progress tick
		// is harmless.
	}
}

// NewProgressReporter builds the per-rank reporter wrapper Run wires each
// partition's Simulation with.
func NewProgressReporter(rank int, inner reporter.Reporter, out chan<- reporter.ProgressSample) reporter.Reporter {
	return &progressReporter{Reporter: inner, rank: rank, out: out}
}

// Supervisor bundles a Config, one Simulation per rank and a fresh
// coordinator. It defines no methods and Run does not use it; Run is what
// drives the partitions.
type Supervisor struct {
	cfg  Config
	sims []*simulation.Simulation
	c    *coordinator
}

// NewSupervisor builds a Supervisor over sims, one per rank, already wired
// with per-rank migration.ChannelEmigrationExit/ChannelImmigrationEntry and
// a Partition built from Partitions(cfg) at matching rank.
func NewSupervisor(cfg Config, sims []*simulation.Simulation) *Supervisor {
	if len(sims) != cfg.Partitions {
		panic("threads: len(sims) must equal cfg.Partitions")
	}
	return &Supervisor{cfg: cfg, sims: sims, c: newCoordinator(cfg.Partitions)}
}

// Partitions builds the cfg.Partitions LocalPartition handles sharing one
// coordinator, for the caller to thread into its migration.ChannelEmigrationExit
// routing decisions if it needs rank identity (the Partitions themselves
// are only consulted by Run's round-termination voting).
func Partitions(cfg Config) []*Partition {
	c := newCoordinator(cfg.Partitions)
	out := make([]*Partition, cfg.Partitions)
	for i := range out {
		out[i] = &Partition{rank: i, c: c}
	}
	return out
}

// Run drives every partition's Simulation in its own goroutine, round by
// round: each round runs up to MigrationInterval local steps (via
// SimulateIncrementalEarlyStop), then every rank calls ReduceVoteAny to
// decide whether to keep going. Each sim's Reporter is wrapped in a
// NewProgressReporter before its goroutine starts, so every ReportProgress
// call both reaches the caller's original reporter and resets the
// watchdog. A watchdog goroutine panics if no rank has reported progress
// within PanicInterval. Neither that panic nor a panic in a rank's
// goroutine is recovered: the errgroup version this module uses does not
// catch panics, so either one ends the process without waiting for the
// other goroutines to return.
func Run(ctx context.Context, cfg Config, sims []*simulation.Simulation, parts []*Partition, progressOut chan<- reporter.ProgressSample) error {
	if len(sims) != cfg.Partitions || len(parts) != cfg.Partitions {
		panic("threads: Run requires one Simulation and one Partition per configured rank")
	}

	progressChans := make([]<-chan reporter.ProgressSample, cfg.Partitions)
	internal := make([]chan reporter.ProgressSample, cfg.Partitions)
	for i := range internal {
		internal[i] = make(chan reporter.ProgressSample, 8)
		progressChans[i] = internal[i]
	}
	merged := channerics.Merge(ctx.Done(), progressChans...)

	var lastBeat int64
	atomic.StoreInt64(&lastBeat, time.Now().UnixNano())

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case sample, ok := <-merged:
				if !ok {
					return nil
				}
				atomic.StoreInt64(&lastBeat, time.Now().UnixNano())
				if progressOut != nil {
					select {
					case progressOut <- sample:
					default:
					}
				}
			}
		}
	})

	if cfg.PanicInterval > 0 {
		group.Go(func() error {
			ticker := time.NewTicker(cfg.PanicInterval)
			defer ticker.Stop()
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case <-ticker.C:
					if time.Since(time.Unix(0, atomic.LoadInt64(&lastBeat))) > cfg.PanicInterval {
						panic("threads: no partition reported progress within panic_interval")
					}
				}
			}
		})
	}

	for i := 0; i < cfg.Partitions; i++ {
		rank := i
		sim := sims[rank]
		part := parts[rank]
		out := internal[rank]
		sim.Reporter = NewProgressReporter(rank, sim.Reporter, out)

		group.Go(func() error {
			defer close(out)

			for {
				steps := uint64(0)
				sim.SimulateIncrementalEarlyStop(func(stepsSoFar uint64, _ numeric.PositiveF64) simulation.Decision {
					if steps >= cfg.MigrationInterval {
						return simulation.Break
					}
					steps++
					return simulation.Continue
				})

				localActive := sim.Scheduler.Len() > 0
				part.ReduceVoteAny(localActive)
				if part.WaitForTermination() == partition.Break {
					return nil
				}

				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				default:
				}
			}
		})
	}

	return group.Wait()
}
