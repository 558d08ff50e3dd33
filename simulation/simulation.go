// Package simulation implements the central engine loop (spec §4.1): the
// per-step protocol that advances either a local event or an immigration,
// with exact RNG snapshot/rollback so a predicate can cooperatively pause
// the run at an arbitrary simulated time.
package simulation

import (
	"github.com/nsamarasinghe/coalescence/coalescence"
	"github.com/nsamarasinghe/coalescence/event"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/migration"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/reporter"
	"github.com/nsamarasinghe/coalescence/rng"
)

// Scheduler unifies the Gillespie and Independent ActiveLineageSampler
// families behind the one surface the engine loop needs (spec §4.2): peek
// a candidate next local event time, commit to it, and reschedule or drop
// a lineage once its event is committed.
type Scheduler interface {
	PeekNextEventTime(r rng.Stream) (numeric.PositiveF64, bool)
	PopNextEvent(r rng.Stream) (lineage.Ref, numeric.PositiveF64, bool)
	Reschedule(ref lineage.Ref, il habitat.IndexedLocation, lastEventTime numeric.NonNegativeF64, r rng.Stream)
	Remove(ref lineage.Ref)
	Len() int
}

// Decision is the result of an early-stop predicate consulted before a
// local event commits.
type Decision int

const (
	Continue Decision = iota
	Break
)

// Predicate inspects a candidate next local event without committing it.
type Predicate func(steps uint64, nextEventTime numeric.PositiveF64) Decision

// alwaysContinue is the predicate Simulate uses: run to completion.
func alwaysContinue(uint64, numeric.PositiveF64) Decision { return Continue }

// Simulation is one partition's engine: the product of every cog (spec
// §2), single-threaded and sequential within itself (spec §5).
type Simulation struct {
	Scheduler   Scheduler
	Store       lineage.Store
	Events      *event.Sampler
	Immigration migration.ImmigrationEntry
	Balance     *migration.Balance
	RNG         rng.Stream
	Reporter    reporter.Reporter

	steps uint64
	time  numeric.NonNegativeF64
}

// New constructs a Simulation. RNG may optionally implement rng.Checkpoint
// (SplittableStream does; PrimeableStream does not need to, since the
// Independent family never draws during a peek).
func New(scheduler Scheduler, store lineage.Store, events *event.Sampler, immigration migration.ImmigrationEntry, balance *migration.Balance, r rng.Stream, rep reporter.Reporter) *Simulation {
	return &Simulation{
		Scheduler:   scheduler,
		Store:       store,
		Events:      events,
		Immigration: immigration,
		Balance:     balance,
		RNG:         r,
		Reporter:    rep,
	}
}

// Simulate drives the simulation to completion: until both the active
// lineage count is zero and the immigration entry is empty (spec §4.1).
func (s *Simulation) Simulate() (numeric.NonNegativeF64, uint64) {
	return s.SimulateIncrementalEarlyStop(alwaysContinue)
}

// SimulateIncrementalEarlyStop runs the per-step protocol, consulting
// predicate before committing each local event. On Break the RNG is rolled
// back to its state just before the candidate time was drawn, so predicate
// only ever observes a candidate, never a committed draw.
func (s *Simulation) SimulateIncrementalEarlyStop(predicate Predicate) (numeric.NonNegativeF64, uint64) {
	for {
		// Step 1: report progress.
		s.Reporter.ReportProgress(reporter.ProgressSample{
			Steps:            s.steps,
			ActiveLineages:   uint64(s.Scheduler.Len()),
			MigrationBalance: s.Balance.Value(),
		})

		// Step 2: peek the immigration queue.
		immTime, immTie, immOk := s.Immigration.Peek()

		// Step 3: snapshot the RNG, peek the next candidate local event.
		checkpoint, checkpointable := s.RNG.(rng.Checkpoint)
		var snap any
		if checkpointable {
			snap = checkpoint.SnapshotAny()
		}
		locTime, locOk := s.Scheduler.PeekNextEventTime(s.RNG)

		// Step 7 (checked early): nothing pending anywhere, terminate.
		if !locOk && !immOk {
			return s.time, s.steps
		}

		// Step 4: consult the predicate on the local candidate, if any.
		if locOk && predicate(s.steps, locTime) == Break {
			if checkpointable {
				checkpoint.RestoreAny(snap)
			}
			return s.time, s.steps
		}

		// Step 5: decide the winner.
		localWins := locOk
		if immOk && locOk {
			if immTime.Less(locTime) {
				localWins = false
			} else if immTime.Get() == locTime.Get() && immTie == lineage.PreferImmigrant {
				localWins = false
			}
		} else if immOk && !locOk {
			localWins = false
		}

		// Step 6: commit.
		if localWins {
			s.commitLocal()
		} else {
			s.commitImmigration()
		}

		s.steps++
	}
}

func (s *Simulation) commitLocal() {
	ref, t, ok := s.Scheduler.PopNextEvent(s.RNG)
	if !ok {
		return
	}
	outcome := s.Events.Commit(ref, t, lineage.PreferLocal, s.RNG)
	s.report(outcome.Event)
	if !outcome.Removed {
		updated := s.Store.Get(ref)
		s.Scheduler.Reschedule(ref, updated.IndexedLocation, updated.LastEventTime, s.RNG)
	} else if outcome.Event.Emigrated {
		s.Balance.Emigrate()
	}
	s.time = numeric.MustNonNegativeF64(t.Get())
}

func (s *Simulation) commitImmigration() {
	m, ok := s.Immigration.Pop()
	if !ok {
		return
	}
	target := m.Lineage.IndexedLocation.Location
	il, outcome := s.Events.Coalesce.SampleWithRNGSample(target, m.CoalescenceRNGSample)

	evt := event.PackedEvent{
		Global:    m.Lineage.GlobalRef,
		PriorTime: m.Lineage.LastEventTime,
		EventTime: m.EventTime,
		Kind:      event.Dispersal,
		Target:    target,
	}

	if outcome.Interaction == coalescence.Coalescence {
		evt.Coalesced = true
		evt.Parent = outcome.Parent
	} else {
		arriving := m.Lineage
		arriving.IndexedLocation = il
		arriving.LastEventTime = numeric.MustNonNegativeF64(m.EventTime.Get())
		ref := s.Store.Insert(arriving)
		s.Scheduler.Reschedule(ref, il, arriving.LastEventTime, s.RNG)
	}

	s.Reporter.ReportDispersal(evt)
	s.Balance.Immigrate()
	s.time = numeric.MustNonNegativeF64(m.EventTime.Get())
}

// report dispatches a committed local event to the reporter, except a
// successful emigration: the receiving partition reports it instead
// (spec §4.3 step 2).
func (s *Simulation) report(evt event.PackedEvent) {
	if evt.Emigrated {
		return
	}
	switch evt.Kind {
	case event.Speciation:
		s.Reporter.ReportSpeciation(evt)
	case event.Dispersal:
		s.Reporter.ReportDispersal(evt)
	}
}
