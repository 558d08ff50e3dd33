// Command coalescence runs a spatial neutral biodiversity coalescent
// simulation from a YAML scenario/algorithm/partitioning configuration,
// optionally serving a live occupancy dashboard and persisting an
// append-only event log as it runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nsamarasinghe/coalescence/coalescence"
	"github.com/nsamarasinghe/coalescence/config"
	"github.com/nsamarasinghe/coalescence/dispersal"
	"github.com/nsamarasinghe/coalescence/event"
	"github.com/nsamarasinghe/coalescence/eventlog"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/migration"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/partition/monolithic"
	"github.com/nsamarasinghe/coalescence/reporter"
	"github.com/nsamarasinghe/coalescence/rng"
	"github.com/nsamarasinghe/coalescence/scenario"
	"github.com/nsamarasinghe/coalescence/scheduler/gillespie"
	"github.com/nsamarasinghe/coalescence/scheduler/independent"
	"github.com/nsamarasinghe/coalescence/server"
	"github.com/nsamarasinghe/coalescence/server/cell_views"
	"github.com/nsamarasinghe/coalescence/simulation"
)

// Exit codes (spec §6): 0 success/clean pause, distinct nonzero codes for
// the rest so a caller scripting runs can tell them apart.
const (
	exitOK            = 0
	exitUsageError    = 1
	exitConfigError   = 2
	exitScenarioError = 3
	exitResumeError   = 4
	exitRuntimeError  = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "./config.yaml", "path to the run's YAML configuration")
	dashboard := flag.Bool("dashboard", false, "serve a live occupancy dashboard")
	addr := flag.String("addr", ":8080", "dashboard listen address")
	eventlogDir := flag.String("eventlog", "", "directory to append the run's event log to (disabled if empty)")
	snapshotPath := flag.String("snapshot", "", "path to write a Snapshot to on pause (required if pause_before is set)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitConfigError
	}

	built, err := scenario.Build(cfg.Scenario)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitScenarioError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Partitioning.Kind == config.Threads && cfg.Partitioning.Partitions > 1 {
		return runThreadedCLI(ctx, cfg, built, *dashboard, *addr, *eventlogDir)
	}

	store, rngState, startTime, fixUps, resumeErr := initialState(cfg, built.Habitat)
	if resumeErr != nil {
		if _, ok := resumeErr.(*independent.ResumeError); !ok {
			fmt.Fprintln(os.Stderr, resumeErr)
			return exitScenarioError
		}
	}

	var rep reporter.Reporter = reporter.NewInMemoryReporter()
	var logWriter *eventlog.Writer
	if *eventlogDir != "" {
		var err error
		logWriter, err = eventlog.Open(*eventlogDir, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitRuntimeError
		}
		defer logWriter.Close()
		rep = &loggingReporter{Reporter: rep, log: logWriter}
	}
	// Every rehabilitated lineage's relocation is logged before anything
	// else runs, so the event log stays consistent even though the process
	// then exits for the operator to review the exceptional lineages.
	for _, evt := range fixUps {
		rep.ReportDispersal(evt)
	}

	if resumeErr != nil {
		printResumeError(resumeErr.(*independent.ResumeError))
		return exitResumeError
	}

	var srv *server.Server
	var snapshots chan cell_views.Snapshot
	if *dashboard {
		snapshots = make(chan cell_views.Snapshot, 1)
		initial := cell_views.Snapshot{Habitat: built.Habitat, Store: store}
		var err error
		srv, err = server.NewServer(ctx, *addr, initial, snapshots)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitRuntimeError
		}
		rep = &dashboardReporter{Reporter: rep, habitat: built.Habitat, store: store, out: snapshots}
		go func() {
			if err := srv.Serve(); err != nil {
				log.Println("dashboard server exited:", err)
			}
		}()
	}

	sim, err := buildSimulation(cfg, built, store, rngState, rep)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitScenarioError
	}

	if err := runSimulation(ctx, cfg, sim, startTime, *snapshotPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntimeError
	}

	return exitOK
}

func printResumeError(err *independent.ResumeError) {
	fmt.Fprintln(os.Stderr, err.Error())
	for _, ex := range err.Exceptional {
		fmt.Fprintf(os.Stderr, "- global_reference: %d\n  kind: %s\n  location: %s\n",
			ex.Lineage.GlobalRef, ex.Kind, ex.Lineage.IndexedLocation)
	}
}

// initialState builds the run's starting LineageStore and RNG state,
// either fresh (every habitable cell filled to capacity) or from a
// persisted Snapshot, fixing up any lineages the snapshot's landscape no
// longer agrees with (spec §7).
func initialState(cfg *config.Config, h habitat.Habitat) (*lineage.ArenaStore, rng.SplittableSnapshot, float64, []event.PackedEvent, error) {
	if cfg.ResumeAfter == "" {
		return scenario.PopulateStore(h), rng.SplittableSnapshot{}, 0, nil, nil
	}

	snap, err := config.ReadSnapshot(cfg.ResumeAfter)
	if err != nil {
		return nil, rng.SplittableSnapshot{}, 0, nil, err
	}

	store := lineage.NewArenaStore()
	occupied := func(il habitat.IndexedLocation) bool {
		_, ok := store.AtIndexedLocation(il)
		return ok
	}

	var exceptional []independent.ExceptionalLineage
	readmit := make([]lineage.Lineage, 0, len(snap.Survivors))
	for _, l := range snap.Survivors {
		if ex, ok := independent.Classify(l, h, occupied); !ok {
			exceptional = append(exceptional, ex)
		} else {
			readmit = append(readmit, l)
		}
	}

	r := rng.NewSplittableStream(cfg.Scenario.Seed)
	r.Restore(snap.RNGState)

	var synthetic []event.PackedEvent
	if len(exceptional) > 0 {
		strategy := independent.RestartFixUpStrategy{
			OutOfHabitat: independent.RelocateUniform,
			OutOfDeme:    independent.RelocateUniform,
			Coalescence:  independent.RelocateUniform,
		}
		restartAt, err := numeric.NewPositiveF64(snap.FinalTime)
		if err != nil {
			return nil, rng.SplittableSnapshot{}, 0, nil, err
		}
		fixedUp, _, synth := independent.FixUp(exceptional, strategy, h, r, occupied, restartAt)
		readmit = append(readmit, fixedUp...)
		synthetic = synth
	}

	for _, l := range readmit {
		store.Insert(l)
	}

	var resumeErr error
	if len(exceptional) > 0 {
		resumeErr = &independent.ResumeError{Exceptional: exceptional}
	}

	return store, snap.RNGState, snap.FinalTime, synthetic, resumeErr
}

// buildSimulation wires the engine graph for a monolithic run. Threads
// partitioning is driven separately by runThreadedCLI via partition/threads.
func buildSimulation(cfg *config.Config, built *scenario.Built, store *lineage.ArenaStore, rngState rng.SplittableSnapshot, rep reporter.Reporter) (*simulation.Simulation, error) {
	r := rng.NewSplittableStream(cfg.Scenario.Seed)
	if cfg.ResumeAfter != "" {
		r.Restore(rngState)
	}

	exit := migration.EmigrationExit(migration.NeverEmigrates{})
	coalescer := buildCoalescer(cfg, built, store)
	sampler := event.NewSampler(built.Speciation, built.Dispersal, coalescer, store, exit)
	balance := &migration.Balance{}

	scheduler, sep, err := buildScheduler(cfg, built, store, cfg.Scenario.Seed)
	if err != nil {
		return nil, err
	}
	if sep != nil {
		sampler.WithEventSkipping(sep)
	}

	return simulation.New(scheduler, store, sampler, migration.EmptyImmigrationEntry{}, balance, r, rep), nil
}

// buildCoalescer selects the coalescence.Sampler cfg.Coalescence names
// (spec §4.3), defaulting to UnconditionalSampler. Conditional needs
// per-location enumeration, which only a monolithic run's single
// lineage.ArenaStore can provide; config.Validate rejects Conditional and
// Singleton under non-monolithic partitioning before this runs.
func buildCoalescer(cfg *config.Config, built *scenario.Built, store *lineage.ArenaStore) coalescence.Sampler {
	switch cfg.Coalescence {
	case config.Conditional:
		return coalescence.NewConditionalSampler(built.Habitat, store)
	case config.Singleton:
		return coalescence.NewSingletonSampler()
	default:
		return coalescence.NewUnconditionalSampler(built.Habitat, store)
	}
}

// buildScheduler constructs the ActiveLineageSampler family cfg.Algorithm
// names. seed parameterises the scheduler's own RNG draws (Independent's
// primer, EventSkipping's alias table has none): buildSimulation passes
// cfg.Scenario.Seed for a monolithic run, runThreadedCLI passes a distinct
// per-rank seed so partitions don't share identical event-time draws.
//
// The returned dispersal.Separable is non-nil only for EventSkipping: the
// caller must wire it into the event.Sampler via WithEventSkipping so the
// same alias table that thinned the scheduler's rate also restricts the
// commit-time draw to non-self targets (spec §4.5) — thinning the rate
// without restricting the draw would distort the dispersal marginal.
func buildScheduler(cfg *config.Config, built *scenario.Built, store *lineage.ArenaStore, seed uint64) (simulation.Scheduler, dispersal.Separable, error) {
	switch cfg.Algorithm.Kind {
	case config.Gillespie:
		s := gillespie.NewActiveLineageSampler(built.Turnover)
		s.Populate(store)
		return s, nil, nil
	case config.EventSkipping:
		sep, err := dispersal.NewAliasSampler(built.Habitat, cfg.Scenario.Width, cfg.Scenario.Height, cfg.Scenario.Dispersal)
		if err != nil {
			return nil, nil, fmt.Errorf("cmd/coalescence: %w", err)
		}
		s := gillespie.NewActiveLineageSampler(built.Turnover).WithEventSkipping(sep)
		s.Populate(store)
		return s, sep, nil
	case config.Independent:
		var ets independent.EventTimeSampler = independent.ExponentialEventTimeSampler{}
		if cfg.Algorithm.EventTimeLaw == "fixed" {
			ets = independent.FixedEventTimeSampler{}
		}
		s := independent.NewActiveLineageSampler(built.Habitat, built.Turnover, ets)
		primer := rng.NewPrimeableStream(seed)
		s.Populate(store, primer)
		return independentSchedulerAdapter{s, primer}, nil, nil
	default:
		return nil, nil, fmt.Errorf("cmd/coalescence: unsupported algorithm kind %q", cfg.Algorithm.Kind)
	}
}

// independentSchedulerAdapter satisfies simulation.Scheduler by priming a
// dedicated rng.Primeable on every reschedule, since the Independent regime
// computes event times from a primed stream rather than the engine's own
// rng.Stream.
type independentSchedulerAdapter struct {
	*independent.ActiveLineageSampler
	primer *rng.PrimeableStream
}

func (a independentSchedulerAdapter) Reschedule(ref lineage.Ref, il habitat.IndexedLocation, lastEventTime numeric.NonNegativeF64, _ rng.Stream) {
	a.ActiveLineageSampler.Schedule(ref, il, lastEventTime, a.primer)
}

// runSimulation drives a single monolithic Simulation to completion (or to
// cfg.PauseBefore). Multi-partition threads runs are dispatched earlier, by
// run(), to runThreadedCLI instead.
func runSimulation(ctx context.Context, cfg *config.Config, sim *simulation.Simulation, startTime float64, snapshotPath string) error {
	part := monolithic.New()

	if cfg.PauseBefore == nil {
		sim.Simulate()
		_ = part.WaitForTermination()
		return nil
	}

	pauseAt := *cfg.PauseBefore
	_, steps := sim.SimulateIncrementalEarlyStop(func(_ uint64, nextEventTime numeric.PositiveF64) simulation.Decision {
		if nextEventTime.Get() >= pauseAt {
			return simulation.Break
		}
		return simulation.Continue
	})
	log.Printf("cmd/coalescence: paused after %d steps at or before t=%.6f", steps, pauseAt)

	if snapshotPath == "" {
		return fmt.Errorf("cmd/coalescence: pause_before is set but -snapshot was not provided")
	}

	survivors := make([]lineage.Lineage, 0, sim.Store.Len())
	for _, ref := range sim.Store.All() {
		survivors = append(survivors, sim.Store.Get(ref))
	}

	snap := &config.Snapshot{
		RNGState:  rngSnapshot(sim),
		FinalTime: pauseAt,
		Survivors: survivors,
	}
	return config.WriteSnapshot(snapshotPath, snap)
}

func rngSnapshot(sim *simulation.Simulation) rng.SplittableSnapshot {
	if s, ok := sim.RNG.(*rng.SplittableStream); ok {
		return s.Snapshot()
	}
	return rng.SplittableSnapshot{}
}

// loggingReporter forwards every report to the wrapped Reporter and also
// appends speciation/dispersal events to the run's event log.
type loggingReporter struct {
	reporter.Reporter
	log *eventlog.Writer
}

func (l *loggingReporter) ReportSpeciation(evt event.PackedEvent) {
	l.Reporter.ReportSpeciation(evt)
	if err := l.log.Write(evt); err != nil {
		log.Println("eventlog: write failed:", err)
	}
}

func (l *loggingReporter) ReportDispersal(evt event.PackedEvent) {
	l.Reporter.ReportDispersal(evt)
	if err := l.log.Write(evt); err != nil {
		log.Println("eventlog: write failed:", err)
	}
}

// dashboardReporter forwards every report to the wrapped Reporter and,
// on every progress tick, pushes a fresh occupancy snapshot to the
// dashboard's non-blocking update channel.
type dashboardReporter struct {
	reporter.Reporter
	habitat habitat.Habitat
	store   lineage.LocallyCoherentStore
	out     chan<- cell_views.Snapshot
}

func (d *dashboardReporter) ReportProgress(sample reporter.ProgressSample) {
	d.Reporter.ReportProgress(sample)
	select {
	case d.out <- cell_views.Snapshot{Habitat: d.habitat, Store: d.store}:
	default:
	}
}
