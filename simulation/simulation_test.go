package simulation

import (
	"testing"

	"github.com/nsamarasinghe/coalescence/coalescence"
	"github.com/nsamarasinghe/coalescence/demography"
	"github.com/nsamarasinghe/coalescence/dispersal"
	"github.com/nsamarasinghe/coalescence/event"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/migration"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/reporter"
	"github.com/nsamarasinghe/coalescence/rng"
	"github.com/nsamarasinghe/coalescence/scheduler/gillespie"

	. "github.com/smartystreets/goconvey/convey"
)

// buildGillespieSimulation wires a small monolithic, single-partition
// scenario: a 2x2 uniform habitat, capacity 2 per cell, pure speciation
// probability high enough that the run terminates quickly.
func buildGillespieSimulation(seed uint64, nu float64) (*Simulation, *reporter.InMemoryReporter) {
	capacity := []uint64{2, 2, 2, 2}
	h, err := habitat.NewInMemoryHabitat(2, 2, capacity)
	if err != nil {
		panic(err)
	}

	d := make([]float64, 16)
	for from := 0; from < 4; from++ {
		for to := 0; to < 4; to++ {
			d[from*4+to] = 0.25
		}
	}
	disperser, err := dispersal.NewCumulativeSampler(h, 2, 2, d)
	if err != nil {
		panic(err)
	}

	turnover := demography.NewUniformTurnoverRate(numeric.MustPositiveF64(1.0))
	speciation := demography.NewUniformSpeciationProbability(numeric.MustClosedUnitF64(nu))

	store := lineage.NewArenaStore()
	for _, loc := range []habitat.Location{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}} {
		for i := 0; i < 2; i++ {
			store.Insert(lineage.Lineage{
				IndexedLocation: habitat.IndexedLocation{Location: loc, Index: uint64(i)},
			})
		}
	}

	coalescer := coalescence.NewUnconditionalSampler(h, store)
	exit := migration.NeverEmigrates{}
	sampler := event.NewSampler(speciation, disperser, coalescer, store, exit)

	scheduler := gillespie.NewActiveLineageSampler(turnover)
	scheduler.Populate(store)

	r := rng.NewSplittableStream(seed)
	rep := reporter.NewInMemoryReporter()
	balance := &migration.Balance{}

	sim := New(scheduler, store, sampler, migration.EmptyImmigrationEntry{}, balance, r, rep)
	return sim, rep
}

func TestSimulateTerminatesUnderPureSpeciation(t *testing.T) {
	Convey("Given 8 lineages with speciation probability 1", t, func() {
		sim, rep := buildGillespieSimulation(1, 1.0)

		Convey("Simulate runs every lineage to speciation and stops", func() {
			_, steps := sim.Simulate()

			So(steps, ShouldEqual, uint64(8))
			So(sim.Scheduler.Len(), ShouldEqual, 0)
			So(len(rep.Speciations), ShouldEqual, 8)
			So(len(rep.Dispersals), ShouldEqual, 0)
			// One progress report per loop iteration: the 8 committing steps
			// plus the final iteration that finds nothing left and returns.
			So(len(rep.Progress), ShouldEqual, 9)
		})
	})
}

func TestSimulateMixedDispersalAndSpeciation(t *testing.T) {
	Convey("Given a low speciation probability", t, func() {
		sim, rep := buildGillespieSimulation(42, 0.05)

		Convey("Simulate still terminates, coalescing or speciating every lineage", func() {
			_, steps := sim.Simulate()

			So(steps, ShouldBeGreaterThan, 0)
			So(sim.Scheduler.Len(), ShouldEqual, 0)

			total := len(rep.Speciations)
			for _, d := range rep.Dispersals {
				if d.Coalesced {
					total++
				}
			}
			So(total, ShouldEqual, 8)
		})
	})
}

func TestSimulateIncrementalEarlyStopHonoursPredicate(t *testing.T) {
	Convey("Given a predicate that breaks after the first step", t, func() {
		sim, rep := buildGillespieSimulation(7, 1.0)

		stopped := false
		predicate := func(steps uint64, _ numeric.PositiveF64) Decision {
			if !stopped {
				stopped = true
				return Break
			}
			return Continue
		}

		Convey("SimulateIncrementalEarlyStop returns immediately without committing any event", func() {
			_, steps := sim.SimulateIncrementalEarlyStop(predicate)

			So(steps, ShouldEqual, uint64(0))
			So(sim.Scheduler.Len(), ShouldEqual, 8)
			So(len(rep.Speciations), ShouldEqual, 0)
		})

		Convey("resuming with Simulate runs to completion as if never interrupted", func() {
			sim.SimulateIncrementalEarlyStop(predicate)
			_, steps := sim.Simulate()

			So(steps, ShouldEqual, uint64(8))
			So(len(rep.Speciations), ShouldEqual, 8)
		})
	})
}
