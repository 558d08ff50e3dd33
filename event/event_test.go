package event

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nsamarasinghe/coalescence/coalescence"
	"github.com/nsamarasinghe/coalescence/demography"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

// selfOnlyDispersal always disperses back to the origin, isolating the
// speciation/coalescence decision from dispersal-target randomness.
type selfOnlyDispersal struct{}

func (selfOnlyDispersal) SampleDispersalFromLocation(from habitat.Location, r rng.Stream) habitat.Location {
	return from
}

func TestEventSamplerSpeciation(t *testing.T) {
	Convey("Given ν=1 at every cell, every local event is a speciation", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{2})
		store := lineage.NewArenaStore()
		loc := habitat.Location{X: 0, Y: 0}
		self := store.Insert(lineage.Lineage{GlobalRef: 1, IndexedLocation: habitat.IndexedLocation{Location: loc, Index: 0}})

		sampler := NewSampler(
			demography.NewUniformSpeciationProbability(numeric.MustClosedUnitF64(1.0)),
			selfOnlyDispersal{},
			coalescence.NewUnconditionalSampler(h, store),
			store,
			nil,
		)

		r := rng.NewSplittableStream(1)
		eventTime := numeric.MustPositiveF64(1.0)
		outcome := sampler.Commit(self, eventTime, lineage.PreferLocal, r)

		So(outcome.Removed, ShouldBeTrue)
		So(outcome.Event.Kind, ShouldEqual, Speciation)
		So(outcome.Event.EventTime, ShouldResemble, eventTime)
		So(store.Len(), ShouldEqual, 0)
	})
}

func TestEventSamplerDispersalNone(t *testing.T) {
	Convey("Given ν=0 and an empty capacity-2 cell, dispersal never speciates or emigrates", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{2})
		store := lineage.NewArenaStore()
		loc := habitat.Location{X: 0, Y: 0}
		self := store.Insert(lineage.Lineage{GlobalRef: 1, IndexedLocation: habitat.IndexedLocation{Location: loc, Index: 0}})

		sampler := NewSampler(
			demography.NewUniformSpeciationProbability(numeric.MustClosedUnitF64(0.0)),
			selfOnlyDispersal{},
			coalescence.NewUnconditionalSampler(h, store),
			store,
			nil,
		)

		r := rng.NewSplittableStream(2)
		eventTime := numeric.MustPositiveF64(1.0)
		outcome := sampler.Commit(self, eventTime, lineage.PreferLocal, r)

		So(outcome.Event.Kind, ShouldEqual, Dispersal)
		So(outcome.Event.Emigrated, ShouldBeFalse)

		if outcome.Event.Coalesced {
			So(outcome.Removed, ShouldBeTrue)
			So(store.Len(), ShouldEqual, 0)
		} else {
			So(outcome.Removed, ShouldBeFalse)
			So(store.Len(), ShouldEqual, 1)
			updated := store.Get(self)
			So(updated.IndexedLocation.Location, ShouldResemble, loc)
			So(updated.LastEventTime.Get(), ShouldEqual, eventTime.Get())
		}
	})
}

func TestEventSamplerEmigration(t *testing.T) {
	Convey("Given an exit that always accepts, dispersal removes self as an emigration", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{2})
		store := lineage.NewArenaStore()
		loc := habitat.Location{X: 0, Y: 0}
		self := store.Insert(lineage.Lineage{GlobalRef: 1, IndexedLocation: habitat.IndexedLocation{Location: loc, Index: 0}})

		sampler := NewSampler(
			demography.NewUniformSpeciationProbability(numeric.MustClosedUnitF64(0.0)),
			selfOnlyDispersal{},
			coalescence.NewUnconditionalSampler(h, store),
			store,
			alwaysEmigrates{},
		)

		r := rng.NewSplittableStream(3)
		eventTime := numeric.MustPositiveF64(1.0)
		outcome := sampler.Commit(self, eventTime, lineage.PreferLocal, r)

		So(outcome.Removed, ShouldBeTrue)
		So(outcome.Event.Kind, ShouldEqual, Dispersal)
		So(outcome.Event.Emigrated, ShouldBeTrue)
		So(store.Len(), ShouldEqual, 0)
	})
}

type alwaysEmigrates struct{}

func (alwaysEmigrates) TryEmigrate(lineage.Lineage, habitat.Location, numeric.PositiveF64, lineage.TieBreaker, uint64) bool {
	return true
}
