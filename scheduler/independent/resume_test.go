package independent

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nsamarasinghe/coalescence/event"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

func neverOccupied(habitat.IndexedLocation) bool { return false }

func TestClassify(t *testing.T) {
	Convey("Given a 1x1 landscape of capacity 2", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{2})

		Convey("a lineage at a dead cell is OutOfHabitat", func() {
			l := lineage.Lineage{IndexedLocation: habitat.IndexedLocation{Location: habitat.Location{X: 5, Y: 5}, Index: 0}}
			ex, ok := Classify(l, h, neverOccupied)
			So(ok, ShouldBeFalse)
			So(ex.Kind, ShouldEqual, OutOfHabitat)
		})

		Convey("a lineage whose index exceeds capacity is OutOfDeme", func() {
			l := lineage.Lineage{IndexedLocation: habitat.IndexedLocation{Location: habitat.Location{X: 0, Y: 0}, Index: 9}}
			ex, ok := Classify(l, h, neverOccupied)
			So(ok, ShouldBeFalse)
			So(ex.Kind, ShouldEqual, OutOfDeme)
		})

		Convey("a lineage whose slot is already taken is Coalescence", func() {
			l := lineage.Lineage{IndexedLocation: habitat.IndexedLocation{Location: habitat.Location{X: 0, Y: 0}, Index: 0}}
			ex, ok := Classify(l, h, func(habitat.IndexedLocation) bool { return true })
			So(ok, ShouldBeFalse)
			So(ex.Kind, ShouldEqual, Coalescence)
		})

		Convey("a valid lineage classifies clean", func() {
			l := lineage.Lineage{IndexedLocation: habitat.IndexedLocation{Location: habitat.Location{X: 0, Y: 0}, Index: 1}}
			_, ok := Classify(l, h, neverOccupied)
			So(ok, ShouldBeTrue)
		})
	})
}

func TestFixUp(t *testing.T) {
	Convey("Given exceptional lineages of each kind and an all-abort strategy", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{2})
		strategy := RestartFixUpStrategy{OutOfHabitat: Abort, OutOfDeme: Abort, Coalescence: Abort}
		exceptional := []ExceptionalLineage{
			{Lineage: lineage.Lineage{GlobalRef: 1}, Kind: OutOfHabitat},
			{Lineage: lineage.Lineage{GlobalRef: 2}, Kind: OutOfDeme},
		}
		readmit, aborted, synthetic := FixUp(exceptional, strategy, h, rng.NewSplittableStream(1), neverOccupied, numeric.MustPositiveF64(10))
		So(readmit, ShouldBeEmpty)
		So(aborted, ShouldResemble, []lineage.GlobalReference{1, 2})
		So(synthetic, ShouldBeEmpty)
	})

	Convey("Given a relocate-uniform strategy, every exceptional lineage is readmitted at a free slot", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{4})
		strategy := RestartFixUpStrategy{OutOfHabitat: RelocateUniform, OutOfDeme: RelocateUniform, Coalescence: RelocateUniform}
		exceptional := []ExceptionalLineage{
			{Lineage: lineage.Lineage{GlobalRef: 1}, Kind: OutOfDeme},
		}
		readmit, aborted, synthetic := FixUp(exceptional, strategy, h, rng.NewSplittableStream(1), neverOccupied, numeric.MustPositiveF64(10))
		So(aborted, ShouldBeEmpty)
		So(readmit, ShouldHaveLength, 1)
		So(readmit[0].IndexedLocation.Location, ShouldResemble, habitat.Location{X: 0, Y: 0})

		So(synthetic, ShouldHaveLength, 1)
		So(synthetic[0].Kind, ShouldEqual, event.Dispersal)
		So(synthetic[0].Global, ShouldEqual, lineage.GlobalReference(1))
		So(synthetic[0].EventTime, ShouldResemble, numeric.MustPositiveF64(10))
		So(synthetic[0].Target, ShouldResemble, readmit[0].IndexedLocation.Location)
	})
}
