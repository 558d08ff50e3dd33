package coalescence

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/rng"
)

func TestConditionalSampler(t *testing.T) {
	Convey("Given a capacity-4 cell with 2 occupants and a dispersing lineage", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{4})
		store := lineage.NewArenaStore()
		target := habitat.Location{X: 0, Y: 0}
		store.Insert(lineage.Lineage{GlobalRef: 1, IndexedLocation: habitat.IndexedLocation{Location: target, Index: 0}})
		store.Insert(lineage.Lineage{GlobalRef: 2, IndexedLocation: habitat.IndexedLocation{Location: target, Index: 1}})
		self := store.Insert(lineage.Lineage{GlobalRef: 3, IndexedLocation: habitat.IndexedLocation{Location: habitat.Location{X: 0, Y: 0}, Index: 2}})

		sampler := NewConditionalSampler(h, store)

		Convey("collision rate matches (n/capacity) within statistical tolerance", func() {
			r := rng.NewSplittableStream(5)
			collisions := 0
			const trials = 200000
			for i := 0; i < trials; i++ {
				_, outcome := sampler.Sample(target, self, r)
				if outcome.Interaction == Coalescence {
					collisions++
				}
			}
			frac := float64(collisions) / float64(trials)
			So(frac, ShouldAlmostEqual, 0.5, 0.02) // n=2, capacity=4
		})

		Convey("a non-colliding sample returns an index disjoint from the occupants", func() {
			r := rng.NewSplittableStream(6)
			for i := 0; i < 1000; i++ {
				il, outcome := sampler.Sample(target, self, r)
				if outcome.Interaction == None {
					So(il.Index, ShouldBeIn, uint64(2), uint64(3))
				}
			}
		})
	})
}

func TestUnconditionalSampler(t *testing.T) {
	Convey("Given a capacity-2 cell with one occupant", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{2})
		store := lineage.NewArenaStore()
		target := habitat.Location{X: 0, Y: 0}
		store.Insert(lineage.Lineage{GlobalRef: 1, IndexedLocation: habitat.IndexedLocation{Location: target, Index: 0}})

		sampler := NewUnconditionalSampler(h, store)

		Convey("sampling index 0 yields a Coalescence, sampling index 1 yields a Maybe", func() {
			r := rng.NewSplittableStream(9)
			sawCoalescence, sawMaybe := false, false
			for i := 0; i < 1000 && !(sawCoalescence && sawMaybe); i++ {
				_, outcome := sampler.Sample(target, lineage.Ref(99), r)
				switch outcome.Interaction {
				case Coalescence:
					sawCoalescence = true
				case Maybe:
					sawMaybe = true
				}
			}
			So(sawCoalescence, ShouldBeTrue)
			So(sawMaybe, ShouldBeTrue)
		})
	})

	Convey("SampleWithRNGSample is a deterministic function of the carried draw", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{2})
		store := lineage.NewArenaStore()
		target := habitat.Location{X: 0, Y: 0}
		store.Insert(lineage.Lineage{GlobalRef: 1, IndexedLocation: habitat.IndexedLocation{Location: target, Index: 0}})
		sampler := NewUnconditionalSampler(h, store)

		il1, o1 := sampler.SampleWithRNGSample(target, 42)
		il2, o2 := sampler.SampleWithRNGSample(target, 42)
		So(il1, ShouldResemble, il2)
		So(o1, ShouldResemble, o2)
	})
}

func TestSingletonSampler(t *testing.T) {
	Convey("A singleton-deme sampler always returns index 0 and Maybe", t, func() {
		s := NewSingletonSampler()
		r := rng.NewSplittableStream(1)
		target := habitat.Location{X: 3, Y: 3}
		il, outcome := s.Sample(target, lineage.Ref(0), r)
		So(il, ShouldResemble, habitat.IndexedLocation{Location: target, Index: 0})
		So(outcome.Interaction, ShouldEqual, Maybe)
	})
}
