package independent

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nsamarasinghe/coalescence/demography"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

func TestActiveLineageSamplerOrdering(t *testing.T) {
	Convey("Given three lineages scheduled at different explicit times", t, func() {
		h, _ := habitat.NewInMemoryHabitat(1, 1, []uint64{3})
		turnover := demography.NewUniformTurnoverRate(numeric.MustPositiveF64(1.0))
		als := NewActiveLineageSampler(h, turnover, FixedEventTimeSampler{})

		r := rng.NewPrimeableStream(1)
		il := habitat.IndexedLocation{Location: habitat.Location{X: 0, Y: 0}, Index: 0}
		als.Schedule(lineage.Ref(1), il, numeric.MustNonNegativeF64(0.1), r)
		// Fixed steps at rate 1 land these at t=1, t=3 and t=2.
		als.Schedule(lineage.Ref(2), il, numeric.MustNonNegativeF64(2.9), r)
		als.Schedule(lineage.Ref(3), il, numeric.MustNonNegativeF64(1.5), r)

		Convey("NextEvent pops in non-decreasing event-time order", func() {
			So(als.Len(), ShouldEqual, 3)
			var last float64
			for i := 0; i < 3; i++ {
				_, t, ok := als.NextEvent()
				So(ok, ShouldBeTrue)
				So(t.Get(), ShouldBeGreaterThanOrEqualTo, last)
				last = t.Get()
			}
			_, _, ok := als.NextEvent()
			So(ok, ShouldBeFalse)
		})

		Convey("Remove excludes a lineage from subsequent NextEvent calls", func() {
			als.Remove(lineage.Ref(2))
			So(als.Len(), ShouldEqual, 2)
			for i := 0; i < 2; i++ {
				ref, _, ok := als.NextEvent()
				So(ok, ShouldBeTrue)
				So(ref, ShouldNotEqual, lineage.Ref(2))
			}
		})
	})
}
