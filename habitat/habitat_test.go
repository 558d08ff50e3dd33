package habitat

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryHabitat(t *testing.T) {
	Convey("Given a 2x2 habitat with mixed capacities", t, func() {
		h, err := NewInMemoryHabitat(2, 2, []uint64{1, 0, 2, 3})
		So(err, ShouldBeNil)

		Convey("capacities and habitability are reported per-cell", func() {
			So(h.CapacityAt(Location{0, 0}), ShouldEqual, uint64(1))
			So(h.IsHabitable(Location{0, 0}), ShouldBeTrue)
			So(h.CapacityAt(Location{1, 0}), ShouldEqual, uint64(0))
			So(h.IsHabitable(Location{1, 0}), ShouldBeFalse)
		})

		Convey("out-of-bounds locations have zero capacity", func() {
			So(h.CapacityAt(Location{5, 5}), ShouldEqual, uint64(0))
		})

		Convey("total habitat sums every cell's capacity", func() {
			So(h.TotalHabitat().Value(), ShouldEqual, uint64(6))
		})

		Convey("InjectiveIndex is injective across every habitable indexed location", func() {
			seen := map[uint64]bool{}
			for y := uint32(0); y < 2; y++ {
				for x := uint32(0); x < 2; x++ {
					loc := Location{x, y}
					cap := h.CapacityAt(loc)
					for idx := uint64(0); idx < cap; idx++ {
						key := h.InjectiveIndex(IndexedLocation{loc, idx})
						So(seen[key], ShouldBeFalse)
						seen[key] = true
					}
				}
			}
			So(len(seen), ShouldEqual, 6)
		})
	})

	Convey("A fully dead landscape is rejected", t, func() {
		_, err := NewInMemoryHabitat(2, 2, []uint64{0, 0, 0, 0})
		So(err, ShouldNotBeNil)
	})

	Convey("A mismatched matrix size is rejected", t, func() {
		_, err := NewInMemoryHabitat(2, 2, []uint64{1, 1, 1})
		So(err, ShouldNotBeNil)
	})
}
