package cell_views

import (
	"testing"

	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConvert(t *testing.T) {
	Convey("Given a 2x2 habitat with one dead cell and a store with occupants", t, func() {
		h, err := habitat.NewInMemoryHabitat(2, 2, []uint64{2, 0, 1, 1})
		So(err, ShouldBeNil)

		store := lineage.NewArenaStore()
		store.Insert(lineage.Lineage{GlobalRef: 0, IndexedLocation: habitat.IndexedLocation{Location: habitat.Location{X: 0, Y: 0}, Index: 0}})
		store.Insert(lineage.Lineage{GlobalRef: 1, IndexedLocation: habitat.IndexedLocation{Location: habitat.Location{X: 0, Y: 0}, Index: 1}})

		snap := Snapshot{Habitat: h, Store: store}

		Convey("Convert fills every cell and flips the y axis for svg's top-left origin", func() {
			cells := Convert(snap)
			So(len(cells), ShouldEqual, 2)
			So(len(cells[0]), ShouldEqual, 2)

			// (0,0) has capacity 2 and both occupants, so it fully occupies the
			// cell; row 0 lands at flipped index height-0-1 == 1.
			full := cells[0][1]
			So(full.Active, ShouldEqual, 2)
			So(full.Capacity, ShouldEqual, 2)
			So(full.Height, ShouldEqual, 1.0)
			So(full.Fill, ShouldEqual, "lightgray")

			// (1,0) is dead (capacity 0) and flips to index 1 too, in column 1.
			dead := cells[1][1]
			So(dead.Capacity, ShouldEqual, 0)
			So(dead.Height, ShouldEqual, 0.0)
			So(dead.Fill, ShouldEqual, "lightgreen")
		})
	})
}

func TestGetFill(t *testing.T) {
	Convey("A dead cell is lightgreen and a habitable cell is lightgray", t, func() {
		So(getFill(0), ShouldEqual, "lightgreen")
		So(getFill(5), ShouldEqual, "lightgray")
	})
}
