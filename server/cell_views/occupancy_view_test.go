package cell_views

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGetRGBFill(t *testing.T) {
	Convey("Given the fixed [0,1] occupancy gradient", t, func() {
		Convey("an empty deme is all blue", func() {
			So(getRGBFill(0.0, 0.0, 1.0), ShouldEqual, "rgb(0%,0%,100%)")
		})

		Convey("a full deme is all red", func() {
			So(getRGBFill(1.0, 0.0, 1.0), ShouldEqual, "rgb(100%,0%,0%)")
		})

		Convey("a half-occupied deme is an even split", func() {
			So(getRGBFill(0.5, 0.0, 1.0), ShouldEqual, "rgb(50%,0%,50%)")
		})
	})
}

func TestMinMaxFour(t *testing.T) {
	Convey("Given four values", t, func() {
		So(minFour(3, 1, 4, 1), ShouldEqual, 1)
		So(maxFour(3, 1, 4, 1), ShouldEqual, 4)
	})
}

func TestAvg(t *testing.T) {
	Convey("avg averages its arguments", t, func() {
		So(avg(1, 2, 3, 4), ShouldEqual, 2.5)
	})
}

func TestMakeOccupancyPolygon(t *testing.T) {
	Convey("Given four adjacent flat cells", t, func() {
		a := Cell{X: 0, Y: 0, Height: 0}
		b := Cell{X: 0, Y: 1, Height: 0}
		c := Cell{X: 1, Y: 1, Height: 0}
		d := Cell{X: 1, Y: 0, Height: 0}

		Convey("the polygon's bounding box is centered at the origin", func() {
			p := makeOccupancyPolygon("poly", a, b, c, d)
			So(p.Id, ShouldEqual, "poly")
			So(p.MinX(), ShouldBeLessThanOrEqualTo, 0)
			So(p.MaxX(), ShouldBeGreaterThanOrEqualTo, 0)
		})

		Convey("getPolyPoints renders the same polygon as a points string", func() {
			So(getPolyPoints(a, b, c, d), ShouldEqual, makeOccupancyPolygon("", a, b, c, d).String())
		})
	})
}
