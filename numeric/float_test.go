package numeric

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPositiveF64(t *testing.T) {
	Convey("Given PositiveF64's constructor", t, func() {
		Convey("NaN is always rejected", func() {
			_, err := NewPositiveF64(math.NaN())
			So(err, ShouldEqual, ErrNaN)
		})
		Convey("Zero and negative values are rejected", func() {
			_, err := NewPositiveF64(0)
			So(err, ShouldNotBeNil)
			_, err = NewPositiveF64(-1.5)
			So(err, ShouldNotBeNil)
		})
		Convey("Any strictly positive finite or infinite value succeeds", func() {
			for _, x := range []float64{1e-300, 1, 1e300, math.Inf(1)} {
				v, err := NewPositiveF64(x)
				So(err, ShouldBeNil)
				So(v.Get(), ShouldEqual, x)
			}
		})
	})
}

func TestMaxAfter(t *testing.T) {
	Convey("Given MaxAfter", t, func() {
		Convey("it returns the candidate when strictly greater than before", func() {
			v := MaxAfter(1.0, 2.0)
			So(v.Get(), ShouldEqual, 2.0)
		})
		Convey("it returns the next representable double when candidate does not exceed before", func() {
			v := MaxAfter(1.0, 1.0)
			So(v.Get(), ShouldBeGreaterThan, 1.0)
			So(v.Get(), ShouldEqual, math.Nextafter(1.0, math.Inf(1)))

			v = MaxAfter(5.0, 3.0)
			So(v.Get(), ShouldEqual, math.Nextafter(5.0, math.Inf(1)))
		})
		Convey("it saturates at +Inf when before is already infinite", func() {
			v := MaxAfter(math.Inf(1), 10.0)
			So(math.IsInf(v.Get(), 1), ShouldBeTrue)
		})
		Convey("it panics on a NaN before", func() {
			So(func() { MaxAfter(math.NaN(), 1.0) }, ShouldPanic)
		})
	})
}

func TestTotalOrder(t *testing.T) {
	Convey("Given two PositiveF64 values", t, func() {
		a := MustPositiveF64(1.0)
		b := MustPositiveF64(2.0)
		Convey("Less orders them consistently with <", func() {
			So(a.Less(b), ShouldBeTrue)
			So(b.Less(a), ShouldBeFalse)
		})
	})
}

func TestOffByOneU64(t *testing.T) {
	Convey("Given OffByOneU64", t, func() {
		Convey("it stores value-1 and recovers value", func() {
			v, err := NewOffByOneU64(1)
			So(err, ShouldBeNil)
			So(v.Stored(), ShouldEqual, uint64(0))
			So(v.Value(), ShouldEqual, uint64(1))
		})
		Convey("zero is rejected since capacity must be >= 1", func() {
			_, err := NewOffByOneU64(0)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestClosedUnitF64(t *testing.T) {
	Convey("Given ClosedUnitF64", t, func() {
		Convey("0 and 1 are both valid boundary values", func() {
			_, err := NewClosedUnitF64(0)
			So(err, ShouldBeNil)
			_, err = NewClosedUnitF64(1)
			So(err, ShouldBeNil)
		})
		Convey("values outside [0,1] are rejected", func() {
			_, err := NewClosedUnitF64(-0.01)
			So(err, ShouldNotBeNil)
			_, err = NewClosedUnitF64(1.01)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestOpenClosedUnitF64(t *testing.T) {
	Convey("Given OpenClosedUnitF64", t, func() {
		Convey("zero is rejected but one is valid", func() {
			_, err := NewOpenClosedUnitF64(0)
			So(err, ShouldNotBeNil)
			_, err = NewOpenClosedUnitF64(1)
			So(err, ShouldBeNil)
		})
	})
}
