package rng

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSplittableStreamDeterminism(t *testing.T) {
	Convey("Given two SplittableStreams from the same seed", t, func() {
		a := NewSplittableStream(42)
		b := NewSplittableStream(42)

		Convey("they draw identical sequences", func() {
			for i := 0; i < 100; i++ {
				So(a.Uniform(), ShouldEqual, b.Uniform())
			}
		})

		Convey("splitting both in lockstep reproduces identical children", func() {
			ca := a.Split().(*SplittableStream)
			cb := b.Split().(*SplittableStream)
			for i := 0; i < 100; i++ {
				So(ca.Uniform(), ShouldEqual, cb.Uniform())
			}
		})
	})

	Convey("Given a SplittableStream snapshot", t, func() {
		s := NewSplittableStream(7)
		snap := s.Snapshot()
		first := s.Uniform()
		second := s.Uniform()

		Convey("restoring it replays the same draws", func() {
			s.Restore(snap)
			So(s.Uniform(), ShouldEqual, first)
			So(s.Uniform(), ShouldEqual, second)
		})
	})
}

func TestPrimeableStreamDeterminism(t *testing.T) {
	Convey("Given two PrimeableStreams with the same base seed", t, func() {
		a := NewPrimeableStream(99)
		b := NewPrimeableStream(99)

		Convey("priming both from the same (key,timeStep) reproduces the same draw", func() {
			a.Prime(123, 7)
			b.Prime(123, 7)
			So(a.Uniform(), ShouldEqual, b.Uniform())
		})

		Convey("different time steps for the same key diverge", func() {
			a.Prime(123, 7)
			b.Prime(123, 8)
			x, y := a.Uniform(), b.Uniform()
			So(x, ShouldNotEqual, y)
		})
	})
}

func TestUniformIndexBounds(t *testing.T) {
	Convey("Given a stream drawing UniformIndex(n)", t, func() {
		s := NewSplittableStream(1)
		Convey("every draw stays within [0,n)", func() {
			for i := 0; i < 1000; i++ {
				v := s.UniformIndex(7)
				So(v, ShouldBeLessThan, uint64(7))
			}
		})
	})
}
