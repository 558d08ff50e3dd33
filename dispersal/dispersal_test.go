package dispersal

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/rng"
)

func uniformHabitat(t *testing.T, w, h uint32, cap uint64) habitat.Habitat {
	capacities := make([]uint64, w*h)
	for i := range capacities {
		capacities[i] = cap
	}
	ha, err := habitat.NewInMemoryHabitat(w, h, capacities)
	if err != nil {
		t.Fatal(err)
	}
	return ha
}

// uniformMatrix builds a 2x2 dispersal matrix where every cell disperses
// uniformly across all four cells.
func uniformMatrix() []float64 {
	row := []float64{0.25, 0.25, 0.25, 0.25}
	m := make([]float64, 0, 16)
	for i := 0; i < 4; i++ {
		m = append(m, row...)
	}
	return m
}

func TestCumulativeSampler(t *testing.T) {
	Convey("Given a uniform 2x2 habitat and dispersal kernel", t, func() {
		h := uniformHabitat(t, 2, 2, 1)
		s, err := NewCumulativeSampler(h, 2, 2, uniformMatrix())
		So(err, ShouldBeNil)

		Convey("empirical sampling frequencies match the kernel within tolerance", func() {
			r := rng.NewSplittableStream(1)
			counts := map[habitat.Location]int{}
			const trials = 200000
			for i := 0; i < trials; i++ {
				to := s.SampleDispersalFromLocation(habitat.Location{0, 0}, r)
				counts[to]++
			}
			So(len(counts), ShouldEqual, 4)
			for _, c := range counts {
				frac := float64(c) / float64(trials)
				So(frac, ShouldAlmostEqual, 0.25, 0.02)
			}
		})
	})

	Convey("Given a row that targets a zero-habitat cell with positive weight", t, func() {
		capacities := []uint64{1, 0, 1, 1}
		h, _ := habitat.NewInMemoryHabitat(2, 2, capacities)
		row := []float64{0.25, 0.25, 0.25, 0.25}
		m := make([]float64, 0, 16)
		for i := 0; i < 4; i++ {
			m = append(m, row...)
		}
		Convey("construction fails validation", func() {
			_, err := NewCumulativeSampler(h, 2, 2, m)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestAliasSampler(t *testing.T) {
	Convey("Given a uniform 2x2 habitat and dispersal kernel", t, func() {
		h := uniformHabitat(t, 2, 2, 1)
		s, err := NewAliasSampler(h, 2, 2, uniformMatrix())
		So(err, ShouldBeNil)

		Convey("empirical sampling frequencies match the kernel within tolerance", func() {
			r := rng.NewSplittableStream(2)
			counts := map[habitat.Location]int{}
			const trials = 200000
			for i := 0; i < trials; i++ {
				to := s.SampleDispersalFromLocation(habitat.Location{0, 0}, r)
				counts[to]++
			}
			for _, c := range counts {
				frac := float64(c) / float64(trials)
				So(frac, ShouldAlmostEqual, 0.25, 0.02)
			}
		})

		Convey("self-dispersal probability matches the kernel's diagonal entry", func() {
			p := s.SelfDispersalProbabilityAt(habitat.Location{0, 0})
			So(p.Get(), ShouldAlmostEqual, 0.25, 1e-9)
		})

		Convey("non-self dispersal never returns the origin", func() {
			r := rng.NewSplittableStream(3)
			for i := 0; i < 1000; i++ {
				to := s.SampleNonSelfDispersalFromLocation(habitat.Location{0, 0}, r)
				So(to, ShouldNotResemble, habitat.Location{0, 0})
			}
		})
	})
}
