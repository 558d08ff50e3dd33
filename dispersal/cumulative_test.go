package dispersal

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/nsamarasinghe/coalescence/habitat"
)

// zeroStream always draws 0.0, exercising the u == 0.0 edge of
// SampleDispersalFromLocation's binary search.
type zeroStream struct{}

func (zeroStream) Uniform() float64 { return 0.0 }

func (zeroStream) UniformIndex(n uint64) uint64 { return 0 }

func (zeroStream) Exponential(rate float64) float64 { return 0.0 }

func TestCumulativeSamplerZeroDrawSkipsZeroWeightFirstColumn(t *testing.T) {
	Convey("Given a row whose first column has zero weight", t, func() {
		h := uniformHabitat(t, 2, 2, 1)
		// from=(0,0) disperses to everything but itself: column 0 (self)
		// carries zero weight, columns 1-3 share the rest.
		row := []float64{0, 1.0 / 3, 1.0 / 3, 1.0 / 3}
		m := make([]float64, 0, 16)
		m = append(m, row...)
		for i := 0; i < 3; i++ {
			m = append(m, []float64{0.25, 0.25, 0.25, 0.25}...)
		}
		s, err := NewCumulativeSampler(h, 2, 2, m)
		So(err, ShouldBeNil)

		Convey("a draw of exactly 0.0 lands on the first positively-weighted column, not self", func() {
			to := s.SampleDispersalFromLocation(habitat.Location{X: 0, Y: 0}, zeroStream{})
			So(to, ShouldNotResemble, habitat.Location{X: 0, Y: 0})
		})
	})
}
