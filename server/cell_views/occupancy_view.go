package cell_views

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"sync"

	"github.com/nsamarasinghe/coalescence/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// OccupancyView renders the current habitat occupancy as a 2d isometric
// projection of the 3d surface (x,y,occupancy-ratio): how full each deme is
// relative to its capacity.
type OccupancyView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewOccupancyView(
	done <-chan struct{},
	cells <-chan [][]Cell,
) (ov *OccupancyView) {
	id := "occupancy"
	if strings.Contains(id, "-") {
		fmt.Println("WARNING: hyphenated ids interfere with html/template's `template` directive")
	}
	ov = &OccupancyView{id: template.HTMLEscapeString(id)}
	ov.updates = channerics.Convert(done, cells, ov.onUpdate)
	return
}

func (ov *OccupancyView) Updates() <-chan []fastview.EleUpdate {
	return ov.updates
}

var (
	width, height float64      // canvas size in pixels
	cellDim       float64 = 80 // Cell height/width size in pixels
	cells         float64      // number of grid cells
	xyscale       float64      // pixels per x or y unit
	zscale        float64      // pixels per z unit
	ang                     = math.Pi / 6
	setViewParams sync.Once = sync.Once{}
)

var sinAng, cosAng = math.Sin(ang), math.Cos(ang)

func setParams(cs [][]Cell) {
	cells = float64(len(cs))
	width = cells * cellDim
	height = float64(len(cs[0])) * cellDim
	zscale = cellDim * 0.8
	xyscale = cellDim
}

// project applies an isometric projection to the passed points.
func project(x, y, z float64) (float64, float64) {
	sx := (x - y) * cosAng * xyscale
	sy := (x+y)*sinAng*xyscale - z*zscale
	return sx, sy
}

// Cell-A is bottom left, Cell-B is top left, Cell-C is top right, and Cell-D is bottom right.
func getPolyPoints(
	cellA Cell,
	cellB Cell,
	cellC Cell,
	cellD Cell,
) string {
	return makeOccupancyPolygon("", cellA, cellB, cellC, cellD).String()
}

// makeOccupancyPolygon returns an svg polygon describing four adjacent
// cells, projected into 2d isometric space keyed on occupancy height.
func makeOccupancyPolygon(
	id string,
	cellA Cell,
	cellB Cell,
	cellC Cell,
	cellD Cell,
) (fp *occupancyPolygon) {
	fp = &occupancyPolygon{
		Id: id,
	}
	fp.ax, fp.ay = project(float64(cellA.X), float64(cellA.Y), cellA.Height)
	fp.bx, fp.by = project(float64(cellB.X), float64(cellB.Y), cellB.Height)
	fp.cx, fp.cy = project(float64(cellC.X), float64(cellC.Y), cellC.Height)
	fp.dx, fp.dy = project(float64(cellD.X), float64(cellD.Y), cellD.Height)
	return
}

type occupancyPolygon struct {
	Id     string
	ax, ay float64
	bx, by float64
	cx, cy float64
	dx, dy float64
}

// String returns a string suitable for the svg-polygon 'points' attribute.
func (fp *occupancyPolygon) String() string {
	return fmt.Sprintf("%d,%d %d,%d %d,%d %d,%d",
		int(fp.ax), int(fp.ay),
		int(fp.bx), int(fp.by),
		int(fp.cx), int(fp.cy),
		int(fp.dx), int(fp.dy),
	)
}

func minFour(f1, f2, f3, f4 float64) float64 {
	return math.Min(math.Min(f1, f2), math.Min(f3, f4))
}

func maxFour(f1, f2, f3, f4 float64) float64 {
	return math.Max(math.Max(f1, f2), math.Max(f3, f4))
}

func (fp *occupancyPolygon) MinX() float64 { return minFour(fp.ax, fp.bx, fp.cx, fp.dx) }
func (fp *occupancyPolygon) MinY() float64 { return minFour(fp.ay, fp.by, fp.cy, fp.dy) }
func (fp *occupancyPolygon) MaxX() float64 { return maxFour(fp.ax, fp.bx, fp.cx, fp.dx) }
func (fp *occupancyPolygon) MaxY() float64 { return maxFour(fp.ay, fp.by, fp.cy, fp.dy) }

func avg(f ...float64) float64 {
	n, sum := 0.0, 0.0
	for _, fn := range f {
		sum += fn
		n++
	}
	return sum / n
}

// onUpdate returns the set of view updates needed for the view to reflect
// the latest occupancy snapshot.
func (ov *OccupancyView) onUpdate(
	cells [][]Cell,
) (ops []fastview.EleUpdate) {
	setViewParams.Do(func() { setParams(cells) })

	// Occupancy ratios are already in [0,1], so the gradient extremes are
	// fixed rather than recomputed per-frame from the data.
	const minVal, maxVal = 0.0, 1.0

	xmin, ymin := math.MaxFloat64, math.MaxFloat64
	xmax, ymax := -math.MaxFloat64, -math.MaxFloat64
	for ri, row := range cells[:len(cells)-1] {
		for ci, cell := range row[:len(row)-1] {
			cellA := cells[ri+1][ci]
			cellB := cells[ri][ci]
			cellC := cells[ri][ci+1]
			cellD := cells[ri+1][ci+1]
			polygon := makeOccupancyPolygon(
				fmt.Sprintf("%d-%d-occupancy-polygon", cell.X, cell.Y),
				cellA, cellB, cellC, cellD,
			)

			xmin = math.Min(xmin, polygon.MinX())
			xmax = math.Max(xmax, polygon.MaxX())
			ymin = math.Min(ymin, polygon.MinY())
			ymax = math.Max(ymax, polygon.MaxY())

			avgVal := avg(cellA.Height, cellB.Height, cellC.Height, cellD.Height)
			fill := getRGBFill(avgVal, minVal, maxVal)

			ops = append(ops, fastview.EleUpdate{
				EleId: polygon.Id,
				Ops: []fastview.Op{
					{Key: "points", Value: polygon.String()},
					{Key: "fill", Value: fill},
				},
			})
		}
	}

	scaler := math.Min(
		math.Min(
			math.Abs(width/(xmax-xmin)),
			math.Abs(height/(ymax-ymin)),
		),
		1.0,
	)

	ops = append(ops, fastview.EleUpdate{
		EleId: ov.id + "-group",
		Ops: []fastview.Op{
			{
				Key:   "transform",
				Value: fmt.Sprintf("scale(%f) translate(%d %d)", scaler, int(-xmin), int(-ymin)),
			},
		},
	})

	return
}

// getRGBFill maps avgVal's position between minVal and maxVal onto a
// red/blue gradient: red for crowded demes, blue for sparse ones.
func getRGBFill(avgVal, minVal, maxVal float64) string {
	redPct := int(100.0 * (avgVal - minVal) / (maxVal - minVal))
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Parse returns an svg of polygons plotting the occupancy surface as a 2D
// isometric projection.
func (ov *OccupancyView) Parse(
	t *template.Template,
) (name string, err error) {
	name = ov.id
	addedMap := template.FuncMap{
		"getPolyPoints": getPolyPoints,
	}
	_, err = t.Funcs(addedMap).Parse(
		`{{ define "` + name + `" }}
		<div style="padding:40px;">
			{{ $x_cells := len . }}
			{{ $y_cells := len (index . 0) }}
			{{ $num_x_polys := sub $x_cells 1 }}
			{{ $num_y_polys := sub $y_cells 1 }}
			{{ $cell_width := ` + fmt.Sprintf("%d", int(cellDim)) + ` }}
			{{ $cell_height := $cell_width }}
			{{ $width := mult $cell_width $x_cells }}
			{{ $height := mult $cell_height $y_cells }}
			<svg id="` + ov.id + `" xmlns='http://www.w3.org/2000/svg'
				width="{{ mult $width 2 }}px"
				height="{{ mult $height 2 }}px"
				style="shape-rendering: crispEdges; stroke: lightgrey; stroke-opacity: 1.0; stroke-width: 3;">
				<g id="` + ov.id + "-group" + `" transform="translate(0 0)">
				{{ $cells := . }}
				{{ range $ri, $row := $cells }}
					{{ if lt $ri $num_x_polys }}
						{{ range $j, $unused := $row }}
							{{ $ci := sub (sub (len $row) $j) 1 }}
							{{ $cell := index $row $ci }}
							{{ if lt $ci $num_y_polys }}
								<polygon id="{{$cell.X}}-{{$cell.Y}}-occupancy-polygon"
									fill="black" fill-opacity="1.0"
									{{ $cell_a := index $cells (add $ri 1) $ci }}
									{{ $cell_b := index $cells $ri $ci }}
									{{ $cell_c := index $cells $ri (add $ci 1) }}
									{{ $cell_d := index $cells (add $ri 1) (add $ci 1) }}
									points="{{ getPolyPoints $cell_a $cell_b $cell_c $cell_d }}" />
							{{ end }}
						{{ end }}
					{{ end }}
				{{ end }}
				</g>
			</svg>
		</div>
		{{ end }}`)
	return
}
