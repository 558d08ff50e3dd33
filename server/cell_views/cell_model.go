// Package cell_views contains views derived from the Cell view-model: a
// per-habitat-cell snapshot of occupancy, oriented so [0][0] is the
// logical cell printed at the top-left in svg coordinates.
package cell_views

import (
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
)

// Cell is the occupancy view-model for one habitat cell: grid position,
// active-lineage count against deme capacity, and the fields the occupancy
// view renders directly (Height for the isometric projection, Fill for the
// dead/habitable color).
type Cell struct {
	X, Y     int
	Active   uint64
	Capacity uint64
	Height   float64 // Active/Capacity; drives both the projection height and the gradient fill
	Fill     string
}

// Snapshot bundles the fixed landscape with a point-in-time occupancy
// query, the DataModel the occupancy view's ViewBuilder is wired with.
type Snapshot struct {
	Habitat habitat.Habitat
	Store   lineage.LocallyCoherentStore
}

// Convert snapshots snap's capacity grid and current occupancy into a
// [][]Cell grid, flipping the y index for svg's top-left origin.
func Convert(snap Snapshot) (cells [][]Cell) {
	h, store := snap.Habitat, snap.Store
	width, height := h.Bounds()
	cells = make([][]Cell, width)
	for x := range cells {
		cells[x] = make([]Cell, height)
	}

	for x := uint32(0); x < width; x++ {
		for y := uint32(0); y < height; y++ {
			loc := habitat.Location{X: x, Y: y}
			capacity := h.CapacityAt(loc)
			active := uint64(store.CountAtLocation(loc))

			var ratio float64
			if capacity > 0 {
				ratio = float64(active) / float64(capacity)
			}

			flipped := height - y - 1
			cells[x][flipped] = Cell{
				X:        int(x),
				Y:        int(flipped),
				Active:   active,
				Capacity: capacity,
				Height:   ratio,
				Fill:     getFill(capacity),
			}
		}
	}
	return
}

func getFill(capacity uint64) string {
	if capacity == 0 {
		return "lightgreen"
	}
	return "lightgray"
}
