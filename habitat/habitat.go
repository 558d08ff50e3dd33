package habitat

import (
	"fmt"

	"github.com/nsamarasinghe/coalescence/numeric"
)

// Habitat is the fixed-landscape cog. It is immutable after construction
// and shared by reference across the clones made for parallel partitions.
type Habitat interface {
	// CapacityAt returns the deme size of loc; habitable cells have
	// capacity >= 1, dead cells have capacity 0.
	CapacityAt(loc Location) uint64
	// IsHabitable reports whether CapacityAt(loc) > 0.
	IsHabitable(loc Location) bool
	// TotalHabitat returns the sum of all capacities, as an OffByOneU64
	// since a finite habitat always has at least one individual's worth
	// of capacity to be worth simulating.
	TotalHabitat() numeric.OffByOneU64
	// Bounds returns the half-open extent of the grid: width and height.
	Bounds() (width, height uint32)
	// InjectiveIndex maps a habitable IndexedLocation to a u64 injectively
	// over all habitable indexed locations. Used to key per-lineage RNG
	// priming in the Independent scheduler.
	InjectiveIndex(il IndexedLocation) uint64
}

// InMemoryHabitat is a dense row-major capacity grid, the concrete Habitat
// implementation backing both algorithm families.
type InMemoryHabitat struct {
	width, height uint32
	capacity      []uint64 // row-major, len == width*height
	// offset[i] is the cumulative capacity of all cells before cell i in
	// row-major order; used to make InjectiveIndex a true injection
	// without requiring capacity to be uniform.
	offset []uint64
	total  uint64
}

// NewInMemoryHabitat builds a habitat from a row-major capacity matrix.
// capacity[y*width+x] is the deme size at (x,y). Every entry must be >= 0;
// the habitat must contain at least one habitable (capacity >= 1) cell.
func NewInMemoryHabitat(width, height uint32, capacity []uint64) (*InMemoryHabitat, error) {
	if uint64(width)*uint64(height) != uint64(len(capacity)) {
		return nil, fmt.Errorf("habitat: capacity matrix has %d entries, want %d*%d=%d",
			len(capacity), width, height, uint64(width)*uint64(height))
	}

	offset := make([]uint64, len(capacity))
	var total uint64
	for i, c := range capacity {
		offset[i] = total
		total += c
	}
	if total == 0 {
		return nil, fmt.Errorf("habitat: landscape has no habitable cells (total capacity 0)")
	}

	h := &InMemoryHabitat{
		width:    width,
		height:   height,
		capacity: capacity,
		offset:   offset,
		total:    total,
	}
	return h, nil
}

func (h *InMemoryHabitat) index(loc Location) (int, bool) {
	if loc.X >= h.width || loc.Y >= h.height {
		return 0, false
	}
	return int(loc.Y)*int(h.width) + int(loc.X), true
}

func (h *InMemoryHabitat) CapacityAt(loc Location) uint64 {
	i, ok := h.index(loc)
	if !ok {
		return 0
	}
	return h.capacity[i]
}

func (h *InMemoryHabitat) IsHabitable(loc Location) bool {
	return h.CapacityAt(loc) > 0
}

func (h *InMemoryHabitat) TotalHabitat() numeric.OffByOneU64 {
	v, err := numeric.NewOffByOneU64(h.total)
	if err != nil {
		// total == 0 is rejected at construction, so this is unreachable.
		panic(err)
	}
	return v
}

func (h *InMemoryHabitat) Bounds() (uint32, uint32) { return h.width, h.height }

func (h *InMemoryHabitat) InjectiveIndex(il IndexedLocation) uint64 {
	i, ok := h.index(il.Location)
	if !ok {
		panic(fmt.Sprintf("habitat: InjectiveIndex called on out-of-bounds location %s", il.Location))
	}
	return h.offset[i] + il.Index
}
