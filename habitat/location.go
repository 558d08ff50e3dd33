// Package habitat implements the fixed landscape cog: per-cell capacity
// (deme size), total habitat, and the injective indexing used to prime
// per-lineage RNGs.
package habitat

import "fmt"

// Location is a grid cell coordinate.
type Location struct {
	X, Y uint32
}

// IndexedLocation uniquely identifies an individual within its deme: a
// Location plus an index in [0, capacity(Location)).
type IndexedLocation struct {
	Location Location
	Index    uint64
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.X, l.Y)
}

func (il IndexedLocation) String() string {
	return fmt.Sprintf("%s#%d", il.Location, il.Index)
}
