package lineage

import (
	"sort"

	"github.com/nsamarasinghe/coalescence/habitat"
)

// slot is one arena entry. Removed slots are recycled via freeList, so a
// Ref kept past its Remove can silently alias a lineage inserted later —
// a per-slot generation would be needed to detect stale-handle reuse
// across Remove/Insert, but this store's only caller (the
// simulation engine) never retains a Ref past its own Remove call, so a
// bare free-list is sufficient and matches the arena's job: O(1)
// insert/remove with no pointer chasing.
type slot struct {
	lineage Lineage
	live    bool
}

// ArenaStore is a GloballyCoherentStore: a slice arena of lineages plus a
// location index for O(1) AtLocation lookups across the whole landscape.
type ArenaStore struct {
	slots      []slot
	freeList   []Ref
	byLoc      map[habitat.Location]map[Ref]struct{}
	byIndexLoc map[habitat.IndexedLocation]Ref
}

// NewArenaStore creates an empty store.
func NewArenaStore() *ArenaStore {
	return &ArenaStore{
		byLoc:      make(map[habitat.Location]map[Ref]struct{}),
		byIndexLoc: make(map[habitat.IndexedLocation]Ref),
	}
}

// AtIndexedLocation reports the lineage, if any, currently holding il. This
// is the lookup the independent/unconditional CoalescenceSampler needs to
// decide whether a dispersal target's index is already occupied.
func (a *ArenaStore) AtIndexedLocation(il habitat.IndexedLocation) (Ref, bool) {
	ref, ok := a.byIndexLoc[il]
	return ref, ok
}

func (a *ArenaStore) Coherence() Coherence { return GloballyCoherent }

func (a *ArenaStore) Get(ref Ref) Lineage {
	s := a.slots[ref]
	if !s.live {
		panic("lineage: Get called on a removed Ref")
	}
	return s.lineage
}

func (a *ArenaStore) Set(ref Ref, l Lineage) {
	if !a.slots[ref].live {
		panic("lineage: Set called on a removed Ref")
	}
	a.slots[ref].lineage = l
}

func (a *ArenaStore) Move(ref Ref, to habitat.IndexedLocation) {
	s := &a.slots[ref]
	if !s.live {
		panic("lineage: Move called on a removed Ref")
	}
	a.unindex(s.lineage.IndexedLocation, ref)
	s.lineage.IndexedLocation = to
	a.index(to, ref)
}

func (a *ArenaStore) Insert(l Lineage) Ref {
	var ref Ref
	if n := len(a.freeList); n > 0 {
		ref = a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.slots[ref] = slot{lineage: l, live: true}
	} else {
		ref = Ref(len(a.slots))
		a.slots = append(a.slots, slot{lineage: l, live: true})
	}
	a.index(l.IndexedLocation, ref)
	return ref
}

func (a *ArenaStore) Remove(ref Ref) {
	s := &a.slots[ref]
	if !s.live {
		panic("lineage: Remove called twice on the same Ref")
	}
	a.unindex(s.lineage.IndexedLocation, ref)
	s.live = false
	a.freeList = append(a.freeList, ref)
}

func (a *ArenaStore) Len() int {
	return len(a.slots) - len(a.freeList)
}

func (a *ArenaStore) All() []Ref {
	refs := make([]Ref, 0, a.Len())
	for i, s := range a.slots {
		if s.live {
			refs = append(refs, Ref(i))
		}
	}
	return refs
}

func (a *ArenaStore) AtLocation(loc habitat.Location) []Ref {
	set := a.byLoc[loc]
	refs := make([]Ref, 0, len(set))
	for r := range set {
		refs = append(refs, r)
	}
	// Map iteration order is random; sort so callers that pick a lineage by
	// position (the conditional coalescence sampler) are reproducible.
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}

func (a *ArenaStore) CountAtLocation(loc habitat.Location) int {
	return len(a.byLoc[loc])
}

func (a *ArenaStore) index(il habitat.IndexedLocation, ref Ref) {
	set, ok := a.byLoc[il.Location]
	if !ok {
		set = make(map[Ref]struct{})
		a.byLoc[il.Location] = set
	}
	set[ref] = struct{}{}
	a.byIndexLoc[il] = ref
}

func (a *ArenaStore) unindex(il habitat.IndexedLocation, ref Ref) {
	set := a.byLoc[il.Location]
	delete(set, ref)
	if len(set) == 0 {
		delete(a.byLoc, il.Location)
	}
	delete(a.byIndexLoc, il)
}
