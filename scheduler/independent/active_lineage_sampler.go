package independent

import (
	"container/heap"

	"github.com/nsamarasinghe/coalescence/demography"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/rng"
)

// pending is one lineage's scheduled next event.
type pending struct {
	ref  lineage.Ref
	time numeric.PositiveF64
	heapIndex int
}

// pendingHeap is a container/heap min-heap ordered by event time, the
// priority queue an Independent-family engine pops from to pick which
// lineage advances next (unlike Gillespie, there is no pooled rate: every
// lineage already knows its own next event time).
type pendingHeap []*pending

func (h pendingHeap) Len() int { return len(h) }
func (h pendingHeap) Less(i, j int) bool { return h[i].time.Less(h[j].time) }
func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex, h[j].heapIndex = i, j
}
func (h *pendingHeap) Push(x any) {
	p := x.(*pending)
	p.heapIndex = len(*h)
	*h = append(*h, p)
}
func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return p
}

// ActiveLineageSampler is the Independent-family scheduler.
type ActiveLineageSampler struct {
	heap        pendingHeap
	byRef       map[lineage.Ref]*pending
	habitat     habitat.Habitat
	turnover    demography.TurnoverRate
	eventTimeOf EventTimeSampler
}

func NewActiveLineageSampler(h habitat.Habitat, turnover demography.TurnoverRate, ets EventTimeSampler) *ActiveLineageSampler {
	return &ActiveLineageSampler{
		byRef:       make(map[lineage.Ref]*pending),
		habitat:     h,
		turnover:    turnover,
		eventTimeOf: ets,
	}
}

func (a *ActiveLineageSampler) Len() int { return len(a.heap) }

// Populate schedules every lineage currently in store, priming r per
// lineage as EventTimeSampler requires.
func (a *ActiveLineageSampler) Populate(store lineage.Store, r rng.Primeable) {
	for _, ref := range store.All() {
		l := store.Get(ref)
		a.Schedule(ref, l.IndexedLocation, l.LastEventTime, r)
	}
}

// Schedule computes ref's next event time weakly after lastEventTime and
// pushes it onto the priority queue.
func (a *ActiveLineageSampler) Schedule(ref lineage.Ref, il habitat.IndexedLocation, lastEventTime numeric.NonNegativeF64, r rng.Primeable) {
	t := a.eventTimeOf.NextEventTimeWeaklyAfter(il, lastEventTime, a.habitat, r, a.turnover)
	p := &pending{ref: ref, time: t}
	heap.Push(&a.heap, p)
	a.byRef[ref] = p
}

// Remove drops ref from the schedule (speciation, coalescence, emigration).
func (a *ActiveLineageSampler) Remove(ref lineage.Ref) {
	p, ok := a.byRef[ref]
	if !ok {
		return
	}
	heap.Remove(&a.heap, p.heapIndex)
	delete(a.byRef, ref)
}

// NextEvent pops the earliest-scheduled lineage and its event time. The
// caller must either Remove it or re-Schedule it after committing the
// event.
func (a *ActiveLineageSampler) NextEvent() (lineage.Ref, numeric.PositiveF64, bool) {
	if len(a.heap) == 0 {
		return 0, numeric.PositiveF64{}, false
	}
	p := heap.Pop(&a.heap).(*pending)
	delete(a.byRef, p.ref)
	return p.ref, p.time, true
}

// PeekNextEventTime reports the earliest currently-scheduled event time
// without consuming it. Every lineage's event time was already drawn (and
// its RNG primed and consumed) back when it was Scheduled, so — unlike the
// Gillespie family — this never touches r; it is accepted only to satisfy
// the simulation package's unifying Scheduler interface.
func (a *ActiveLineageSampler) PeekNextEventTime(rng.Stream) (numeric.PositiveF64, bool) {
	if len(a.heap) == 0 {
		return numeric.PositiveF64{}, false
	}
	return a.heap[0].time, true
}

// PopNextEvent is NextEvent under the Scheduler interface's signature.
func (a *ActiveLineageSampler) PopNextEvent(rng.Stream) (lineage.Ref, numeric.PositiveF64, bool) {
	return a.NextEvent()
}

// Reschedule re-primes and re-schedules ref at its new location. r must be
// the same rng.Primeable stream this sampler was constructed against — the
// simulation engine never mixes RNG families within one partition.
func (a *ActiveLineageSampler) Reschedule(ref lineage.Ref, il habitat.IndexedLocation, lastEventTime numeric.NonNegativeF64, r rng.Stream) {
	primeable, ok := r.(rng.Primeable)
	if !ok {
		panic("independent: Reschedule called with a non-Primeable RNG stream")
	}
	a.Schedule(ref, il, lastEventTime, primeable)
}
