package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nsamarasinghe/coalescence/config"
	"github.com/nsamarasinghe/coalescence/event"
	"github.com/nsamarasinghe/coalescence/eventlog"
	"github.com/nsamarasinghe/coalescence/habitat"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/migration"
	"github.com/nsamarasinghe/coalescence/partition/threads"
	"github.com/nsamarasinghe/coalescence/reporter"
	"github.com/nsamarasinghe/coalescence/rng"
	"github.com/nsamarasinghe/coalescence/scenario"
	"github.com/nsamarasinghe/coalescence/server"
	"github.com/nsamarasinghe/coalescence/server/cell_views"
	"github.com/nsamarasinghe/coalescence/simulation"
)

const defaultMigrationInterval = 64

// rowBands splits a landscape's [0,height) rows into n contiguous,
// near-equal bands, the decomposition runThreaded partitions across ranks
// (spec §5: partitioning splits the landscape, not the population, so every
// lineage always has exactly one owning rank).
func rowBands(height uint32, n int) [][2]uint32 {
	bands := make([][2]uint32, n)
	base, rem := height/uint32(n), height%uint32(n)
	var y uint32
	for i := 0; i < n; i++ {
		size := base
		if uint32(i) < rem {
			size++
		}
		bands[i] = [2]uint32{y, y + size}
		y += size
	}
	return bands
}

func bandOf(bands [][2]uint32, y uint32) int {
	for i, b := range bands {
		if y >= b[0] && y < b[1] {
			return i
		}
	}
	return len(bands) - 1
}

// populateBand fills every habitable cell whose row falls in [yStart,yEnd)
// to capacity, continuing GlobalReference numbering from *next so every
// rank's lineages carry a process-wide unique reference (spec §9).
func populateBand(h habitat.Habitat, yStart, yEnd uint32, next *lineage.GlobalReference) *lineage.ArenaStore {
	store := lineage.NewArenaStore()
	width, _ := h.Bounds()
	for y := yStart; y < yEnd; y++ {
		for x := uint32(0); x < width; x++ {
			loc := habitat.Location{X: x, Y: y}
			capacity := h.CapacityAt(loc)
			for i := uint64(0); i < capacity; i++ {
				store.Insert(lineage.Lineage{
					GlobalRef:       *next,
					IndexedLocation: habitat.IndexedLocation{Location: loc, Index: i},
				})
				*next++
			}
		}
	}
	return store
}

// multiStore adapts a set of disjoint per-band LocallyCoherentStores to the
// single whole-landscape store the dashboard's cell_views.Convert expects.
// Bands never overlap, so AtLocation/CountAtLocation only ever find a
// nonzero answer from the one band that owns loc.
type multiStore struct {
	stores []lineage.LocallyCoherentStore
}

func (m multiStore) Coherence() lineage.Coherence { return lineage.LocallyCoherent }

func (m multiStore) Get(ref lineage.Ref) lineage.Lineage {
	panic("multiStore: Refs are only meaningful within their owning band's store")
}
func (m multiStore) Set(lineage.Ref, lineage.Lineage)          { panic("multiStore: read-only") }
func (m multiStore) Move(lineage.Ref, habitat.IndexedLocation) { panic("multiStore: read-only") }
func (m multiStore) Insert(lineage.Lineage) lineage.Ref        { panic("multiStore: read-only") }
func (m multiStore) Remove(lineage.Ref)                        { panic("multiStore: read-only") }

func (m multiStore) Len() int {
	n := 0
	for _, s := range m.stores {
		n += s.Len()
	}
	return n
}

func (m multiStore) All() []lineage.Ref {
	var all []lineage.Ref
	for _, s := range m.stores {
		all = append(all, s.All()...)
	}
	return all
}

func (m multiStore) AtLocation(loc habitat.Location) []lineage.Ref {
	for _, s := range m.stores {
		if refs := s.AtLocation(loc); len(refs) > 0 {
			return refs
		}
	}
	return nil
}

func (m multiStore) CountAtLocation(loc habitat.Location) int {
	n := 0
	for _, s := range m.stores {
		n += s.CountAtLocation(loc)
	}
	return n
}

// runThreadedCLI is run()'s entry point for threads partitioning with more
// than one partition: it builds one Simulation per row band, wires them
// through partition/threads, and drives them to completion. Pausing and
// resuming a threaded run is not implemented (see DESIGN.md); use
// monolithic partitioning for pause/resume workflows.
func runThreadedCLI(ctx context.Context, cfg *config.Config, built *scenario.Built, dashboard bool, addr, eventlogDir string) int {
	if cfg.PauseBefore != nil || cfg.ResumeAfter != "" {
		fmt.Println("cmd/coalescence: threads partitioning does not support pause_before/resume_after; use monolithic partitioning")
		return exitConfigError
	}

	n := cfg.Partitioning.Partitions
	_, height := built.Habitat.Bounds()
	if uint32(n) > height {
		fmt.Printf("cmd/coalescence: threads partitioning requested %d partitions but the landscape only has %d rows\n", n, height)
		return exitConfigError
	}
	bands := rowBands(height, n)

	channels := make([][]chan lineage.MigratingLineage, n)
	for i := range channels {
		channels[i] = make([]chan lineage.MigratingLineage, n)
		for j := range channels[i] {
			if i != j {
				channels[i][j] = make(chan lineage.MigratingLineage, 64)
			}
		}
	}

	stores := make([]*lineage.ArenaStore, n)
	coherentStores := make([]lineage.LocallyCoherentStore, n)
	var next lineage.GlobalReference
	for i, b := range bands {
		stores[i] = populateBand(built.Habitat, b[0], b[1], &next)
		coherentStores[i] = stores[i]
	}

	threadsCfg := threads.Config{
		Partitions:        n,
		MigrationInterval: uint64(cfg.Partitioning.MigrationInterval),
		PanicInterval:     time.Duration(cfg.Partitioning.PanicIntervalMillis) * time.Millisecond,
	}
	if threadsCfg.MigrationInterval == 0 {
		threadsCfg.MigrationInterval = defaultMigrationInterval
	}
	parts := threads.Partitions(threadsCfg)

	logWriters := make([]*eventlog.Writer, 0, n)
	closeLogs := func() {
		for _, w := range logWriters {
			w.Close()
		}
	}

	var snapshots chan cell_views.Snapshot
	var srv *server.Server
	if dashboard {
		snapshots = make(chan cell_views.Snapshot, 1)
		initial := cell_views.Snapshot{Habitat: built.Habitat, Store: multiStore{stores: coherentStores}}
		var err error
		srv, err = server.NewServer(ctx, addr, initial, snapshots)
		if err != nil {
			fmt.Println(err)
			closeLogs()
			return exitRuntimeError
		}
		go func() {
			if err := srv.Serve(); err != nil {
				log.Println("dashboard server exited:", err)
			}
		}()
	}

	sims := make([]*simulation.Simulation, n)
	for rank := 0; rank < n; rank++ {
		rank, store := rank, stores[rank]

		locate := func(target habitat.Location) (chan<- lineage.MigratingLineage, bool) {
			dest := bandOf(bands, target.Y)
			if dest == rank {
				return nil, false
			}
			return channels[rank][dest], true
		}
		exit := migration.ChannelEmigrationExit{Locate: locate}

		sources := make([]<-chan lineage.MigratingLineage, 0, n-1)
		for j := 0; j < n; j++ {
			if j != rank {
				sources = append(sources, channels[j][rank])
			}
		}
		entry := migration.NewChannelImmigrationEntry(sources)

		scheduler, sep, err := buildScheduler(cfg, built, store, cfg.Scenario.Seed+uint64(rank)+1)
		if err != nil {
			fmt.Println(err)
			closeLogs()
			return exitScenarioError
		}

		coalescer := buildCoalescer(cfg, built, store)
		sampler := event.NewSampler(built.Speciation, built.Dispersal, coalescer, store, exit)
		if sep != nil {
			sampler.WithEventSkipping(sep)
		}
		balance := &migration.Balance{}
		r := rng.NewSplittableStream(cfg.Scenario.Seed + uint64(rank) + 1)

		var rep reporter.Reporter = reporter.NewInMemoryReporter()
		if eventlogDir != "" {
			w, err := eventlog.Open(eventlogDir, rank)
			if err != nil {
				fmt.Println(err)
				closeLogs()
				return exitRuntimeError
			}
			logWriters = append(logWriters, w)
			rep = &loggingReporter{Reporter: rep, log: w}
		}
		if dashboard {
			rep = &dashboardReporter{Reporter: rep, habitat: built.Habitat, store: multiStore{stores: coherentStores}, out: snapshots}
		}

		sims[rank] = simulation.New(scheduler, store, sampler, entry, balance, r, rep)
	}

	err := threads.Run(ctx, threadsCfg, sims, parts, nil)
	closeLogs()
	if err != nil {
		fmt.Println(err)
		return exitRuntimeError
	}
	return exitOK
}
