// Package reporter implements the Reporter cog: three independent opt-in
// channels for speciation events, dispersal events, and progress snapshots
// (spec §2, §6).
package reporter

import "github.com/nsamarasinghe/coalescence/event"

// ProgressSample is one progress report: the local active-lineage count
// plus the running migration balance, reported at the top of every engine
// loop iteration (spec §4.1 step 1), including the last one that finds
// nothing left to do.
type ProgressSample struct {
	Steps            uint64
	ActiveLineages   uint64
	MigrationBalance int64
}

// Reporter is the engine-facing sink. Any of the three methods may be a
// no-op for a reporter that has opted out of that channel — the engine
// always calls all three, the reporter decides what to keep.
type Reporter interface {
	ReportSpeciation(evt event.PackedEvent)
	ReportDispersal(evt event.PackedEvent)
	ReportProgress(sample ProgressSample)
}

// NopReporter discards every report; useful for benchmarks and tests that
// don't care about output.
type NopReporter struct{}

func (NopReporter) ReportSpeciation(event.PackedEvent) {}
func (NopReporter) ReportDispersal(event.PackedEvent)  {}
func (NopReporter) ReportProgress(ProgressSample)      {}

// InMemoryReporter accumulates every report in memory; the simulation and
// cmd/coalescence tests read it back, and cmd/coalescence wraps it as a
// run's innermost reporter.
type InMemoryReporter struct {
	Speciations []event.PackedEvent
	Dispersals  []event.PackedEvent
	Progress    []ProgressSample
}

func NewInMemoryReporter() *InMemoryReporter { return &InMemoryReporter{} }

func (r *InMemoryReporter) ReportSpeciation(evt event.PackedEvent) {
	r.Speciations = append(r.Speciations, evt)
}

func (r *InMemoryReporter) ReportDispersal(evt event.PackedEvent) {
	r.Dispersals = append(r.Dispersals, evt)
}

func (r *InMemoryReporter) ReportProgress(sample ProgressSample) {
	r.Progress = append(r.Progress, sample)
}
