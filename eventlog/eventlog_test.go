package eventlog

import (
	"testing"

	"github.com/nsamarasinghe/coalescence/event"
	"github.com/nsamarasinghe/coalescence/lineage"
	"github.com/nsamarasinghe/coalescence/numeric"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	want := []event.PackedEvent{
		{Global: lineage.GlobalReference(1), EventTime: numeric.MustPositiveF64(1.5), Kind: event.Speciation},
		{Global: lineage.GlobalReference(2), EventTime: numeric.MustPositiveF64(2.5), Kind: event.Dispersal, Coalesced: true, Parent: lineage.GlobalReference(1)},
	}
	for _, evt := range want {
		if err := w.Write(evt); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(dir, 0)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	var got []event.PackedEvent
	for {
		evt, ok, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, evt)
	}

	if len(got) != len(want) {
		t.Fatalf("read %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Global != want[i].Global || got[i].Kind != want[i].Kind {
			t.Fatalf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
