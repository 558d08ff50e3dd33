package threads

import (
	"sync"
	"testing"

	"github.com/nsamarasinghe/coalescence/numeric"
	"github.com/nsamarasinghe/coalescence/partition"
)

func TestBarrierReleasesAllWaiters(t *testing.T) {
	const n = 8
	b := newBarrier(n)

	var wg sync.WaitGroup
	order := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Wait()
			order <- i
		}(i)
	}
	wg.Wait()
	close(order)

	count := 0
	for range order {
		count++
	}
	if count != n {
		t.Fatalf("got %d releases, want %d", count, n)
	}
}

func TestBarrierIsReusable(t *testing.T) {
	const n = 4
	b := newBarrier(n)

	for round := 0; round < 3; round++ {
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.Wait()
			}()
		}
		wg.Wait()
	}
}

func TestReduceVoteAnyAggregatesAcrossRanks(t *testing.T) {
	const n = 4
	parts := Partitions(Config{Partitions: n})

	votes := []bool{false, false, true, false}
	results := make([]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = parts[i].ReduceVoteAny(votes[i])
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if !r {
			t.Fatalf("rank %d got ReduceVoteAny=false, want true (rank 2 voted true)", i)
		}
	}
}

func TestReduceVoteAnyAllFalse(t *testing.T) {
	const n = 3
	parts := Partitions(Config{Partitions: n})
	results := make([]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = parts[i].ReduceVoteAny(false)
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r {
			t.Fatalf("rank %d got ReduceVoteAny=true, want false", i)
		}
		if parts[i].WaitForTermination() != partition.Break {
			t.Fatalf("rank %d WaitForTermination did not report Break", i)
		}
	}
}

func TestReduceVoteMinTimeFindsGlobalMinimum(t *testing.T) {
	const n = 3
	parts := Partitions(Config{Partitions: n})
	candidates := []float64{5.0, 1.5, 3.0}
	results := make([]numeric.PositiveF64, n)
	isMin := make([]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], isMin[i] = parts[i].ReduceVoteMinTime(numeric.MustPositiveF64(candidates[i]))
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		if r.Get() != 1.5 {
			t.Fatalf("rank %d global min = %v, want 1.5", i, r.Get())
		}
	}
	if !isMin[1] {
		t.Fatal("rank 1 (candidate 1.5) should have been the local minimum")
	}
	if isMin[0] || isMin[2] {
		t.Fatal("only rank 1 should report isLocalMinimum")
	}
}
