// Package loadtest measures list store latency under concurrent access.
//
// It seeds a store with generated lists, then runs concurrent readers and
// writers against any repository.Repository (usually the sync coordinator
// over a scratch SQLite file) and reports latency percentiles.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/helpmebuyapp/helpmebuy/internal/localstore"
	"github.com/helpmebuyapp/helpmebuy/internal/model"
	"github.com/helpmebuyapp/helpmebuy/internal/repository"
)

var (
	categories = []string{model.DefaultCategory, "Groceries", "Hardware", "Party", "Pharmacy"}
	itemNames  = model.Suggest("")
)

// LatencyStats captures per-operation latency.
type LatencyStats struct {
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Ops    int
	Errors int
}

// GenerateLists builds n lists with a deterministic mix of categories and
// items. Ids are left at zero so the store assigns them.
func GenerateLists(n int) []*localstore.GroceryList {
	rng := rand.New(rand.NewSource(42))
	lists := make([]*localstore.GroceryList, n)
	for i := range lists {
		items := make([]model.Item, rng.Intn(len(itemNames)+1))
		for j := range items {
			items[j] = model.Item{Name: itemNames[(i+j)%len(itemNames)], Quantity: 1 + rng.Intn(6)}
		}
		lists[i] = &localstore.GroceryList{
			Name:     fmt.Sprintf("List %d", i+1),
			Category: categories[i%len(categories)],
			Items:    items,
		}
	}
	return lists
}

// Seed inserts n generated lists into repo and returns their ids.
func Seed(ctx context.Context, repo repository.Repository, n int) ([]int, error) {
	ids := make([]int, 0, n)
	for _, l := range GenerateLists(n) {
		id, err := repo.Insert(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("failed to seed %q: %w", l.Name, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RunReaders starts readers goroutines that each perform reads lookups.
// Every fourth read is a full snapshot; the rest look up a random seeded id.
func RunReaders(ctx context.Context, repo repository.Repository, ids []int, readers, reads int) (*LatencyStats, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no ids to read")
	}

	return run(readers, func(worker int) ([]time.Duration, error) {
		rng := rand.New(rand.NewSource(int64(worker)))
		durations := make([]time.Duration, 0, reads)

		for j := 0; j < reads; j++ {
			start := time.Now()
			var err error
			if j%4 == 3 {
				_, err = repository.Snapshot(ctx, repo)
			} else {
				var e model.Entity
				e, err = repository.Lookup(ctx, repo, ids[rng.Intn(len(ids))])
				if err == nil && e == nil {
					err = fmt.Errorf("seeded list missing")
				}
			}
			durations = append(durations, time.Since(start))
			if err != nil {
				return durations, fmt.Errorf("reader %d read %d failed: %w", worker, j, err)
			}
		}
		return durations, nil
	})
}

// RunWriters starts writers goroutines that each insert and then rename
// writes lists.
func RunWriters(ctx context.Context, repo repository.Repository, writers, writes int) (*LatencyStats, error) {
	return run(writers, func(worker int) ([]time.Duration, error) {
		durations := make([]time.Duration, 0, writes)

		for j := 0; j < writes; j++ {
			l := &localstore.GroceryList{
				Name:     fmt.Sprintf("Writer %d list %d", worker, j),
				Category: categories[j%len(categories)],
				Items:    []model.Item{{Name: itemNames[j%len(itemNames)], Quantity: 1}},
			}

			start := time.Now()
			id, err := repo.Insert(ctx, l)
			if err == nil {
				l.ID = id
				l.Name += " (renamed)"
				err = repo.Update(ctx, l)
			}
			durations = append(durations, time.Since(start))
			if err != nil {
				return durations, fmt.Errorf("writer %d write %d failed: %w", worker, j, err)
			}
		}
		return durations, nil
	})
}

// run fans work out to n workers and aggregates their latencies. A worker
// that fails stops early and counts as one error.
func run(n int, work func(worker int) ([]time.Duration, error)) (*LatencyStats, error) {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		all   []time.Duration
		errs  int
		first error
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			durations, err := work(worker)

			mu.Lock()
			defer mu.Unlock()
			all = append(all, durations...)
			if err != nil {
				errs++
				if first == nil {
					first = err
				}
			}
		}(i)
	}
	wg.Wait()

	if len(all) == 0 {
		if first != nil {
			return nil, first
		}
		return nil, fmt.Errorf("no operations completed")
	}

	stats := computeLatencyStats(all)
	stats.Errors = errs
	return stats, nil
}

func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return &LatencyStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: sum / time.Duration(len(sorted)),
		P50:  sorted[len(sorted)*50/100],
		P95:  sorted[len(sorted)*95/100],
		P99:  sorted[len(sorted)*99/100],
		Ops:  len(sorted),
	}
}

// Fprint writes the statistics under a title.
func (s *LatencyStats) Fprint(w io.Writer, title string) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  Operations:   %d\n", s.Ops)
	fmt.Fprintf(w, "  Errors:       %d\n", s.Errors)
	fmt.Fprintf(w, "  Min:          %v\n", s.Min)
	fmt.Fprintf(w, "  P50 (Median): %v\n", s.P50)
	fmt.Fprintf(w, "  Mean:         %v\n", s.Mean)
	fmt.Fprintf(w, "  P95:          %v\n", s.P95)
	fmt.Fprintf(w, "  P99:          %v\n", s.P99)
	fmt.Fprintf(w, "  Max:          %v\n", s.Max)
}
