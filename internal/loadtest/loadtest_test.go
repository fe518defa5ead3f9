package loadtest

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/helpmebuyapp/helpmebuy/internal/localstore"
	"github.com/helpmebuyapp/helpmebuy/internal/memstore"
	hmbsync "github.com/helpmebuyapp/helpmebuy/internal/sync"
	"github.com/helpmebuyapp/helpmebuy/internal/task"
)

func openCoordinator(t *testing.T) (*hmbsync.Coordinator, *localstore.Store, *memstore.Store) {
	t.Helper()

	store, err := localstore.Open(filepath.Join(t.TempDir(), "load.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	mirror := memstore.New(memstore.WithUpsert())
	return hmbsync.New(store, mirror, hmbsync.WithLauncher(&task.Inline{})), store, mirror
}

func TestGenerateLists(t *testing.T) {
	a := GenerateLists(20)
	b := GenerateLists(20)

	if len(a) != 20 {
		t.Fatalf("GenerateLists() returned %d lists, want 20", len(a))
	}
	for i := range a {
		if a[i].Name != b[i].Name || len(a[i].Items) != len(b[i].Items) {
			t.Fatalf("list %d differs between runs", i)
		}
		if a[i].ID != 0 {
			t.Errorf("list %d has id %d, want 0", i, a[i].ID)
		}
		for _, it := range a[i].Items {
			if it.Quantity < 1 {
				t.Errorf("list %d item %q has quantity %d", i, it.Name, it.Quantity)
			}
		}
	}
}

func TestSeedAndRead(t *testing.T) {
	coord, store, mirror := openCoordinator(t)
	ctx := context.Background()

	ids, err := Seed(ctx, coord, 50)
	if err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	if len(ids) != 50 {
		t.Fatalf("Seed() returned %d ids, want 50", len(ids))
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 50 || mirror.Len() != 50 {
		t.Errorf("stores hold %d local and %d mirrored lists, want 50 each", count, mirror.Len())
	}

	stats, err := RunReaders(ctx, coord, ids, 8, 8)
	if err != nil {
		t.Fatalf("RunReaders() failed: %v", err)
	}
	if stats.Errors != 0 || stats.Ops != 64 {
		t.Errorf("stats = %+v, want 64 ops without errors", stats)
	}
	if stats.Mean > time.Second {
		t.Errorf("mean read latency %v is too high", stats.Mean)
	}
}

func TestRunWriters(t *testing.T) {
	coord, store, _ := openCoordinator(t)
	ctx := context.Background()

	stats, err := RunWriters(ctx, coord, 4, 5)
	if err != nil {
		t.Fatalf("RunWriters() failed: %v", err)
	}
	if stats.Errors != 0 || stats.Ops != 20 {
		t.Errorf("stats = %+v, want 20 ops without errors", stats)
	}

	lists, err := store.Lists(ctx)
	if err != nil {
		t.Fatalf("Lists() failed: %v", err)
	}
	if len(lists) != 20 {
		t.Fatalf("store holds %d lists, want 20", len(lists))
	}
	for _, l := range lists {
		if !strings.HasSuffix(l.Name, "(renamed)") {
			t.Errorf("list %d = %q, want the renamed version", l.ID, l.Name)
		}
	}
}

func TestRunReaders_NoIDs(t *testing.T) {
	coord, _, _ := openCoordinator(t)
	if _, err := RunReaders(context.Background(), coord, nil, 2, 2); err == nil {
		t.Error("RunReaders() with no ids succeeded")
	}
}

func TestComputeLatencyStats(t *testing.T) {
	durations := make([]time.Duration, 100)
	for i := range durations {
		durations[len(durations)-1-i] = time.Duration(i+1) * time.Millisecond
	}

	s := computeLatencyStats(durations)
	if s.Min != time.Millisecond || s.Max != 100*time.Millisecond {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if s.P50 != 51*time.Millisecond || s.P95 != 96*time.Millisecond || s.P99 != 100*time.Millisecond {
		t.Errorf("percentiles = %v/%v/%v", s.P50, s.P95, s.P99)
	}
	if s.Mean != 50500*time.Microsecond {
		t.Errorf("mean = %v, want 50.5ms", s.Mean)
	}

	var buf bytes.Buffer
	s.Fprint(&buf, "Reads")
	if !strings.HasPrefix(buf.String(), "Reads:\n  Operations:   100\n") {
		t.Errorf("Fprint() = %q", buf.String())
	}

	if empty := computeLatencyStats(nil); empty.Ops != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}
