package contextwindow_test

import (
	"testing"
	"time"

	"github.com/nodalmind/memoria/internal/contextwindow"
)

func TestAddToWindowInsertsEntry(t *testing.T) {
	mgr := contextwindow.NewManager(5, 10000)
	now := time.Now()
	mgr.AddToWindow("alice", "m1", 100, 0.8, now)

	got := mgr.Snapshot("alice")
	if len(got) != 1 || got[0].MemoryID != "m1" {
		t.Fatalf("expected one entry m1, got %v", got)
	}
}

func TestAddToWindowEvictsLowestScoringWhenFull(t *testing.T) {
	mgr := contextwindow.NewManager(2, 100000)
	now := time.Now()
	mgr.AddToWindow("alice", "low", 10, 0.1, now)
	mgr.AddToWindow("alice", "high", 10, 0.9, now)
	mgr.AddToWindow("alice", "new", 10, 0.5, now)

	got := mgr.Snapshot("alice")
	if len(got) != 2 {
		t.Fatalf("expected window capped at 2 entries, got %d", len(got))
	}
	for _, e := range got {
		if e.MemoryID == "low" {
			t.Error("expected lowest-scoring entry to be evicted")
		}
	}
}

func TestAddToWindowCompressesOldestThirdNearTokenLimit(t *testing.T) {
	mgr := contextwindow.NewManager(100, 1000)
	now := time.Now()
	for i := 0; i < 9; i++ {
		mgr.AddToWindow("alice", string(rune('a'+i)), 100, 0.5, now)
	}
	before := mgr.TotalTokens("alice")

	mgr.AddToWindow("alice", "trigger", 200, 0.5, now)

	got := mgr.Snapshot("alice")
	compressedCount := 0
	for _, e := range got {
		if e.Compressed {
			compressedCount++
		}
	}
	if compressedCount == 0 {
		t.Error("expected oldest third to be compressed once near the token threshold")
	}
	if mgr.TotalTokens("alice") >= before+300 {
		t.Errorf("expected compression to reduce token growth, before=%d after=%d", before, mgr.TotalTokens("alice"))
	}
}

func TestRemoveFromWindow(t *testing.T) {
	mgr := contextwindow.NewManager(5, 10000)
	now := time.Now()
	mgr.AddToWindow("alice", "m1", 10, 0.5, now)

	if !mgr.RemoveFromWindow("alice", "m1") {
		t.Fatal("expected removal to succeed")
	}
	if len(mgr.Snapshot("alice")) != 0 {
		t.Error("expected window to be empty after removal")
	}
	if mgr.RemoveFromWindow("alice", "missing") {
		t.Error("expected removal of unknown id to report false")
	}
}

func TestRescoreDecaysStaleEntries(t *testing.T) {
	mgr := contextwindow.NewManager(5, 10000)
	now := time.Now()
	mgr.AddToWindow("alice", "stale", 10, 0.9, now.Add(-48*time.Hour))
	mgr.AddToWindow("alice", "fresh", 10, 0.9, now)

	mgr.Rescore(now)

	byID := map[string]float64{}
	for _, e := range mgr.Snapshot("alice") {
		byID[e.MemoryID] = e.Score
	}
	if byID["stale"] >= byID["fresh"] {
		t.Errorf("expected stale entry to score below fresh after rescore: stale=%f fresh=%f", byID["stale"], byID["fresh"])
	}
}

func TestWindowsAreIsolatedPerUser(t *testing.T) {
	mgr := contextwindow.NewManager(5, 10000)
	now := time.Now()
	mgr.AddToWindow("alice", "m1", 10, 0.5, now)

	if len(mgr.Snapshot("bob")) != 0 {
		t.Error("expected bob's window to be untouched by alice's inserts")
	}
}
