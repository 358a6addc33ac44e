package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/nodalmind/memoria/internal/lifecycle"
	"github.com/nodalmind/memoria/pkg/types"
)

type fakeProcessorStore struct {
	due     []types.Memory
	updated []types.Memory
}

func (f *fakeProcessorStore) DegreeAnalysis(context.Context, string, string) (int, int, map[string]int, error) {
	return 0, 0, nil, nil
}

func (f *fakeProcessorStore) DueForDecay(_ context.Context, _ string, size int) ([]types.Memory, error) {
	return f.due, nil
}

func (f *fakeProcessorStore) Update(_ context.Context, m *types.Memory) error {
	f.updated = append(f.updated, *m)
	return nil
}

func TestProcessBatchTransitionsStaleMemories(t *testing.T) {
	now := time.Now()
	store := &fakeProcessorStore{
		due: []types.Memory{
			{
				ID: "fresh", ImportanceScore: 0.9, Confidence: 1.0,
				CreatedAt: now, AccessedAt: now, State: types.StateActive,
			},
			{
				ID: "stale", ImportanceScore: 0.01, Confidence: 0.1,
				CreatedAt: now.Add(-100000 * time.Hour), AccessedAt: now.Add(-100000 * time.Hour),
				State: types.StateActive,
			},
		},
	}

	mgr := lifecycle.NewManager(lifecycle.DefaultConfig(), store)
	result, err := mgr.ProcessBatch(context.Background(), store, "default", 10)
	if err != nil {
		t.Fatal(err)
	}
	if result.Processed != 2 {
		t.Errorf("expected 2 processed, got %d", result.Processed)
	}
	if len(store.updated) != 2 {
		t.Fatalf("expected both memories written back, got %d", len(store.updated))
	}
	byID := map[string]types.Memory{}
	for _, m := range store.updated {
		byID[m.ID] = m
	}
	fresh := byID["fresh"]
	if fresh.State != types.StateActive || fresh.DeletedAt != nil {
		t.Errorf("expected fresh memory to stay active, got state=%s deleted=%v", fresh.State, fresh.DeletedAt)
	}
	stale := byID["stale"]
	if stale.State != types.StateExpired {
		t.Errorf("expected stale memory to expire, got %s", stale.State)
	}
	if stale.DeletedAt == nil {
		t.Error("expected expiry to stamp deleted_at")
	}
}
