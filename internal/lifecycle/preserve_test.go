package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/nodalmind/memoria/internal/lifecycle"
	"github.com/nodalmind/memoria/pkg/types"
)

type fakeUpdateStore struct {
	memories map[string]*types.Memory
}

func (f *fakeUpdateStore) Get(_ context.Context, id string) (*types.Memory, error) {
	return f.memories[id], nil
}

func (f *fakeUpdateStore) Update(_ context.Context, m *types.Memory) error {
	f.memories[m.ID] = m
	return nil
}

func TestPreserveMemorySetsFloorAndTag(t *testing.T) {
	store := &fakeUpdateStore{memories: map[string]*types.Memory{
		"m1": {ID: "m1", DecayScore: 0.2, State: types.StateDormant, Tags: []string{"fact"}},
	}}

	now := time.Now()
	m, err := lifecycle.PreserveMemory(context.Background(), store, "m1", nil, now)
	if err != nil {
		t.Fatal(err)
	}
	if m.DecayScore != 1.0 {
		t.Errorf("expected decay_score 1.0, got %f", m.DecayScore)
	}
	if m.State != types.StateActive {
		t.Errorf("expected state active, got %q", m.State)
	}
	if !hasTagHelper(m.Tags, "preserved") {
		t.Errorf("expected preserved tag to be appended, got %v", m.Tags)
	}
}

func TestPreserveMemoryWritesPreservedUntil(t *testing.T) {
	store := &fakeUpdateStore{memories: map[string]*types.Memory{
		"m1": {ID: "m1", Tags: []string{"preserved"}},
	}}

	now := time.Now()
	// RFC3339 serialization drops sub-second precision.
	until := now.Add(24 * time.Hour).Truncate(time.Second)
	m, err := lifecycle.PreserveMemory(context.Background(), store, "m1", &until, now)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := m.Metadata["preservedUntil"].(string)
	if !ok {
		t.Fatal("expected preservedUntil to be set in metadata")
	}
	parsed, err := time.Parse(time.RFC3339, got)
	if err != nil {
		t.Fatal(err)
	}
	if !parsed.Equal(until.UTC()) {
		t.Errorf("expected preservedUntil %v, got %v", until.UTC(), parsed)
	}
	count := 0
	for _, tag := range m.Tags {
		if tag == "preserved" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected preserved tag not duplicated, got %v", m.Tags)
	}
}

func hasTagHelper(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
