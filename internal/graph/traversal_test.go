package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/nodalmind/memoria/internal/graph"
	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

type fakeStore struct {
	memories  map[string]types.Memory
	relations []types.MemoryRelation
}

func (f *fakeStore) Get(_ context.Context, id string) (*types.Memory, error) {
	m, ok := f.memories[id]
	if !ok {
		return nil, errNotFound
	}
	return &m, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "not found" }

func (f *fakeStore) Relations(_ context.Context, memoryID string, relationType string) ([]types.MemoryRelation, error) {
	var out []types.MemoryRelation
	for _, r := range f.relations {
		if r.FromMemoryID == memoryID && (relationType == "" || string(r.RelationType) == relationType) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Incoming(_ context.Context, memoryID string, relationType string) ([]types.MemoryRelation, error) {
	var out []types.MemoryRelation
	for _, r := range f.relations {
		if r.ToMemoryID == memoryID && (relationType == "" || string(r.RelationType) == relationType) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Children(_ context.Context, parentID string) ([]types.Memory, error) {
	var out []types.Memory
	for _, m := range f.memories {
		if m.ParentID == parentID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) DegreeAnalysis(_ context.Context, userContext, id string) (int, int, map[string]int, error) {
	histogram := map[string]int{}
	var in, out int
	for _, r := range f.relations {
		if r.FromMemoryID == id {
			out++
			histogram[string(r.RelationType)]++
		}
		if r.ToMemoryID == id {
			in++
			histogram[string(r.RelationType)]++
		}
	}
	return in, out, histogram, nil
}

func (f *fakeStore) TopConnectors(_ context.Context, userContext string, limit int) ([]store.ConnectorStat, error) {
	return nil, nil
}

func newChainStore() *fakeStore {
	mk := func(id string) types.Memory {
		return types.Memory{ID: id, UserContext: "default", Type: types.TypeFact}
	}
	return &fakeStore{
		memories: map[string]types.Memory{
			"a": mk("a"), "b": mk("b"), "c": mk("c"), "d": mk("d"),
		},
		relations: []types.MemoryRelation{
			{ID: "r1", FromMemoryID: "a", ToMemoryID: "b", RelationType: types.RelRelatesTo},
			{ID: "r2", FromMemoryID: "b", ToMemoryID: "c", RelationType: types.RelRelatesTo},
			{ID: "r3", FromMemoryID: "c", ToMemoryID: "d", RelationType: types.RelRelatesTo},
		},
	}
}

func TestTraverseBFSNonDecreasingDepth(t *testing.T) {
	s := newChainStore()
	res, err := graph.Traverse(context.Background(), s, graph.Options{
		StartID: "a", UserContext: "default", Algorithm: graph.AlgorithmBFS,
		MaxDepth: 5, MaxNodes: 100, Timeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Nodes) != 4 {
		t.Fatalf("expected 4 nodes reached, got %d", len(res.Nodes))
	}
	lastDepth := -1
	for _, n := range res.Nodes {
		if n.Depth < lastDepth {
			t.Errorf("expected non-decreasing depth, got %d after %d", n.Depth, lastDepth)
		}
		lastDepth = n.Depth
	}
}

func TestTraverseRespectsMaxDepth(t *testing.T) {
	s := newChainStore()
	res, err := graph.Traverse(context.Background(), s, graph.Options{
		StartID: "a", UserContext: "default", Algorithm: graph.AlgorithmBFS,
		MaxDepth: 1, MaxNodes: 100, Timeout: time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Nodes) != 2 {
		t.Fatalf("expected 2 nodes within depth 1, got %d", len(res.Nodes))
	}
}

func TestTraverseMissingStartYieldsEmptyNotError(t *testing.T) {
	s := newChainStore()
	res, err := graph.Traverse(context.Background(), s, graph.Options{
		StartID: "missing", UserContext: "default", Algorithm: graph.AlgorithmBFS,
	})
	if err != nil {
		t.Fatalf("expected no error for missing start, got %v", err)
	}
	if len(res.Nodes) != 0 {
		t.Errorf("expected empty result for missing start, got %d nodes", len(res.Nodes))
	}
}

func TestAnalyzeComputesDegrees(t *testing.T) {
	s := newChainStore()
	a, err := graph.Analyze(context.Background(), s, "default", "b")
	if err != nil {
		t.Fatal(err)
	}
	if a.InDegree != 1 || a.OutDegree != 1 {
		t.Errorf("expected in=1 out=1, got in=%d out=%d", a.InDegree, a.OutDegree)
	}
	if a.TotalConnections != 2 {
		t.Errorf("expected totalConnections 2, got %d", a.TotalConnections)
	}
}
