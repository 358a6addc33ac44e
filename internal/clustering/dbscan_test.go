package clustering

import "testing"

func vec(vals ...float32) []float32 { return vals }

func TestDBSCANFindsTwoClustersAndNoise(t *testing.T) {
	points := []Point{
		{ID: "a1", Embedding: vec(1, 0, 0, 0)},
		{ID: "a2", Embedding: vec(0.98, 0.02, 0, 0)},
		{ID: "a3", Embedding: vec(0.97, 0.03, 0.01, 0)},
		{ID: "b1", Embedding: vec(0, 1, 0, 0)},
		{ID: "b2", Embedding: vec(0.02, 0.98, 0, 0)},
		{ID: "b3", Embedding: vec(0.01, 0.97, 0.02, 0)},
		{ID: "noise", Embedding: vec(0, 0, 0, 1)},
	}

	clusters := DBSCAN(points, DefaultParams())
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d: %v", len(clusters), clusters)
	}

	assigned := map[string]bool{}
	for _, members := range clusters {
		if len(members) != 3 {
			t.Errorf("expected cluster size 3, got %d", len(members))
		}
		for _, id := range members {
			assigned[id] = true
		}
	}
	if assigned["noise"] {
		t.Error("expected noise point to remain unassigned")
	}
}

func TestDBSCANRespectsMinClusterSize(t *testing.T) {
	points := []Point{
		{ID: "a1", Embedding: vec(1, 0)},
		{ID: "a2", Embedding: vec(0.99, 0.01)},
	}
	clusters := DBSCAN(points, Params{Epsilon: 0.3, MinPoints: 2, MinClusterSize: 3})
	if len(clusters) != 0 {
		t.Errorf("expected no clusters below MinClusterSize, got %v", clusters)
	}
}

func TestIncrementalAssignsOnlyNewPoints(t *testing.T) {
	existing := []Point{
		{ID: "a1", Embedding: vec(1, 0, 0)},
		{ID: "a2", Embedding: vec(0.98, 0.02, 0)},
	}
	newPoints := []Point{
		{ID: "a3", Embedding: vec(0.97, 0.03, 0.01)},
	}
	assignment := Incremental(existing, nil, newPoints, DefaultParams())
	if _, ok := assignment["a3"]; !ok {
		t.Fatal("expected a3 to be assigned a cluster")
	}
	if _, ok := assignment["a1"]; ok {
		t.Error("expected Incremental to return only new points' assignments")
	}
}
