package clustering

import "testing"

func TestMergeSimilarClustersFoldsCloseCentroids(t *testing.T) {
	clusters := []Cluster{
		{ID: "1", Points: []Point{{ID: "a1", Embedding: vec(1, 0)}, {ID: "a2", Embedding: vec(0.99, 0.01)}}},
		{ID: "2", Points: []Point{{ID: "b1", Embedding: vec(0.98, 0.02)}, {ID: "b2", Embedding: vec(0.97, 0.03)}}},
		{ID: "3", Points: []Point{{ID: "c1", Embedding: vec(0, 1)}, {ID: "c2", Embedding: vec(0.01, 0.99)}}},
	}
	merged := MergeSimilarClusters(clusters)
	if len(merged) != 2 {
		t.Fatalf("expected 2 clusters after merge, got %d", len(merged))
	}
	var total int
	for _, c := range merged {
		total += len(c.Points)
	}
	if total != 6 {
		t.Errorf("expected all 6 points preserved across merge, got %d", total)
	}
}

func TestSplitLargeClustersLeavesSmallClustersAlone(t *testing.T) {
	small := Cluster{ID: "5", Points: []Point{
		{ID: "x1", Embedding: vec(1, 0)},
		{ID: "x2", Embedding: vec(0.99, 0.01)},
	}}
	out := SplitLargeClusters([]Cluster{small})
	if len(out) != 1 || out[0].ID != "5" {
		t.Fatalf("expected small cluster to pass through unchanged, got %+v", out)
	}
}

func TestSplitLargeClustersSplitsLowCoherenceOversizedCluster(t *testing.T) {
	var points []Point
	for i := 0; i < 60; i++ {
		points = append(points, Point{ID: idFor("a", i), Embedding: vec(1, 0, 0)})
	}
	for i := 0; i < 60; i++ {
		points = append(points, Point{ID: idFor("b", i), Embedding: vec(0, 1, 0)})
	}
	parent := Cluster{ID: "7", Points: points}

	out := SplitLargeClusters([]Cluster{parent})
	if len(out) < 2 {
		t.Fatalf("expected oversized low-coherence cluster to split, got %d sub-clusters", len(out))
	}
	for _, sc := range out {
		if sc.ID == "7" {
			continue
		}
		if len(sc.ID) < 2 {
			t.Errorf("expected derived sub-cluster id to encode parent, got %q", sc.ID)
		}
	}
}

func idFor(prefix string, i int) string {
	return prefix + string(rune('0'+i%10))
}
