package clustering

import "github.com/nodalmind/memoria/internal/vectormath"

// MergeThreshold is the centroid cosine-similarity above which two clusters
// are folded into one (spec.md §4.7 mergeSimilarClusters default τ=0.8).
const MergeThreshold = 0.8

// MaxClusterSize and MinSplitCoherence gate splitLargeClusters (spec.md
// §4.7): clusters over MaxClusterSize whose coherence (mean pairwise cosine
// similarity, vectormath.Coherence) is below MinSplitCoherence are re-clustered with a tighter epsilon.
const (
	MaxClusterSize    = 100
	MinSplitCoherence = 0.5
)

// SplitEpsilon and SplitMinPoints are the tighter DBSCAN params used when
// splitting an oversized, low-coherence cluster.
const (
	SplitEpsilon   = 0.2
	SplitMinPoints = 3
)

// Cluster bundles a cluster's member points for maintenance operations.
type Cluster struct {
	ID     string
	Points []Point
}

func centroidOf(c Cluster) []float32 {
	embeddings := make([][]float32, len(c.Points))
	for i, p := range c.Points {
		embeddings[i] = p.Embedding
	}
	return vectormath.Centroid(embeddings)
}

// MergeSimilarClusters folds clusters whose centroids are within
// MergeThreshold cosine similarity of each other into the first cluster
// encountered, returning the reduced cluster set.
func MergeSimilarClusters(clusters []Cluster) []Cluster {
	merged := make([]bool, len(clusters))
	var out []Cluster

	for i := range clusters {
		if merged[i] {
			continue
		}
		base := clusters[i]
		baseCentroid := centroidOf(base)
		for j := i + 1; j < len(clusters); j++ {
			if merged[j] {
				continue
			}
			sim := vectormath.CosineSimilarity(baseCentroid, centroidOf(clusters[j]))
			if sim >= MergeThreshold {
				base.Points = append(base.Points, clusters[j].Points...)
				merged[j] = true
				baseCentroid = centroidOf(base)
			}
		}
		merged[i] = true
		out = append(out, base)
	}
	return out
}

// SplitResult is a cluster produced by splitting an oversized parent.
type SplitResult struct {
	ID     string
	Points []Point
}

// SplitLargeClusters re-clusters any cluster exceeding MaxClusterSize whose
// coherence is below MinSplitCoherence, using a tighter epsilon. Sub-cluster
// IDs are derived as parent*1000+k (spec.md §4.7). Clusters that don't meet
// the split criteria, and any resulting noise points, pass through under
// their parent ID unchanged.
func SplitLargeClusters(clusters []Cluster) []SplitResult {
	var out []SplitResult
	for _, c := range clusters {
		if len(c.Points) <= MaxClusterSize {
			out = append(out, SplitResult{ID: c.ID, Points: c.Points})
			continue
		}

		embeddings := make([][]float32, len(c.Points))
		for i, p := range c.Points {
			embeddings[i] = p.Embedding
		}
		coherence := vectormath.Coherence(embeddings)
		if coherence >= MinSplitCoherence {
			out = append(out, SplitResult{ID: c.ID, Points: c.Points})
			continue
		}

		sub := DBSCAN(c.Points, Params{Epsilon: SplitEpsilon, MinPoints: SplitMinPoints, MinClusterSize: 2})
		assigned := make(map[string]bool)
		k := 0
		for _, memberIDs := range sub {
			k++
			subID := parentSubClusterID(c.ID, k)
			var pts []Point
			for _, id := range memberIDs {
				assigned[id] = true
				pts = append(pts, pointByID(c.Points, id))
			}
			out = append(out, SplitResult{ID: subID, Points: pts})
		}

		// Noise points from the sub-clustering stay under the parent ID.
		var noise []Point
		for _, p := range c.Points {
			if !assigned[p.ID] {
				noise = append(noise, p)
			}
		}
		if len(noise) > 0 {
			out = append(out, SplitResult{ID: c.ID, Points: noise})
		}
	}
	return out
}

func pointByID(points []Point, id string) Point {
	for _, p := range points {
		if p.ID == id {
			return p
		}
	}
	return Point{}
}

func parentSubClusterID(parentID string, k int) string {
	parent := parseIntOrZero(parentID)
	return clusterKey(parent*1000 + k)
}

func parseIntOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
