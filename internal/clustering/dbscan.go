// Package clustering implements density-based clustering over memory
// embeddings (spec.md §4.7, component C7): DBSCAN, incremental DBSCAN, and
// cluster maintenance (merge/split). Grounded on internal/vectormath's
// cosine-distance primitives; there is no teacher analogue, so the shape
// follows the teacher's batch-analysis style (internal/engine/contradiction_detector.go)
// of iterating memory sets with helper predicates.
package clustering

import (
	"strconv"

	"github.com/nodalmind/memoria/internal/vectormath"
)

// Point is a clusterable embedding with an opaque identifier.
type Point struct {
	ID        string
	Embedding []float32
}

// Params configures DBSCAN.
type Params struct {
	Epsilon        float64
	MinPoints      int
	MinClusterSize int
}

// DefaultParams matches spec.md §4.7 defaults.
func DefaultParams() Params {
	return Params{Epsilon: 0.3, MinPoints: 3, MinClusterSize: 2}
}

// Assignment maps a point ID to a cluster label, or "" for noise.
type Assignment map[string]string

// DBSCAN clusters points by cosine distance. Returns a map clusterID ->
// member IDs; points not assigned to any surviving cluster are noise and
// excluded from the result (spec.md §4.7).
func DBSCAN(points []Point, params Params) map[string][]string {
	if params.Epsilon <= 0 {
		params.Epsilon = DefaultParams().Epsilon
	}
	if params.MinPoints <= 0 {
		params.MinPoints = DefaultParams().MinPoints
	}
	if params.MinClusterSize <= 0 {
		params.MinClusterSize = DefaultParams().MinClusterSize
	}

	n := len(points)
	visited := make([]bool, n)
	labels := make([]int, n) // 0 = unassigned, -1 = noise, >0 = cluster id
	nextCluster := 0

	neighborsOf := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if vectormath.CosineDistance(points[i].Embedding, points[j].Embedding) <= params.Epsilon {
				out = append(out, j)
			}
		}
		return out
	}

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := neighborsOf(i)
		if len(neighbors)+1 < params.MinPoints {
			labels[i] = -1
			continue
		}

		nextCluster++
		cluster := nextCluster
		labels[i] = cluster

		queue := append([]int{}, neighbors...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if !visited[j] {
				visited[j] = true
				jNeighbors := neighborsOf(j)
				if len(jNeighbors)+1 >= params.MinPoints {
					queue = append(queue, jNeighbors...)
				}
			}
			if labels[j] <= 0 {
				labels[j] = cluster
			}
		}
	}

	result := make(map[string][]string)
	for i, l := range labels {
		if l <= 0 {
			continue
		}
		key := clusterKey(l)
		result[key] = append(result[key], points[i].ID)
	}

	for key, members := range result {
		if len(members) < params.MinClusterSize {
			delete(result, key)
		}
	}
	return result
}

func clusterKey(n int) string {
	return strconv.Itoa(n)
}

// Incremental runs DBSCAN over existing∪new, reconstructing existing
// points' prior cluster assignments (spec.md §4.7): a resulting cluster
// that contains a point with a non-empty existingLabels entry takes the
// first such label among its members instead of a fresh DBSCAN key. Only
// the new points' resulting assignments are returned, so the caller
// persists solely the delta.
func Incremental(existing []Point, existingLabels Assignment, newPoints []Point, params Params) Assignment {
	all := append(append([]Point{}, existing...), newPoints...)
	clusters := DBSCAN(all, params)

	labelByID := make(map[string]string, len(all))
	for clusterID, members := range clusters {
		label := clusterID
		for _, id := range members {
			if prior := existingLabels[id]; prior != "" {
				label = prior
				break
			}
		}
		for _, id := range members {
			labelByID[id] = label
		}
	}

	result := make(Assignment)
	for _, p := range newPoints {
		if label, ok := labelByID[p.ID]; ok {
			result[p.ID] = label
		}
	}
	return result
}
