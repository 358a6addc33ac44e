package engine

import (
	"context"

	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

// Stats implements the stats resource (spec.md §6.2): corpus aggregates
// scoped to userContext.
func (e *Engine) Stats(ctx context.Context, userContext string) (*store.Stats, error) {
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	return e.store.Stats(ctx, userContext)
}

// Types returns the memory-type counts for userContext, derived from Stats
// (spec.md §6.2 types resource).
func (e *Engine) Types(ctx context.Context, userContext string) (map[string]int, error) {
	stats, err := e.Stats(ctx, userContext)
	if err != nil {
		return nil, err
	}
	return stats.ByType, nil
}

// Tags implements the tags resource (spec.md §6.2): the distinct tag
// vocabulary in use for userContext.
func (e *Engine) Tags(ctx context.Context, userContext string) ([]string, error) {
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	return e.store.Tags(ctx, userContext)
}

// ClusterSummary is one entry of the clusters resource: a cluster id with
// its member count and a representative sample of member memories.
type ClusterSummary struct {
	ClusterID string
	Size      int
	Sample    []types.Memory
}

// Clusters implements the clusters resource (spec.md §6.2): groups
// userContext's memories by cluster_id, omitting unclustered memories.
func (e *Engine) Clusters(ctx context.Context, userContext string) ([]ClusterSummary, error) {
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	memories, _, err := e.store.List(ctx, store.ListOptions{UserContext: userContext, Limit: 1000})
	if err != nil {
		return nil, err
	}

	byCluster := map[string][]types.Memory{}
	var order []string
	for _, m := range memories {
		if m.ClusterID == "" {
			continue
		}
		if _, ok := byCluster[m.ClusterID]; !ok {
			order = append(order, m.ClusterID)
		}
		byCluster[m.ClusterID] = append(byCluster[m.ClusterID], m)
	}

	out := make([]ClusterSummary, 0, len(order))
	for _, cid := range order {
		members := byCluster[cid]
		sample := members
		if len(sample) > 5 {
			sample = sample[:5]
		}
		out = append(out, ClusterSummary{ClusterID: cid, Size: len(members), Sample: sample})
	}
	return out, nil
}
