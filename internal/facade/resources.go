package facade

import (
	"context"

	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/pkg/types"
)

// ResourceName identifies one of spec.md §6.2's read-only resource
// endpoints, distinct from the RPC tool catalog.
type ResourceName string

const (
	ResourceStats         ResourceName = "stats"
	ResourceTypes         ResourceName = "types"
	ResourceTags          ResourceName = "tags"
	ResourceRelationships ResourceName = "relationships"
	ResourceClusters      ResourceName = "clusters"
)

// Resources lists every resource endpoint (spec.md §6.2).
var Resources = []ResourceName{
	ResourceStats, ResourceTypes, ResourceTags, ResourceRelationships, ResourceClusters,
}

// ReadResource serves one of spec.md §6.2's read-only JSON resources,
// scoped to userContext. relationshipsMemoryID selects the subject memory
// for the "relationships" resource and is ignored otherwise.
func (s *Server) ReadResource(ctx context.Context, name ResourceName, userContext, relationshipsMemoryID string) (interface{}, error) {
	userContext = sanitizeUserContext(userContext)
	switch name {
	case ResourceStats:
		return s.engine.Stats(ctx, userContext)
	case ResourceTypes:
		return s.engine.Types(ctx, userContext)
	case ResourceTags:
		return s.engine.Tags(ctx, userContext)
	case ResourceRelationships:
		if relationshipsMemoryID == "" {
			return s.topConnectorsResource(ctx, userContext)
		}
		return s.engine.GetMemoryRelations(ctx, relationshipsMemoryID)
	case ResourceClusters:
		return s.clustersResource(ctx, userContext)
	default:
		return nil, errNotFoundResource(name)
	}
}

// topConnectorsResource backs the "relationships" resource when no specific
// memory is named: the corpus-wide connectivity overview (spec.md §4.9
// findTopConnectors).
func (s *Server) topConnectorsResource(ctx context.Context, userContext string) (interface{}, error) {
	return s.engine.TopConnectors(ctx, userContext, 20)
}

// clusterSummaryView is the JSON shape of one clusters-resource entry.
type clusterSummaryView struct {
	ClusterID string         `json:"cluster_id"`
	Size      int            `json:"size"`
	Sample    []types.Memory `json:"sample"`
}

func (s *Server) clustersResource(ctx context.Context, userContext string) (interface{}, error) {
	summaries, err := s.engine.Clusters(ctx, userContext)
	if err != nil {
		return nil, err
	}
	out := make([]clusterSummaryView, len(summaries))
	for i, cs := range summaries {
		out[i] = clusterSummaryView{ClusterID: cs.ClusterID, Size: cs.Size, Sample: cs.Sample}
	}
	return out, nil
}

func errNotFoundResource(name ResourceName) error {
	return errs.NotFoundf("unknown resource %q", name)
}
