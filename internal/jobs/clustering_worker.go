package jobs

import "context"

// ClusteringPayload is the Job.Payload for TopicClustering. Mode selects
// full-clustering, incremental, merge-clusters, or split-clusters
// (spec.md §4.12 clustering worker); IDs names the new points for the
// incremental mode.
type ClusteringPayload struct {
	UserContext string
	Mode        string
	IDs         []string
}

// ClusterMaintainer is the narrow capability a clustering job handler needs.
type ClusterMaintainer interface {
	RunClustering(ctx context.Context, userContext, mode string, ids []string) error
}

// NewClusteringHandler builds the TopicClustering Handler.
func NewClusteringHandler(cm ClusterMaintainer) Handler {
	return func(ctx context.Context, job Job) error {
		payload, ok := job.Payload.(ClusteringPayload)
		if !ok {
			return nil
		}
		return cm.RunClustering(ctx, payload.UserContext, payload.Mode, payload.IDs)
	}
}
