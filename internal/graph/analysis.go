package graph

import (
	"context"

	"github.com/nodalmind/memoria/internal/store"
)

// Analysis is the result of graphAnalysis (spec.md §4.9).
type Analysis struct {
	InDegree         int
	OutDegree        int
	TotalConnections int
	RelationTypes    map[string]int
}

// Analyze computes degree statistics for id, scoped to userContext.
func Analyze(ctx context.Context, store Store, userContext, id string) (*Analysis, error) {
	in, out, histogram, err := store.DegreeAnalysis(ctx, userContext, id)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		InDegree:         in,
		OutDegree:        out,
		TotalConnections: in + out,
		RelationTypes:    histogram,
	}, nil
}

// TopConnectors returns the most-connected memories in userContext, ordered
// by distinct-edge count descending (spec.md §4.9 findTopConnectors).
func TopConnectors(ctx context.Context, s Store, userContext string, limit int) ([]store.ConnectorStat, error) {
	return s.TopConnectors(ctx, userContext, limit)
}
