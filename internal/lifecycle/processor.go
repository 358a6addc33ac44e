package lifecycle

import (
	"context"
	"time"

	"github.com/nodalmind/memoria/pkg/types"
)

// Store is the subset of internal/store.Store that lifecycle processing
// depends on, kept narrow per the repo's interface-segregation convention
// (internal/graph.Store, internal/lifecycle.DegreeLookup).
type Store interface {
	DegreeLookup
	DueForDecay(ctx context.Context, userContext string, size int) ([]types.Memory, error)
	Update(ctx context.Context, m *types.Memory) error
}

// BatchResult tallies the outcome of a processBatch run (spec.md §4.10).
type BatchResult struct {
	Processed   int
	Transitioned int
	Errors      int
}

// ProcessBatch recomputes decay scores and states for up to size stale
// memories in userContext, applying any resulting transitions and
// persisting the result (spec.md §4.10 processBatch).
func (mgr *Manager) ProcessBatch(ctx context.Context, store Store, userContext string, size int) (BatchResult, error) {
	var result BatchResult

	memories, err := store.DueForDecay(ctx, userContext, size)
	if err != nil {
		return result, err
	}

	now := time.Now()
	for i := range memories {
		m := &memories[i]
		result.Processed++

		score, err := mgr.Score(ctx, m, now)
		if err != nil {
			result.Errors++
			continue
		}
		m.DecayScore = score
		m.LastDecayUpdate = now

		newState := mgr.StateFor(score)
		transitioned := ApplyTransition(m, newState, now)
		if transitioned {
			result.Transitioned++
		}

		// Expiry is persisted through the same write: ApplyTransition has
		// already stamped DeletedAt, so the transition log and the tombstone
		// land together.
		if err := store.Update(ctx, m); err != nil {
			result.Errors++
		}
	}

	return result, nil
}
