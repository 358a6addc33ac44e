package engine

import (
	"context"
	"time"

	"github.com/nodalmind/memoria/internal/cache"
	"github.com/nodalmind/memoria/internal/lifecycle"
	"github.com/nodalmind/memoria/pkg/types"
)

// DecayStatus reports a memory's current decay score and state without
// mutating it (spec.md §4.10/§6.1 memory_decay_status).
func (e *Engine) DecayStatus(ctx context.Context, id string) (*types.Memory, error) {
	return e.store.Get(ctx, id)
}

// Preserve pins a memory against decay, optionally until a fixed time
// (spec.md §6.1 memory_preserve).
func (e *Engine) Preserve(ctx context.Context, id string, until *time.Time) (*types.Memory, error) {
	m, err := lifecycle.PreserveMemory(ctx, e.store, id, until, e.now())
	if err != nil {
		return nil, err
	}
	e.invalidateMemory(ctx, id)
	return m, nil
}

// ProcessDecayBatch implements jobs.DecayProcessor: recomputes decay scores
// and applies any resulting state transitions for up to batchSize stale
// memories in userContext (spec.md §4.10 processBatch, §4.12 decay worker).
func (e *Engine) ProcessDecayBatch(ctx context.Context, userContext string, batchSize int) error {
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	start := e.now()
	result, err := e.decay.ProcessBatch(ctx, e.store, userContext, batchSize)
	if err != nil {
		return err
	}
	duration := e.now().Sub(start)
	if e.log != nil {
		e.log.Infow("decay batch processed",
			"user_context", userContext,
			"processed", result.Processed,
			"transitioned", result.Transitioned,
			"errors", result.Errors,
			"duration", duration,
		)
	}
	if cerr := cache.SetJSON(ctx, e.cache, cache.NamespaceMetrics, "decay:"+userContext, map[string]interface{}{
		"processed":    result.Processed,
		"transitioned": result.Transitioned,
		"errors":       result.Errors,
		"duration_ms":  duration.Milliseconds(),
		"at":           start.UTC().Format(time.RFC3339),
	}, time.Hour); cerr != nil {
		e.log.Warnw("engine: failed to cache decay metrics", "error", cerr)
	}
	return nil
}
