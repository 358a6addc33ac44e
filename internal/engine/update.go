package engine

import (
	"context"
	"sync"

	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/pkg/types"
)

// UpdateInput carries the whitelisted mutable fields of a memory
// (spec.md §4.8 update: "updates only whitelisted fields"). A nil pointer
// field means "leave unchanged".
type UpdateInput struct {
	ID                 string
	Tags               *[]string
	Confidence         *float64
	ImportanceScore    *float64
	Type               *types.MemoryType
	Source             *string
	PreserveTimestamps bool
}

// Update applies the whitelisted fields in in to the memory it names,
// bumping updated_at unless PreserveTimestamps is set, and invalidates the
// memory's cache entries (spec.md §4.8 update).
func (e *Engine) Update(ctx context.Context, in UpdateInput) (*types.Memory, error) {
	m, err := e.store.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if m.Deleted() {
		return nil, errs.NotFoundf("memory %q not found", in.ID)
	}

	if in.Tags != nil {
		m.Tags = *in.Tags
	}
	if in.Confidence != nil {
		m.Confidence = types.ClampUnit(*in.Confidence)
	}
	if in.ImportanceScore != nil {
		m.ImportanceScore = types.ClampUnit(*in.ImportanceScore)
	}
	if in.Type != nil {
		m.Type = *in.Type
	}
	if in.Source != nil {
		m.Source = *in.Source
	}
	if !in.PreserveTimestamps {
		m.UpdatedAt = e.now()
	}

	if err := e.store.Update(ctx, m); err != nil {
		return nil, err
	}
	e.invalidateMemory(ctx, m.ID)
	return m, nil
}

// Delete soft-deletes a memory identified by id or, if id is empty, by
// contentHash (spec.md §4.8 delete).
func (e *Engine) Delete(ctx context.Context, userContext, id, contentHash string) error {
	if id == "" {
		if contentHash == "" {
			return errs.InvalidParams("delete requires id or content_hash")
		}
		if userContext == "" {
			userContext = types.DefaultUserContext
		}
		m, err := e.store.FindByHash(ctx, userContext, contentHash)
		if err != nil {
			return err
		}
		if m == nil {
			return errs.NotFoundf("memory with content_hash %q not found", contentHash)
		}
		id = m.ID
	}
	if err := e.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	e.invalidateMemory(ctx, id)
	return nil
}

// BatchStoreResult reports one item's outcome within a BatchStore call.
type BatchStoreResult struct {
	Index  int
	Memory *types.Memory
	Err    error
}

// batchChunkSize bounds how many items of a batch run concurrently
// (spec.md §4.12 batch-import worker: "chunks of 10, per-chunk parallel").
const batchChunkSize = 10

// BatchStore implements spec.md §4.8 batchStore: per-item Store in chunks
// of ten with the items of each chunk running in parallel, never aborting
// the batch on an individual failure.
func (e *Engine) BatchStore(ctx context.Context, inputs []StoreInput) []BatchStoreResult {
	results := make([]BatchStoreResult, len(inputs))
	for start := 0; start < len(inputs); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(inputs) {
			end = len(inputs)
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m, err := e.Store(ctx, inputs[i])
				results[i] = BatchStoreResult{Index: i, Memory: m, Err: err}
			}(i)
		}
		wg.Wait()
	}
	return results
}

// BatchDeleteResult reports one id's outcome within a BatchDelete call.
type BatchDeleteResult struct {
	ID  string
	Err error
}

// BatchDelete soft-deletes every id, reporting per-item failures without
// aborting (spec.md §4.8 delete: "batchDelete(ids) same in bulk").
func (e *Engine) BatchDelete(ctx context.Context, ids []string) []BatchDeleteResult {
	results := make([]BatchDeleteResult, len(ids))
	for i, id := range ids {
		err := e.Delete(ctx, "", id, "")
		results[i] = BatchDeleteResult{ID: id, Err: err}
	}
	return results
}

// ImportOne implements jobs.BatchImporter: one batch-import item processed
// off its queue (spec.md §4.12 batch-import worker). Each item is an
// independent job, so the topic's worker pool provides the per-chunk
// parallelism and a bad item never blocks the rest of the import.
func (e *Engine) ImportOne(ctx context.Context, batchID string, index int, input interface{}) error {
	in, ok := input.(StoreInput)
	if !ok {
		return errs.Internal("engine: invalid batch-import payload", nil)
	}
	_, err := e.Store(ctx, in)
	return err
}
