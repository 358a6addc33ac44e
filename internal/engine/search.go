package engine

import (
	"context"
	"encoding/json"

	"github.com/nodalmind/memoria/internal/cache"
	"github.com/nodalmind/memoria/internal/scoring"
	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

// SearchInput is the request shape for Search (spec.md §4.8 search, §6.1
// memory_search).
type SearchInput struct {
	Query       string
	UserContext string
	Type        types.MemoryType
	Tags        []string
	Threshold   float64
	Limit       int
}

// SearchHit pairs a memory with its similarity to the query.
type SearchHit struct {
	Memory     types.Memory `json:"memory"`
	Similarity float64      `json:"similarity"`
}

// Search implements spec.md §4.8 search: cache lookup, embed query, KNN
// search with predicates, bumpAccess, cache write.
func (e *Engine) Search(ctx context.Context, in SearchInput) ([]SearchHit, error) {
	userContext := in.UserContext
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	limit := in.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultSearchLimit
	}
	threshold := in.Threshold
	if threshold == 0 {
		threshold = e.cfg.DefaultThreshold
	}

	cacheKey := cache.SearchCacheKey(userContext, in.Query, string(in.Type), in.Tags, limit, threshold)
	var cached []SearchHit
	if cache.GetJSON(ctx, e.cache, cache.NamespaceSearch, cacheKey, &cached) {
		return cached, nil
	}

	vec, err := e.embedding.Embed(ctx, in.Query)
	if err != nil {
		return nil, err
	}

	rows, err := e.store.KNNSearch(ctx, userContext, vec, limit, store.KNNFilter{
		Type:      in.Type,
		Tags:      in.Tags,
		Threshold: threshold,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		hits = append(hits, SearchHit{Memory: r.Memory, Similarity: 1 - r.Distance})
		ids = append(ids, r.Memory.ID)
	}
	for _, id := range ids {
		if err := e.store.BumpAccess(ctx, id); err != nil {
			e.log.Warnw("engine: bump access failed", "memory_id", id, "error", err)
		}
	}

	if e.window != nil {
		now := e.now()
		for _, h := range hits {
			raw, _ := json.Marshal(h.Memory.Content)
			tokens := scoring.EstimateTokens(string(raw))
			e.window.AddToWindow(userContext, h.Memory.ID, tokens, h.Similarity, now)
		}
	}

	if err := cache.SetJSON(ctx, e.cache, cache.NamespaceSearch, cacheKey, hits, embeddingCacheTTL); err != nil {
		e.log.Warnw("engine: cache search write failed", "error", err)
	}
	return hits, nil
}

// List implements spec.md §4.8 list: paged, same predicates as search
// minus the embedding step, decompressing compressed memories on the way
// out for display without mutating the stored row.
func (e *Engine) List(ctx context.Context, opts store.ListOptions) ([]types.Memory, int, error) {
	if opts.UserContext == "" {
		opts.UserContext = types.DefaultUserContext
	}
	memories, total, err := e.store.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	for i := range memories {
		rehydrateForDisplay(&memories[i])
	}
	return memories, total, nil
}

// rehydrateForDisplay replaces a compressed memory's content with
// {text: summary} and marks is_compressed=false in the returned value only;
// the stored row is untouched (spec.md §4.8 list).
func rehydrateForDisplay(m *types.Memory) {
	if !m.IsCompressed {
		return
	}
	if asMap, ok := m.Content.(map[string]interface{}); ok {
		if text, ok := asMap["text"]; ok {
			m.Content = map[string]interface{}{"text": text}
		}
	}
	m.IsCompressed = false
}
