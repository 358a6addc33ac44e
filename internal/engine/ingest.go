package engine

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nodalmind/memoria/internal/cache"
	"github.com/nodalmind/memoria/internal/compression"
	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/internal/jobs"
	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

// StoreInput is the request shape for Store (spec.md §4.8 store, §6.1
// memory_store). Confidence is a pointer so an explicit 0 is distinguishable
// from an omitted value, which defaults to 1.
type StoreInput struct {
	Content          interface{}
	Type             types.MemoryType
	Source           string
	Confidence       *float64
	ImportanceScore  float64
	Tags             []string
	UserContext      string
	Async            bool
	RelateTo         []RelateToInput
}

// RelateToInput names a spec.md §4.8 store step f "for each relate_to
// entry" best-effort directed edge to create alongside the new memory.
type RelateToInput struct {
	ToMemoryID   string
	RelationType types.RelationType
	Strength     float64
}

// Store implements spec.md §4.8 store: dedup on (user_context, content_hash),
// synchronous write, optional compression, async or sync embedding, and
// best-effort relate_to edges.
func (e *Engine) Store(ctx context.Context, in StoreInput) (*types.Memory, error) {
	userContext := in.UserContext
	if userContext == "" {
		userContext = types.DefaultUserContext
	}

	hash, err := store.ContentHash(in.Content)
	if err != nil {
		return nil, errs.Internal("engine: hash content", err)
	}

	existing, err := e.store.FindByHash(ctx, userContext, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := e.store.BumpAccess(ctx, existing.ID); err != nil {
			return nil, err
		}
		existing.AccessCount++
		existing.AccessedAt = e.now()
		e.invalidateMemory(ctx, existing.ID)
		return existing, nil
	}

	raw, err := json.Marshal(in.Content)
	if err != nil {
		return nil, errs.InvalidParams("engine: content is not serializable")
	}
	serialized := string(raw)

	confidence := 1.0
	if in.Confidence != nil {
		confidence = types.ClampUnit(*in.Confidence)
	}

	now := e.now()
	m := &types.Memory{
		ID:                  uuid.NewString(),
		UserContext:         userContext,
		Content:             in.Content,
		ContentHash:         hash,
		Tags:                in.Tags,
		Type:                in.Type,
		Source:              in.Source,
		Confidence:          confidence,
		ImportanceScore:     clampOrDefault(in.ImportanceScore, 0.5),
		SimilarityThreshold: 0.7,
		DecayRate:           0.01,
		CreatedAt:           now,
		UpdatedAt:           now,
		AccessedAt:          now,
		LastDecayUpdate:     now,
		State:               types.StateActive,
		DecayScore:          1.0,
		Metadata:            map[string]interface{}{},
	}

	if len(serialized) > e.cfg.CompressionTrigger {
		result := compression.Compress(serialized, compressionTypeFor(in.Type), 0)
		m.Content = map[string]interface{}{
			"compressed":        true,
			"text":              result.Text,
			"original_size":     result.OriginalSize,
			"compressed_size":   result.CompressedSize,
			"compression_ratio": result.CompressionRatio,
		}
		m.IsCompressed = true
		m.Metadata["originalSize"] = result.OriginalSize
		m.Metadata["compressedSize"] = result.CompressedSize
		m.Metadata["compressionRatio"] = result.CompressionRatio
		m.Metadata["compressionType"] = "adaptive"
	}

	async := in.Async && e.cfg.AsyncProcessing && e.jobs != nil
	if !async && e.embedding != nil {
		vec, err := e.embedding.Embed(ctx, serialized)
		if err != nil {
			return nil, err
		}
		m.Embedding = vec
		m.EmbeddingDimension = len(vec)
	}

	if err := e.store.Create(ctx, m); err != nil {
		return nil, err
	}

	if async && e.embedding != nil {
		priority := int(math.Round(m.ImportanceScore * 10))
		if priority == 0 {
			priority = 5
		}
		e.jobs.Enqueue(jobs.Job{
			Topic:    jobs.TopicEmbedding,
			ID:       m.ID,
			Priority: priority,
			Payload:  jobs.EmbeddingPayload{MemoryID: m.ID, Content: serialized},
		})
	}

	for _, rel := range in.RelateTo {
		_ = e.CreateRelation(ctx, m.ID, rel.ToMemoryID, rel.RelationType, rel.Strength)
	}

	e.cacheMemory(ctx, m)
	e.cache.ClearNamespace(ctx, cache.NamespaceSearch)

	return m, nil
}

// EmbedAndStore implements jobs.Embedder: generates an embedding for an
// already-persisted memory and writes it back (spec.md §4.12 embedding
// worker). Idempotent: a memory that already carries an embedding is a
// no-op success.
func (e *Engine) EmbedAndStore(ctx context.Context, memoryID string, content interface{}) error {
	m, err := e.store.Get(ctx, memoryID)
	if err != nil {
		return err
	}
	if len(m.Embedding) > 0 {
		return nil
	}

	text, ok := content.(string)
	if !ok {
		raw, err := json.Marshal(content)
		if err != nil {
			return errs.Internal("engine: marshal embedding content", err)
		}
		text = string(raw)
	}

	vec, err := e.embedding.Embed(ctx, text)
	if err != nil {
		if errs.Code_(err) == errs.CodeConflict {
			if m.Metadata == nil {
				m.Metadata = map[string]interface{}{}
			}
			m.Metadata["embeddingError"] = sanitizeJobError(err.Error())
			_ = e.store.Update(ctx, m)
			return nil
		}
		return err
	}

	m.Embedding = vec
	m.EmbeddingDimension = len(vec)
	m.UpdatedAt = e.now()
	if err := e.store.Update(ctx, m); err != nil {
		return err
	}

	if err := cache.SetJSON(ctx, e.cache, cache.NamespaceEmbeddings, memoryID, vec, embeddingCacheTTL); err != nil {
		e.log.Warnw("engine: cache embedding write failed", "memory_id", memoryID, "error", err)
	}
	return nil
}

const embeddingCacheTTL = 24 * time.Hour

// sanitizeJobError trims a worker error to the spec.md §4.12 metadata
// budget: control characters stripped, SQL quotes escaped, ≤500 bytes.
func sanitizeJobError(msg string) string {
	clean := types.SanitizeText(msg)
	clean = strings.ReplaceAll(clean, "'", "''")
	if len(clean) > 500 {
		clean = clean[:500]
	}
	return clean
}

func clampOrDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return types.ClampUnit(v)
}

func compressionTypeFor(t types.MemoryType) compression.ContentType {
	if t == types.TypeConversation {
		return compression.TypeConversation
	}
	return compression.TypeGeneric
}

func (e *Engine) cacheMemory(ctx context.Context, m *types.Memory) {
	if err := cache.SetJSON(ctx, e.cache, cache.NamespaceMemory, m.ID, m, embeddingCacheTTL); err != nil {
		e.log.Warnw("engine: cache memory write failed", "memory_id", m.ID, "error", err)
	}
}

func (e *Engine) invalidateMemory(ctx context.Context, id string) {
	e.cache.InvalidateMemory(ctx, id)
}
