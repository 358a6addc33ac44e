package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nodalmind/memoria/internal/cache"
	"github.com/nodalmind/memoria/internal/clustering"
	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/internal/lifecycle"
	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/internal/vectormath"
	"github.com/nodalmind/memoria/pkg/types"
)

// ConsolidateResult is the response shape for Consolidate (spec.md §4.8
// consolidate, §6.1 memory_consolidate).
type ConsolidateResult struct {
	ClustersCreated  int
	MemoriesArchived int
}

// Consolidate implements spec.md §4.8 consolidate: runs DBSCAN over
// userContext's embeddings with epsilon=1-threshold and minPoints=
// minClusterSize, persisting cluster assignments. MemoriesArchived counts
// memories assigned to a cluster by this pass, not state transitions (see
// DESIGN.md's Open Question resolution).
func (e *Engine) Consolidate(ctx context.Context, userContext string, threshold float64, minClusterSize int) (*ConsolidateResult, error) {
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	if threshold <= 0 {
		threshold = 0.8
	}
	if minClusterSize <= 0 {
		minClusterSize = 3
	}

	ids, vecs, err := e.store.AllEmbeddings(ctx, userContext)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return &ConsolidateResult{}, nil
	}

	points := make([]clustering.Point, len(ids))
	for i, id := range ids {
		points[i] = clustering.Point{ID: id, Embedding: vecs[i]}
	}

	params := clustering.Params{
		Epsilon:        1 - threshold,
		MinPoints:      minClusterSize,
		MinClusterSize: 2,
	}
	assignment := clustering.DBSCAN(points, params)

	archived := 0
	for clusterID, memberIDs := range assignment {
		if err := e.store.SetCluster(ctx, memberIDs, clusterID); err != nil {
			return nil, err
		}
		archived += len(memberIDs)
		for _, id := range memberIDs {
			e.invalidateMemory(ctx, id)
		}
	}

	return &ConsolidateResult{ClustersCreated: len(assignment), MemoriesArchived: archived}, nil
}

// Consolidation strategies accepted by RunConsolidation (spec.md §4.12
// consolidation worker).
const (
	StrategyMerge     = "merge"
	StrategySummarize = "summarize"
	StrategyCluster   = "cluster"
)

// RunConsolidation satisfies jobs.Consolidator, dispatching a queued
// consolidation job to its strategy (spec.md §4.12): merge and summarize
// fold the named memories into a synthetic one and archive the originals;
// cluster runs incremental clustering over the named ids, or a full
// DBSCAN + maintenance pass when no ids are given.
func (e *Engine) RunConsolidation(ctx context.Context, userContext, strategy string, ids []string, threshold float64, minClusterSize int) error {
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	switch strategy {
	case StrategyMerge:
		_, err := e.MergeMemories(ctx, userContext, ids)
		return err
	case StrategySummarize:
		_, err := e.SummarizeMemories(ctx, userContext, ids)
		return err
	default: // StrategyCluster
		if len(ids) > 0 {
			return e.incrementalClustering(ctx, userContext, ids)
		}
		if _, err := e.Consolidate(ctx, userContext, threshold, minClusterSize); err != nil {
			return err
		}
		return e.MaintainClusters(ctx, userContext)
	}
}

// MergeMemories implements the merge strategy (spec.md §4.12): a synthetic
// fact memory holding the originals' content is created with
// confidence=max(originals) and importance 0.8, and the originals are
// archived. Fewer than two resolvable memories is a domain-rule violation.
func (e *Engine) MergeMemories(ctx context.Context, userContext string, ids []string) (*types.Memory, error) {
	originals, err := e.resolveForConsolidation(ctx, userContext, ids)
	if err != nil {
		return nil, err
	}

	now := e.now()
	originalIDs := make([]string, len(originals))
	mergedContent := make([]interface{}, len(originals))
	maxConfidence := 0.0
	for i, m := range originals {
		originalIDs[i] = m.ID
		mergedContent[i] = m.Content
		if m.Confidence > maxConfidence {
			maxConfidence = m.Confidence
		}
	}

	content := map[string]interface{}{
		"merged":        true,
		"originalIds":   originalIDs,
		"mergedContent": mergedContent,
		"mergeDate":     now.UTC().Format(time.RFC3339),
	}
	merged, err := e.createSynthetic(ctx, userContext, types.TypeFact, content, maxConfidence, now)
	if err != nil {
		return nil, err
	}

	e.archiveOriginals(ctx, originals, now)
	return merged, nil
}

// SummarizeMemories implements the summarize strategy (spec.md §4.12): the
// originals are grouped by type, a single insight memory holding a stub
// summary per group is created, and the originals are archived. The
// summaries are counts, not prose — LLM summarization is out of scope.
func (e *Engine) SummarizeMemories(ctx context.Context, userContext string, ids []string) (*types.Memory, error) {
	originals, err := e.resolveForConsolidation(ctx, userContext, ids)
	if err != nil {
		return nil, err
	}

	now := e.now()
	byType := map[string]int{}
	originalIDs := make([]string, len(originals))
	maxConfidence := 0.0
	for i, m := range originals {
		byType[string(m.Type)]++
		originalIDs[i] = m.ID
		if m.Confidence > maxConfidence {
			maxConfidence = m.Confidence
		}
	}
	summaries := map[string]string{}
	for t, n := range byType {
		summaries[t] = fmt.Sprintf("%d %s memories consolidated", n, t)
	}

	content := map[string]interface{}{
		"summary":      true,
		"groups":       summaries,
		"originalIds":  originalIDs,
		"summarizedAt": now.UTC().Format(time.RFC3339),
	}
	summary, err := e.createSynthetic(ctx, userContext, types.TypeInsight, content, maxConfidence, now)
	if err != nil {
		return nil, err
	}

	e.archiveOriginals(ctx, originals, now)
	return summary, nil
}

// resolveForConsolidation loads the named memories, dropping ids that are
// missing, deleted, or belong to another user context; fewer than two
// survivors fails with a Logic error (spec.md §7: "consolidation merge
// with <2 memories").
func (e *Engine) resolveForConsolidation(ctx context.Context, userContext string, ids []string) ([]*types.Memory, error) {
	var out []*types.Memory
	for _, id := range ids {
		m, err := e.store.Get(ctx, id)
		if err != nil || m.Deleted() || m.UserContext != userContext {
			continue
		}
		out = append(out, m)
	}
	if len(out) < 2 {
		return nil, errs.Logic("consolidation requires at least 2 resolvable memories")
	}
	return out, nil
}

func (e *Engine) createSynthetic(ctx context.Context, userContext string, memType types.MemoryType, content map[string]interface{}, confidence float64, now time.Time) (*types.Memory, error) {
	hash, err := store.ContentHash(content)
	if err != nil {
		return nil, err
	}
	m := &types.Memory{
		ID:                  uuid.NewString(),
		UserContext:         userContext,
		Content:             content,
		ContentHash:         hash,
		Type:                memType,
		Source:              "consolidation",
		Confidence:          confidence,
		ImportanceScore:     0.8,
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
	if err := e.store.Create(ctx, m); err != nil {
		return nil, err
	}
	e.cacheMemory(ctx, m)
	return m, nil
}

// archiveOriginals transitions each consolidated source memory to archived
// (recording the transition, compressing if needed) without ever failing
// the consolidation itself.
func (e *Engine) archiveOriginals(ctx context.Context, originals []*types.Memory, now time.Time) {
	for _, m := range originals {
		if lifecycle.ApplyTransition(m, types.StateArchived, now) {
			if err := e.store.Update(ctx, m); err != nil {
				e.log.Warnw("engine: failed to archive consolidated memory", "memory_id", m.ID, "error", err)
				continue
			}
		}
		e.invalidateMemory(ctx, m.ID)
	}
	e.cache.ClearNamespace(ctx, cache.NamespaceSearch)
}

// Clustering-worker modes (spec.md §4.12 clustering worker).
const (
	ModeFullClustering = "full-clustering"
	ModeIncremental    = "incremental"
	ModeMergeClusters  = "merge-clusters"
	ModeSplitClusters  = "split-clusters"
)

// RunClustering satisfies jobs.ClusterMaintainer, dispatching a queued
// clustering job to its mode and logging the pass's stats (cluster count,
// clustered/noise memories, silhouette).
func (e *Engine) RunClustering(ctx context.Context, userContext, mode string, ids []string) error {
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	switch mode {
	case ModeIncremental:
		return e.incrementalClustering(ctx, userContext, ids)
	case ModeMergeClusters:
		return e.maintainPass(ctx, userContext, true, false)
	case ModeSplitClusters:
		return e.maintainPass(ctx, userContext, false, true)
	default: // ModeFullClustering
		return e.fullClustering(ctx, userContext)
	}
}

// MaintainClusters runs both maintenance passes: merge near-duplicate
// clusters, then split oversized low-coherence ones (spec.md §4.7).
func (e *Engine) MaintainClusters(ctx context.Context, userContext string) error {
	if userContext == "" {
		userContext = types.DefaultUserContext
	}
	return e.maintainPass(ctx, userContext, true, true)
}

// fullClustering reclusters the whole corpus with default DBSCAN params,
// runs both maintenance passes, and logs the resulting quality stats.
func (e *Engine) fullClustering(ctx context.Context, userContext string) error {
	ids, vecs, err := e.store.AllEmbeddings(ctx, userContext)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	points := make([]clustering.Point, len(ids))
	for i, id := range ids {
		points[i] = clustering.Point{ID: id, Embedding: vecs[i]}
	}
	assignment := clustering.DBSCAN(points, clustering.DefaultParams())

	clustered := 0
	labelByID := map[string]string{}
	for clusterID, memberIDs := range assignment {
		if err := e.store.SetCluster(ctx, memberIDs, clusterID); err != nil {
			return err
		}
		clustered += len(memberIDs)
		for _, id := range memberIDs {
			labelByID[id] = clusterID
			e.invalidateMemory(ctx, id)
		}
	}

	var clusteredVecs [][]float32
	var labels []string
	for i, id := range ids {
		if label, ok := labelByID[id]; ok {
			clusteredVecs = append(clusteredVecs, vecs[i])
			labels = append(labels, label)
		}
	}
	silhouette := vectormath.MeanSilhouette(vectormath.Silhouette(clusteredVecs, labels))

	e.log.Infow("full clustering pass complete",
		"user_context", userContext,
		"clusters", len(assignment),
		"clustered", clustered,
		"noise", len(ids)-clustered,
		"silhouette", silhouette,
	)

	return e.maintainPass(ctx, userContext, true, true)
}

// incrementalClustering reclusters existing∪new and persists only the new
// points' assignments (spec.md §4.7 incremental DBSCAN).
func (e *Engine) incrementalClustering(ctx context.Context, userContext string, newIDs []string) error {
	ids, vecs, clusterIDs, err := e.store.EmbeddingsWithClusters(ctx, userContext)
	if err != nil {
		return err
	}

	isNew := make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		isNew[id] = true
	}

	var existing, fresh []clustering.Point
	existingLabels := clustering.Assignment{}
	for i, id := range ids {
		p := clustering.Point{ID: id, Embedding: vecs[i]}
		if isNew[id] {
			fresh = append(fresh, p)
			continue
		}
		existing = append(existing, p)
		if clusterIDs[i] != "" {
			existingLabels[id] = clusterIDs[i]
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	delta := clustering.Incremental(existing, existingLabels, fresh, clustering.DefaultParams())

	byCluster := map[string][]string{}
	for id, label := range delta {
		byCluster[label] = append(byCluster[label], id)
	}
	for label, memberIDs := range byCluster {
		if err := e.store.SetCluster(ctx, memberIDs, label); err != nil {
			return err
		}
		for _, id := range memberIDs {
			e.invalidateMemory(ctx, id)
		}
	}
	return nil
}

// maintainPass loads the current cluster assignments and runs the selected
// maintenance operations (spec.md §4.7 mergeSimilarClusters /
// splitLargeClusters), persisting any reassignments.
func (e *Engine) maintainPass(ctx context.Context, userContext string, merge, split bool) error {
	ids, vecs, clusterIDs, err := e.store.EmbeddingsWithClusters(ctx, userContext)
	if err != nil {
		return err
	}

	byCluster := map[string][]clustering.Point{}
	for i, id := range ids {
		cid := clusterIDs[i]
		if cid == "" {
			continue
		}
		byCluster[cid] = append(byCluster[cid], clustering.Point{ID: id, Embedding: vecs[i]})
	}
	if len(byCluster) == 0 {
		return nil
	}

	clusters := make([]clustering.Cluster, 0, len(byCluster))
	for cid, pts := range byCluster {
		clusters = append(clusters, clustering.Cluster{ID: cid, Points: pts})
	}

	merged := 0
	if merge {
		before := len(clusters)
		clusters = clustering.MergeSimilarClusters(clusters)
		merged = before - len(clusters)
		for _, c := range clusters {
			if err := e.persistCluster(ctx, c.ID, c.Points); err != nil {
				return err
			}
		}
	}

	splitCount := 0
	if split {
		results := clustering.SplitLargeClusters(clusters)
		splitCount = len(results) - len(clusters)
		for _, s := range results {
			if err := e.persistCluster(ctx, s.ID, s.Points); err != nil {
				return err
			}
		}
	}

	e.log.Infow("cluster maintenance pass complete",
		"user_context", userContext,
		"clusters", len(clusters),
		"merged", merged,
		"split", splitCount,
	)
	return nil
}

func (e *Engine) persistCluster(ctx context.Context, clusterID string, points []clustering.Point) error {
	memberIDs := make([]string, len(points))
	for i, p := range points {
		memberIDs[i] = p.ID
	}
	if err := e.store.SetCluster(ctx, memberIDs, clusterID); err != nil {
		return err
	}
	for _, id := range memberIDs {
		e.invalidateMemory(ctx, id)
	}
	return nil
}
