package facade

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nodalmind/memoria/internal/engine"
	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/internal/graph"
	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

// contentByteSize measures the canonical-serialization size of an arbitrary
// content value for spec.md §6.1's 1 MiB cap. A string is measured by its
// UTF-8 byte length directly; anything else is measured via its JSON
// encoding, matching §4.8 store's "serialize original content to string s".
func contentByteSize(content interface{}) (int, error) {
	if s, ok := content.(string); ok {
		return len(s), nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

func toStoreInput(a StoreArgs) engine.StoreInput {
	async := true
	if a.Async != nil {
		async = *a.Async
	}
	in := engine.StoreInput{
		Content:         a.Content,
		Type:            a.Type,
		Source:          a.Source,
		Confidence:      a.Confidence,
		ImportanceScore: a.ImportanceScore,
		Tags:            sanitizeTags(a.Tags),
		UserContext:     sanitizeUserContext(a.UserContext),
		Async:           async,
	}
	for _, r := range a.RelateTo {
		in.RelateTo = append(in.RelateTo, engine.RelateToInput{
			ToMemoryID:   r.MemoryID,
			RelationType: types.NormalizeRelationType(types.RelationType(r.RelationType)),
			Strength:     types.ClampUnit(r.Strength),
		})
	}
	return in
}

func (s *Server) callStore(ctx context.Context, raw []byte) (interface{}, error) {
	var a StoreArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	if !types.IsUserStorable(a.Type) {
		return nil, errs.InvalidParamsf("type: %q is not user-storable", a.Type)
	}
	if err := checkContentSize(a.Content); err != nil {
		return nil, err
	}
	m, err := s.engine.Store(ctx, toStoreInput(a))
	if err != nil {
		return nil, err
	}
	return StoreResult{Memory: m}, nil
}

func (s *Server) callSearch(ctx context.Context, raw []byte) (interface{}, error) {
	var a SearchArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	in := engine.SearchInput{
		Query:       types.SanitizeText(a.Query),
		UserContext: sanitizeUserContext(a.UserContext),
		Type:        a.Type,
		Tags:        sanitizeTags(a.Tags),
		Limit:       a.Limit,
	}
	if a.Threshold != nil {
		in.Threshold = *a.Threshold
	} else {
		in.Threshold = types.DefaultSimilarityThreshold
	}
	if in.Limit == 0 {
		in.Limit = types.DefaultSearchLimit
	}
	hits, err := s.engine.Search(ctx, in)
	if err != nil {
		return nil, err
	}
	return SearchResult{Results: hits}, nil
}

func (s *Server) callList(ctx context.Context, raw []byte) (interface{}, error) {
	var a ListArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	limit := a.Limit
	if limit == 0 {
		limit = types.DefaultSearchLimit
	}
	opts := store.ListOptions{
		UserContext: sanitizeUserContext(a.UserContext),
		Type:        a.Type,
		Tags:        sanitizeTags(a.Tags),
		State:       a.State,
		ClusterID:   a.ClusterID,
		Limit:       limit,
		Offset:      a.Offset,
	}
	memories, total, err := s.engine.List(ctx, opts)
	if err != nil {
		return nil, err
	}
	return ListResult{Memories: memories, Total: total}, nil
}

func (s *Server) callUpdate(ctx context.Context, raw []byte) (interface{}, error) {
	var a UpdateArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	if a.Tags != nil {
		sanitized := sanitizeTags(*a.Tags)
		a.Tags = &sanitized
	}
	m, err := s.engine.Update(ctx, engine.UpdateInput{
		ID:                 a.ID,
		Tags:               a.Tags,
		Confidence:         a.Confidence,
		ImportanceScore:    a.ImportanceScore,
		Type:               a.Type,
		Source:             a.Source,
		PreserveTimestamps: a.PreserveTimestamps,
	})
	if err != nil {
		return nil, err
	}
	return UpdateResult{Memory: m}, nil
}

func (s *Server) callDelete(ctx context.Context, raw []byte) (interface{}, error) {
	var a DeleteArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	if a.ID == "" && a.ContentHash == "" {
		return nil, errs.InvalidParams("delete requires id or content_hash")
	}
	err := s.engine.Delete(ctx, sanitizeUserContext(a.UserContext), a.ID, a.ContentHash)
	if err != nil {
		if errs.Code_(err) == errs.CodeNotFound {
			return DeleteResult{Success: false}, nil
		}
		return nil, err
	}
	return DeleteResult{Success: true}, nil
}

func (s *Server) callBatch(ctx context.Context, raw []byte) (interface{}, error) {
	var a BatchArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	inputs := make([]engine.StoreInput, len(a.Memories))
	for i, m := range a.Memories {
		if !types.IsUserStorable(m.Type) {
			return nil, errs.InvalidParamsf("memories[%d].type: %q is not user-storable", i, m.Type)
		}
		if err := checkContentSize(m.Content); err != nil {
			return nil, err
		}
		inputs[i] = toStoreInput(m)
	}
	results := s.engine.BatchStore(ctx, inputs)
	items := make([]BatchItemResult, len(results))
	for i, r := range results {
		item := BatchItemResult{Index: r.Index, Memory: r.Memory}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		items[i] = item
	}
	return BatchResult{Items: items}, nil
}

func (s *Server) callBatchDelete(ctx context.Context, raw []byte) (interface{}, error) {
	var a BatchDeleteArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	results := s.engine.BatchDelete(ctx, a.IDs)
	items := make([]BatchDeleteItemResult, len(results))
	for i, r := range results {
		item := BatchDeleteItemResult{ID: r.ID, Success: r.Err == nil}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		items[i] = item
	}
	return BatchDeleteResult{Items: items}, nil
}

func (s *Server) callGraphSearch(ctx context.Context, raw []byte) (interface{}, error) {
	var a GraphSearchArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	depth := a.Depth
	if depth == 0 {
		depth = 1
	}
	in := engine.SearchInput{
		Query:       types.SanitizeText(a.Query),
		UserContext: sanitizeUserContext(a.UserContext),
		Threshold:   types.DefaultSimilarityThreshold,
		Limit:       types.DefaultSearchLimit,
	}
	results, err := s.engine.GraphSearch(ctx, in, depth)
	if err != nil {
		return nil, err
	}
	return GraphSearchResult{Results: results}, nil
}

func (s *Server) callConsolidate(ctx context.Context, raw []byte) (interface{}, error) {
	var a ConsolidateArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	threshold := 0.8
	if a.Threshold != nil {
		threshold = *a.Threshold
	}
	minSize := a.MinClusterSize
	if minSize == 0 {
		minSize = 3
	}
	result, err := s.engine.Consolidate(ctx, sanitizeUserContext(a.UserContext), threshold, minSize)
	if err != nil {
		return nil, err
	}
	return ConsolidateResult{
		ClustersCreated:  result.ClustersCreated,
		MemoriesArchived: result.MemoriesArchived,
	}, nil
}

func (s *Server) callStats(ctx context.Context, raw []byte) (interface{}, error) {
	var a StatsArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	return s.engine.Stats(ctx, sanitizeUserContext(a.UserContext))
}

func (s *Server) callRelate(ctx context.Context, raw []byte) (interface{}, error) {
	var a RelateArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	relType := types.NormalizeRelationType(types.RelationType(a.RelationType))
	strength := a.Strength
	if strength == 0 {
		strength = 0.5
	}
	var err error
	if a.Bidirectional {
		err = s.engine.CreateBidirectionalRelation(ctx, a.From, a.To, relType, strength)
	} else {
		err = s.engine.CreateRelation(ctx, a.From, a.To, relType, strength)
	}
	if err != nil {
		return nil, err
	}
	return RelateResult{Success: true}, nil
}

func (s *Server) callUnrelate(ctx context.Context, raw []byte) (interface{}, error) {
	var a UnrelateArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	if err := s.engine.DeleteRelation(ctx, a.From, a.To); err != nil {
		return nil, err
	}
	return UnrelateResult{Success: true}, nil
}

func (s *Server) callGetRelations(ctx context.Context, raw []byte) (interface{}, error) {
	var a GetRelationsArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	rels, err := s.engine.GetMemoryRelations(ctx, a.MemoryID)
	if err != nil {
		return nil, err
	}
	return GetRelationsResult{Relations: rels}, nil
}

func (s *Server) callTraverse(ctx context.Context, raw []byte) (interface{}, error) {
	var a TraverseArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	algo := a.Algorithm
	if algo == "" {
		algo = graph.AlgorithmBFS
	}
	timeout := time.Duration(a.TimeoutMs) * time.Millisecond
	result, err := s.engine.Traverse(ctx, graph.Options{
		StartID:            a.StartMemoryID,
		UserContext:        a.UserContext,
		Algorithm:          algo,
		MaxDepth:           a.MaxDepth,
		MaxNodes:           a.MaxNodes,
		RelationTypes:      a.RelationTypes,
		MemoryTypes:        a.MemoryTypes,
		Tags:               sanitizeTags(a.Tags),
		IncludeParentLinks: a.IncludeParentLinks,
		Timeout:            timeout,
	})
	if err != nil {
		return nil, err
	}
	return TraverseResult{Nodes: result.Nodes, Truncated: result.Truncated}, nil
}

func (s *Server) callDecayStatus(ctx context.Context, raw []byte) (interface{}, error) {
	var a DecayStatusArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	m, err := s.engine.DecayStatus(ctx, a.MemoryID)
	if err != nil {
		return nil, err
	}
	return DecayStatusResult{
		DecayScore: m.DecayScore,
		State:      m.State,
		LastUpdate: m.LastDecayUpdate.UTC().Format(time.RFC3339),
	}, nil
}

func (s *Server) callPreserve(ctx context.Context, raw []byte) (interface{}, error) {
	var a PreserveArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	var until *time.Time
	if a.Until != "" {
		t, err := time.Parse(time.RFC3339, a.Until)
		if err != nil {
			return nil, errs.InvalidParamsf("until: invalid ISO-8601 timestamp %q", a.Until)
		}
		until = &t
	}
	m, err := s.engine.Preserve(ctx, a.MemoryID, until)
	if err != nil {
		return nil, err
	}
	return PreserveResult{Memory: m}, nil
}

func (s *Server) callGraphAnalysis(ctx context.Context, raw []byte) (interface{}, error) {
	var a GraphAnalysisArgs
	if err := decodeParams(raw, &a); err != nil {
		return nil, err
	}
	analysis, err := s.engine.GraphAnalysis(ctx, a.UserContext, a.MemoryID)
	if err != nil {
		return nil, err
	}
	return GraphAnalysisResult{
		InDegree:         analysis.InDegree,
		OutDegree:        analysis.OutDegree,
		TotalConnections: analysis.TotalConnections,
		RelationTypes:    analysis.RelationTypes,
	}, nil
}
