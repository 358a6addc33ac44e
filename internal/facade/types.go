// Package facade implements the tool façade (spec.md §4.13/§6.1, component
// C13): the catalog of RPC-exposed operations, their input validation and
// sanitization, and the mapping from internal/errs.Code to deterministic
// RPC error codes. The wire framing itself (line-delimited JSON-RPC) is
// out of scope per spec.md §1 — this package is grounded on the teacher's
// internal/api/mcp/{server.go,types.go}: one Args/Result struct pair per
// tool, a single HandleRequest dispatch switch, and a narrow engine
// capability interface so this package stays decoupled from internal/engine
// wiring details.
package facade

import (
	"github.com/nodalmind/memoria/internal/engine"
	"github.com/nodalmind/memoria/internal/graph"
	"github.com/nodalmind/memoria/pkg/types"
)

// StoreArgs is the input of memory_store (spec.md §6.1). Confidence is a
// pointer so an explicit 0 survives validation (a bare float64 with a
// "required" constraint would reject it as unset); nil falls back to the
// engine's default of 1.
type StoreArgs struct {
	Content         interface{}        `json:"content" validate:"required"`
	Type            types.MemoryType   `json:"type" validate:"required"`
	Source          string             `json:"source" validate:"required"`
	Confidence      *float64           `json:"confidence" validate:"omitempty,min=0,max=1"`
	ImportanceScore float64            `json:"importance_score" validate:"min=0,max=1"`
	Tags            []string           `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	UserContext     string             `json:"user_context,omitempty" validate:"max=100"`
	Async           *bool              `json:"async,omitempty"`
	RelateTo        []RelateToArg      `json:"relate_to,omitempty"`
}

// RelateToArg is one duck-typed entry of StoreArgs.RelateTo (spec.md §9
// "Duck-typed relate_to").
type RelateToArg struct {
	MemoryID     string  `json:"memory_id" validate:"required"`
	RelationType string  `json:"relation_type" validate:"required"`
	Strength     float64 `json:"strength"`
}

// StoreResult is the output of memory_store. The embedding is never
// returned (spec.md §6.1 "embeddings are never returned").
type StoreResult struct {
	Memory *types.Memory `json:"memory"`
}

// SearchArgs is the input of memory_search (spec.md §6.1).
type SearchArgs struct {
	Query       string           `json:"query" validate:"required,max=1000"`
	UserContext string           `json:"user_context,omitempty" validate:"max=100"`
	Type        types.MemoryType `json:"type,omitempty"`
	Tags        []string         `json:"tags,omitempty" validate:"max=20,dive,max=50"`
	Threshold   *float64         `json:"threshold,omitempty" validate:"omitempty,min=0,max=1"`
	Limit       int              `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// SearchResult is the output of memory_search.
type SearchResult struct {
	Results []engine.SearchHit `json:"results"`
}

// ListArgs is the input of memory_list (spec.md §6.1).
type ListArgs struct {
	UserContext string           `json:"user_context,omitempty" validate:"max=100"`
	Type        types.MemoryType `json:"type,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	State       types.State      `json:"state,omitempty"`
	ClusterID   string           `json:"cluster_id,omitempty"`
	Limit       int              `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	Offset      int              `json:"offset,omitempty" validate:"min=0"`
}

// ListResult is the output of memory_list.
type ListResult struct {
	Memories []types.Memory `json:"memories"`
	Total    int            `json:"total"`
}

// UpdateArgs is the input of memory_update (spec.md §6.1).
type UpdateArgs struct {
	ID                 string            `json:"id" validate:"required,uuid"`
	Tags               *[]string         `json:"tags,omitempty"`
	Confidence         *float64          `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
	ImportanceScore    *float64          `json:"importance_score,omitempty" validate:"omitempty,min=0,max=1"`
	Type               *types.MemoryType `json:"type,omitempty"`
	Source             *string           `json:"source,omitempty"`
	PreserveTimestamps bool              `json:"preserve_timestamps,omitempty"`
}

// UpdateResult is the output of memory_update.
type UpdateResult struct {
	Memory *types.Memory `json:"memory"`
}

// DeleteArgs is the input of memory_delete (spec.md §6.1).
type DeleteArgs struct {
	ID          string `json:"id,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
	UserContext string `json:"user_context,omitempty"`
}

// DeleteResult is the output of memory_delete.
type DeleteResult struct {
	Success bool `json:"success"`
}

// BatchArgs is the input of memory_batch (spec.md §6.1).
type BatchArgs struct {
	Memories []StoreArgs `json:"memories" validate:"required,min=1,max=100,dive"`
}

// BatchItemResult is one entry of BatchResult.
type BatchItemResult struct {
	Index   int           `json:"index"`
	Memory  *types.Memory `json:"memory,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// BatchResult is the output of memory_batch.
type BatchResult struct {
	Items []BatchItemResult `json:"items"`
}

// BatchDeleteArgs is the input of memory_batch_delete (spec.md §6.1).
type BatchDeleteArgs struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// BatchDeleteItemResult is one entry of BatchDeleteResult.
type BatchDeleteItemResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BatchDeleteResult is the output of memory_batch_delete.
type BatchDeleteResult struct {
	Items []BatchDeleteItemResult `json:"items"`
}

// GraphSearchArgs is the input of memory_graph_search (spec.md §6.1), also
// accepted as an alias for memory_traverse per the same section.
type GraphSearchArgs struct {
	Query       string `json:"query" validate:"required,max=1000"`
	UserContext string `json:"user_context,omitempty"`
	Depth       int    `json:"depth,omitempty" validate:"omitempty,min=1,max=3"`
}

// GraphSearchResult is the output of memory_graph_search.
type GraphSearchResult struct {
	Results []engine.GraphSearchResult `json:"results"`
}

// ConsolidateArgs is the input of memory_consolidate (spec.md §6.1).
type ConsolidateArgs struct {
	UserContext    string   `json:"user_context,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty" validate:"omitempty,min=0.5,max=0.95"`
	MinClusterSize int      `json:"min_cluster_size,omitempty" validate:"omitempty,min=2"`
}

// ConsolidateResult is the output of memory_consolidate.
type ConsolidateResult struct {
	ClustersCreated   int `json:"clusters_created"`
	MemoriesArchived  int `json:"memories_archived"`
}

// StatsArgs is the input of memory_stats (spec.md §6.1/§6.2).
type StatsArgs struct {
	UserContext string `json:"user_context,omitempty"`
}

// RelateArgs is the input of memory_relate (spec.md §6.1).
type RelateArgs struct {
	From         string  `json:"from" validate:"required"`
	To           string  `json:"to" validate:"required"`
	RelationType string  `json:"relation_type" validate:"required"`
	Strength     float64 `json:"strength,omitempty" validate:"omitempty,min=0,max=1"`
	Bidirectional bool   `json:"bidirectional,omitempty"`
}

// RelateResult is the output of memory_relate.
type RelateResult struct {
	Success bool `json:"success"`
}

// UnrelateArgs is the input of memory_unrelate (spec.md §6.1).
type UnrelateArgs struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// UnrelateResult is the output of memory_unrelate.
type UnrelateResult struct {
	Success bool `json:"success"`
}

// GetRelationsArgs is the input of memory_get_relations (spec.md §6.1).
type GetRelationsArgs struct {
	MemoryID string `json:"memory_id" validate:"required"`
}

// GetRelationsResult is the output of memory_get_relations.
type GetRelationsResult struct {
	Relations []types.MemoryRelation `json:"relations"`
}

// TraverseArgs is the input of memory_traverse (spec.md §6.1).
type TraverseArgs struct {
	StartMemoryID      string              `json:"start_memory_id" validate:"required"`
	UserContext        string              `json:"user_context" validate:"required,max=100"`
	Algorithm          graph.Algorithm     `json:"algorithm,omitempty"`
	MaxDepth           int                 `json:"max_depth,omitempty" validate:"omitempty,min=1,max=5"`
	MaxNodes           int                 `json:"max_nodes,omitempty" validate:"omitempty,min=1,max=1000"`
	RelationTypes      []types.RelationType `json:"relation_types,omitempty"`
	MemoryTypes        []types.MemoryType  `json:"memory_types,omitempty"`
	Tags               []string            `json:"tags,omitempty"`
	IncludeParentLinks bool                `json:"include_parent_links,omitempty"`
	TimeoutMs          int                 `json:"timeout_ms,omitempty"`
}

// TraverseResult is the output of memory_traverse.
type TraverseResult struct {
	Nodes     []graph.Node `json:"nodes"`
	Truncated bool         `json:"truncated"`
}

// DecayStatusArgs is the input of memory_decay_status (spec.md §6.1).
type DecayStatusArgs struct {
	MemoryID string `json:"memory_id" validate:"required"`
}

// DecayStatusResult is the output of memory_decay_status.
type DecayStatusResult struct {
	DecayScore float64     `json:"decay_score"`
	State      types.State `json:"state"`
	LastUpdate string      `json:"last_decay_update"`
}

// PreserveArgs is the input of memory_preserve (spec.md §6.1).
type PreserveArgs struct {
	MemoryID string `json:"memory_id" validate:"required"`
	Until    string `json:"until,omitempty"` // ISO-8601
}

// PreserveResult is the output of memory_preserve.
type PreserveResult struct {
	Memory *types.Memory `json:"memory"`
}

// GraphAnalysisArgs is the input of memory_graph_analysis (spec.md §6.1).
type GraphAnalysisArgs struct {
	MemoryID    string `json:"memory_id" validate:"required"`
	UserContext string `json:"user_context" validate:"required,max=100"`
}

// GraphAnalysisResult is the output of memory_graph_analysis.
type GraphAnalysisResult struct {
	InDegree         int            `json:"in_degree"`
	OutDegree        int            `json:"out_degree"`
	TotalConnections int            `json:"total_connections"`
	RelationTypes    map[string]int `json:"relation_types"`
}
