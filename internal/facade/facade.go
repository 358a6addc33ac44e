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

// Engine is the subset of engine.Engine the façade depends on, kept narrow
// so this package is testable against a fake (spec.md §9 "expose a
// capability seam"), following the teacher's memoryEngine interface in
// internal/api/mcp/server.go.
type Engine interface {
	Store(ctx context.Context, in engine.StoreInput) (*types.Memory, error)
	Search(ctx context.Context, in engine.SearchInput) ([]engine.SearchHit, error)
	List(ctx context.Context, opts store.ListOptions) ([]types.Memory, int, error)
	Update(ctx context.Context, in engine.UpdateInput) (*types.Memory, error)
	Delete(ctx context.Context, userContext, id, contentHash string) error
	BatchStore(ctx context.Context, inputs []engine.StoreInput) []engine.BatchStoreResult
	BatchDelete(ctx context.Context, ids []string) []engine.BatchDeleteResult
	GraphSearch(ctx context.Context, in engine.SearchInput, depth int) ([]engine.GraphSearchResult, error)
	Consolidate(ctx context.Context, userContext string, threshold float64, minClusterSize int) (*engine.ConsolidateResult, error)
	Stats(ctx context.Context, userContext string) (*store.Stats, error)
	Types(ctx context.Context, userContext string) (map[string]int, error)
	Tags(ctx context.Context, userContext string) ([]string, error)
	Clusters(ctx context.Context, userContext string) ([]engine.ClusterSummary, error)
	CreateRelation(ctx context.Context, from, to string, relationType types.RelationType, strength float64) error
	CreateBidirectionalRelation(ctx context.Context, from, to string, relationType types.RelationType, strength float64) error
	DeleteRelation(ctx context.Context, from, to string) error
	GetMemoryRelations(ctx context.Context, memoryID string) ([]types.MemoryRelation, error)
	Traverse(ctx context.Context, opts graph.Options) (*graph.Result, error)
	GraphAnalysis(ctx context.Context, userContext, id string) (*graph.Analysis, error)
	TopConnectors(ctx context.Context, userContext string, limit int) ([]store.ConnectorStat, error)
	DecayStatus(ctx context.Context, id string) (*types.Memory, error)
	Preserve(ctx context.Context, id string, until *time.Time) (*types.Memory, error)
}

// ToolName identifies one of the catalog entries in spec.md §6.1.
type ToolName string

const (
	ToolStore            ToolName = "memory_store"
	ToolSearch           ToolName = "memory_search"
	ToolList             ToolName = "memory_list"
	ToolUpdate           ToolName = "memory_update"
	ToolDelete           ToolName = "memory_delete"
	ToolBatch            ToolName = "memory_batch"
	ToolBatchDelete      ToolName = "memory_batch_delete"
	ToolGraphSearch      ToolName = "memory_graph_search"
	ToolConsolidate      ToolName = "memory_consolidate"
	ToolStats            ToolName = "memory_stats"
	ToolRelate           ToolName = "memory_relate"
	ToolUnrelate         ToolName = "memory_unrelate"
	ToolGetRelations     ToolName = "memory_get_relations"
	ToolTraverse         ToolName = "memory_traverse"
	ToolDecayStatus      ToolName = "memory_decay_status"
	ToolPreserve         ToolName = "memory_preserve"
	ToolGraphAnalysis    ToolName = "memory_graph_analysis"
)

// Catalog lists every tool exposed by the façade (spec.md §6.1), in the
// order the spec's table presents them. Callers (e.g. a tools/list RPC
// handler) can range over this without duplicating the name list.
var Catalog = []ToolName{
	ToolStore, ToolSearch, ToolList, ToolUpdate, ToolDelete, ToolBatch,
	ToolBatchDelete, ToolGraphSearch, ToolConsolidate, ToolStats, ToolRelate,
	ToolUnrelate, ToolGetRelations, ToolTraverse, ToolDecayStatus,
	ToolPreserve, ToolGraphAnalysis,
}

// Server dispatches validated tool calls to an Engine, mapping results and
// errors to the JSON shapes spec.md §6.1 describes. It holds no transport
// state; see cmd/memoriad for the line-delimited JSON-RPC wiring spec.md §1
// places out of scope.
type Server struct {
	engine Engine
}

// New builds a Server wrapping engine.
func New(eng Engine) *Server {
	return &Server{engine: eng}
}

// Call validates paramsJSON against tool's argument schema, dispatches to
// the Engine, and returns a JSON-marshalable result or a classified error
// (internal/errs.Code) for the caller to map to an RPC error code.
func (s *Server) Call(ctx context.Context, tool ToolName, paramsJSON []byte) (interface{}, error) {
	switch tool {
	case ToolStore:
		return s.callStore(ctx, paramsJSON)
	case ToolSearch:
		return s.callSearch(ctx, paramsJSON)
	case ToolList:
		return s.callList(ctx, paramsJSON)
	case ToolUpdate:
		return s.callUpdate(ctx, paramsJSON)
	case ToolDelete:
		return s.callDelete(ctx, paramsJSON)
	case ToolBatch:
		return s.callBatch(ctx, paramsJSON)
	case ToolBatchDelete:
		return s.callBatchDelete(ctx, paramsJSON)
	case ToolGraphSearch:
		return s.callGraphSearch(ctx, paramsJSON)
	case ToolConsolidate:
		return s.callConsolidate(ctx, paramsJSON)
	case ToolStats:
		return s.callStats(ctx, paramsJSON)
	case ToolRelate:
		return s.callRelate(ctx, paramsJSON)
	case ToolUnrelate:
		return s.callUnrelate(ctx, paramsJSON)
	case ToolGetRelations:
		return s.callGetRelations(ctx, paramsJSON)
	case ToolTraverse:
		return s.callTraverse(ctx, paramsJSON)
	case ToolDecayStatus:
		return s.callDecayStatus(ctx, paramsJSON)
	case ToolPreserve:
		return s.callPreserve(ctx, paramsJSON)
	case ToolGraphAnalysis:
		return s.callGraphAnalysis(ctx, paramsJSON)
	default:
		return nil, errs.NotFoundf("unknown tool %q", tool)
	}
}

// decodeParams unmarshals paramsJSON into args and runs struct-tag
// validation, returning an InvalidParams error on either failure
// (spec.md §6.1: "Inputs are validated ... Validation failures return
// InvalidParams").
func decodeParams(paramsJSON []byte, args interface{}) error {
	if len(paramsJSON) == 0 {
		paramsJSON = []byte("{}")
	}
	if err := json.Unmarshal(paramsJSON, args); err != nil {
		return errs.InvalidParamsf("malformed params: %v", err)
	}
	if err := validate.Struct(args); err != nil {
		return validationError(err)
	}
	return nil
}
