package facade_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodalmind/memoria/internal/engine"
	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/internal/facade"
	"github.com/nodalmind/memoria/internal/graph"
	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

// fakeEngine implements facade.Engine for dispatch/validation tests without
// a database, following the teacher's pattern of testing the MCP server
// against a lightweight in-memory stand-in (internal/api/mcp/server_test.go).
type fakeEngine struct {
	stored    []engine.StoreInput
	deleted   []string
	lastDepth int
}

func (f *fakeEngine) Store(ctx context.Context, in engine.StoreInput) (*types.Memory, error) {
	f.stored = append(f.stored, in)
	return &types.Memory{ID: "mem-1", Content: in.Content, Type: in.Type}, nil
}

func (f *fakeEngine) Search(ctx context.Context, in engine.SearchInput) ([]engine.SearchHit, error) {
	return []engine.SearchHit{{Memory: types.Memory{ID: "mem-1"}, Similarity: 0.9}}, nil
}

func (f *fakeEngine) List(ctx context.Context, opts store.ListOptions) ([]types.Memory, int, error) {
	return []types.Memory{{ID: "mem-1"}}, 1, nil
}

func (f *fakeEngine) Update(ctx context.Context, in engine.UpdateInput) (*types.Memory, error) {
	if in.ID == "missing" {
		return nil, errs.NotFoundf("memory %q not found", in.ID)
	}
	return &types.Memory{ID: in.ID}, nil
}

func (f *fakeEngine) Delete(ctx context.Context, userContext, id, contentHash string) error {
	if id == "missing" {
		return errs.NotFoundf("memory %q not found", id)
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeEngine) BatchStore(ctx context.Context, inputs []engine.StoreInput) []engine.BatchStoreResult {
	out := make([]engine.BatchStoreResult, len(inputs))
	for i, in := range inputs {
		out[i] = engine.BatchStoreResult{Index: i, Memory: &types.Memory{ID: "mem", Type: in.Type}}
	}
	return out
}

func (f *fakeEngine) BatchDelete(ctx context.Context, ids []string) []engine.BatchDeleteResult {
	out := make([]engine.BatchDeleteResult, len(ids))
	for i, id := range ids {
		out[i] = engine.BatchDeleteResult{ID: id}
	}
	return out
}

func (f *fakeEngine) GraphSearch(ctx context.Context, in engine.SearchInput, depth int) ([]engine.GraphSearchResult, error) {
	f.lastDepth = depth
	return nil, nil
}

func (f *fakeEngine) Consolidate(ctx context.Context, userContext string, threshold float64, minClusterSize int) (*engine.ConsolidateResult, error) {
	return &engine.ConsolidateResult{ClustersCreated: 2, MemoriesArchived: 6}, nil
}

func (f *fakeEngine) Stats(ctx context.Context, userContext string) (*store.Stats, error) {
	return &store.Stats{TotalMemories: 1}, nil
}

func (f *fakeEngine) Types(ctx context.Context, userContext string) (map[string]int, error) {
	return map[string]int{"fact": 1}, nil
}

func (f *fakeEngine) Tags(ctx context.Context, userContext string) ([]string, error) {
	return []string{"a"}, nil
}

func (f *fakeEngine) Clusters(ctx context.Context, userContext string) ([]engine.ClusterSummary, error) {
	return []engine.ClusterSummary{{ClusterID: "1", Size: 3}}, nil
}

func (f *fakeEngine) CreateRelation(ctx context.Context, from, to string, relationType types.RelationType, strength float64) error {
	return nil
}

func (f *fakeEngine) CreateBidirectionalRelation(ctx context.Context, from, to string, relationType types.RelationType, strength float64) error {
	return nil
}

func (f *fakeEngine) DeleteRelation(ctx context.Context, from, to string) error {
	return nil
}

func (f *fakeEngine) GetMemoryRelations(ctx context.Context, memoryID string) ([]types.MemoryRelation, error) {
	return []types.MemoryRelation{{ID: "r1", FromMemoryID: memoryID}}, nil
}

func (f *fakeEngine) Traverse(ctx context.Context, opts graph.Options) (*graph.Result, error) {
	return &graph.Result{Nodes: []graph.Node{{Memory: types.Memory{ID: opts.StartID}, Depth: 0}}}, nil
}

func (f *fakeEngine) GraphAnalysis(ctx context.Context, userContext, id string) (*graph.Analysis, error) {
	return &graph.Analysis{InDegree: 1, OutDegree: 2, TotalConnections: 3, RelationTypes: map[string]int{"references": 1}}, nil
}

func (f *fakeEngine) TopConnectors(ctx context.Context, userContext string, limit int) ([]store.ConnectorStat, error) {
	return []store.ConnectorStat{{MemoryID: "mem-1", EdgeCount: 4}}, nil
}

func (f *fakeEngine) DecayStatus(ctx context.Context, id string) (*types.Memory, error) {
	return &types.Memory{ID: id, DecayScore: 0.5, State: types.StateDormant, LastDecayUpdate: time.Now()}, nil
}

func (f *fakeEngine) Preserve(ctx context.Context, id string, until *time.Time) (*types.Memory, error) {
	return &types.Memory{ID: id, DecayScore: 1.0, State: types.StateActive}, nil
}

func TestServer_Store_RejectsNonUserStorableType(t *testing.T) {
	srv := facade.New(&fakeEngine{})
	params, _ := json.Marshal(facade.StoreArgs{
		Content: "x", Type: types.TypeMerged, Source: "test", Confidence: f64(0.5),
	})
	_, err := srv.Call(context.Background(), facade.ToolStore, params)
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidParams, errs.Code_(err))
}

func TestServer_Store_RejectsOversizedContent(t *testing.T) {
	srv := facade.New(&fakeEngine{})
	big := make([]byte, types.MaxContentBytes+1)
	for i := range big {
		big[i] = 'a'
	}
	params, _ := json.Marshal(facade.StoreArgs{
		Content: string(big), Type: types.TypeFact, Source: "test", Confidence: f64(0.5),
	})
	_, err := srv.Call(context.Background(), facade.ToolStore, params)
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidParams, errs.Code_(err))
}

func TestServer_Store_AcceptsValid(t *testing.T) {
	fe := &fakeEngine{}
	srv := facade.New(fe)
	params, _ := json.Marshal(facade.StoreArgs{
		Content: "hello", Type: types.TypeFact, Source: "test", Confidence: f64(0.9),
		Tags: []string{"ok!", "second"},
	})
	res, err := srv.Call(context.Background(), facade.ToolStore, params)
	require.NoError(t, err)
	sr := res.(facade.StoreResult)
	assert.Equal(t, "mem-1", sr.Memory.ID)
	require.Len(t, fe.stored, 1)
	assert.Equal(t, []string{"ok", "second"}, fe.stored[0].Tags) // sanitized
}

func TestServer_Store_AcceptsZeroConfidence(t *testing.T) {
	fe := &fakeEngine{}
	srv := facade.New(fe)
	params, _ := json.Marshal(facade.StoreArgs{
		Content: "zero", Type: types.TypeFact, Source: "test", Confidence: f64(0),
	})
	_, err := srv.Call(context.Background(), facade.ToolStore, params)
	require.NoError(t, err)
	require.Len(t, fe.stored, 1)
	require.NotNil(t, fe.stored[0].Confidence)
	assert.Equal(t, 0.0, *fe.stored[0].Confidence)
}

func TestServer_Search_LimitBoundary(t *testing.T) {
	srv := facade.New(&fakeEngine{})

	okParams, _ := json.Marshal(facade.SearchArgs{Query: "q", Limit: 100})
	_, err := srv.Call(context.Background(), facade.ToolSearch, okParams)
	require.NoError(t, err)

	tooMany, _ := json.Marshal(facade.SearchArgs{Query: "q", Limit: 101})
	_, err = srv.Call(context.Background(), facade.ToolSearch, tooMany)
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidParams, errs.Code_(err))
}

func TestServer_Consolidate_ThresholdBoundary(t *testing.T) {
	srv := facade.New(&fakeEngine{})

	lo := 0.5
	okParams, _ := json.Marshal(facade.ConsolidateArgs{Threshold: &lo})
	_, err := srv.Call(context.Background(), facade.ToolConsolidate, okParams)
	require.NoError(t, err)

	tooLow := 0.49
	badParams, _ := json.Marshal(facade.ConsolidateArgs{Threshold: &tooLow})
	_, err = srv.Call(context.Background(), facade.ToolConsolidate, badParams)
	require.Error(t, err)
}

func TestServer_Delete_NotFoundIsNotAnError(t *testing.T) {
	srv := facade.New(&fakeEngine{})
	params, _ := json.Marshal(facade.DeleteArgs{ID: "missing"})
	res, err := srv.Call(context.Background(), facade.ToolDelete, params)
	require.NoError(t, err)
	assert.False(t, res.(facade.DeleteResult).Success)
}

func TestServer_UnknownTool(t *testing.T) {
	srv := facade.New(&fakeEngine{})
	_, err := srv.Call(context.Background(), facade.ToolName("nope"), []byte(`{}`))
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotFound, errs.Code_(err))
}

func TestHandleRequest_MethodNotFound(t *testing.T) {
	srv := facade.New(&fakeEngine{})
	raw := HandleRequestHelper(t, srv, `{"jsonrpc":"2.0","id":1,"method":"bogus","params":{}}`)
	var resp facade.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, facade.ErrCodeMethodNotFound, resp.Error.Code)
}

func TestHandleRequest_GraphSearchAliasRoutesToTraverse(t *testing.T) {
	fe := &fakeEngine{}
	srv := facade.New(fe)
	raw := HandleRequestHelper(t, srv, `{"jsonrpc":"2.0","id":1,"method":"memory_graph_search","params":{"start_memory_id":"m1","user_context":"u1"}}`)
	var resp facade.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Nil(t, resp.Error)
}

func TestHandleRequest_GraphSearchWithoutStartIDUsesQuerySearch(t *testing.T) {
	fe := &fakeEngine{}
	srv := facade.New(fe)
	raw := HandleRequestHelper(t, srv, `{"jsonrpc":"2.0","id":1,"method":"memory_graph_search","params":{"query":"hello"}}`)
	var resp facade.Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, fe.lastDepth)
}

func f64(v float64) *float64 { return &v }

func HandleRequestHelper(t *testing.T, srv *facade.Server, reqJSON string) []byte {
	t.Helper()
	return facade.HandleRequest(context.Background(), srv, []byte(reqJSON))
}
