package graph

import (
	"context"
	"time"

	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

// Algorithm selects BFS or DFS expansion order.
type Algorithm string

const (
	AlgorithmBFS Algorithm = "bfs"
	AlgorithmDFS Algorithm = "dfs"
)

// Store is the subset of internal/store.Store that traversal depends on,
// kept narrow so this package stays decoupled from the persistence layer,
// following the teacher's storage.MemoryStore interface-segregation style.
type Store interface {
	Get(ctx context.Context, id string) (*types.Memory, error)
	Relations(ctx context.Context, memoryID string, relationType string) ([]types.MemoryRelation, error)
	Incoming(ctx context.Context, memoryID string, relationType string) ([]types.MemoryRelation, error)
	Children(ctx context.Context, parentID string) ([]types.Memory, error)
	DegreeAnalysis(ctx context.Context, userContext, id string) (inDegree, outDegree int, histogram map[string]int, err error)
	TopConnectors(ctx context.Context, userContext string, limit int) ([]store.ConnectorStat, error)
}

// Options configures Traverse (spec.md §4.9).
type Options struct {
	StartID            string
	UserContext        string
	Algorithm          Algorithm
	MaxDepth           int
	MaxNodes           int
	RelationTypes      []types.RelationType
	MemoryTypes        []types.MemoryType
	Tags               []string
	IncludeParentLinks bool
	Timeout            time.Duration
}

// Node is one entry in a Traverse result.
type Node struct {
	Memory              types.Memory `json:"memory"`
	Depth               int          `json:"depth"`
	Path                []string     `json:"path"`
	RelationFromParent  string       `json:"relation_from_parent,omitempty"`
}

// Result is the outcome of a bounded traversal.
type Result struct {
	Nodes     []Node `json:"nodes"`
	Truncated bool   `json:"truncated"`
}

type workItem struct {
	id       string
	depth    int
	path     []string
	relation string
}

// Traverse walks the memory relation graph from opts.StartID using BFS or
// DFS, respecting depth/node/timeout bounds (spec.md §4.9). A missing start
// node yields an empty, non-error Result with Truncated false; a bound
// violation yields the partial, non-error Result with Truncated set,
// matching spec.md §7's "traversal timeout (non-fatal, truncates result)".
func Traverse(ctx context.Context, store Store, opts Options) (*Result, error) {
	bounds := Bounds{MaxDepth: opts.MaxDepth, MaxNodes: opts.MaxNodes, Timeout: opts.Timeout}
	bounds.Normalize()
	checker := newBoundsChecker(bounds)

	queue := []workItem{{id: opts.StartID, depth: 0, path: nil}}
	visited := map[string]bool{}
	result := &Result{}

	for len(queue) > 0 {
		var current workItem
		if opts.Algorithm == AlgorithmDFS {
			current = queue[len(queue)-1]
			queue = queue[:len(queue)-1]
		} else {
			current = queue[0]
			queue = queue[1:]
		}

		if visited[current.id] {
			continue
		}

		if err := checker.canContinue(ctx, current.depth); err != nil {
			result.Truncated = true
			break
		}
		visited[current.id] = true

		mem, err := store.Get(ctx, current.id)
		if err == nil && mem.UserContext == opts.UserContext && !mem.Deleted() &&
			matchesMemoryType(mem.Type, opts.MemoryTypes) && matchesTags(mem.Tags, opts.Tags) {
			checker.recordNode()
			result.Nodes = append(result.Nodes, Node{
				Memory:             *mem,
				Depth:              current.depth,
				Path:               append(current.path, current.id),
				RelationFromParent: current.relation,
			})
		}

		if current.depth >= bounds.MaxDepth {
			continue
		}

		neighbors := gatherNeighbors(ctx, store, current.id, opts)
		for _, n := range neighbors {
			if visited[n.id] {
				continue
			}
			queue = append(queue, workItem{
				id:       n.id,
				depth:    current.depth + 1,
				path:     append(append([]string{}, current.path...), current.id),
				relation: n.relation,
			})
		}
	}

	return result, nil
}

type neighborRef struct {
	id       string
	relation string
}

// gatherNeighbors collects outgoing, then incoming, then (optionally)
// parent-link connections for id, matching spec.md §4.9's ordering
// guarantee: "outgoing-then-incoming-then-parent-links".
func gatherNeighbors(ctx context.Context, store Store, id string, opts Options) []neighborRef {
	var out []neighborRef

	relTypeFilter := ""
	if len(opts.RelationTypes) == 1 {
		relTypeFilter = string(opts.RelationTypes[0])
	}

	outgoing, _ := store.Relations(ctx, id, relTypeFilter)
	for _, r := range outgoing {
		if !matchesRelationType(r.RelationType, opts.RelationTypes) {
			continue
		}
		out = append(out, neighborRef{id: r.ToMemoryID, relation: string(r.RelationType)})
	}

	incoming, _ := store.Incoming(ctx, id, relTypeFilter)
	for _, r := range incoming {
		if !matchesRelationType(r.RelationType, opts.RelationTypes) {
			continue
		}
		out = append(out, neighborRef{id: r.FromMemoryID, relation: string(r.RelationType)})
	}

	if opts.IncludeParentLinks {
		children, _ := store.Children(ctx, id)
		for _, c := range children {
			out = append(out, neighborRef{id: c.ID, relation: "parent_of"})
		}
		if parent, err := store.Get(ctx, id); err == nil && parent.ParentID != "" {
			out = append(out, neighborRef{id: parent.ParentID, relation: "child_of"})
		}
	}

	return out
}

func matchesRelationType(t types.RelationType, allowed []types.RelationType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

func matchesMemoryType(t types.MemoryType, allowed []types.MemoryType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == t {
			return true
		}
	}
	return false
}

func matchesTags(tags, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, t := range tags {
		for _, f := range filter {
			if t == f {
				return true
			}
		}
	}
	return false
}
