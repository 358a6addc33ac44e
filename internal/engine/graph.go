package engine

import (
	"context"

	"github.com/nodalmind/memoria/internal/graph"
	gstore "github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

// Traverse delegates to internal/graph.Traverse scoped to this engine's
// store (spec.md §4.9).
func (e *Engine) Traverse(ctx context.Context, opts graph.Options) (*graph.Result, error) {
	if opts.UserContext == "" {
		opts.UserContext = types.DefaultUserContext
	}
	return graph.Traverse(ctx, e.store, opts)
}

// GraphAnalysis delegates to internal/graph.Analyze (spec.md §4.9
// graphAnalysis).
func (e *Engine) GraphAnalysis(ctx context.Context, userContext, id string) (*graph.Analysis, error) {
	return graph.Analyze(ctx, e.store, userContext, id)
}

// TopConnectors delegates to internal/graph.TopConnectors (spec.md §4.9
// findTopConnectors).
func (e *Engine) TopConnectors(ctx context.Context, userContext string, limit int) ([]gstore.ConnectorStat, error) {
	return graph.TopConnectors(ctx, e.store, userContext, limit)
}

// Relationship is one entry of a GraphSearch node's attached
// metadata.relationships (spec.md §4.8 graphSearch).
type Relationship struct {
	RelatedID string
	Type      types.RelationType
	Strength  float64
}

// GraphSearchResult pairs a memory with the relationships that connected it
// into the result during breadth expansion.
type GraphSearchResult struct {
	Memory        types.Memory
	Depth         int
	Relationships []Relationship
}

// GraphSearch implements spec.md §4.8 graphSearch: seed with Search, then
// breadth-expand up to depth levels over memory_relations (both
// directions) and parent_id (both directions), without revisiting nodes.
func (e *Engine) GraphSearch(ctx context.Context, in SearchInput, depth int) ([]GraphSearchResult, error) {
	if depth <= 0 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}
	userContext := in.UserContext
	if userContext == "" {
		userContext = types.DefaultUserContext
	}

	seeds, err := e.Search(ctx, in)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{}
	var out []GraphSearchResult
	type frontierItem struct {
		id    string
		depth int
	}
	var frontier []frontierItem

	for _, s := range seeds {
		if visited[s.Memory.ID] {
			continue
		}
		visited[s.Memory.ID] = true
		out = append(out, GraphSearchResult{Memory: s.Memory, Depth: 0})
		frontier = append(frontier, frontierItem{id: s.Memory.ID, depth: 0})
	}

	for level := 0; level < depth; level++ {
		var next []frontierItem
		for _, item := range frontier {
			rels, err := e.collectRelationships(ctx, item.id)
			if err != nil {
				continue
			}
			for _, rel := range rels {
				if visited[rel.RelatedID] {
					continue
				}
				visited[rel.RelatedID] = true
				m, err := e.store.Get(ctx, rel.RelatedID)
				if err != nil || m.Deleted() || m.UserContext != userContext {
					continue
				}
				out = append(out, GraphSearchResult{Memory: *m, Depth: item.depth + 1, Relationships: []Relationship{rel}})
				next = append(next, frontierItem{id: rel.RelatedID, depth: item.depth + 1})
			}
		}
		frontier = next
	}

	return out, nil
}

func (e *Engine) collectRelationships(ctx context.Context, id string) ([]Relationship, error) {
	var out []Relationship

	outgoing, err := e.store.Relations(ctx, id, "")
	if err != nil {
		return nil, err
	}
	for _, r := range outgoing {
		out = append(out, Relationship{RelatedID: r.ToMemoryID, Type: r.RelationType, Strength: r.Strength})
	}

	incoming, err := e.store.Incoming(ctx, id, "")
	if err != nil {
		return nil, err
	}
	for _, r := range incoming {
		out = append(out, Relationship{RelatedID: r.FromMemoryID, Type: r.RelationType, Strength: r.Strength})
	}

	children, err := e.store.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		out = append(out, Relationship{RelatedID: c.ID, Type: "parent_of", Strength: 1})
	}

	if self, err := e.store.Get(ctx, id); err == nil && self.ParentID != "" {
		out = append(out, Relationship{RelatedID: self.ParentID, Type: "child_of", Strength: 1})
	}

	return out, nil
}
