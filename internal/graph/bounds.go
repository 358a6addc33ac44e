// Package graph implements bounded traversal of the memory relation graph
// (spec.md §4.9, component C9). Grounded on the teacher's
// internal/engine/{graph_traversal.go,graph_bounds_checker.go}: a resource
// BoundsChecker tracking nodes/edges/depth/timeout, wrapping a BFS/DFS walk
// over relation edges fetched from the store.
package graph

import (
	"context"
	"time"

	"github.com/nodalmind/memoria/internal/errs"
)

// Bounds caps a traversal's resource usage (spec.md §4.9 opts).
type Bounds struct {
	MaxDepth int
	MaxNodes int
	Timeout  time.Duration
}

// Normalize applies spec.md §4.9's defaults and caps.
func (b *Bounds) Normalize() {
	if b.MaxDepth <= 0 {
		b.MaxDepth = 3
	}
	if b.MaxDepth > 5 {
		b.MaxDepth = 5
	}
	if b.MaxNodes <= 0 {
		b.MaxNodes = 100
	}
	if b.MaxNodes > 1000 {
		b.MaxNodes = 1000
	}
	if b.Timeout <= 0 {
		b.Timeout = 5 * time.Second
	}
}

// boundsChecker tracks traversal progress against Bounds, mirroring the
// teacher's BoundsChecker.
type boundsChecker struct {
	bounds    Bounds
	nodes     int
	startTime time.Time
}

func newBoundsChecker(bounds Bounds) *boundsChecker {
	bounds.Normalize()
	return &boundsChecker{bounds: bounds, startTime: time.Now()}
}

// canContinue reports whether traversal may visit another node at depth,
// returning a Logic error (non-fatal per spec.md §7: "traversal timeout")
// when a bound is hit.
func (b *boundsChecker) canContinue(ctx context.Context, depth int) error {
	select {
	case <-ctx.Done():
		return errs.Transient("graph: context cancelled", ctx.Err())
	default:
	}
	if b.nodes >= b.bounds.MaxNodes {
		return errs.Logic("graph: max nodes exceeded")
	}
	if depth > b.bounds.MaxDepth {
		return errs.Logic("graph: max depth exceeded")
	}
	if time.Since(b.startTime) >= b.bounds.Timeout {
		return errs.Logic("graph: traversal timeout")
	}
	return nil
}

func (b *boundsChecker) recordNode() {
	b.nodes++
}
