package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/pkg/types"
)

// CreateRelation implements spec.md §4.8 createRelation: verifies both
// endpoints exist and are not deleted, upserts the edge, and invalidates
// both endpoints' caches. Uniqueness of the (from, to) pair is the store's
// concern; concurrent creates converge on the last writer's type and
// strength without any locking here.
func (e *Engine) CreateRelation(ctx context.Context, from, to string, relationType types.RelationType, strength float64) error {
	fromM, err := e.store.Get(ctx, from)
	if err != nil {
		return err
	}
	toM, err := e.store.Get(ctx, to)
	if err != nil {
		return err
	}
	if fromM.Deleted() || toM.Deleted() {
		return errs.InvalidParams("createRelation: endpoint is deleted")
	}

	if err := e.store.UpsertRelation(ctx, &types.MemoryRelation{
		ID:           uuid.NewString(),
		FromMemoryID: from,
		ToMemoryID:   to,
		RelationType: types.NormalizeRelationType(relationType),
		Strength:     types.ClampUnit(strength),
		CreatedAt:    time.Now(),
	}); err != nil {
		return err
	}

	e.invalidateMemory(ctx, from)
	e.invalidateMemory(ctx, to)
	return nil
}

// DeleteRelation removes the edge(s) between from and to, invalidating both
// caches (spec.md §4.8 deleteRelation).
func (e *Engine) DeleteRelation(ctx context.Context, from, to string) error {
	rels, err := e.store.Relations(ctx, from, "")
	if err != nil {
		return err
	}
	found := false
	for _, r := range rels {
		if r.ToMemoryID == to {
			if err := e.store.DeleteRelation(ctx, r.ID); err != nil {
				return err
			}
			found = true
		}
	}
	if !found {
		return errs.NotFoundf("relation %s -> %s not found", from, to)
	}
	e.invalidateMemory(ctx, from)
	e.invalidateMemory(ctx, to)
	return nil
}

// CreateBidirectionalRelation creates from->to with relationType and
// to->from with its reverse (spec.md §4.8 createBidirectionalRelation).
func (e *Engine) CreateBidirectionalRelation(ctx context.Context, from, to string, relationType types.RelationType, strength float64) error {
	if err := e.CreateRelation(ctx, from, to, relationType, strength); err != nil {
		return err
	}
	reverse := types.ReverseRelationType(types.NormalizeRelationType(relationType))
	return e.CreateRelation(ctx, to, from, reverse, strength)
}

// GetMemoryRelations returns every edge touching memoryID, in either
// direction (spec.md §4.8 getMemoryRelations).
func (e *Engine) GetMemoryRelations(ctx context.Context, memoryID string) ([]types.MemoryRelation, error) {
	return e.store.Neighbors(ctx, memoryID)
}
