package store

import (
	"context"
	"database/sql"

	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/pkg/types"
)

// UpsertRelation creates or strengthens a directed edge between two
// memories (spec.md §4.8 createRelation / createBidirectionalRelation).
// The (from, to) pair is unique; a conflicting insert converges on the
// incoming relation type and strength, keeping the existing row's id.
func (s *Store) UpsertRelation(ctx context.Context, r *types.MemoryRelation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_relations (id, from_memory_id, to_memory_id, relation_type, strength, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (from_memory_id, to_memory_id) DO UPDATE SET
			relation_type = EXCLUDED.relation_type,
			strength = EXCLUDED.strength,
			updated_at = EXCLUDED.updated_at
	`, r.ID, r.FromMemoryID, r.ToMemoryID, string(r.RelationType), r.Strength, r.CreatedAt)
	if err != nil {
		return errs.Internal("store: upsert relation", err)
	}
	return nil
}

// DeleteRelation removes an edge by ID.
func (s *Store) DeleteRelation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memory_relations WHERE id = $1`, id)
	if err != nil {
		return errs.Internal("store: delete relation", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errs.NotFoundf("relation %q not found", id)
	}
	return nil
}

// Relations returns all outgoing edges from memoryID, optionally filtered to
// a single relation type (empty string means all types).
func (s *Store) Relations(ctx context.Context, memoryID string, relationType string) ([]types.MemoryRelation, error) {
	query := `SELECT id, from_memory_id, to_memory_id, relation_type, strength, created_at, updated_at
		FROM memory_relations WHERE from_memory_id = $1`
	args := []interface{}{memoryID}
	if relationType != "" {
		query += ` AND relation_type = $2`
		args = append(args, relationType)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal("store: list relations", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

// Incoming returns all edges pointing into memoryID, optionally filtered to
// a single relation type (spec.md §4.9 traverse's incoming connections).
func (s *Store) Incoming(ctx context.Context, memoryID string, relationType string) ([]types.MemoryRelation, error) {
	query := `SELECT id, from_memory_id, to_memory_id, relation_type, strength, created_at, updated_at
		FROM memory_relations WHERE to_memory_id = $1`
	args := []interface{}{memoryID}
	if relationType != "" {
		query += ` AND relation_type = $2`
		args = append(args, relationType)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal("store: list incoming relations", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

// Neighbors returns all edges touching memoryID in either direction, used by
// internal/graph for bounded traversal (spec.md §4.9).
func (s *Store) Neighbors(ctx context.Context, memoryID string) ([]types.MemoryRelation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_memory_id, to_memory_id, relation_type, strength, created_at, updated_at
		FROM memory_relations WHERE from_memory_id = $1 OR to_memory_id = $1
	`, memoryID)
	if err != nil {
		return nil, errs.Internal("store: list neighbors", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

// Children returns memories whose parent_id is parentID (spec.md §4.9
// includeParentLinks children lookup, labeled parent_of by the caller).
func (s *Store) Children(ctx context.Context, parentID string) ([]types.Memory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE parent_id = $1 AND deleted_at IS NULL`, parentID)
	if err != nil {
		return nil, errs.Internal("store: list children", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// ConnectorStat summarizes a memory's edge degree for findTopConnectors.
type ConnectorStat struct {
	MemoryID  string
	EdgeCount int
}

// DegreeAnalysis computes in-degree, out-degree, and a relation-type
// histogram for id, scoped to userContext with soft-delete filters enforced
// on both endpoints (spec.md §4.9 graphAnalysis).
func (s *Store) DegreeAnalysis(ctx context.Context, userContext, id string) (inDegree, outDegree int, histogram map[string]int, err error) {
	histogram = map[string]int{}

	rows, qerr := s.db.QueryContext(ctx, `
		SELECT r.relation_type,
			SUM(CASE WHEN r.from_memory_id = $2 THEN 1 ELSE 0 END) AS out_count,
			SUM(CASE WHEN r.to_memory_id = $2 THEN 1 ELSE 0 END) AS in_count
		FROM memory_relations r
		JOIN memories mf ON mf.id = r.from_memory_id
		JOIN memories mt ON mt.id = r.to_memory_id
		WHERE (r.from_memory_id = $2 OR r.to_memory_id = $2)
			AND mf.user_context = $1 AND mf.deleted_at IS NULL
			AND mt.user_context = $1 AND mt.deleted_at IS NULL
		GROUP BY r.relation_type
	`, userContext, id)
	if qerr != nil {
		return 0, 0, nil, errs.Internal("store: degree analysis", qerr)
	}
	defer rows.Close()

	for rows.Next() {
		var relType string
		var out, in int
		if serr := rows.Scan(&relType, &out, &in); serr != nil {
			return 0, 0, nil, errs.Internal("store: scan degree analysis", serr)
		}
		histogram[relType] = out + in
		outDegree += out
		inDegree += in
	}
	if rerr := rows.Err(); rerr != nil {
		return 0, 0, nil, errs.Internal("store: degree analysis rows", rerr)
	}
	return inDegree, outDegree, histogram, nil
}

// TopConnectors returns memories ordered by distinct-edge count descending
// (spec.md §4.9 findTopConnectors).
func (s *Store) TopConnectors(ctx context.Context, userContext string, limit int) ([]ConnectorStat, error) {
	if limit <= 0 || limit > 200 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT mid, COUNT(*) AS edge_count FROM (
			SELECT r.from_memory_id AS mid FROM memory_relations r
			JOIN memories m ON m.id = r.from_memory_id
			WHERE m.user_context = $1 AND m.deleted_at IS NULL
			UNION ALL
			SELECT r.to_memory_id AS mid FROM memory_relations r
			JOIN memories m ON m.id = r.to_memory_id
			WHERE m.user_context = $1 AND m.deleted_at IS NULL
		) endpoints
		GROUP BY mid
		ORDER BY edge_count DESC
		LIMIT $2
	`, userContext, limit)
	if err != nil {
		return nil, errs.Internal("store: top connectors", err)
	}
	defer rows.Close()

	var out []ConnectorStat
	for rows.Next() {
		var c ConnectorStat
		if err := rows.Scan(&c.MemoryID, &c.EdgeCount); err != nil {
			return nil, errs.Internal("store: scan top connector", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanRelations(rows *sql.Rows) ([]types.MemoryRelation, error) {
	var out []types.MemoryRelation
	for rows.Next() {
		var r types.MemoryRelation
		var relType string
		if err := rows.Scan(&r.ID, &r.FromMemoryID, &r.ToMemoryID, &relType, &r.Strength, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, errs.Internal("store: scan relation", err)
		}
		r.RelationType = types.RelationType(relType)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("store: relation rows", err)
	}
	return out, nil
}
