package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/pkg/types"
)

// ListOptions filters and paginates List (spec.md §4.2/§4.4 list/search).
type ListOptions struct {
	UserContext    string
	Type           types.MemoryType
	Tags           []string
	State          types.State
	ClusterID      string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

func (o *ListOptions) normalize() {
	if o.Limit <= 0 || o.Limit > 500 {
		o.Limit = 50
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// List returns memories matching opts, ordered by created_at DESC, plus the
// total matching count for pagination.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.Memory, int, error) {
	opts.normalize()

	var where []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !opts.IncludeDeleted {
		where = append(where, "deleted_at IS NULL")
	}
	if opts.UserContext != "" {
		where = append(where, "user_context = "+arg(opts.UserContext))
	}
	if opts.Type != "" {
		where = append(where, "type = "+arg(string(opts.Type)))
	}
	if opts.State != "" {
		where = append(where, "state = "+arg(string(opts.State)))
	}
	if opts.ClusterID != "" {
		where = append(where, "cluster_id = "+arg(opts.ClusterID))
	}
	for _, tag := range opts.Tags {
		where = append(where, "tags @> "+arg(fmt.Sprintf("[%q]", tag))+"::jsonb")
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	countSQL := "SELECT COUNT(*) FROM memories " + whereSQL
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, errs.Internal("store: count memories", err)
	}

	limitArg := arg(opts.Limit)
	offsetArg := arg(opts.Offset)
	query := "SELECT " + memoryColumns + " FROM memories " + whereSQL +
		" ORDER BY created_at DESC LIMIT " + limitArg + " OFFSET " + offsetArg

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errs.Internal("store: list memories", err)
	}
	defer rows.Close()

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, 0, err
	}
	return memories, total, nil
}

// ScoredMemory pairs a memory with its cosine distance to a query vector.
type ScoredMemory struct {
	Memory   types.Memory
	Distance float64
}

// KNNFilter narrows a KNNSearch to a memory type, a tag set (any-match), and
// a minimum similarity (spec.md §4.4 search: "query, type, tags, threshold").
// Threshold is a cosine-similarity floor in [0,1]; zero means unfiltered.
type KNNFilter struct {
	Type      types.MemoryType
	Tags      []string
	Threshold float64
}

// KNNSearch returns the nearest memories to query by cosine distance using
// the HNSW index (spec.md §4.4 semantic search, §6.3), restricted by filter.
// When pgvector is unavailable it falls back to the most recent memories
// matching filter.Type/Tags, matching the teacher's VectorSearch
// degrade-to-recent behavior.
func (s *Store) KNNSearch(ctx context.Context, userContext string, query []float32, limit int, filter KNNFilter) ([]ScoredMemory, error) {
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	if !s.pgvectorAvailable || len(query) == 0 {
		memories, _, err := s.List(ctx, ListOptions{UserContext: userContext, Type: filter.Type, Tags: filter.Tags, Limit: limit})
		if err != nil {
			return nil, err
		}
		out := make([]ScoredMemory, len(memories))
		for i, m := range memories {
			out[i] = ScoredMemory{Memory: m}
		}
		return out, nil
	}

	var where []string
	args := []interface{}{pgvector.NewVector(query), userContext}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	where = append(where, "user_context = $2", "deleted_at IS NULL", "embedding IS NOT NULL")
	if filter.Type != "" {
		where = append(where, "type = "+arg(string(filter.Type)))
	}
	for _, tag := range filter.Tags {
		where = append(where, "tags @> "+arg(fmt.Sprintf("[%q]", tag))+"::jsonb")
	}
	if filter.Threshold > 0 {
		where = append(where, fmt.Sprintf("embedding <=> $1 <= %s", arg(1-filter.Threshold)))
	}

	limitArg := arg(limit)
	query2 := "SELECT " + memoryColumns + ", embedding <=> $1 AS distance FROM memories WHERE " +
		strings.Join(where, " AND ") + " ORDER BY embedding <=> $1 LIMIT " + limitArg

	rows, err := s.db.QueryContext(ctx, query2, args...)
	if err != nil {
		return nil, errs.Internal("store: knn search", err)
	}
	defer rows.Close()

	var out []ScoredMemory
	for rows.Next() {
		m, dist, err := scanMemoryWithDistance(rows)
		if err != nil {
			return nil, errs.Internal("store: scan knn row", err)
		}
		out = append(out, ScoredMemory{Memory: *m, Distance: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("store: knn rows", err)
	}
	return out, nil
}

// scanMemoryWithDistance scans a row whose final column is an appended
// cosine-distance float, reusing scanMemory's rowScanner contract via a
// bound column count.
func scanMemoryWithDistance(rows *sql.Rows) (*types.Memory, float64, error) {
	var dist float64
	m, err := scanMemoryAnd(rows, &dist)
	if err != nil {
		return nil, 0, err
	}
	return m, dist, nil
}

// AllEmbeddings returns (id, embedding) pairs for every non-deleted memory
// with a vector, scoped to userContext, feeding internal/clustering's
// batch DBSCAN passes (spec.md §4.7).
func (s *Store) AllEmbeddings(ctx context.Context, userContext string) ([]string, [][]float32, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, embedding FROM memories
		WHERE user_context = $1 AND deleted_at IS NULL AND embedding IS NOT NULL
	`, userContext)
	if err != nil {
		return nil, nil, errs.Internal("store: list embeddings", err)
	}
	defer rows.Close()

	var ids []string
	var vecs [][]float32
	for rows.Next() {
		var id string
		var v pgvector.Vector
		if err := rows.Scan(&id, &v); err != nil {
			return nil, nil, errs.Internal("store: scan embedding", err)
		}
		ids = append(ids, id)
		vecs = append(vecs, v.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errs.Internal("store: embedding rows", err)
	}
	return ids, vecs, nil
}

// EmbeddingsWithClusters returns (id, embedding, cluster_id) triples for
// every non-deleted memory with a vector in userContext, feeding the
// incremental-clustering and cluster-maintenance passes (spec.md §4.7).
func (s *Store) EmbeddingsWithClusters(ctx context.Context, userContext string) ([]string, [][]float32, []string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, embedding, COALESCE(cluster_id, '') FROM memories
		WHERE user_context = $1 AND deleted_at IS NULL AND embedding IS NOT NULL
	`, userContext)
	if err != nil {
		return nil, nil, nil, errs.Internal("store: list embeddings with clusters", err)
	}
	defer rows.Close()

	var ids, clusters []string
	var vecs [][]float32
	for rows.Next() {
		var id, cid string
		var v pgvector.Vector
		if err := rows.Scan(&id, &v, &cid); err != nil {
			return nil, nil, nil, errs.Internal("store: scan embedding with cluster", err)
		}
		ids = append(ids, id)
		vecs = append(vecs, v.Slice())
		clusters = append(clusters, cid)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, nil, errs.Internal("store: embedding-with-cluster rows", err)
	}
	return ids, vecs, clusters, nil
}

// SetCluster assigns clusterID to every memory in ids (spec.md §4.7
// persisting DBSCAN assignments).
func (s *Store) SetCluster(ctx context.Context, ids []string, clusterID string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `UPDATE memories SET cluster_id = $1 WHERE id = ANY($2)`, clusterID, pq.Array(ids))
	if err != nil {
		return errs.Internal("store: set cluster", err)
	}
	return nil
}

// Stats aggregates corpus-wide counters for the stats resource (spec.md §6.2).
type Stats struct {
	TotalMemories  int
	ByType         map[string]int
	ByState        map[string]int
	TotalClusters  int
	TotalRelations int
}

// Stats computes corpus aggregates scoped to userContext.
func (s *Store) Stats(ctx context.Context, userContext string) (*Stats, error) {
	out := &Stats{ByType: map[string]int{}, ByState: map[string]int{}}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memories WHERE user_context = $1 AND deleted_at IS NULL
	`, userContext).Scan(&out.TotalMemories); err != nil {
		return nil, errs.Internal("store: stats total", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT type, COUNT(*) FROM memories WHERE user_context = $1 AND deleted_at IS NULL GROUP BY type
	`, userContext)
	if err != nil {
		return nil, errs.Internal("store: stats by type", err)
	}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			rows.Close()
			return nil, errs.Internal("store: scan stats by type", err)
		}
		out.ByType[t] = n
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT state, COUNT(*) FROM memories WHERE user_context = $1 AND deleted_at IS NULL GROUP BY state
	`, userContext)
	if err != nil {
		return nil, errs.Internal("store: stats by state", err)
	}
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			rows.Close()
			return nil, errs.Internal("store: scan stats by state", err)
		}
		out.ByState[st] = n
	}
	rows.Close()

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT cluster_id) FROM memories
		WHERE user_context = $1 AND deleted_at IS NULL AND cluster_id IS NOT NULL AND cluster_id != ''
	`, userContext).Scan(&out.TotalClusters); err != nil {
		return nil, errs.Internal("store: stats clusters", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM memory_relations r
		JOIN memories m ON m.id = r.from_memory_id
		WHERE m.user_context = $1
	`, userContext).Scan(&out.TotalRelations); err != nil {
		return nil, errs.Internal("store: stats relations", err)
	}

	return out, nil
}

// Tags returns the distinct tag vocabulary in use for userContext.
func (s *Store) Tags(ctx context.Context, userContext string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT tag FROM memories, jsonb_array_elements_text(COALESCE(tags, '[]'::jsonb)) AS tag
		WHERE user_context = $1 AND deleted_at IS NULL
		ORDER BY tag
	`, userContext)
	if err != nil {
		return nil, errs.Internal("store: list tags", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, errs.Internal("store: scan tag", err)
		}
		out = append(out, tag)
	}
	return out, rows.Err()
}

func scanMemories(rows *sql.Rows) ([]types.Memory, error) {
	var out []types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, errs.Internal("store: scan memory row", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("store: memory rows", err)
	}
	return out, nil
}

