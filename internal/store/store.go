// Package store implements the PostgreSQL/pgvector persistence layer for
// memories and their relations (spec.md §4.2 and §6.3, component C4).
// Grounded on the teacher's internal/storage/postgres package: connection
// pool settings, idempotent schema application, the pgvectorAvailable
// feature-detection flag, and the nullable-scan-then-assign scan helpers.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/nodalmind/memoria/internal/errs"
	"github.com/nodalmind/memoria/pkg/types"
)

// Store is the PostgreSQL-backed memory and relation repository.
type Store struct {
	db                *sql.DB
	log               *zap.SugaredLogger
	pgvectorAvailable bool
}

// Open connects to dsn, applies the idempotent schema with the deployment's
// fixed embedding dimension (spec.md §6.3), and detects pgvector
// availability, following the teacher's NewMemoryStore startup sequence.
func Open(ctx context.Context, dsn string, dim int, log *zap.SugaredLogger) (*Store, error) {
	if dim <= 0 {
		dim = 768
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errs.Internal("store: open database", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Transient("store: ping database", err)
	}

	s := &Store{db: db, log: log}

	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Warnw("pgvector extension unavailable, vector search disabled", "error", err)
		s.pgvectorAvailable = false
	} else {
		s.pgvectorAvailable = true
	}

	if _, err := db.ExecContext(ctx, Schema(dim)); err != nil {
		db.Close()
		return nil, errs.Internal("store: apply schema", err)
	}

	if s.pgvectorAvailable {
		if _, err := db.ExecContext(ctx, MigrationHNSW); err != nil {
			log.Warnw("failed to create HNSW index, vector search degraded to sequential scan", "error", err)
		}
	}

	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// PgvectorAvailable reports whether native vector search is usable.
func (s *Store) PgvectorAvailable() bool {
	return s.pgvectorAvailable
}

// ContentHash computes the deduplication hash of a memory's serialized
// content, matching the teacher's Store() convention of hashing on write.
func ContentHash(content interface{}) (string, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return "", errs.InvalidParamsf("content is not JSON-serializable: %v", err)
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%x", sum), nil
}

const memoryColumns = `
	id, user_context, content, content_hash, embedding, embedding_dimension,
	tags, type, source, confidence, importance_score, similarity_threshold,
	decay_rate, access_count, parent_id, relation_type, cluster_id,
	created_at, updated_at, accessed_at, deleted_at, last_decay_update,
	state, decay_score, is_compressed, metadata
`

// Create inserts a new memory row. The caller is responsible for assigning
// ID, ContentHash, and timestamps beforehand (internal/engine owns ID
// generation and dedup lookups).
func (s *Store) Create(ctx context.Context, m *types.Memory) error {
	contentJSON, err := json.Marshal(m.Content)
	if err != nil {
		return errs.InvalidParamsf("content is not JSON-serializable: %v", err)
	}
	tagsJSON, err := marshalOrNil(m.Tags)
	if err != nil {
		return errs.InvalidParams("tags: " + err.Error())
	}
	metaJSON, err := marshalOrNil(m.Metadata)
	if err != nil {
		return errs.InvalidParams("metadata: " + err.Error())
	}

	query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22,
			$23, $24, $25, $26
		)
	`
	_, err = s.db.ExecContext(ctx, query,
		m.ID, m.EffectiveUserContext(), contentJSON, m.ContentHash, embeddingParam(m.Embedding), m.EmbeddingDimension,
		tagsJSON, string(m.Type), nullString(m.Source), m.Confidence, m.ImportanceScore, m.SimilarityThreshold,
		m.DecayRate, m.AccessCount, nullString(m.ParentID), nullString(m.RelationType), nullString(m.ClusterID),
		m.CreatedAt, m.UpdatedAt, m.AccessedAt, nullTime(m.DeletedAt), m.LastDecayUpdate,
		string(m.State), m.DecayScore, m.IsCompressed, metaJSON,
	)
	if err != nil {
		return errs.Internal("store: create memory", err)
	}
	return nil
}

// Get retrieves a memory by ID, including soft-deleted rows (callers check
// Deleted() themselves — spec.md's retention window still allows reads of
// recently deleted memories for audit purposes).
func (s *Store) Get(ctx context.Context, id string) (*types.Memory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = $1`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFoundf("memory %q not found", id)
	}
	if err != nil {
		return nil, errs.Internal("store: get memory", err)
	}
	return m, nil
}

// DueForDecay selects up to size memories in userContext that are not
// deleted, not already expired, and whose last_decay_update is stale,
// ordered oldest-first (spec.md §4.10 processBatch).
func (s *Store) DueForDecay(ctx context.Context, userContext string, size int) ([]types.Memory, error) {
	if size <= 0 || size > 1000 {
		size = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE user_context = $1 AND deleted_at IS NULL AND state != 'expired'
			AND last_decay_update < now() - interval '1 hour'
		ORDER BY last_decay_update ASC
		LIMIT $2
	`, userContext, size)
	if err != nil {
		return nil, errs.Internal("store: due for decay", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// UserContexts returns the distinct user_context values present among
// non-deleted memories, feeding the decay scheduler's per-context fan-out
// (spec.md §4.12 decay worker: "hourly per user_context").
func (s *Store) UserContexts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT user_context FROM memories WHERE deleted_at IS NULL`)
	if err != nil {
		return nil, errs.Internal("store: list user contexts", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uc string
		if err := rows.Scan(&uc); err != nil {
			return nil, errs.Internal("store: scan user context", err)
		}
		out = append(out, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Internal("store: user context rows", err)
	}
	return out, nil
}

// FindByHash looks up a non-deleted memory by (userContext, contentHash) for
// deduplication on store (spec.md §4.2 isDuplicate).
func (s *Store) FindByHash(ctx context.Context, userContext, hash string) (*types.Memory, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE user_context = $1 AND content_hash = $2 AND deleted_at IS NULL
		LIMIT 1
	`, userContext, hash)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Internal("store: find by hash", err)
	}
	return m, nil
}

// Update persists all mutable fields of m (full replace, matching the
// teacher's upsert-style Store semantics rather than partial PATCH).
func (s *Store) Update(ctx context.Context, m *types.Memory) error {
	contentJSON, err := json.Marshal(m.Content)
	if err != nil {
		return errs.InvalidParamsf("content is not JSON-serializable: %v", err)
	}
	tagsJSON, err := marshalOrNil(m.Tags)
	if err != nil {
		return errs.InvalidParams("tags: " + err.Error())
	}
	metaJSON, err := marshalOrNil(m.Metadata)
	if err != nil {
		return errs.InvalidParams("metadata: " + err.Error())
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET
			content = $2, content_hash = $3, embedding = $4, embedding_dimension = $5,
			tags = $6, type = $7, source = $8, confidence = $9, importance_score = $10,
			similarity_threshold = $11, decay_rate = $12, access_count = $13,
			parent_id = $14, relation_type = $15, cluster_id = $16,
			accessed_at = $17, deleted_at = $18, last_decay_update = $19,
			state = $20, decay_score = $21, is_compressed = $22, metadata = $23
		WHERE id = $1
	`,
		m.ID, contentJSON, m.ContentHash, embeddingParam(m.Embedding), m.EmbeddingDimension,
		tagsJSON, string(m.Type), nullString(m.Source), m.Confidence, m.ImportanceScore,
		m.SimilarityThreshold, m.DecayRate, m.AccessCount,
		nullString(m.ParentID), nullString(m.RelationType), nullString(m.ClusterID),
		m.AccessedAt, nullTime(m.DeletedAt), m.LastDecayUpdate,
		string(m.State), m.DecayScore, m.IsCompressed, metaJSON,
	)
	if err != nil {
		return errs.Internal("store: update memory", err)
	}
	return checkAffected(res, m.ID)
}

// BumpAccess increments access_count and refreshes accessed_at atomically,
// matching spec.md §4.2's touch-on-read behavior for scoring.
func (s *Store) BumpAccess(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET access_count = access_count + 1, accessed_at = now()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return errs.Internal("store: bump access", err)
	}
	return checkAffected(res, id)
}

// SoftDelete tombstones a memory (spec.md §4.2 delete, retention window).
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memories SET deleted_at = now(), state = 'expired'
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return errs.Internal("store: soft delete", err)
	}
	return checkAffected(res, id)
}

// Purge permanently removes a memory and its relations (spec.md §4.2
// cleanupExpiredMemories, past the retention window).
func (s *Store) Purge(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return errs.Internal("store: purge memory", err)
	}
	return nil
}

// PurgeExpiredBefore hard-deletes expired memories whose deleted_at predates
// cutoff, up to batch rows, edges first then memories in a single
// transaction (spec.md §4.10 cleanupExpiredMemories). Returns the count of
// memories removed.
func (s *Store) PurgeExpiredBefore(ctx context.Context, cutoff time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errs.Internal("store: begin purge tx", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM memories
		WHERE deleted_at IS NOT NULL AND deleted_at < $1 AND state = 'expired'
		LIMIT $2
	`, cutoff, batch)
	if err != nil {
		return 0, errs.Internal("store: select expired memories", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, errs.Internal("store: scan expired memory id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, errs.Internal("store: expired memory rows", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM memory_relations WHERE from_memory_id = ANY($1) OR to_memory_id = ANY($1)
	`, pq.Array(ids)); err != nil {
		return 0, errs.Internal("store: purge expired relations", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, errs.Internal("store: purge expired memories", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, errs.Internal("store: commit purge tx", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func checkAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Internal("store: rows affected", err)
	}
	if n == 0 {
		return errs.NotFoundf("memory %q not found", id)
	}
	return nil
}

func embeddingParam(v []float32) interface{} {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func marshalOrNil(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]interface{}:
		if len(t) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
