package store

import (
	"database/sql"
	"encoding/json"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/nodalmind/memoria/pkg/types"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting scanMemory
// serve single-row and multi-row callers, matching the teacher's split
// between scanMemoryRow (single) and scanMemoryRows (batch) but sharing one
// implementation via the common Scan signature.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory reads one row into a types.Memory. Column order must match
// memoryColumns.
func scanMemory(row rowScanner) (*types.Memory, error) {
	return scanMemoryAnd(row)
}

// scanMemoryAnd reads one row into a types.Memory, additionally scanning any
// trailing columns (e.g. a computed distance) into extra. Column order must
// match memoryColumns followed by len(extra) extra columns.
func scanMemoryAnd(row rowScanner, extra ...interface{}) (*types.Memory, error) {
	var m types.Memory
	var contentJSON []byte
	var tagsJSON, metaJSON sql.NullString
	var embedding pgvector.Vector
	var embeddingNull sql.Null[pgvector.Vector]
	var source, parentID, relationType, clusterID, memType, state sql.NullString
	var deletedAt sql.NullTime

	dest := []interface{}{
		&m.ID, &m.UserContext, &contentJSON, &m.ContentHash, &embeddingNull, &m.EmbeddingDimension,
		&tagsJSON, &memType, &source, &m.Confidence, &m.ImportanceScore, &m.SimilarityThreshold,
		&m.DecayRate, &m.AccessCount, &parentID, &relationType, &clusterID,
		&m.CreatedAt, &m.UpdatedAt, &m.AccessedAt, &deletedAt, &m.LastDecayUpdate,
		&state, &m.DecayScore, &m.IsCompressed, &metaJSON,
	}
	dest = append(dest, extra...)

	err := row.Scan(dest...)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(contentJSON, &m.Content); err != nil {
		return nil, err
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &m.Tags); err != nil {
			return nil, err
		}
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &m.Metadata); err != nil {
			return nil, err
		}
	}
	if embeddingNull.Valid {
		embedding = embeddingNull.V
		m.Embedding = embedding.Slice()
	}

	m.Type = types.MemoryType(memType.String)
	m.Source = source.String
	m.ParentID = parentID.String
	m.RelationType = relationType.String
	m.ClusterID = clusterID.String
	m.State = types.State(state.String)
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}

	return &m, nil
}
