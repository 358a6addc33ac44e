package store

import "fmt"

// Schema renders the idempotent DDL applied on startup, grounded on the
// teacher's internal/storage/postgres/schema.go convention of a single Go
// string of IF-NOT-EXISTS statements executed once per process start. The
// embedding column is declared with the deployment's fixed dimension so the
// HNSW index can be built over it; pgvector rejects index creation on a
// dimensionless vector column.
func Schema(dim int) string {
	return fmt.Sprintf(schemaTemplate, dim)
}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS memories (
    id                    TEXT PRIMARY KEY,
    user_context          TEXT NOT NULL DEFAULT 'default',
    content               JSONB NOT NULL,
    content_hash          TEXT NOT NULL,
    embedding             vector(%d),
    embedding_dimension   INTEGER NOT NULL DEFAULT 0,
    tags                  JSONB,
    type                  TEXT NOT NULL,
    source                TEXT,
    confidence            REAL NOT NULL DEFAULT 1.0,
    importance_score      REAL NOT NULL DEFAULT 0.5,
    similarity_threshold  REAL NOT NULL DEFAULT 0.7,
    decay_rate            REAL NOT NULL DEFAULT 0.01,
    access_count          INTEGER NOT NULL DEFAULT 0,
    parent_id             TEXT,
    relation_type         TEXT,
    cluster_id            TEXT,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
    accessed_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
    deleted_at            TIMESTAMPTZ,
    last_decay_update     TIMESTAMPTZ NOT NULL DEFAULT now(),
    state                 TEXT NOT NULL DEFAULT 'active',
    decay_score           REAL NOT NULL DEFAULT 1.0,
    is_compressed         BOOLEAN NOT NULL DEFAULT false,
    metadata              JSONB
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_user_hash
    ON memories(user_context, content_hash) WHERE deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_memories_user_context ON memories(user_context);
CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
CREATE INDEX IF NOT EXISTS idx_memories_state ON memories(state);
CREATE INDEX IF NOT EXISTS idx_memories_cluster_id ON memories(cluster_id);
CREATE INDEX IF NOT EXISTS idx_memories_decay_score ON memories(decay_score DESC);
CREATE INDEX IF NOT EXISTS idx_memories_deleted_at ON memories(deleted_at);
CREATE INDEX IF NOT EXISTS idx_memories_is_compressed ON memories(is_compressed);
CREATE INDEX IF NOT EXISTS idx_memories_parent_id ON memories(parent_id);
CREATE INDEX IF NOT EXISTS idx_memories_tags ON memories USING GIN(tags);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);

CREATE TABLE IF NOT EXISTS memory_relations (
    id              TEXT PRIMARY KEY,
    from_memory_id  TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
    to_memory_id    TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
    relation_type   TEXT NOT NULL,
    strength        REAL NOT NULL DEFAULT 1.0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE(from_memory_id, to_memory_id)
);

CREATE INDEX IF NOT EXISTS idx_memory_relations_from_type ON memory_relations(from_memory_id, relation_type);
CREATE INDEX IF NOT EXISTS idx_memory_relations_to_type ON memory_relations(to_memory_id, relation_type);

CREATE OR REPLACE FUNCTION memories_set_updated_at()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at := now();
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_memories_updated_at ON memories;
CREATE TRIGGER trg_memories_updated_at
    BEFORE UPDATE ON memories
    FOR EACH ROW
    EXECUTE FUNCTION memories_set_updated_at();
`

// MigrationHNSW adds the approximate-nearest-neighbor vector index. It is a
// separate migration (rather than inlined in Schema) because it requires the
// pgvector extension to already be installed, following the teacher's
// MigrationPgvector pattern of gating vector-specific DDL behind a feature
// check performed by the caller.
const MigrationHNSW = `
CREATE INDEX IF NOT EXISTS idx_memories_embedding_hnsw
    ON memories USING hnsw (embedding vector_cosine_ops)
    WITH (m = 16, ef_construction = 64);
`
