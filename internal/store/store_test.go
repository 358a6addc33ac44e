package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/pkg/types"
)

// testDSN returns the DSN for the integration test database, skipping the
// test when it isn't configured, following the teacher's
// postgresTestDSN/POSTGRES_TEST_DSN convention.
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MEMORIA_TEST_DSN")
	if dsn == "" {
		t.Skip("MEMORIA_TEST_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	// Same dimension as the scenario suite so both can share one test
	// database; CREATE TABLE IF NOT EXISTS keeps whichever ran first.
	s, err := store.Open(context.Background(), testDSN(t), 32, zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestMemory(id string) *types.Memory {
	now := time.Now().UTC()
	return &types.Memory{
		ID:              id,
		UserContext:     "default",
		Content:         "test content " + id,
		ContentHash:     "hash-" + id,
		Type:            types.TypeFact,
		Confidence:      1,
		ImportanceScore: 0.5,
		State:           types.StateActive,
		DecayScore:      1,
		CreatedAt:       now,
		UpdatedAt:       now,
		AccessedAt:      now,
		LastDecayUpdate: now,
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newTestMemory("store-rt-1")
	require.NoError(t, s.Create(ctx, m))

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.ContentHash, got.ContentHash)
	require.Equal(t, types.StateActive, got.State)
}

func TestFindByHashDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newTestMemory("store-hash-1")
	m.ContentHash = "shared-hash"
	require.NoError(t, s.Create(ctx, m))

	found, err := s.FindByHash(ctx, "default", "shared-hash")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, m.ID, found.ID)

	notFound, err := s.FindByHash(ctx, "default", "no-such-hash")
	require.NoError(t, err)
	require.Nil(t, notFound)
}

func TestBumpAccessIncrements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newTestMemory("store-bump-1")
	require.NoError(t, s.Create(ctx, m))
	require.NoError(t, s.BumpAccess(ctx, m.ID))
	require.NoError(t, s.BumpAccess(ctx, m.ID))

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.AccessCount)
}

func TestSoftDeleteExcludesFromList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := newTestMemory("store-del-1")
	require.NoError(t, s.Create(ctx, m))
	require.NoError(t, s.SoftDelete(ctx, m.ID))

	memories, _, err := s.List(ctx, store.ListOptions{UserContext: "default"})
	require.NoError(t, err)
	for _, got := range memories {
		require.NotEqual(t, m.ID, got.ID)
	}

	got, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, got.Deleted())
}

func TestUpsertAndListRelations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := newTestMemory("store-rel-a")
	b := newTestMemory("store-rel-b")
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))

	rel := &types.MemoryRelation{
		ID:           "rel-1",
		FromMemoryID: a.ID,
		ToMemoryID:   b.ID,
		RelationType: types.RelSupports,
		Strength:     0.9,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.UpsertRelation(ctx, rel))

	rels, err := s.Relations(ctx, a.ID, "")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, types.RelSupports, rels[0].RelationType)

	// A second upsert for the same (from, to) pair converges on the new
	// type and strength without creating a second row.
	rel2 := &types.MemoryRelation{
		ID:           "rel-2",
		FromMemoryID: a.ID,
		ToMemoryID:   b.ID,
		RelationType: types.RelContradicts,
		Strength:     0.4,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.UpsertRelation(ctx, rel2))

	rels, err = s.Relations(ctx, a.ID, "")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, types.RelContradicts, rels[0].RelationType)
	require.InDelta(t, 0.4, rels[0].Strength, 1e-6)
	require.Equal(t, "rel-1", rels[0].ID)
}
