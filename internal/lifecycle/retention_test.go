package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/nodalmind/memoria/internal/lifecycle"
)

type fakeRetentionStore struct {
	gotCutoff time.Time
	gotBatch  int
}

func (f *fakeRetentionStore) PurgeExpiredBefore(_ context.Context, cutoff time.Time, batch int) (int, error) {
	f.gotCutoff = cutoff
	f.gotBatch = batch
	return 3, nil
}

func TestCleanupExpiredMemoriesComputesCutoff(t *testing.T) {
	store := &fakeRetentionStore{}
	now := time.Now()

	n, err := lifecycle.CleanupExpiredMemories(context.Background(), store, 30, 100, now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 purged, got %d", n)
	}
	wantCutoff := now.AddDate(0, 0, -30)
	if !store.gotCutoff.Equal(wantCutoff) {
		t.Errorf("expected cutoff %v, got %v", wantCutoff, store.gotCutoff)
	}
	if store.gotBatch != 100 {
		t.Errorf("expected batch 100, got %d", store.gotBatch)
	}
}

func TestCleanupExpiredMemoriesDefaultsRetentionDays(t *testing.T) {
	store := &fakeRetentionStore{}
	now := time.Now()

	if _, err := lifecycle.CleanupExpiredMemories(context.Background(), store, 0, 0, now); err != nil {
		t.Fatal(err)
	}
	wantCutoff := now.AddDate(0, 0, -30)
	if !store.gotCutoff.Equal(wantCutoff) {
		t.Errorf("expected default 30-day cutoff, got %v", store.gotCutoff)
	}
}
