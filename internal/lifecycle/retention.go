package lifecycle

import (
	"context"
	"time"
)

// RetentionStore is the persistence dependency of CleanupExpiredMemories.
type RetentionStore interface {
	PurgeExpiredBefore(ctx context.Context, cutoff time.Time, batch int) (int, error)
}

// CleanupExpiredMemories hard-deletes memories (and their edges) that have
// sat in the expired state past retentionDays, in batches of batch
// (spec.md §4.10 cleanupExpiredMemories).
func CleanupExpiredMemories(ctx context.Context, store RetentionStore, retentionDays, batch int, now time.Time) (int, error) {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	return store.PurgeExpiredBefore(ctx, cutoff, batch)
}
