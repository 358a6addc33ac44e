package lifecycle

import (
	"context"
	"time"

	"github.com/nodalmind/memoria/pkg/types"
)

// UpdateStore is the minimal persistence dependency of PreserveMemory.
type UpdateStore interface {
	Get(ctx context.Context, id string) (*types.Memory, error)
	Update(ctx context.Context, m *types.Memory) error
}

// PreserveMemory pins id against decay: decay_score=1.0, state=active,
// last_decay_update=now, appends the "preserved" tag if absent, and writes
// metadata.preservedUntil when until is set (spec.md §4.10 preserveMemory).
func PreserveMemory(ctx context.Context, store UpdateStore, id string, until *time.Time, now time.Time) (*types.Memory, error) {
	m, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.DecayScore = 1.0
	m.State = types.StateActive
	m.LastDecayUpdate = now

	if !hasTag(m.Tags, "preserved") {
		m.Tags = append(m.Tags, "preserved")
	}

	if until != nil {
		if m.Metadata == nil {
			m.Metadata = map[string]interface{}{}
		}
		m.Metadata["preservedUntil"] = until.UTC().Format(time.RFC3339)
	}

	if err := store.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
