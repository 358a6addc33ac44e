// Package lifecycle implements the decay/preservation state machine that
// ages memories over time (spec.md §4.10, component C10). Grounded on the
// teacher's internal/engine/decay_manager.go: a half-life-derived decay
// manager that scores memories against a reference time and writes back
// only on meaningful change. The scoring formula itself is spec.md's own
// (importance × exponential decay, access-count log-boost, confidence
// multiplier, optional relationship-degree boost, preservation floor) and
// replaces the teacher's simpler "(importance + decayFactor) / 2" blend.
package lifecycle

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/nodalmind/memoria/pkg/types"
)

// DegreeLookup supplies a memory's relation-edge degree for the optional
// relationship boost term (spec.md §4.10). Satisfied by internal/store.Store.
type DegreeLookup interface {
	DegreeAnalysis(ctx context.Context, userContext, id string) (inDegree, outDegree int, histogram map[string]int, err error)
}

// Manager computes decay scores and life-cycle states for memories.
type Manager struct {
	cfg     Config
	degrees DegreeLookup
}

// NewManager builds a Manager. degrees may be nil when relationship boosting
// is not needed (e.g. unit tests scoring a memory in isolation).
func NewManager(cfg Config, degrees DegreeLookup) *Manager {
	return &Manager{cfg: cfg, degrees: degrees}
}

// Score computes m's decay score at instant now, per spec.md §4.10:
//
//	d_days = (now - (accessed_at || created_at)) / 86400
//	λ       = m.DecayRate, falling back to cfg.BaseDecayRate
//	base    = importance_score * exp(-λ * d_days)
//	score   = base + AccessBoost * log(1 + access_count)
//	score  *= confidence
//	score  += RelationshipBoost * log(1 + degree(m))   [if configured]
//	if isPreserved(m): score = max(score, 0.95)
//	clamp to [0,1]
func (mgr *Manager) Score(ctx context.Context, m *types.Memory, now time.Time) (float64, error) {
	ref := m.AccessedAt
	if ref.IsZero() {
		ref = m.CreatedAt
	}
	days := now.Sub(ref).Hours() / 24
	if days < 0 {
		days = 0
	}

	lambda := m.DecayRate
	if lambda <= 0 {
		lambda = mgr.cfg.BaseDecayRate
	}

	base := m.ImportanceScore * math.Exp(-lambda*days)
	score := base + mgr.cfg.AccessBoost*math.Log1p(float64(m.AccessCount))
	score *= m.Confidence

	if mgr.cfg.RelationshipBoost > 0 && mgr.degrees != nil {
		in, out, _, err := mgr.degrees.DegreeAnalysis(ctx, m.EffectiveUserContext(), m.ID)
		if err != nil {
			return 0, err
		}
		score += mgr.cfg.RelationshipBoost * math.Log1p(float64(in+out))
	}

	if IsPreserved(m, mgr.cfg.PreservationTags, now) && score < 0.95 {
		score = 0.95
	}

	return types.ClampUnit(score), nil
}

// IsPreserved reports whether m carries a preservation tag and, if
// metadata.preservedUntil is set, that it has not yet passed.
func IsPreserved(m *types.Memory, tags []string, now time.Time) bool {
	if !hasPreservationTag(m.Tags, tags) {
		return false
	}
	until, ok := preservedUntil(m)
	if !ok {
		return true
	}
	return until.After(now)
}

func hasPreservationTag(memTags, preservationTags []string) bool {
	for _, t := range memTags {
		for _, p := range preservationTags {
			if strings.EqualFold(t, p) {
				return true
			}
		}
	}
	return false
}

func preservedUntil(m *types.Memory) (time.Time, bool) {
	if m.Metadata == nil {
		return time.Time{}, false
	}
	raw, ok := m.Metadata["preservedUntil"]
	if !ok {
		return time.Time{}, false
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StateFor maps a decay score to its lifecycle state (spec.md §4.10 state
// mapping): score ≥ 0.5 → active, ≥ archival → dormant, ≥ expiration →
// archived, else expired.
func (mgr *Manager) StateFor(score float64) types.State {
	switch {
	case score >= 0.5:
		return types.StateActive
	case score >= mgr.cfg.ArchivalThreshold:
		return types.StateDormant
	case score >= mgr.cfg.ExpirationThreshold:
		return types.StateArchived
	default:
		return types.StateExpired
	}
}
