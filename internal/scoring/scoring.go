// Package scoring implements the weighted relevance score combining
// recency, importance, access frequency, and query similarity (spec.md
// §4.6, component C6). Token estimation is shared with internal/compression.
package scoring

import "math"

// Weights are the four scoring components, normalized to sum to 1.
type Weights struct {
	Recency    float64
	Importance float64
	Access     float64
	Relevance  float64
}

// DefaultWeights matches spec.md §4.6's defaults (0.3/0.3/0.2/0.2).
func DefaultWeights() Weights {
	return Weights{Recency: 0.3, Importance: 0.3, Access: 0.2, Relevance: 0.2}
}

// Normalize rescales w so its components sum to 1. If the sum is zero,
// DefaultWeights is returned.
func (w Weights) Normalize() Weights {
	sum := w.Recency + w.Importance + w.Access + w.Relevance
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Recency:    w.Recency / sum,
		Importance: w.Importance / sum,
		Access:     w.Access / sum,
		Relevance:  w.Relevance / sum,
	}
}

// DefaultLambda is the recency decay constant (spec.md §4.6 default λ=0.1).
const DefaultLambda = 0.1

// Recency returns exp(-lambda*ageHours) clamped to [0,1].
func Recency(ageHours, lambda float64) float64 {
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	v := math.Exp(-lambda * ageHours)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Access returns log(count+1)/log(N+1), the access-frequency component
// normalized against the corpus-wide maximum access count N.
func Access(count, maxCorpusAccess int) float64 {
	if maxCorpusAccess <= 0 {
		maxCorpusAccess = 1
	}
	denom := math.Log(float64(maxCorpusAccess) + 1)
	if denom == 0 {
		return 0
	}
	return math.Log(float64(count)+1) / denom
}

// Relevance returns max(0, sim)^0.7.
func Relevance(similarity float64) float64 {
	if similarity < 0 {
		return 0
	}
	return math.Pow(similarity, 0.7)
}

// Inputs bundles the raw signals needed to compute a combined Score.
type Inputs struct {
	AgeHours        float64
	Lambda          float64
	Importance      float64 // already in [0,1]
	AccessCount     int
	MaxCorpusAccess int
	Similarity      float64
}

// Score combines the four weighted components (spec.md §4.6).
func Score(w Weights, in Inputs) float64 {
	w = w.Normalize()
	return w.Recency*Recency(in.AgeHours, in.Lambda) +
		w.Importance*clamp01(in.Importance) +
		w.Access*Access(in.AccessCount, in.MaxCorpusAccess) +
		w.Relevance*Relevance(in.Similarity)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// AdaptSignals flags which weight to emphasize for context-window adaptation
// (spec.md §4.6 adaptWeights).
type AdaptSignals struct {
	IsRecent    bool
	IsImportant bool
	IsFrequent  bool
	IsRelevant  bool
}

// AdaptWeights multiplies the selected weight(s) by 1.5 (halving lambda when
// IsRecent), then renormalizes, per spec.md §4.6.
func AdaptWeights(w Weights, signals AdaptSignals) (Weights, float64) {
	lambda := DefaultLambda
	if signals.IsRecent {
		w.Recency *= 1.5
		lambda /= 2
	}
	if signals.IsImportant {
		w.Importance *= 1.5
	}
	if signals.IsFrequent {
		w.Access *= 1.5
	}
	if signals.IsRelevant {
		w.Relevance *= 1.5
	}
	return w.Normalize(), lambda
}

// EstimateTokens approximates token count as ceil(chars/4), matching
// internal/compression.EstimateTokens (spec.md §4.6).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
