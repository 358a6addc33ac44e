package embedding

import "context"

// FakeProvider is a deterministic Provider used in tests and local
// development when no model server is configured. It derives a pseudo
// embedding from the byte content of the text so that identical inputs
// always produce identical vectors (needed for the memoization invariant
// in spec.md §8) without requiring a live model.
type FakeProvider struct {
	Dimension int
}

func (f *FakeProvider) Name() string { return "fake" }

func (f *FakeProvider) Embed(_ context.Context, text string) ([]float32, error) {
	dim := f.Dimension
	if dim == 0 {
		dim = 16
	}
	vec := make([]float32, dim)
	for i := 0; i < len(text); i++ {
		vec[i%dim] += float32(text[i])
	}
	// The vector is not scaled to unit length; the sum of squares only
	// detects the all-zero vector of an empty text, which gets a unit first
	// component so cosine similarity against it stays defined.
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	return vec, nil
}
