// Package embedding implements the opaque text->vector seam (spec.md §4.3,
// component C3). A Provider is any model capable of embedding text; Service
// wraps a Provider with the fixed-dimension invariant, circuit-breaker
// resilience (grounded on the teacher's internal/llm/circuit_breaker.go),
// and cache memoization via internal/cache.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/nodalmind/memoria/internal/cache"
	"github.com/nodalmind/memoria/internal/errs"
)

// Provider is the opaque embed(text) -> vector capability (Design Notes §9).
type Provider interface {
	// Embed generates a single embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Name identifies the backing model, used in logs and metadata.
	Name() string
}

// DefaultEmbeddingTTL is the memoization TTL for individual embeddings
// (spec.md §4.3: "TTL long, default 24h").
const DefaultEmbeddingTTL = 24 * time.Hour

// Service wraps a Provider with dimension enforcement, circuit-breaker
// protection, and cache-backed memoization.
type Service struct {
	provider Provider
	cache    cache.Cache
	breaker  *gobreaker.CircuitBreaker
	log      *zap.SugaredLogger

	mu  sync.Mutex
	dim int // 0 until the first successful embed establishes it
}

// NewService constructs a Service. expectedDim, when non-zero, pins the
// dimension invariant from deployment config instead of waiting for a probe
// embedding (spec.md §4.3: "On first load, generates a probe embedding to
// establish d").
func NewService(provider Provider, c cache.Cache, expectedDim int, log *zap.SugaredLogger) *Service {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-provider:" + provider.Name(),
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Service{provider: provider, cache: c, breaker: breaker, log: log, dim: expectedDim}
}

// Dim returns the established embedding dimension, or 0 if not yet known.
func (s *Service) Dim() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// ContentHash computes the SHA-256 hex digest of the canonical UTF-8
// serialization of x (spec.md §4.3).
func ContentHash(x interface{}) (string, error) {
	canonical, err := canonicalize(x)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize produces a stable string form of x: strings pass through
// unchanged; everything else is serialized via json.Marshal on a
// recursively key-sorted structure (Go's encoding/json already sorts map
// keys on marshal, which gives us canonical ordering for free).
func canonicalize(x interface{}) (string, error) {
	if s, ok := x.(string); ok {
		return s, nil
	}
	raw, err := json.Marshal(x)
	if err != nil {
		return "", errs.Internal("failed to canonicalize content", err)
	}
	return string(raw), nil
}

// Embed returns the embedding for text, using the cache when available and
// enforcing the fixed-dimension invariant (spec.md §4.3: mismatch fails
// with Conflict/DimensionMismatch).
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Hash(text)
	var cached []float32
	if cache.GetJSON(ctx, s.cache, cache.NamespaceEmbeddings, key, &cached) {
		return cached, nil
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.provider.Embed(ctx, text)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, errs.Transient("embedding provider circuit open", err)
		}
		return nil, errs.Transient("embedding provider call failed", err)
	}
	vec := result.([]float32)

	if err := s.checkDimension(vec); err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, s.cache, cache.NamespaceEmbeddings, key, vec, DefaultEmbeddingTTL); err != nil {
		s.log.Warnw("embedding: failed to cache vector", "error", err)
	}
	return vec, nil
}

// checkDimension establishes s.dim on first call and enforces it afterward.
func (s *Service) checkDimension(vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim == 0 {
		s.dim = len(vec)
		return nil
	}
	if len(vec) != s.dim {
		return errs.Conflict(fmt.Sprintf("embedding dimension mismatch: provider returned %d, expected %d", len(vec), s.dim))
	}
	return nil
}

// BatchEmbed embeds each input, preserving order, pulling cached vectors and
// generating only the misses (spec.md §4.3).
func (s *Service) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
