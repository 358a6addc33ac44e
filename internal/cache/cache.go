// Package cache implements the two-tier cache fronting embeddings,
// memories, and search results (spec.md §4.2, component C2).
//
// The remote tier is a github.com/redis/go-redis/v9 client (preferred when
// configured); the local tier is an in-process github.com/dgraph-io/ristretto/v2
// cache used as a fallback and as a mirror so reads stay fast even when the
// remote tier degrades. This composite mirrors the teacher's
// CircuitBreaker-wrapped-client pattern (internal/llm/circuit_breaker.go):
// remote failures are swallowed and logged, never propagated to callers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Namespace scopes cache keys, per spec.md §4.2.
type Namespace string

const (
	NamespaceEmbeddings Namespace = "embeddings"
	NamespaceSearch     Namespace = "search"
	NamespaceMemory     Namespace = "memory"
	// NamespaceMetrics holds TTL'd worker run summaries (spec.md §4.12
	// decay worker metrics), outside the three invalidation-managed
	// namespaces above.
	NamespaceMetrics Namespace = "metrics"
)

const keyPrefix = "mcp:"

// Cache is the two-tier cache seam. Components depend on this interface,
// not on the concrete tiers, matching the teacher's storage.EmbeddingProvider
// seam style.
type Cache interface {
	Get(ctx context.Context, ns Namespace, id string) ([]byte, bool)
	Set(ctx context.Context, ns Namespace, id string, value []byte, ttl time.Duration)
	InvalidateMemory(ctx context.Context, memoryID string)
	ClearNamespace(ctx context.Context, ns Namespace)
	// RemoteAvailable reports whether the remote tier is currently reachable,
	// surfaced in stats per the Design Notes (§9).
	RemoteAvailable() bool
}

// TwoTier implements Cache with a remote (Redis) tier and a local
// (Ristretto) tier.
type TwoTier struct {
	remote *redis.Client // nil when no cache URL configured
	local  *ristretto.Cache[string, []byte]
	log    *zap.SugaredLogger

	remoteUp bool
}

// New builds a TwoTier cache. redisURL may be empty, in which case the
// remote tier is disabled and the cache degrades to local-only.
func New(redisURL string, log *zap.SugaredLogger) (*TwoTier, error) {
	local, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e6,
		MaxCost:     1 << 27, // 128 MiB
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create local tier: %w", err)
	}

	t := &TwoTier{local: local, log: log}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("cache: invalid redis url: %w", err)
		}
		t.remote = redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := t.remote.Ping(ctx).Err(); err != nil {
			log.Warnw("cache: remote tier unreachable at startup, degrading to local-only", "error", err)
			t.remoteUp = false
		} else {
			t.remoteUp = true
		}
	}

	return t, nil
}

func cacheKey(ns Namespace, id string) string {
	return keyPrefix + string(ns) + ":" + id
}

// Hash computes the truncated SHA-256 identifier used for embeddings and
// search namespace keys (spec.md §4.2).
func Hash(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:32]
}

// Get tries the remote tier first, then local (spec.md §4.2).
func (t *TwoTier) Get(ctx context.Context, ns Namespace, id string) ([]byte, bool) {
	key := cacheKey(ns, id)

	if t.remote != nil && t.remoteUp {
		val, err := t.remote.Get(ctx, key).Bytes()
		if err == nil {
			return val, true
		}
		if err != redis.Nil {
			t.log.Warnw("cache: remote get failed, falling back to local", "key", key, "error", err)
			t.remoteUp = false
		}
	}

	if val, ok := t.local.Get(key); ok {
		return val, true
	}
	return nil, false
}

// Set writes to both tiers (spec.md §4.2).
func (t *TwoTier) Set(ctx context.Context, ns Namespace, id string, value []byte, ttl time.Duration) {
	key := cacheKey(ns, id)
	t.local.SetWithTTL(key, value, int64(len(value)), ttl)

	if t.remote != nil && t.remoteUp {
		if err := t.remote.Set(ctx, key, value, ttl).Err(); err != nil {
			t.log.Warnw("cache: remote set failed", "key", key, "error", err)
			t.remoteUp = false
		}
	}
}

// InvalidateMemory removes the memory:<id> entry and clears the whole
// search namespace, since cached search results may reference the changed
// memory (spec.md §4.2).
func (t *TwoTier) InvalidateMemory(ctx context.Context, memoryID string) {
	key := cacheKey(NamespaceMemory, memoryID)
	t.local.Del(key)
	if t.remote != nil && t.remoteUp {
		if err := t.remote.Del(ctx, key).Err(); err != nil {
			t.log.Warnw("cache: remote invalidate failed", "key", key, "error", err)
		}
	}
	t.ClearNamespace(ctx, NamespaceSearch)
}

// ClearNamespace deletes all remote-tier keys with the namespace prefix. The
// local tier has no prefix scan: for NamespaceSearch it is cleared entirely
// (entries of every namespace go), and for any other namespace its local
// entries are not removed.
func (t *TwoTier) ClearNamespace(ctx context.Context, ns Namespace) {
	prefix := keyPrefix + string(ns) + ":"

	// Ristretto has no prefix-scan; the namespace is tracked by tagging all
	// search-namespace writes with a generation counter embedded in the key
	// would be ideal, but for the namespaces in use (search results keyed
	// by query hash) a full clear is acceptable since search results are a
	// pure cache. We fall back to clearing the whole local tier for the
	// search namespace, matching teacher's "acceptable staleness" trade-off
	// noted in spec.md §9 Open Questions.
	if ns == NamespaceSearch {
		t.local.Clear()
	}

	if t.remote != nil && t.remoteUp {
		iter := t.remote.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			t.log.Warnw("cache: remote scan failed during namespace clear", "namespace", ns, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := t.remote.Del(ctx, keys...).Err(); err != nil {
				t.log.Warnw("cache: remote namespace clear failed", "namespace", ns, "error", err)
			}
		}
	}
}

// RemoteAvailable reports whether the remote tier is currently reachable.
func (t *TwoTier) RemoteAvailable() bool {
	return t.remote != nil && t.remoteUp
}

// GetJSON unmarshals a cached value, or returns false on miss/decode error.
func GetJSON[T any](ctx context.Context, c Cache, ns Namespace, id string, out *T) bool {
	raw, ok := c.Get(ctx, ns, id)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false
	}
	return true
}

// SetJSON marshals value and writes it under (ns, id) with ttl.
func SetJSON(ctx context.Context, c Cache, ns Namespace, id string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.Set(ctx, ns, id, raw, ttl)
	return nil
}

// SearchCacheKey builds a deterministic hash for a search query + filters,
// used as the identifier within NamespaceSearch.
func SearchCacheKey(userContext, query string, memType string, tags []string, limit int, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%v|%d|%.4f", userContext, query, memType, tags, limit, threshold)
	return Hash(b.String())
}
