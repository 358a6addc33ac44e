// Package engine implements the memory engine (spec.md §4.8, component C8):
// the orchestrator that ties the store, cache, embedding provider,
// compression, scoring, clustering, graph, and lifecycle packages into the
// store/search/list/update/delete/batch/graphSearch/consolidate/relations
// operations the tool façade exposes. Grounded on the teacher's
// internal/engine/memory_engine.go orchestrator shape: a struct holding the
// storage layer plus one field per intelligence subsystem, non-blocking
// Store() with async enrichment handed off to a job queue.
package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/nodalmind/memoria/internal/cache"
	"github.com/nodalmind/memoria/internal/contextwindow"
	"github.com/nodalmind/memoria/internal/embedding"
	"github.com/nodalmind/memoria/internal/jobs"
	"github.com/nodalmind/memoria/internal/lifecycle"
	"github.com/nodalmind/memoria/internal/store"
)

// Config holds the tunables of the memory engine itself (as opposed to its
// subsystems, each configured independently). Grounded on the teacher's
// engine.Config (NumWorkers/QueueSize/ShutdownTimeout/MaxRetries), narrowed
// to what C8's own store/search/list operations need; worker sizing moved
// to internal/jobs.TopicConfig per topic.
type Config struct {
	AsyncProcessing     bool
	DefaultSearchLimit  int
	DefaultThreshold    float64
	CompressionTrigger  int // bytes; spec.md §4.5 TriggerBytes default
}

// DefaultConfig matches spec.md §6.4's documented defaults.
func DefaultConfig() Config {
	return Config{
		AsyncProcessing:    true,
		DefaultSearchLimit: 10,
		DefaultThreshold:   0.7,
		CompressionTrigger: 100 * 1024,
	}
}

// Engine is the core orchestrator for memory storage, search, and
// lifecycle operations (spec.md §4.8).
type Engine struct {
	cfg Config

	store     *store.Store
	cache     cache.Cache
	embedding *embedding.Service
	jobs      *jobs.Manager
	decay     *lifecycle.Manager
	window    *contextwindow.Manager

	log *zap.SugaredLogger
}

// New builds an Engine wired to its dependencies. jobsMgr and window may be
// nil: with jobsMgr nil, Store() always embeds synchronously; with window
// nil, Search() skips context-window bookkeeping.
func New(cfg Config, st *store.Store, c cache.Cache, emb *embedding.Service, jobsMgr *jobs.Manager, decayCfg lifecycle.Config, window *contextwindow.Manager, log *zap.SugaredLogger) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     st,
		cache:     c,
		embedding: emb,
		jobs:      jobsMgr,
		decay:     lifecycle.NewManager(decayCfg, st),
		window:    window,
		log:       log,
	}
}

func (e *Engine) now() time.Time { return time.Now() }
