// cmd/memoriad is the entry point for the memoria semantic memory service.
// It wires storage, caching, embedding, async job processing, and the
// context window manager into the memory engine, exposes the engine through
// the tool façade, and serves that façade over line-delimited JSON-RPC 2.0
// on stdin/stdout.
//
// Startup sequence:
//  1. Load configuration from defaults, an optional YAML file path given as
//     the first argument, then environment variables (MEMORIA_* prefix),
//     which take precedence over the YAML file.
//  2. Open the Postgres/pgvector store.
//  3. Build the two-tier cache and embedding service.
//  4. Build the async job manager.
//  5. Build the memory engine, register the job topics against it, start
//     the worker pools, and build the tool façade wrapping the engine.
//  6. Serve JSON-RPC 2.0 requests from stdin, writing responses to stdout.
//
// CRITICAL: ALL logging MUST go to stderr. Any bytes written to stdout that
// are not valid JSON-RPC 2.0 response frames will corrupt the protocol.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nodalmind/memoria/internal/cache"
	"github.com/nodalmind/memoria/internal/config"
	"github.com/nodalmind/memoria/internal/contextwindow"
	"github.com/nodalmind/memoria/internal/embedding"
	"github.com/nodalmind/memoria/internal/engine"
	"github.com/nodalmind/memoria/internal/facade"
	"github.com/nodalmind/memoria/internal/jobs"
	"github.com/nodalmind/memoria/internal/lifecycle"
	"github.com/nodalmind/memoria/internal/store"
	"github.com/nodalmind/memoria/internal/transport"
)

func main() {
	log := newLogger()
	sugar := log.Sugar()
	defer sugar.Sync() //nolint:errcheck

	var yamlPath string
	if len(os.Args) > 1 {
		yamlPath = os.Args[1]
	}
	cfg, err := config.Load(yamlPath)
	if err != nil {
		sugar.Fatalw("failed to load config", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		sugar.Info("received shutdown signal")
		cancel()
	}()

	st, err := store.Open(ctx, cfg.Store.DSN, cfg.Embedding.ExpectedDimension, sugar)
	if err != nil {
		sugar.Fatalw("failed to open store", "error", err)
	}
	defer st.Close()

	twoTier, err := cache.New(cfg.Cache.RedisURL, sugar)
	if err != nil {
		sugar.Fatalw("failed to build cache", "error", err)
	}

	provider := embedding.NewOllamaProvider(embedding.OllamaConfig{
		BaseURL: cfg.Embedding.OllamaURL,
		Model:   cfg.Embedding.ModelID,
	})
	embSvc := embedding.NewService(provider, twoTier, cfg.Embedding.ExpectedDimension, sugar)

	jobsMgr := jobs.NewManager(log)

	window := contextwindow.NewManager(50, 8000)
	go window.StartRescoring(ctx, contextwindow.DefaultScoringInterval)

	decayCfg := lifecycle.Config{
		BaseDecayRate:       cfg.Decay.BaseDecayRate,
		AccessBoost:         cfg.Decay.AccessBoost,
		RelationshipBoost:   cfg.Decay.RelationshipBoost,
		ArchivalThreshold:   cfg.Decay.ArchivalThreshold,
		ExpirationThreshold: cfg.Decay.ExpirationThreshold,
		PreservationTags:    cfg.Decay.PreservationTags,
		RetentionDays:       cfg.Decay.RetentionDays,
		RetentionBatch:      cfg.Decay.RetentionBatch,
	}

	engCfg := engine.Config{
		AsyncProcessing:    cfg.Workers.EnableAsyncProcessing,
		DefaultSearchLimit: cfg.Search.DefaultLimit,
		DefaultThreshold:   cfg.Search.DefaultSimilarityThreshold,
		CompressionTrigger: 100 * 1024,
	}
	eng := engine.New(engCfg, st, twoTier, embSvc, jobsMgr, decayCfg, window, sugar)

	registerJobs(jobsMgr, eng, cfg)
	jobsMgr.Start(ctx)
	defer jobsMgr.Shutdown(10 * time.Second)

	go runDecaySchedule(ctx, st, jobsMgr, cfg, sugar)

	srv := facade.New(eng)
	tr := transport.NewStdioTransport(srv, os.Stdin, os.Stdout, sugar)

	sugar.Info("ready, serving JSON-RPC 2.0 on stdin/stdout")
	if err := tr.Serve(ctx); err != nil {
		sugar.Infow("transport stopped", "error", err)
	}
}

// registerJobs wires every async topic spec.md §4.12 names onto jobsMgr,
// sized from cfg.Workers (component C12). Registration is unconditional;
// ENABLE_ASYNC_PROCESSING/ENABLE_CLUSTERING only govern whether the engine
// ever enqueues onto these topics (engine.Config.AsyncProcessing, and the
// consolidate/clustering callers themselves).
func registerJobs(mgr *jobs.Manager, eng *engine.Engine, cfg config.Config) {
	mgr.Register(jobs.TopicEmbedding, jobs.TopicConfig{
		QueueSize:  500,
		Workers:    cfg.Workers.EmbeddingConcurrency,
		MaxRetries: 3,
		RateLimit:  rate.Limit(10),
		RateBurst:  10,
		Handler:    jobs.NewEmbeddingHandler(eng),
	})
	mgr.Register(jobs.TopicBatchImport, jobs.TopicConfig{
		QueueSize:  1000,
		Workers:    cfg.Workers.BatchConcurrency,
		MaxRetries: 2,
		Handler:    jobs.NewBatchImportHandler(eng),
	})
	mgr.Register(jobs.TopicConsolidation, jobs.TopicConfig{
		QueueSize:  50,
		Workers:    cfg.Workers.ConsolidationConcurrency,
		MaxRetries: 1,
		Handler:    jobs.NewConsolidationHandler(eng),
	})
	mgr.Register(jobs.TopicClustering, jobs.TopicConfig{
		QueueSize:  50,
		Workers:    cfg.Workers.ClusteringConcurrency,
		MaxRetries: 1,
		Handler:    jobs.NewClusteringHandler(eng),
	})
	mgr.Register(jobs.TopicDecay, jobs.TopicConfig{
		QueueSize:  50,
		Workers:    cfg.Workers.DecayConcurrency,
		MaxRetries: 2,
		RateLimit:  rate.Every(12 * time.Second), // 5 jobs/min
		RateBurst:  1,
		Handler:    jobs.NewDecayHandler(eng),
	})
}

// runDecaySchedule drives the lifecycle engine on the repeating schedule
// spec.md §4.12 describes: every hour, one decay batch per known
// user_context is enqueued onto the rate-limited decay topic, and the
// retention cleanup hard-deletes memories that have sat expired past the
// retention window.
func runDecaySchedule(ctx context.Context, st *store.Store, mgr *jobs.Manager, cfg config.Config, log *zap.SugaredLogger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		contexts, err := st.UserContexts(ctx)
		if err != nil {
			log.Warnw("decay schedule: failed to list user contexts", "error", err)
			continue
		}
		for _, uc := range contexts {
			mgr.Enqueue(jobs.Job{
				Topic:   jobs.TopicDecay,
				ID:      "decay:" + uc,
				Payload: jobs.DecayPayload{UserContext: uc, BatchSize: 100},
			})
		}

		n, err := lifecycle.CleanupExpiredMemories(ctx, st, cfg.Decay.RetentionDays, cfg.Decay.RetentionBatch, time.Now())
		if err != nil {
			log.Warnw("retention cleanup failed", "error", err)
		} else if n > 0 {
			log.Infow("retention cleanup removed expired memories", "count", n)
		}
	}
}

// newLogger builds a zap logger writing structured JSON exclusively to
// stderr, matching the teacher's "stdout is reserved for JSON-RPC frames"
// invariant (internal/api/mcp/transport.go).
func newLogger() *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	log, err := zapCfg.Build()
	if err != nil {
		log = zap.NewNop()
	}
	return log
}
