// Package jobs implements the async job system (spec.md §4.8/§7, component
// C12): multi-topic, in-process queues held in memory (queued jobs do not
// survive a process restart) with bounded worker pools,
// retries with exponential backoff, and rate limiting. Grounded on the
// teacher's internal/engine/enrichment_queue.go + enrichment_worker.go
// single-topic channel/worker-pool pattern, generalized here to one queue
// per Topic so embedding, batch-import, consolidation, clustering, and
// decay work run on independently sized and rate-limited pools instead of
// sharing one queue.
package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nodalmind/memoria/internal/errs"
)

// Topic names a class of background work. Each topic owns its own queue,
// worker pool, and optional rate limiter.
type Topic string

const (
	TopicEmbedding     Topic = "embedding"
	TopicBatchImport   Topic = "batch_import"
	TopicConsolidation Topic = "consolidation"
	TopicClustering    Topic = "clustering"
	TopicDecay         Topic = "decay"
)

// Job is a unit of work enqueued onto a topic. Priority is carried for
// logging and future scheduling; the queues themselves are FIFO channels,
// matching the teacher's enrichment queue.
type Job struct {
	Topic      Topic
	ID         string
	Payload    interface{}
	Priority   int
	Attempt    int
	MaxRetries int
	EnqueuedAt time.Time
}

// Handler processes a single job. A returned error marks the job for retry
// (with backoff) unless the error is non-retryable, per internal/errs'
// IsRetryable classification; callers that want "give up immediately"
// semantics should return a non-retryable internal/errs.Error.
type Handler func(ctx context.Context, job Job) error

// TopicConfig sizes one topic's queue, worker pool, and (optionally) rate
// limits it.
type TopicConfig struct {
	QueueSize   int
	Workers     int
	MaxRetries  int
	RateLimit   rate.Limit // 0 disables limiting
	RateBurst   int
	Handler     Handler
}

type queue struct {
	cfg     TopicConfig
	ch      chan Job
	limiter *rate.Limiter
	paused  atomic.Bool
	wg      sync.WaitGroup
}

// Manager owns one queue per registered topic and runs their worker pools.
type Manager struct {
	log    *zap.Logger
	mu     sync.Mutex
	queues map[Topic]*queue
	metrics *Metrics
}

// NewManager builds an empty Manager. Register topics with Register before
// calling Start.
func NewManager(log *zap.Logger) *Manager {
	return &Manager{
		log:     log,
		queues:  make(map[Topic]*queue),
		metrics: NewMetrics(),
	}
}

// Register wires a topic's handler and sizing. Must be called before Start.
func (m *Manager) Register(topic Topic, cfg TopicConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := &queue{
		cfg: cfg,
		ch:  make(chan Job, cfg.QueueSize),
	}
	if cfg.RateLimit > 0 {
		q.limiter = rate.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	m.queues[topic] = q
}

// Enqueue submits a job onto its topic's queue. Returns false if the queue
// is full or the topic is unregistered (mirrors the teacher's
// queueEnrichmentJob non-blocking-select-with-default pattern).
func (m *Manager) Enqueue(job Job) bool {
	m.mu.Lock()
	q, ok := m.queues[job.Topic]
	m.mu.Unlock()
	if !ok {
		return false
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = q.cfg.MaxRetries
	}

	select {
	case q.ch <- job:
		m.metrics.enqueued.WithLabelValues(string(job.Topic)).Inc()
		m.metrics.queueDepth.WithLabelValues(string(job.Topic)).Set(float64(len(q.ch)))
		return true
	default:
		m.metrics.dropped.WithLabelValues(string(job.Topic)).Inc()
		m.log.Warn("job queue full, dropping job",
			zap.String("topic", string(job.Topic)), zap.String("job_id", job.ID))
		return false
	}
}

// Start launches every registered topic's worker pool. Workers run until
// ctx is cancelled and their queue drains, at which point Start's caller
// should call Shutdown to wait for drain with a timeout.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for topic, q := range m.queues {
		for i := 0; i < q.cfg.Workers; i++ {
			q.wg.Add(1)
			go m.worker(ctx, topic, q, i)
		}
		m.log.Info("started worker pool", zap.String("topic", string(topic)), zap.Int("workers", q.cfg.Workers))
	}
}

func (m *Manager) worker(ctx context.Context, topic Topic, q *queue, workerID int) {
	defer q.wg.Done()

	for {
		for q.paused.Load() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.ch:
			if !ok {
				return
			}
			m.runJob(ctx, topic, q, job, workerID)
		}
	}
}

// Pause stops topic's workers from picking up further jobs; already-running
// handlers finish. Enqueue keeps accepting jobs up to the queue's capacity
// (spec.md §4.12 decay worker pause/resume).
func (m *Manager) Pause(topic Topic) {
	m.mu.Lock()
	q, ok := m.queues[topic]
	m.mu.Unlock()
	if ok {
		q.paused.Store(true)
	}
}

// Resume lets a paused topic's workers pick up jobs again.
func (m *Manager) Resume(topic Topic) {
	m.mu.Lock()
	q, ok := m.queues[topic]
	m.mu.Unlock()
	if ok {
		q.paused.Store(false)
	}
}

func (m *Manager) runJob(ctx context.Context, topic Topic, q *queue, job Job, workerID int) {
	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			return
		}
	}
	if job.Attempt > 0 {
		backoff := backoffFor(job.Attempt)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
	}

	start := time.Now()
	err := q.cfg.Handler(ctx, job)
	m.metrics.duration.WithLabelValues(string(topic)).Observe(time.Since(start).Seconds())

	if err == nil {
		m.metrics.completed.WithLabelValues(string(topic)).Inc()
		return
	}

	m.log.Warn("job failed", zap.String("topic", string(topic)), zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt), zap.Error(err))

	if !errs.IsRetryable(err) || job.Attempt >= job.MaxRetries {
		m.metrics.failed.WithLabelValues(string(topic)).Inc()
		return
	}

	job.Attempt++
	select {
	case q.ch <- job:
	default:
		m.metrics.dropped.WithLabelValues(string(topic)).Inc()
		m.log.Warn("failed to requeue job, queue full", zap.String("topic", string(topic)), zap.String("job_id", job.ID))
	}
}

// backoffFor returns the backoff delay for a retry attempt: attempt²
// seconds, clamped to spec.md §7's 2-5s worker retry window.
func backoffFor(attempt int) time.Duration {
	d := time.Duration(attempt*attempt) * time.Second
	if d < 2*time.Second {
		d = 2 * time.Second
	}
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// Shutdown closes every topic's queue and waits (up to timeout) for
// in-flight and already-queued jobs to drain.
func (m *Manager) Shutdown(timeout time.Duration) {
	m.mu.Lock()
	queues := make([]*queue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
		close(q.ch)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for _, q := range queues {
			q.wg.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		m.log.Info("all job workers drained")
	case <-time.After(timeout):
		m.log.Warn("shutdown timeout reached, some jobs may be dropped")
	}
}

// QueueDepth reports how many jobs are currently buffered on topic.
func (m *Manager) QueueDepth(topic Topic) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[topic]
	if !ok {
		return 0
	}
	return len(q.ch)
}
