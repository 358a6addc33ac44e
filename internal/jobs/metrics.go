package jobs

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the per-topic Prometheus instrumentation for the job
// system. Registered lazily (not auto-registered with the default
// registry) so callers choose whether and where to expose /metrics.
type Metrics struct {
	enqueued   *prometheus.CounterVec
	completed  *prometheus.CounterVec
	failed     *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	queueDepth *prometheus.GaugeVec
}

// NewMetrics builds a fresh, unregistered Metrics set.
func NewMetrics() *Metrics {
	return &Metrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memoria",
			Subsystem: "jobs",
			Name:      "enqueued_total",
			Help:      "Jobs submitted, by topic.",
		}, []string{"topic"}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memoria",
			Subsystem: "jobs",
			Name:      "completed_total",
			Help:      "Jobs completed successfully, by topic.",
		}, []string{"topic"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memoria",
			Subsystem: "jobs",
			Name:      "failed_total",
			Help:      "Jobs that exhausted retries or hit a non-retryable error, by topic.",
		}, []string{"topic"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memoria",
			Subsystem: "jobs",
			Name:      "dropped_total",
			Help:      "Jobs dropped because their queue was full, by topic.",
		}, []string{"topic"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memoria",
			Subsystem: "jobs",
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time, by topic.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"topic"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "memoria",
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Jobs currently buffered, by topic, sampled at enqueue time.",
		}, []string{"topic"}),
	}
}

// Collectors returns every metric so callers can register them with a
// prometheus.Registerer (e.g. prometheus.DefaultRegisterer or a custom
// registry wired into an HTTP /metrics handler).
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.enqueued, m.completed, m.failed, m.dropped, m.duration, m.queueDepth}
}
