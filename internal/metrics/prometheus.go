package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/story-squad/cohort/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Metrics are created and registered lazily on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	partitions        prometheus.Counter
	partitionErrors   *prometheus.CounterVec
	submissions       prometheus.Histogram
	botsInserted      prometheus.Counter
	groupsFormed      prometheus.Counter
	partitionDuration prometheus.Histogram
	publishResults    *prometheus.CounterVec
	publishLatency    prometheus.Histogram
	requests          *prometheus.CounterVec
	requestLatency    *prometheus.HistogramVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Metrics namespace (defaults to "cohort" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "cohort"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.partitions = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "calls_total",
			Help:      "Total successful partitioning calls.",
		})
		p.partitionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "errors_total",
			Help:      "Total failed partitioning calls by kind (invalid_input, internal).",
		}, []string{"kind"})
		p.submissions = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "submissions",
			Help:      "Number of real submissions per partitioning call.",
			Buckets:   prometheus.ExponentialBuckets(4, 2, 10), // 4 .. 2048
		})
		p.botsInserted = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "bots_inserted_total",
			Help:      "Total synthetic submissions inserted to pad groups.",
		})
		p.groupsFormed = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "groups_total",
			Help:      "Total groups produced.",
		})
		p.partitionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "partitioner",
			Name:      "duration_seconds",
			Help:      "Duration of partitioning calls in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8), // 10us .. ~160ms
		})
		p.publishResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "publisher",
			Name:      "results_total",
			Help:      "Cluster record publish outcomes (success, failure, unchanged).",
		}, []string{"result"})
		p.publishLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "publisher",
			Name:      "latency_seconds",
			Help:      "Latency of cluster record publishes in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		})
		p.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Handled requests by transport, operation and status.",
		}, []string{"transport", "operation", "status"})
		p.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport", "operation"})

		p.reg.MustRegister(
			p.partitions,
			p.partitionErrors,
			p.submissions,
			p.botsInserted,
			p.groupsFormed,
			p.partitionDuration,
			p.publishResults,
			p.publishLatency,
			p.requests,
			p.requestLatency,
		)
	})
}

// RecordPartition records a successful partitioning call.
func (p *PrometheusCollector) RecordPartition(submissions, bots, groups int, duration float64) {
	p.ensureRegistered()
	p.partitions.Inc()
	p.submissions.Observe(float64(submissions))
	p.botsInserted.Add(float64(bots))
	p.groupsFormed.Add(float64(groups))
	p.partitionDuration.Observe(duration)
}

// RecordPartitionError records a failed partitioning call by kind.
func (p *PrometheusCollector) RecordPartitionError(kind string) {
	p.ensureRegistered()
	p.partitionErrors.WithLabelValues(kind).Inc()
}

// RecordPublish records a cluster record publish outcome.
func (p *PrometheusCollector) RecordPublish(result string, duration float64) {
	p.ensureRegistered()
	p.publishResults.WithLabelValues(result).Inc()
	p.publishLatency.Observe(duration)
}

// RecordRequest records a handled transport request.
func (p *PrometheusCollector) RecordRequest(transport, operation, status string, duration float64) {
	p.ensureRegistered()
	p.requests.WithLabelValues(transport, operation, status).Inc()
	p.requestLatency.WithLabelValues(transport, operation).Observe(duration)
}
