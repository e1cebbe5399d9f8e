package dag

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics exposes execution metrics for one process's running
// Engines, namespaced "agentgraph_". An Engine with a nil Metrics field
// records nothing — metrics are opt-in, wired by the CLI/server
// entrypoint that owns a *prometheus.Registry, never constructed by the
// engine itself.
type PrometheusMetrics struct {
	inflightNodes prometheus.Gauge
	queueDepth    prometheus.Gauge
	stepLatency   *prometheus.HistogramVec
	recycles      *prometheus.CounterVec
	backpressure  *prometheus.CounterVec

	inflight atomic.Int64
}

// NewPrometheusMetrics registers the full metric set with registry (pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// *prometheus.Registry for test isolation).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		inflightNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentgraph",
			Name:      "inflight_nodes",
			Help:      "Current number of nodes executing concurrently across all runs",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentgraph",
			Name:      "queue_depth",
			Help:      "Number of nodes currently waiting in a run's ready queue",
		}),
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentgraph",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		}, []string{"run_id", "node_id", "kind", "status"}),
		recycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "loop_recycles_total",
			Help:      "Loop-recycling admissions of an already-complete node back to idle",
		}, []string{"run_id", "node_id"}),
		backpressure: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentgraph",
			Name:      "traffic_backpressure_total",
			Help:      "Traffic controller admissions that had to wait for a free slot",
		}, []string{"run_id", "priority"}),
	}
}

func (pm *PrometheusMetrics) recordStep(runID, nodeID, kind, status string, latency time.Duration) {
	if pm == nil {
		return
	}
	pm.stepLatency.WithLabelValues(runID, nodeID, kind, status).Observe(float64(latency.Milliseconds()))
}

func (pm *PrometheusMetrics) recordRecycle(runID, nodeID string) {
	if pm == nil {
		return
	}
	pm.recycles.WithLabelValues(runID, nodeID).Inc()
}

func (pm *PrometheusMetrics) recordBackpressure(runID, priority string) {
	if pm == nil {
		return
	}
	pm.backpressure.WithLabelValues(runID, priority).Inc()
}

func (pm *PrometheusMetrics) nodeStarted() {
	if pm == nil {
		return
	}
	pm.inflightNodes.Set(float64(pm.inflight.Add(1)))
}

func (pm *PrometheusMetrics) nodeFinished() {
	if pm == nil {
		return
	}
	pm.inflightNodes.Set(float64(pm.inflight.Add(-1)))
}

func (pm *PrometheusMetrics) setQueueDepth(n int) {
	if pm == nil {
		return
	}
	pm.queueDepth.Set(float64(n))
}
