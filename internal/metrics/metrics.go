package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for the pipeline and
// retention sweeps.
type Metrics struct {
	entitiesProcessed *prometheus.CounterVec
	artifactsWritten  *prometheus.CounterVec
	itemsFetched      prometheus.Counter
	retentionRemoved  prometheus.Counter
	entityDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production; tests use their own registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		entitiesProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrack_entities_processed_total",
				Help: "Total number of entity pipelines completed, by status",
			},
			[]string{"status"},
		),

		artifactsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsetrack_artifacts_written_total",
				Help: "Total number of artifacts written, by kind",
			},
			[]string{"kind"},
		),

		itemsFetched: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsetrack_items_fetched_total",
				Help: "Total number of items fetched across all entities",
			},
		),

		retentionRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsetrack_retention_removed_total",
				Help: "Total number of corpus entries removed by retention sweeps",
			},
		),

		entityDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pulsetrack_entity_pipeline_duration_seconds",
				Help:    "Duration of one entity's pipeline run",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
		),
	}
}

// EntityProcessed records one finished entity pipeline.
func (m *Metrics) EntityProcessed(status string, seconds float64) {
	if m == nil {
		return
	}
	m.entitiesProcessed.WithLabelValues(status).Inc()
	m.entityDuration.Observe(seconds)
}

// ArtifactWritten records one stored artifact.
func (m *Metrics) ArtifactWritten(kind string) {
	if m == nil {
		return
	}
	m.artifactsWritten.WithLabelValues(kind).Inc()
}

// ItemsFetched records fetched items.
func (m *Metrics) ItemsFetched(n int) {
	if m == nil {
		return
	}
	m.itemsFetched.Add(float64(n))
}

// RetentionRemoved records entries removed by a sweep.
func (m *Metrics) RetentionRemoved(n int) {
	if m == nil {
		return
	}
	m.retentionRemoved.Add(float64(n))
}
