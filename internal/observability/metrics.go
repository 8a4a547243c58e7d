package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "seaweed_cluster"

// Metrics holds the Prometheus counters, histograms, and gauges for the clustering pipeline.
type Metrics struct {
	UnitsProcessed   *prometheus.CounterVec   // labels: outcome={clustered,raw_only,cached,failed}
	StageDuration    *prometheus.HistogramVec // labels: stage={raw,clustered,elbow,summarize}
	CacheLookups     *prometheus.CounterVec   // labels: stage, result={hit,miss}
	PipelineRunning  prometheus.Gauge
	TableCacheValues prometheus.Gauge

	// Clustering metrics.
	ClusteringIterations prometheus.Histogram
	ClusteringInertia    *prometheus.GaugeVec // labels: scenario, scope
	DistanceEvaluations  prometheus.Counter

	// Artifact and join metrics.
	ArtifactsWritten  *prometheus.CounterVec // labels: stage
	JoinDroppedRows   prometheus.Counter
	SummaryPublished  *prometheus.CounterVec // labels: sink={kafka,influxdb}
	SummaryPublishErr *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.UnitsProcessed,
		m.StageDuration,
		m.CacheLookups,
		m.PipelineRunning,
		m.TableCacheValues,
		m.ClusteringIterations,
		m.ClusteringInertia,
		m.DistanceEvaluations,
		m.ArtifactsWritten,
		m.JoinDroppedRows,
		m.SummaryPublished,
		m.SummaryPublishErr,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}
	return &Metrics{
		UnitsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_processed_total",
			Help:      help("Scenario/scope units processed by outcome."),
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      help("Duration of a pipeline stage for one unit."),
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}, []string{"stage"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      help("Artifact manifest lookups by stage and result."),
		}, []string{"stage", "result"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while units are being processed, 0 otherwise."),
		}),
		TableCacheValues: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_cache_values",
			Help:      help("Decoded table values held by the report read cache."),
		}),
		ClusteringIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clustering_iterations",
			Help:      help("Assignment/update iterations until convergence per clustering fit."),
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 50},
		}),
		ClusteringInertia: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clustering_inertia",
			Help:      help("Sum of squared DTW distances of the last clustering fit."),
		}, []string{"scenario", "scope"}),
		DistanceEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distance_evaluations_total",
			Help:      help("DTW distance evaluations performed by the cluster engine."),
		}),
		ArtifactsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_written_total",
			Help:      help("Artifacts committed to the store by stage."),
		}, []string{"stage"}),
		JoinDroppedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_dropped_rows_total",
			Help:      help("Rows dropped by the area join because the cell has no area."),
		}),
		SummaryPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_published_total",
			Help:      help("Cluster summaries written to a sink."),
		}, []string{"sink"}),
		SummaryPublishErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_publish_errors_total",
			Help:      help("Failed cluster summary writes by sink."),
		}, []string{"sink"}),
	}
}
