// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Evaluation metrics
	RowsEvaluated       *prometheus.CounterVec
	EvaluationRunsTotal *prometheus.CounterVec
	EvaluationDuration  prometheus.Histogram
	ActiveEvaluations   prometheus.Gauge
	ProgressSubscribers prometheus.Gauge

	// Price source metrics
	PriceFetchLatency *prometheus.HistogramVec
	PriceFetchErrors  *prometheus.CounterVec
	PriceFetchRetries *prometheus.CounterVec
	BarsIngested      prometheus.Counter

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulEvaluation prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "trade_outcome_lab"
	}

	return &Metrics{
		// Evaluation metrics
		RowsEvaluated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "rows_evaluated_total",
			Help:      "Total number of trade rows evaluated by outcome",
		}, []string{"outcome"}),
		EvaluationRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "runs_total",
			Help:      "Total number of batch evaluations by status",
		}, []string{"status"}),
		EvaluationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "duration_seconds",
			Help:      "Batch evaluation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		ActiveEvaluations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "active_runs",
			Help:      "Number of batch evaluations currently running",
		}),
		ProgressSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "evaluator",
			Name:      "progress_subscribers",
			Help:      "Number of connected progress subscribers",
		}),

		// Price source metrics
		PriceFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricesource",
			Name:      "fetch_latency_seconds",
			Help:      "Daily bar fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		PriceFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricesource",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed daily bar fetches",
		}, []string{"source"}),
		PriceFetchRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricesource",
			Name:      "fetch_retries_total",
			Help:      "Total number of retried HTTP requests",
		}, []string{"source"}),
		BarsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricesource",
			Name:      "bars_ingested_total",
			Help:      "Total number of daily bars written to the bar store",
		}),

		// Cache metrics
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of price cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of price cache misses",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulEvaluation: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_evaluation_timestamp",
			Help:      "Unix timestamp of last successful batch evaluation",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRowEvaluated increments the evaluated rows counter for an outcome label.
func RecordRowEvaluated(outcome string) {
	DefaultMetrics.RowsEvaluated.WithLabelValues(outcome).Inc()
}

// RecordEvaluationRun records a finished batch evaluation.
func RecordEvaluationRun(status string, durationSeconds float64, finishedUnix int64) {
	DefaultMetrics.EvaluationRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.EvaluationDuration.Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulEvaluation.Set(float64(finishedUnix))
	}
}

// EvaluationStarted increments the active evaluations gauge.
func EvaluationStarted() {
	DefaultMetrics.ActiveEvaluations.Inc()
}

// EvaluationFinished decrements the active evaluations gauge.
func EvaluationFinished() {
	DefaultMetrics.ActiveEvaluations.Dec()
}

// SetProgressSubscribers updates the connected subscribers gauge.
func SetProgressSubscribers(n int) {
	DefaultMetrics.ProgressSubscribers.Set(float64(n))
}

// RecordPriceFetch records a daily bar fetch against a source.
func RecordPriceFetch(source string, seconds float64, err error) {
	DefaultMetrics.PriceFetchLatency.WithLabelValues(source).Observe(seconds)
	if err != nil {
		DefaultMetrics.PriceFetchErrors.WithLabelValues(source).Inc()
	}
}

// RecordFetchRetry increments the retried request counter.
func RecordFetchRetry(source string) {
	DefaultMetrics.PriceFetchRetries.WithLabelValues(source).Inc()
}

// RecordBarsIngested adds n to the ingested bars counter.
func RecordBarsIngested(n int) {
	DefaultMetrics.BarsIngested.Add(float64(n))
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.CacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.CacheMisses.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
