// Package observability provides Prometheus metrics and structured logging.
package observability

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	PagesFetched      *prometheus.CounterVec
	RowsFetched       *prometheus.CounterVec
	FetchRetries      *prometheus.CounterVec
	IngestionFailures *prometheus.CounterVec
	SubgraphLatency   *prometheus.HistogramVec
	HistoryRowsStored *prometheus.CounterVec
	HistoryWatermark  *prometheus.GaugeVec

	// Reconstruction metrics
	RecordsSkipped *prometheus.CounterVec
	HoldersTracked *prometheus.GaugeVec

	// Distribution metrics
	DistributionRecordsWritten *prometheus.CounterVec
	RunsTotal                  *prometheus.CounterVec
	RunDuration                *prometheus.HistogramVec
	LastSnapshotTimestamp      *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "seer_airdrop"
	}

	return &Metrics{
		PagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pages_fetched_total",
			Help:      "Total number of subgraph pages fetched by event kind",
		}, []string{"kind"}),
		RowsFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_fetched_total",
			Help:      "Total number of subgraph rows fetched by event kind",
		}, []string{"kind"}),
		FetchRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "fetch_retries_total",
			Help:      "Total number of retried subgraph requests by event kind",
		}, []string{"kind"}),
		IngestionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "failures_total",
			Help:      "Total number of windows that exhausted the retry budget",
		}, []string{"kind"}),
		SubgraphLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "subgraph",
			Name:      "request_latency_seconds",
			Help:      "Subgraph request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		HistoryRowsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "rows_stored_total",
			Help:      "Total number of raw history rows stored by table",
		}, []string{"table"}),
		HistoryWatermark: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "watermark_timestamp",
			Help:      "Max stored event timestamp per chain",
		}, []string{"chain"}),

		RecordsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconstruction",
			Name:      "records_skipped_total",
			Help:      "Total number of records skipped by reason",
		}, []string{"reason"}),
		HoldersTracked: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconstruction",
			Name:      "holders",
			Help:      "Number of holders with a positive balance in the last run",
		}, []string{"chain"}),

		DistributionRecordsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "records_written_total",
			Help:      "Total number of distribution records upserted",
		}, []string{"chain"}),
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "runs_total",
			Help:      "Total number of snapshot runs by status",
		}, []string{"chain", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "run_duration_seconds",
			Help:      "Snapshot run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"chain"}),
		LastSnapshotTimestamp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "last_snapshot_timestamp",
			Help:      "Unix timestamp of the last persisted snapshot",
		}, []string{"chain"}),

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
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics and /health on addr. It blocks until the server fails.
func Serve(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	logger.Info().Str("addr", addr).Msg("starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPage records one fetched subgraph page.
func RecordPage(kind string, rows int, seconds float64) {
	DefaultMetrics.PagesFetched.WithLabelValues(kind).Inc()
	DefaultMetrics.RowsFetched.WithLabelValues(kind).Add(float64(rows))
	DefaultMetrics.SubgraphLatency.WithLabelValues(kind).Observe(seconds)
}

// RecordRetry records a retried subgraph request.
func RecordRetry(kind string) {
	DefaultMetrics.FetchRetries.WithLabelValues(kind).Inc()
}

// RecordIngestionFailure records a window that exhausted its retries.
func RecordIngestionFailure(kind string) {
	DefaultMetrics.IngestionFailures.WithLabelValues(kind).Inc()
}

// RecordSkipped records a record skipped during reconstruction.
func RecordSkipped(reason string) {
	DefaultMetrics.RecordsSkipped.WithLabelValues(reason).Inc()
}

// RecordHistoryStored records raw history rows written to storage.
func RecordHistoryStored(table string, rows int) {
	DefaultMetrics.HistoryRowsStored.WithLabelValues(table).Add(float64(rows))
}

// UpdateHistoryWatermark sets the stored history watermark of a chain.
func UpdateHistoryWatermark(chain string, ts int64) {
	DefaultMetrics.HistoryWatermark.WithLabelValues(chain).Set(float64(ts))
}

// RecordRun records a snapshot run and, on success, its outputs.
func RecordRun(chain, status string, durationSeconds float64, holders, written int, snapshot int64) {
	DefaultMetrics.RunsTotal.WithLabelValues(chain, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(chain).Observe(durationSeconds)
	if status != "success" {
		return
	}
	DefaultMetrics.HoldersTracked.WithLabelValues(chain).Set(float64(holders))
	DefaultMetrics.DistributionRecordsWritten.WithLabelValues(chain).Add(float64(written))
	DefaultMetrics.LastSnapshotTimestamp.WithLabelValues(chain).Set(float64(snapshot))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
