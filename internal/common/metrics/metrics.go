// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of prediction requests by source and outcome",
		},
		[]string{"source", "status"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Duration of prediction requests in seconds",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"source"},
	)

	ModelFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_fetch_total",
			Help: "Total number of remote model artifact fetches",
		},
		[]string{"source", "status"},
	)

	ModelLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_loaded_info",
			Help: "Set to 1 for the model currently serving predictions",
		},
		[]string{"name", "version"},
	)

	PredictionCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_cache_total",
			Help: "Prediction cache lookups by result",
		},
		[]string{"result"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// ObservePrediction records one prediction outcome.
func ObservePrediction(source, status string, elapsed time.Duration) {
	PredictionsTotal.WithLabelValues(source, status).Inc()
	PredictionDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// CacheResult records a cache lookup as "hit", "miss" or "error".
func CacheResult(result string) {
	PredictionCacheTotal.WithLabelValues(result).Inc()
}
