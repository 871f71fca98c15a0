// Package metrics provides Prometheus metrics for the prediction
// service: serving throughput, fallback usage, feed ingestion, and
// model freshness, exposed on the metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the prediction service.
type Metrics struct {
	// Serving metrics
	PredictionsTotal   prometheus.Counter   // Total predictions served
	PredictionFailures prometheus.Counter   // Predictions that errored
	FallbackUse        prometheus.Counter   // Times the stub scorer was installed or used
	PredictionLatency  prometheus.Histogram // Prediction latency in seconds
	BatchSize          prometheus.Histogram // Batch request sizes

	// Model metrics
	ModelAge prometheus.Gauge // Age of the loaded artifact in seconds

	// Feed and ingestion metrics
	MatchesIngested prometheus.Counter // Matches written to storage
	OddsUpdates     prometheus.Counter // Odds quotes received
	WSReconnects    prometheus.Counter // Odds stream reconnections

	// System metrics
	FeatureErrors prometheus.Counter // Feature construction failures
	ErrorsTotal   prometheus.Counter // All other errors
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for
// testing without touching the global registry).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of predictions that errored",
		}),
		FallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_fallback_use_total",
			Help: "Total number of times the stub model was used",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "Prediction latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_batch_size",
			Help:    "Distribution of batch prediction request sizes",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the currently loaded model artifact in seconds",
		}),
		MatchesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "matches_ingested_total",
			Help: "Total number of matches written to storage",
		}),
		OddsUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "odds_updates_total",
			Help: "Total number of odds quotes received",
		}),
		WSReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_reconnects_total",
			Help: "Total number of odds stream reconnections",
		}),
		FeatureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "feature_errors_total",
			Help: "Total number of feature construction failures",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
