// Package metrics provides Prometheus metrics collection for the credit
// screening pipeline. It defines and manages the search, evaluation, and
// dataset metrics that are exposed via the Prometheus metrics endpoint.
//
// The package includes metrics for hyperparameter search throughput,
// per-run evaluation outcomes, and general system health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the screening pipeline.
// It provides counters, gauges, and histograms covering hyperparameter
// search progress, model evaluation results, and dataset shape.
type Metrics struct {
	// Search metrics
	CandidatesEvaluated prometheus.Counter   // Total number of hyperparameter candidates scored
	CandidateFailures   prometheus.Counter   // Total number of candidates that failed to train
	CandidateDuration   prometheus.Histogram // Duration of per-candidate cross-validation
	BestCVAccuracy      *prometheus.GaugeVec // Best cross-validation accuracy per model family

	// Evaluation metrics
	RunsCompleted prometheus.Counter   // Total number of evaluation runs completed
	RunsAborted   prometheus.Counter   // Total number of evaluation runs aborted
	RunDuration   prometheus.Histogram // End-to-end duration of a single evaluation run
	TestAccuracy  *prometheus.GaugeVec // Held-out accuracy per family and feature variant
	NetProfit     *prometheus.GaugeVec // Net profit per family and feature variant

	// Dataset metrics
	RowsLoaded       prometheus.Gauge // Number of rows in the encoded dataset
	FeaturesSelected prometheus.Gauge // Number of features kept by the ranking step

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
// This is the standard way to create metrics for production use.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// This allows for isolated metric collection in tests without affecting
// the global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		CandidatesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "search_candidates_evaluated_total",
			Help: "Total number of hyperparameter candidates scored",
		}),
		CandidateFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "search_candidate_failures_total",
			Help: "Total number of candidates that failed to train",
		}),
		CandidateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_candidate_duration_seconds",
			Help:    "Duration of per-candidate cross-validation in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		BestCVAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "search_best_cv_accuracy",
			Help: "Best cross-validation accuracy found per model family",
		}, []string{"family"}),
		RunsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "evaluation_runs_completed_total",
			Help: "Total number of evaluation runs completed",
		}),
		RunsAborted: factory.NewCounter(prometheus.CounterOpts{
			Name: "evaluation_runs_aborted_total",
			Help: "Total number of evaluation runs aborted before finishing",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "evaluation_run_duration_seconds",
			Help:    "End-to-end duration of a single evaluation run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		}),
		TestAccuracy: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evaluation_test_accuracy",
			Help: "Held-out accuracy per model family and feature variant",
		}, []string{"family", "variant"}),
		NetProfit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "evaluation_net_profit",
			Help: "Cost-weighted net profit per model family and feature variant",
		}, []string{"family", "variant"}),
		RowsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dataset_rows_loaded",
			Help: "Number of rows in the encoded dataset",
		}),
		FeaturesSelected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dataset_features_selected",
			Help: "Number of features kept by the ranking step",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
