// Package metrics provides Prometheus metrics collection for the risk
// assessment service. It defines the counters, gauges and histograms exposed
// via the /metrics endpoint for monitoring and alerting.
//
// The package covers assessment throughput, per-condition outcomes, model
// scoring and model loading.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Assessment metrics
	Assessments        prometheus.Counter     // Completed assessments
	AssessmentFailures prometheus.Counter     // Requests rejected before any condition ran
	AssessmentLatency  prometheus.Histogram   // End-to-end assessment latency
	ConditionResults   *prometheus.CounterVec // Per-condition results by level
	ConditionFallbacks *prometheus.CounterVec // Per-condition failures replaced by the fallback result

	// Scoring metrics
	MLPredictions      prometheus.Counter   // Successful scores
	MLFailures         prometheus.Counter   // Failed scores
	MLLatency          prometheus.Histogram // Scoring latency in seconds
	MLPredictionScores prometheus.Histogram // Distribution of positive-class probabilities
	MLFallbackUse      prometheus.Counter   // Scores produced by a fallback scorer

	// Model lifecycle
	ModelLoads  *prometheus.CounterVec // Load attempts by condition and outcome
	ModelLoaded *prometheus.GaugeVec   // 1 when a condition is backed by a real model

	// System metrics
	ErrorsTotal prometheus.Counter // Side-effect failures (history, events)
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Assessments: factory.NewCounter(prometheus.CounterOpts{
			Name: "assessments_total",
			Help: "Total number of completed risk assessments",
		}),
		AssessmentFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "assessment_failures_total",
			Help: "Total number of assessment requests rejected as structurally invalid",
		}),
		AssessmentLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "assessment_latency_seconds",
			Help:    "End-to-end assessment latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		ConditionResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "condition_results_total",
			Help: "Per-condition results by risk level",
		}, []string{"condition", "level"}),
		ConditionFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "condition_fallbacks_total",
			Help: "Per-condition failures replaced by the medium-risk fallback result",
		}, []string{"condition"}),
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of model scores produced",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of model scoring failures",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Model scoring latency in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1.0},
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of positive-class probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MLFallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_fallback_use_total",
			Help: "Total number of scores produced by a fallback scorer",
		}),
		ModelLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "model_loads_total",
			Help: "Model load attempts by condition and outcome",
		}, []string{"condition", "outcome"}),
		ModelLoaded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "model_loaded",
			Help: "1 when the condition is scored by a loaded model, 0 when it uses the fallback",
		}, []string{"condition"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of non-fatal errors encountered",
		}),
	}
}
