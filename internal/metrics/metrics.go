package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Self-metrics for production monitoring of the pipeline
var (
	// Prediction metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubemedic_predictions_total",
			Help: "Total number of analysis passes",
		},
		[]string{"status"},
	)

	AnalysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kubemedic_analysis_duration_seconds",
			Help:    "Analysis pass duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	IssuesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubemedic_issues_detected_total",
			Help: "Total number of issues detected by the analyzers",
		},
		[]string{"type", "severity"},
	)

	PredictionConfidence = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kubemedic_prediction_confidence",
			Help: "Confidence of the most recent prediction (0-1)",
		},
	)

	// Remediation metrics
	RemediationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubemedic_remediations_total",
			Help: "Total number of remediation attempts",
		},
		[]string{"issue_type", "status"},
	)

	RemediationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kubemedic_remediation_duration_seconds",
			Help:    "Remediation attempt duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"issue_type"},
	)

	// Collection metrics
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kubemedic_collections_total",
			Help: "Total number of metrics collection passes",
		},
		[]string{"status"},
	)

	NodesObserved = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kubemedic_nodes_observed",
			Help: "Nodes present in the most recent snapshot",
		},
	)

	PodsObserved = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kubemedic_pods_observed",
			Help: "Pods present in the most recent snapshot",
		},
	)
)
