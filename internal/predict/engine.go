package predict

// Package predict implements the prediction pipeline: threshold rules over a
// single snapshot, trend and correlation analysis over a windowed history,
// an optional anomaly-detection stage, and the engine that merges their
// output into a ranked prediction with an overall confidence score.

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kubilitics/kubemedic/internal/history"
	"github.com/kubilitics/kubemedic/internal/metrics"
	"github.com/kubilitics/kubemedic/internal/models"
	"github.com/kubilitics/kubemedic/internal/predict/anomaly"
)

// severityWeights and typeWeights drive the confidence penalty. Unknown
// severities and types weigh zero.
var severityWeights = map[models.Severity]float64{
	models.SeverityCritical: 0.3,
	models.SeverityWarning:  0.1,
}

var typeWeights = map[string]float64{
	models.IssueHighCPUUsage:        0.2,
	models.IssueHighMemoryUsage:     0.2,
	models.IssueFrequentRestarts:    0.15,
	models.IssueDiskPressure:        0.1,
	models.IssueMemoryPressure:      0.1,
	models.IssuePIDPressure:         0.1,
	models.IssueCPUUsageTrend:       0.05,
	models.IssueMemoryUsageTrend:    0.05,
	models.IssueResourceCorrelation: 0.05,
	models.IssueMLAnomaly:           0.1,
}

// EngineOptions configures a prediction engine.
type EngineOptions struct {
	Thresholds Thresholds
	// HistoryCapacity bounds both the metrics and the prediction history.
	HistoryCapacity int
	// MetricsHistoryFile and PredictionHistoryFile enable write-through
	// persistence when non-empty.
	MetricsHistoryFile    string
	PredictionHistoryFile string
	// Detector is the anomaly stage; nil selects the no-op detector.
	Detector anomaly.Detector
	Logger   *zap.Logger
}

// Engine orchestrates the analyzers over an owned, bounded metrics history.
// The engine is the sole writer of its histories; reads hand out copies.
type Engine struct {
	thresholds  Thresholds
	evaluator   *ThresholdEvaluator
	trends      *TrendAnalyzer
	correlation *CorrelationAnalyzer
	detector    anomaly.Detector

	metricsHistory *history.Store[models.ClusterMetricsSnapshot]
	predictions    *history.Store[models.PredictionResult]

	logger *zap.Logger
}

// NewEngine validates the configuration and wires the analyzers. Threshold
// and history misconfiguration fails here, never inside an analysis call.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if opts.Detector == nil {
		opts.Detector = anomaly.NewNoop()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	snapshotStamp := func(s models.ClusterMetricsSnapshot) time.Time { return s.Timestamp }
	predictionStamp := func(p models.PredictionResult) time.Time { return p.Timestamp }

	var metricsHistory *history.Store[models.ClusterMetricsSnapshot]
	var predictions *history.Store[models.PredictionResult]
	var err error

	if opts.MetricsHistoryFile != "" {
		metricsHistory, err = history.NewPersistent(opts.HistoryCapacity, opts.MetricsHistoryFile, snapshotStamp)
		if err != nil {
			return nil, err
		}
	} else {
		metricsHistory = history.New(opts.HistoryCapacity, snapshotStamp)
	}

	if opts.PredictionHistoryFile != "" {
		predictions, err = history.NewPersistent(opts.HistoryCapacity, opts.PredictionHistoryFile, predictionStamp)
		if err != nil {
			return nil, err
		}
	} else {
		predictions = history.New(opts.HistoryCapacity, predictionStamp)
	}

	opts.Logger.Info("prediction engine initialized",
		zap.Float64("cpu_critical", opts.Thresholds.CPUUsageCritical),
		zap.Float64("cpu_warning", opts.Thresholds.CPUUsageWarning),
		zap.Int("restart_threshold", opts.Thresholds.PodRestartThreshold),
		zap.Duration("trend_window", opts.Thresholds.TrendWindow),
		zap.Int("loaded_metrics_records", metricsHistory.Len()),
	)

	return &Engine{
		thresholds:     opts.Thresholds,
		evaluator:      NewThresholdEvaluator(opts.Thresholds),
		trends:         NewTrendAnalyzer(),
		correlation:    NewCorrelationAnalyzer(opts.Thresholds.CorrelationThreshold),
		detector:       opts.Detector,
		metricsHistory: metricsHistory,
		predictions:    predictions,
		logger:         opts.Logger,
	}, nil
}

// Analyze runs one full analysis pass. The snapshot is appended to history
// before the analyzers run, so it participates in its own trend and
// correlation windows; single-run callers get results without warm-up.
//
// Stage order is fixed: thresholds, trends, correlations, anomaly model.
func (e *Engine) Analyze(ctx context.Context, snapshot models.ClusterMetricsSnapshot) models.PredictionResult {
	start := time.Now()

	if err := e.metricsHistory.Append(snapshot); err != nil {
		// History persistence is best-effort; the in-memory append held.
		e.logger.Warn("failed to persist metrics history", zap.Error(err))
	}
	window := e.metricsHistory.Recent(e.thresholds.TrendWindow)

	issues := e.evaluator.Evaluate(snapshot)
	issues = append(issues, e.trends.Analyze(snapshot, window)...)
	issues = append(issues, e.correlation.Analyze(snapshot, window)...)
	issues = append(issues, e.detector.DetectAnomalies(ctx, snapshot)...)

	suggestions := make([]models.Suggestion, 0, len(issues))
	for _, issue := range issues {
		if s := e.suggestionFor(issue); s != nil {
			suggestions = append(suggestions, *s)
		}
	}

	result := models.PredictionResult{
		Timestamp:    time.Now(),
		Issues:       issues,
		Confidence:   confidence(issues),
		Suggestions:  suggestions,
		Trends:       e.trends.Summary(snapshot, window),
		Correlations: e.correlation.Summary(snapshot, window),
	}

	if err := e.predictions.Append(result); err != nil {
		e.logger.Warn("failed to persist prediction history", zap.Error(err))
	}

	for _, issue := range issues {
		metrics.IssuesDetected.WithLabelValues(issue.Type, string(issue.Severity)).Inc()
	}
	metrics.PredictionConfidence.Set(result.Confidence)
	metrics.PredictionsTotal.WithLabelValues("ok").Inc()
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	e.logger.Debug("analysis pass complete",
		zap.Int("issues", len(issues)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("window_samples", len(window)),
	)

	return result
}

// confidence scores a prediction in [0,1]. The base starts at 1.0 minus 0.1
// per issue (clamped), then severity and type penalties are subtracted and
// the result clamped again. An empty issue list is always 1.0.
//
// Note the severity of an issue is effectively counted twice, once through
// the flat per-issue term and once through its severity weight. That matches
// the established scoring and stays for compatibility; see DESIGN.md.
func confidence(issues []models.Issue) float64 {
	if len(issues) == 0 {
		return 1.0
	}

	base := clamp01(1.0 - float64(len(issues))*0.1)

	var severityPenalty, typePenalty float64
	for _, issue := range issues {
		severityPenalty += severityWeights[issue.Severity]
		typePenalty += typeWeights[issue.Type]
	}

	return clamp01(base - severityPenalty - typePenalty)
}

// LatestPrediction returns the most recent prediction, if any.
func (e *Engine) LatestPrediction() (models.PredictionResult, bool) {
	return e.predictions.Latest()
}

// PredictionHistory returns up to limit predictions from the past lookback
// hours, newest first.
func (e *Engine) PredictionHistory(hours int, limit int) []models.PredictionResult {
	return e.predictions.Query(time.Duration(hours)*time.Hour, limit)
}

// MetricsHistoryLen reports how many snapshots the engine holds.
func (e *Engine) MetricsHistoryLen() int {
	return e.metricsHistory.Len()
}
