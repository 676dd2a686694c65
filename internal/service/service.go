package service

// Package service runs the background loops that drive the pipeline: a
// collection loop that snapshots the cluster and a prediction loop that
// analyzes the latest snapshot and remediates the issues it finds.
//
// The loops are independently scheduled and communicate only through the
// latest-snapshot slot. Within one loop iteration, work is strictly
// sequential: analyze, then remediate each issue in list order. Missed ticks
// are not queued or coalesced.

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kubilitics/kubemedic/internal/models"
)

// Collector produces cluster snapshots.
type Collector interface {
	Collect(ctx context.Context) (models.ClusterMetricsSnapshot, error)
}

// Predictor runs one analysis pass over a snapshot.
type Predictor interface {
	Analyze(ctx context.Context, snapshot models.ClusterMetricsSnapshot) models.PredictionResult
}

// Remediator applies remediation for one issue.
type Remediator interface {
	Remediate(ctx context.Context, issue models.Issue) models.RemediationResult
}

// PredictionAuditor records completed analysis passes.
type PredictionAuditor interface {
	RecordPrediction(result models.PredictionResult)
}

// Options configures the service.
type Options struct {
	// Collector may be nil when no cluster is reachable; the collection loop
	// is skipped and Status reports collection as failing while the
	// prediction loop keeps running on whatever snapshots arrive otherwise.
	Collector          Collector
	Predictor          Predictor
	Remediator         Remediator
	CollectionInterval time.Duration
	PredictionInterval time.Duration
	// Auditor is optional; nil disables prediction audit records.
	Auditor PredictionAuditor
	Logger  *zap.Logger
}

// Status is a point-in-time view of the service for health and status
// endpoints.
type Status struct {
	LastCollection    time.Time `json:"last_collection"`
	LastPrediction    time.Time `json:"last_prediction"`
	LastIssueCount    int       `json:"last_issue_count"`
	LastConfidence    float64   `json:"last_confidence"`
	CollectionFailing bool      `json:"collection_failing"`
}

// Service owns the two background loops and the latest-snapshot slot.
type Service struct {
	collector  Collector
	predictor  Predictor
	remediator Remediator
	auditor    PredictionAuditor
	logger     *zap.Logger

	collectionInterval time.Duration
	predictionInterval time.Duration

	mu             sync.Mutex
	latest         models.ClusterMetricsSnapshot
	hasSnapshot    bool
	status         Status
	lastPrediction models.PredictionResult
}

// New wires a service. Both intervals must be positive.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Service{
		collector:          opts.Collector,
		predictor:          opts.Predictor,
		remediator:         opts.Remediator,
		auditor:            opts.Auditor,
		logger:             opts.Logger,
		collectionInterval: opts.CollectionInterval,
		predictionInterval: opts.PredictionInterval,
	}
	if s.collector == nil {
		s.status.CollectionFailing = true
	}
	return s
}

// Run starts both loops and blocks until ctx is cancelled. Each loop fires
// once immediately so a fresh process produces a snapshot and a prediction
// without waiting a full interval.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup

	if s.collector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, s.collectionInterval, s.collectOnce)
		}()
	} else {
		s.logger.Warn("no collector configured, running analysis-only")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.loop(ctx, s.predictionInterval, s.predictOnce)
	}()

	wg.Wait()
}

func (s *Service) loop(ctx context.Context, interval time.Duration, step func(context.Context)) {
	step(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			step(ctx)
		}
	}
}

// collectOnce captures a snapshot into the latest-snapshot slot. A failed
// collection keeps the previous snapshot so prediction can continue on
// slightly stale data.
func (s *Service) collectOnce(ctx context.Context) {
	snapshot, err := s.collector.Collect(ctx)
	if err != nil {
		s.logger.Error("metrics collection failed", zap.Error(err))
		s.mu.Lock()
		s.status.CollectionFailing = true
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.latest = snapshot
	s.hasSnapshot = true
	s.status.LastCollection = snapshot.Timestamp
	s.status.CollectionFailing = false
	s.mu.Unlock()
}

// predictOnce analyzes the latest snapshot and remediates each issue in
// list order. With no snapshot yet it does nothing; that is the normal
// startup state, not an error.
func (s *Service) predictOnce(ctx context.Context) {
	s.mu.Lock()
	snapshot, ok := s.latest, s.hasSnapshot
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("no snapshot collected yet, skipping prediction")
		return
	}

	result := s.predictor.Analyze(ctx, snapshot)
	if s.auditor != nil {
		s.auditor.RecordPrediction(result)
	}

	s.logger.Info("prediction complete",
		zap.Int("issues", len(result.Issues)),
		zap.Float64("confidence", result.Confidence),
	)

	for _, issue := range result.Issues {
		outcome := s.remediator.Remediate(ctx, issue)
		if !outcome.Success {
			s.logger.Warn("remediation failed",
				zap.String("issue_type", issue.Type),
				zap.String("component", issue.Component),
				zap.String("error", outcome.ErrorMessage),
			)
		}
	}

	s.mu.Lock()
	s.lastPrediction = result
	s.status.LastPrediction = result.Timestamp
	s.status.LastIssueCount = len(result.Issues)
	s.status.LastConfidence = result.Confidence
	s.mu.Unlock()
}

// Status returns a copy of the current service status.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastPrediction returns the most recent prediction and whether one exists.
func (s *Service) LastPrediction() (models.PredictionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPrediction, !s.status.LastPrediction.IsZero()
}
