package anomaly

// Package anomaly provides the optional model-backed analysis stage of the
// prediction pipeline.
//
// Responsibilities:
//   - Build a per-node feature vector from a metrics snapshot:
//     [cpu_usage, memory_usage, disk_pressure, memory_pressure, pid_pressure]
//     with pressure flags encoded as 0/1
//   - Standard-scale the vector with a normalizer fitted at training time
//   - Classify each node as inlier or outlier with an isolation forest
//   - Emit one ml_anomaly warning issue per outlier node
//
// Model absence is a valid, common runtime state, not a failure mode: the
// detector is selected once at construction, and the no-op implementation
// contributes zero issues without erroring. Nothing branches on model
// presence per call.

import (
	"context"
	"fmt"

	"github.com/kubilitics/kubemedic/internal/models"
)

// Detector is the capability interface for the model-backed stage.
type Detector interface {
	// DetectAnomalies classifies every node in the snapshot and returns one
	// warning issue per outlier. It never fails analysis: scoring problems
	// degrade to an empty result.
	DetectAnomalies(ctx context.Context, snapshot models.ClusterMetricsSnapshot) []models.Issue
}

// NewNoop returns the detector used when no trained model is configured.
func NewNoop() Detector {
	return noopDetector{}
}

type noopDetector struct{}

func (noopDetector) DetectAnomalies(_ context.Context, _ models.ClusterMetricsSnapshot) []models.Issue {
	return nil
}

// featureCount is the fixed width of a node feature vector.
const featureCount = 5

// featureVector builds the per-node feature vector. Missing map keys default
// to zero usage and unset pressure, matching how the series analyzers treat
// absent data on the classification path.
func featureVector(snapshot models.ClusterMetricsSnapshot, node string) []float64 {
	boolFeature := func(m map[string]bool) float64 {
		if m[node] {
			return 1
		}
		return 0
	}
	return []float64{
		snapshot.CPUUsage[node],
		snapshot.MemoryUsage[node],
		boolFeature(snapshot.DiskPressure),
		boolFeature(snapshot.MemoryPressure),
		boolFeature(snapshot.PIDPressure),
	}
}

// modelDetector scores scaled node features with a trained isolation forest.
type modelDetector struct {
	model *Model
}

// NewDetector wraps a trained model in the Detector interface.
func NewDetector(model *Model) (Detector, error) {
	if model == nil || model.Forest == nil || model.Scaler == nil {
		return nil, fmt.Errorf("anomaly model is not trained")
	}
	if len(model.Scaler.Means) != featureCount {
		return nil, fmt.Errorf("anomaly model expects %d features, scaler has %d", featureCount, len(model.Scaler.Means))
	}
	return &modelDetector{model: model}, nil
}

func (d *modelDetector) DetectAnomalies(_ context.Context, snapshot models.ClusterMetricsSnapshot) []models.Issue {
	issues := make([]models.Issue, 0)

	for node := range snapshot.CPUUsage {
		features := featureVector(snapshot, node)
		scaled := d.model.Scaler.Transform(features)
		score, outlier := d.model.Forest.Score(scaled)
		if !outlier {
			continue
		}
		issues = append(issues, models.Issue{
			Type:        models.IssueMLAnomaly,
			Component:   node,
			Severity:    models.SeverityWarning,
			Description: fmt.Sprintf("Anomaly model detected unusual behavior on %s", node),
			Details: map[string]interface{}{
				"features": features,
				"score":    score,
			},
		})
	}

	return issues
}
