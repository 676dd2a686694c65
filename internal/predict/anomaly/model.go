package anomaly

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kubilitics/kubemedic/internal/models"
)

// Model bundles the fitted normalizer and forest. It is the opaque artifact
// referenced from configuration; training and scoring always go through it
// together so features are scaled with the statistics they were trained with.
type Model struct {
	Scaler *StandardScaler  `json:"scaler"`
	Forest *IsolationForest `json:"forest"`
}

// Train fits a scaler and forest on per-node feature vectors extracted from
// historical snapshots. Every node present in a snapshot's CPU map
// contributes one training row.
func Train(snapshots []models.ClusterMetricsSnapshot, cfg ForestConfig) (*Model, error) {
	rows := make([][]float64, 0, len(snapshots))
	for _, snap := range snapshots {
		for node := range snap.CPUUsage {
			rows = append(rows, featureVector(snap, node))
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no training rows: snapshots carry no node metrics")
	}

	scaler, err := FitScaler(rows)
	if err != nil {
		return nil, err
	}

	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		scaled[i] = scaler.Transform(row)
	}

	return &Model{
		Scaler: scaler,
		Forest: FitForest(scaled, cfg),
	}, nil
}

// Save writes the model artifact as JSON.
func (m *Model) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating model dir: %w", err)
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing model artifact %s: %w", path, err)
	}
	return nil
}

// LoadModel reads a model artifact written by Save.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact %s: %w", path, err)
	}
	model := &Model{}
	if err := json.Unmarshal(data, model); err != nil {
		return nil, fmt.Errorf("parsing model artifact %s: %w", path, err)
	}
	if model.Scaler == nil || model.Forest == nil {
		return nil, fmt.Errorf("model artifact %s is incomplete", path)
	}
	return model, nil
}

// DetectorFromPath selects the detector implementation at construction time:
// an empty path means no model is configured and yields the no-op detector;
// a configured path that cannot be loaded is a configuration error.
func DetectorFromPath(path string) (Detector, error) {
	if path == "" {
		return NewNoop(), nil
	}
	model, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	return NewDetector(model)
}
