package main

// Package main trains the anomaly detection model from a persisted metrics
// history file and writes the model artifact the server loads at startup.

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/kubilitics/kubemedic/internal/models"
	"github.com/kubilitics/kubemedic/internal/predict/anomaly"
)

func main() {
	historyPath := flag.String("history", "data/metrics_history.json", "metrics history file to train on")
	outputPath := flag.String("output", "data/anomaly_model.json", "where to write the trained model artifact")
	trees := flag.Int("trees", 0, "number of isolation trees (0 = default)")
	seed := flag.Int64("seed", 0, "random seed for reproducible training")
	flag.Parse()

	if err := run(*historyPath, *outputPath, *trees, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "Training failed: %v\n", err)
		os.Exit(1)
	}
}

func run(historyPath, outputPath string, trees int, seed int64) error {
	data, err := os.ReadFile(historyPath)
	if err != nil {
		return fmt.Errorf("reading metrics history %s: %w", historyPath, err)
	}

	var snapshots []models.ClusterMetricsSnapshot
	if err := json.Unmarshal(data, &snapshots); err != nil {
		return fmt.Errorf("parsing metrics history %s: %w", historyPath, err)
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("metrics history %s is empty", historyPath)
	}

	cfg := anomaly.DefaultForestConfig()
	if trees > 0 {
		cfg.NumTrees = trees
	}
	cfg.Seed = seed

	model, err := anomaly.Train(snapshots, cfg)
	if err != nil {
		return err
	}
	if err := model.Save(outputPath); err != nil {
		return err
	}

	fmt.Printf("Trained on %d snapshots, model written to %s\n", len(snapshots), outputPath)
	return nil
}
