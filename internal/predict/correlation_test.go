package predict

import (
	"math"
	"testing"
	"time"

	"github.com/kubilitics/kubemedic/internal/models"
)

func TestPearson(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
		nan  bool
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}, 1, false},
		{"perfect negative", []float64{1, 2, 3, 4}, []float64{40, 30, 20, 10}, -1, false},
		{"constant series", []float64{5, 5, 5}, []float64{1, 2, 3}, 0, true},
		{"too short", []float64{1}, []float64{2}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pearson(tt.a, tt.b)
			if tt.nan {
				if !math.IsNaN(got) {
					t.Errorf("expected NaN, got %v", got)
				}
				return
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("pearson = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCorrelationAnalyzeFlagsCoupledSeries(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	now := time.Now()

	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-3*time.Minute), map[string]float64{"node-1": 10}, map[string]float64{"node-1": 20}),
		snapshotAt(now.Add(-2*time.Minute), map[string]float64{"node-1": 20}, map[string]float64{"node-1": 30}),
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 30}, map[string]float64{"node-1": 40}),
		snapshotAt(now, map[string]float64{"node-1": 40}, map[string]float64{"node-1": 50}),
	}

	issues := a.Analyze(window[3], window)
	if len(issues) != 1 {
		t.Fatalf("expected 1 correlation issue, got %d", len(issues))
	}
	issue := issues[0]
	if issue.Type != models.IssueResourceCorrelation {
		t.Errorf("expected %s, got %s", models.IssueResourceCorrelation, issue.Type)
	}
	r, ok := issue.Details["correlation"].(float64)
	if !ok || math.Abs(r-1) > 1e-9 {
		t.Errorf("expected correlation 1, got %v", issue.Details["correlation"])
	}
}

func TestCorrelationAnalyzeNegativeCorrelationFlagged(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	now := time.Now()

	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-2*time.Minute), map[string]float64{"node-1": 10}, map[string]float64{"node-1": 50}),
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 30}, map[string]float64{"node-1": 30}),
		snapshotAt(now, map[string]float64{"node-1": 50}, map[string]float64{"node-1": 10}),
	}

	issues := a.Analyze(window[2], window)
	if len(issues) != 1 {
		t.Fatalf("|r| above threshold must fire for negative r too, got %d issues", len(issues))
	}
}

func TestCorrelationAnalyzeConstantSeriesNoIssue(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	now := time.Now()

	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 50}, map[string]float64{"node-1": 20}),
		snapshotAt(now, map[string]float64{"node-1": 50}, map[string]float64{"node-1": 40}),
	}

	issues := a.Analyze(window[1], window)
	if len(issues) != 0 {
		t.Errorf("constant cpu series yields NaN and must not fire, got %d issues", len(issues))
	}
}

func TestCorrelationSummary(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	now := time.Now()

	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-2*time.Minute), map[string]float64{"node-1": 10}, map[string]float64{"node-1": 15}),
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 20}, map[string]float64{"node-1": 25}),
		snapshotAt(now, map[string]float64{"node-1": 30}, map[string]float64{"node-1": 35}),
	}
	for i, pressured := range []bool{false, true, true} {
		window[i].DiskPressure["node-1"] = pressured
		window[i].MemoryPressure["node-1"] = pressured
		window[i].PIDPressure["node-1"] = !pressured
	}

	summary := a.Summary(window[2], window)

	cm, ok := summary.CPUMemory["node-1"]
	if !ok {
		t.Fatal("expected cpu-memory correlation for node-1")
	}
	if math.Abs(cm.Correlation-1) > 1e-9 {
		t.Errorf("expected correlation 1, got %v", cm.Correlation)
	}
	if math.Abs(cm.CPUAverage-20) > 1e-9 || math.Abs(cm.MemoryAverage-25) > 1e-9 {
		t.Errorf("unexpected averages: %+v", cm)
	}

	p, ok := summary.Pressure["node-1"]
	if !ok {
		t.Fatal("expected pressure correlation for node-1")
	}
	if math.Abs(p.DiskMemory-1) > 1e-9 {
		t.Errorf("disk and memory pressure track each other, expected 1, got %v", p.DiskMemory)
	}
	if math.Abs(p.DiskPID+1) > 1e-9 {
		t.Errorf("disk and pid pressure are inverted, expected -1, got %v", p.DiskPID)
	}
}

func TestCorrelationSummaryOmitsNaN(t *testing.T) {
	a := NewCorrelationAnalyzer(0.7)
	now := time.Now()

	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 50}, map[string]float64{"node-1": 20}),
		snapshotAt(now, map[string]float64{"node-1": 50}, map[string]float64{"node-1": 40}),
	}

	summary := a.Summary(window[1], window)
	if _, ok := summary.CPUMemory["node-1"]; ok {
		t.Error("NaN coefficient must be omitted from the summary")
	}
}
