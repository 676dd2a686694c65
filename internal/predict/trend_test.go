package predict

import (
	"math"
	"testing"
	"time"

	"github.com/kubilitics/kubemedic/internal/models"
)

func snapshotAt(ts time.Time, cpu, mem map[string]float64) models.ClusterMetricsSnapshot {
	snap := models.NewSnapshot()
	snap.Timestamp = ts
	for k, v := range cpu {
		snap.CPUUsage[k] = v
	}
	for k, v := range mem {
		snap.MemoryUsage[k] = v
	}
	return snap
}

func TestLinearSlope(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{50}, 0},
		{"flat", []float64{50, 50, 50}, 0},
		{"rising", []float64{10, 20, 30, 40}, 10},
		{"falling", []float64{40, 30, 20, 10}, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := linearSlope(tt.values)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("linearSlope(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestTrendAnalyzeSteepClimb(t *testing.T) {
	a := NewTrendAnalyzer()
	now := time.Now()

	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-2*time.Minute), map[string]float64{"node-1": 50}, nil),
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 60}, nil),
		snapshotAt(now, map[string]float64{"node-1": 70}, nil),
	}

	issues := a.Analyze(window[len(window)-1], window)
	if len(issues) != 1 {
		t.Fatalf("expected 1 trend issue for slope 10, got %d", len(issues))
	}
	issue := issues[0]
	if issue.Type != models.IssueCPUUsageTrend {
		t.Errorf("expected %s, got %s", models.IssueCPUUsageTrend, issue.Type)
	}
	if issue.Severity != models.SeverityWarning {
		t.Errorf("trend issues are always warnings, got %s", issue.Severity)
	}
	slope, ok := issue.Details["slope"].(float64)
	if !ok || math.Abs(slope-10) > 1e-9 {
		t.Errorf("expected slope detail 10, got %v", issue.Details["slope"])
	}
	if issue.Details["current_usage"] != 70.0 {
		t.Errorf("expected current_usage 70, got %v", issue.Details["current_usage"])
	}
}

func TestTrendAnalyzeGentleSlopeIgnored(t *testing.T) {
	a := NewTrendAnalyzer()
	now := time.Now()

	// Slope of exactly 5 must not fire: the comparison is strict.
	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 50}, nil),
		snapshotAt(now, map[string]float64{"node-1": 55}, nil),
	}

	issues := a.Analyze(window[1], window)
	if len(issues) != 0 {
		t.Errorf("slope at the threshold should not fire, got %d issues", len(issues))
	}
}

func TestTrendAnalyzeNeedsTwoSamples(t *testing.T) {
	a := NewTrendAnalyzer()
	snap := snapshotAt(time.Now(), map[string]float64{"node-1": 95}, nil)

	issues := a.Analyze(snap, []models.ClusterMetricsSnapshot{snap})
	if len(issues) != 0 {
		t.Errorf("a single in-window sample should yield no trend issues, got %d", len(issues))
	}
}

func TestTrendAnalyzeMissingKeysSkipped(t *testing.T) {
	a := NewTrendAnalyzer()
	now := time.Now()

	// node-2 appears only in the latest snapshot: one data point, no trend.
	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-2*time.Minute), map[string]float64{"node-1": 10}, nil),
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 20}, nil),
		snapshotAt(now, map[string]float64{"node-1": 30, "node-2": 90}, nil),
	}

	issues := a.Analyze(window[2], window)
	for _, issue := range issues {
		if issue.Component == "node-2" {
			t.Errorf("node-2 has one sample and must not produce a trend issue")
		}
	}
}

func TestTrendSummary(t *testing.T) {
	a := NewTrendAnalyzer()
	now := time.Now()

	window := []models.ClusterMetricsSnapshot{
		snapshotAt(now.Add(-time.Minute), map[string]float64{"node-1": 40}, map[string]float64{"node-1": 60}),
		snapshotAt(now, map[string]float64{"node-1": 42}, map[string]float64{"node-1": 62}),
	}
	window[0].PodRestarts["default/web-0"] = 1
	window[1].PodRestarts["default/web-0"] = 3

	summary := a.Summary(window[1], window)

	cpu, ok := summary.CPU["node-1"]
	if !ok {
		t.Fatal("expected cpu trend for node-1")
	}
	if math.Abs(cpu.Slope-2) > 1e-9 {
		t.Errorf("expected cpu slope 2, got %v", cpu.Slope)
	}
	if cpu.Current != 42 {
		t.Errorf("expected current 42, got %v", cpu.Current)
	}
	if math.Abs(cpu.Average-41) > 1e-9 {
		t.Errorf("expected average 41, got %v", cpu.Average)
	}

	if _, ok := summary.Memory["node-1"]; !ok {
		t.Error("expected memory trend for node-1")
	}
	restarts, ok := summary.Restarts["default/web-0"]
	if !ok {
		t.Fatal("expected restart trend for default/web-0")
	}
	if math.Abs(restarts.Slope-2) > 1e-9 {
		t.Errorf("expected restart slope 2, got %v", restarts.Slope)
	}
}

func TestTrendSummaryEmptyWindow(t *testing.T) {
	a := NewTrendAnalyzer()
	snap := snapshotAt(time.Now(), map[string]float64{"node-1": 95}, nil)

	summary := a.Summary(snap, []models.ClusterMetricsSnapshot{snap})
	if len(summary.CPU) != 0 || len(summary.Memory) != 0 || len(summary.Restarts) != 0 {
		t.Error("summary over a single sample should be empty")
	}
}
