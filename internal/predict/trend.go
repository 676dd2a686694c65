package predict

import (
	"fmt"

	"github.com/kubilitics/kubemedic/internal/models"
)

// trendSlopeThreshold is the fixed slope, in percentage points per sample
// interval, above which a usage trend becomes an issue. It is deliberately
// not adaptive.
const trendSlopeThreshold = 5.0

// TrendAnalyzer fits a linear slope to each node's CPU and memory series over
// the in-window history and flags steep climbs.
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a trend analyzer.
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// cpuSeries collects a node's CPU values from the snapshots that carry that
// node. Snapshots without the key contribute nothing: absence is "no data",
// not zero.
func cpuSeries(node string, window []models.ClusterMetricsSnapshot) []float64 {
	series := make([]float64, 0, len(window))
	for _, snap := range window {
		if v, ok := snap.CPUUsage[node]; ok {
			series = append(series, v)
		}
	}
	return series
}

func memorySeries(node string, window []models.ClusterMetricsSnapshot) []float64 {
	series := make([]float64, 0, len(window))
	for _, snap := range window {
		if v, ok := snap.MemoryUsage[node]; ok {
			series = append(series, v)
		}
	}
	return series
}

func restartSeries(pod string, window []models.ClusterMetricsSnapshot) []float64 {
	series := make([]float64, 0, len(window))
	for _, snap := range window {
		if v, ok := snap.PodRestarts[pod]; ok {
			series = append(series, float64(v))
		}
	}
	return series
}

// Analyze emits trend issues for the nodes present in the current snapshot.
// Fewer than two in-window samples is a normal state and yields no issues.
// Each issue carries the raw per-sample history in its details for suggestion
// generation and display.
func (a *TrendAnalyzer) Analyze(snapshot models.ClusterMetricsSnapshot, window []models.ClusterMetricsSnapshot) []models.Issue {
	if len(window) < 2 {
		return nil
	}

	issues := make([]models.Issue, 0)

	for node, current := range snapshot.CPUUsage {
		series := cpuSeries(node, window)
		if len(series) < 2 {
			continue
		}
		slope := linearSlope(series)
		if slope > trendSlopeThreshold {
			issues = append(issues, models.Issue{
				Type:        models.IssueCPUUsageTrend,
				Component:   node,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("CPU usage on %s is increasing rapidly", node),
				Details: map[string]interface{}{
					"current_usage": current,
					"slope":         slope,
					"history":       series,
				},
			})
		}
	}

	for node, current := range snapshot.MemoryUsage {
		series := memorySeries(node, window)
		if len(series) < 2 {
			continue
		}
		slope := linearSlope(series)
		if slope > trendSlopeThreshold {
			issues = append(issues, models.Issue{
				Type:        models.IssueMemoryUsageTrend,
				Component:   node,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("Memory usage on %s is increasing rapidly", node),
				Details: map[string]interface{}{
					"current_usage": current,
					"slope":         slope,
					"history":       series,
				},
			})
		}
	}

	return issues
}

// Summary reports slope, current and average for every node and pod with at
// least two in-window samples, regardless of any threshold. Informational
// output for status displays.
func (a *TrendAnalyzer) Summary(snapshot models.ClusterMetricsSnapshot, window []models.ClusterMetricsSnapshot) models.TrendSummary {
	summary := models.TrendSummary{
		CPU:      make(map[string]models.MetricTrend),
		Memory:   make(map[string]models.MetricTrend),
		Restarts: make(map[string]models.MetricTrend),
	}
	if len(window) < 2 {
		return summary
	}

	for node := range snapshot.CPUUsage {
		if series := cpuSeries(node, window); len(series) >= 2 {
			summary.CPU[node] = models.MetricTrend{
				Slope:   linearSlope(series),
				Current: series[len(series)-1],
				Average: mean(series),
			}
		}
	}
	for node := range snapshot.MemoryUsage {
		if series := memorySeries(node, window); len(series) >= 2 {
			summary.Memory[node] = models.MetricTrend{
				Slope:   linearSlope(series),
				Current: series[len(series)-1],
				Average: mean(series),
			}
		}
	}
	for pod := range snapshot.PodRestarts {
		if series := restartSeries(pod, window); len(series) >= 2 {
			summary.Restarts[pod] = models.MetricTrend{
				Slope:   linearSlope(series),
				Current: series[len(series)-1],
				Average: mean(series),
			}
		}
	}

	return summary
}
