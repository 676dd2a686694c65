package predict

import (
	"fmt"
	"math"

	"github.com/kubilitics/kubemedic/internal/models"
)

// CorrelationAnalyzer computes the Pearson correlation between each node's
// CPU and memory series over the in-window history.
type CorrelationAnalyzer struct {
	threshold float64
}

// NewCorrelationAnalyzer creates an analyzer that flags |r| above threshold.
func NewCorrelationAnalyzer(threshold float64) *CorrelationAnalyzer {
	return &CorrelationAnalyzer{threshold: threshold}
}

// Analyze emits one resource_correlation warning per node whose CPU and
// memory series move together. Both series need at least two in-window
// points. A NaN coefficient (constant series) is "no issue", never an error.
func (a *CorrelationAnalyzer) Analyze(snapshot models.ClusterMetricsSnapshot, window []models.ClusterMetricsSnapshot) []models.Issue {
	if len(window) < 2 {
		return nil
	}

	issues := make([]models.Issue, 0)
	for node := range snapshot.CPUUsage {
		cpu := cpuSeries(node, window)
		mem := memorySeries(node, window)
		if len(cpu) < 2 || len(mem) < 2 {
			continue
		}

		r := pearson(cpu, mem)
		if math.IsNaN(r) {
			continue
		}
		if math.Abs(r) > a.threshold {
			issues = append(issues, models.Issue{
				Type:        models.IssueResourceCorrelation,
				Component:   node,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("Strong correlation between CPU and memory usage on %s", node),
				Details: map[string]interface{}{
					"correlation":    r,
					"cpu_history":    cpu,
					"memory_history": mem,
				},
			})
		}
	}

	return issues
}

// Summary reports the CPU-memory coefficient per node plus the pairwise
// correlations of the three pressure conditions, independent of thresholds.
// NaN coefficients are omitted rather than serialized.
func (a *CorrelationAnalyzer) Summary(snapshot models.ClusterMetricsSnapshot, window []models.ClusterMetricsSnapshot) models.CorrelationSummary {
	summary := models.CorrelationSummary{
		CPUMemory: make(map[string]models.ResourceCorrelation),
		Pressure:  make(map[string]models.PressureCorrelation),
	}
	if len(window) < 2 {
		return summary
	}

	for node := range snapshot.CPUUsage {
		cpu := cpuSeries(node, window)
		mem := memorySeries(node, window)
		if len(cpu) < 2 || len(mem) < 2 {
			continue
		}
		r := pearson(cpu, mem)
		if math.IsNaN(r) {
			continue
		}
		summary.CPUMemory[node] = models.ResourceCorrelation{
			Correlation:   r,
			CPUAverage:    mean(cpu),
			MemoryAverage: mean(mem),
		}
	}

	for node := range snapshot.DiskPressure {
		disk := pressureSeries(node, window, func(s models.ClusterMetricsSnapshot) map[string]bool { return s.DiskPressure })
		memp := pressureSeries(node, window, func(s models.ClusterMetricsSnapshot) map[string]bool { return s.MemoryPressure })
		pid := pressureSeries(node, window, func(s models.ClusterMetricsSnapshot) map[string]bool { return s.PIDPressure })
		if len(disk) < 2 || len(memp) < 2 || len(pid) < 2 {
			continue
		}

		dm := pearson(disk, memp)
		dp := pearson(disk, pid)
		mp := pearson(memp, pid)
		if math.IsNaN(dm) || math.IsNaN(dp) || math.IsNaN(mp) {
			continue
		}
		summary.Pressure[node] = models.PressureCorrelation{
			DiskMemory: dm,
			DiskPID:    dp,
			MemoryPID:  mp,
		}
	}

	return summary
}

// pressureSeries encodes a node's boolean pressure flags as 0/1 samples.
func pressureSeries(node string, window []models.ClusterMetricsSnapshot, pick func(models.ClusterMetricsSnapshot) map[string]bool) []float64 {
	series := make([]float64, 0, len(window))
	for _, snap := range window {
		if flag, ok := pick(snap)[node]; ok {
			if flag {
				series = append(series, 1)
			} else {
				series = append(series, 0)
			}
		}
	}
	return series
}
