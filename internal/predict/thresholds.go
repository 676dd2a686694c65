package predict

import (
	"fmt"
	"time"

	"github.com/kubilitics/kubemedic/internal/models"
)

// Thresholds configures the rule-based analyzers. Zero values are not valid;
// use DefaultThresholds and override selectively.
type Thresholds struct {
	CPUUsageCritical     float64       `json:"cpu_usage_critical"`
	CPUUsageWarning      float64       `json:"cpu_usage_warning"`
	MemoryUsageCritical  float64       `json:"memory_usage_critical"`
	MemoryUsageWarning   float64       `json:"memory_usage_warning"`
	PodRestartThreshold  int           `json:"pod_restart_threshold"`
	DiskPressureWeight   float64       `json:"disk_pressure_weight"`
	MemoryPressureWeight float64       `json:"memory_pressure_weight"`
	PIDPressureWeight    float64       `json:"pid_pressure_weight"`
	NetworkIOThreshold   float64       `json:"network_io_threshold"`
	PredictionWindow     time.Duration `json:"prediction_window"`
	TrendWindow          time.Duration `json:"trend_window"`
	CorrelationThreshold float64       `json:"correlation_threshold"`
	AnomalyContamination float64       `json:"anomaly_contamination"`
}

// DefaultThresholds returns the standard threshold table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUUsageCritical:     90.0,
		CPUUsageWarning:      80.0,
		MemoryUsageCritical:  90.0,
		MemoryUsageWarning:   80.0,
		PodRestartThreshold:  5,
		DiskPressureWeight:   0.8,
		MemoryPressureWeight: 0.9,
		PIDPressureWeight:    0.7,
		NetworkIOThreshold:   1_000_000, // 1 MB/s
		PredictionWindow:     time.Hour,
		TrendWindow:          30 * time.Minute,
		CorrelationThreshold: 0.7,
		AnomalyContamination: 0.1,
	}
}

// Validate rejects inconsistent threshold tables. Called at engine
// construction so bad configuration never reaches an analysis call.
func (t Thresholds) Validate() error {
	if t.CPUUsageWarning >= t.CPUUsageCritical {
		return fmt.Errorf("cpu warning threshold %.1f must be below critical %.1f", t.CPUUsageWarning, t.CPUUsageCritical)
	}
	if t.MemoryUsageWarning >= t.MemoryUsageCritical {
		return fmt.Errorf("memory warning threshold %.1f must be below critical %.1f", t.MemoryUsageWarning, t.MemoryUsageCritical)
	}
	if t.PodRestartThreshold <= 0 {
		return fmt.Errorf("pod restart threshold must be positive, got %d", t.PodRestartThreshold)
	}
	if t.TrendWindow <= 0 {
		return fmt.Errorf("trend window must be positive, got %s", t.TrendWindow)
	}
	if t.CorrelationThreshold <= 0 || t.CorrelationThreshold > 1 {
		return fmt.Errorf("correlation threshold must be in (0,1], got %.2f", t.CorrelationThreshold)
	}
	return nil
}

// ThresholdEvaluator applies the threshold rules to a single snapshot. It is
// stateless and side-effect free: evaluating the same snapshot twice yields
// identical issue lists.
type ThresholdEvaluator struct {
	thresholds Thresholds
}

// NewThresholdEvaluator creates an evaluator over the given threshold table.
func NewThresholdEvaluator(t Thresholds) *ThresholdEvaluator {
	return &ThresholdEvaluator{thresholds: t}
}

// Evaluate emits issues for threshold violations in category order: CPU,
// memory, pod restarts, disk pressure, memory pressure, PID pressure.
// Within a category, map iteration order applies and is not guaranteed.
// Critical takes precedence: a node at or above the critical cutoff gets one
// critical issue for that metric, never an additional warning.
//
// Restart counts are cumulative, so a pod over the threshold re-fires on
// every evaluation. Callers treat the repetition as expected.
func (e *ThresholdEvaluator) Evaluate(snapshot models.ClusterMetricsSnapshot) []models.Issue {
	t := e.thresholds
	issues := make([]models.Issue, 0)

	for node, usage := range snapshot.CPUUsage {
		switch {
		case usage >= t.CPUUsageCritical:
			issues = append(issues, models.Issue{
				Type:        models.IssueHighCPUUsage,
				Component:   node,
				Severity:    models.SeverityCritical,
				Description: fmt.Sprintf("Critical CPU usage on %s: %.1f%%", node, usage),
				Details:     map[string]interface{}{"usage": usage},
			})
		case usage >= t.CPUUsageWarning:
			issues = append(issues, models.Issue{
				Type:        models.IssueHighCPUUsage,
				Component:   node,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("High CPU usage on %s: %.1f%%", node, usage),
				Details:     map[string]interface{}{"usage": usage},
			})
		}
	}

	for node, usage := range snapshot.MemoryUsage {
		switch {
		case usage >= t.MemoryUsageCritical:
			issues = append(issues, models.Issue{
				Type:        models.IssueHighMemoryUsage,
				Component:   node,
				Severity:    models.SeverityCritical,
				Description: fmt.Sprintf("Critical memory usage on %s: %.1f%%", node, usage),
				Details:     map[string]interface{}{"usage": usage},
			})
		case usage >= t.MemoryUsageWarning:
			issues = append(issues, models.Issue{
				Type:        models.IssueHighMemoryUsage,
				Component:   node,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("High memory usage on %s: %.1f%%", node, usage),
				Details:     map[string]interface{}{"usage": usage},
			})
		}
	}

	for pod, restarts := range snapshot.PodRestarts {
		if restarts >= t.PodRestartThreshold {
			issues = append(issues, models.Issue{
				Type:        models.IssueFrequentRestarts,
				Component:   pod,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("Pod %s has restarted %d times", pod, restarts),
				Details:     map[string]interface{}{"restart_count": restarts},
			})
		}
	}

	for node, pressured := range snapshot.DiskPressure {
		if pressured {
			issues = append(issues, models.Issue{
				Type:        models.IssueDiskPressure,
				Component:   node,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("Disk pressure detected on %s", node),
				Details:     map[string]interface{}{"pressure_type": "disk"},
			})
		}
	}

	for node, pressured := range snapshot.MemoryPressure {
		if pressured {
			issues = append(issues, models.Issue{
				Type:        models.IssueMemoryPressure,
				Component:   node,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("Memory pressure detected on %s", node),
				Details:     map[string]interface{}{"pressure_type": "memory"},
			})
		}
	}

	for node, pressured := range snapshot.PIDPressure {
		if pressured {
			issues = append(issues, models.Issue{
				Type:        models.IssuePIDPressure,
				Component:   node,
				Severity:    models.SeverityWarning,
				Description: fmt.Sprintf("PID pressure detected on %s", node),
				Details:     map[string]interface{}{"pressure_type": "pid"},
			})
		}
	}

	return issues
}
