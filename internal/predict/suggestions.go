package predict

import (
	"fmt"

	"github.com/kubilitics/kubemedic/internal/models"
)

// suggestionFor maps an issue to at most one advisory suggestion. Unknown
// issue types yield nil; that is a valid outcome, not an error.
func (e *Engine) suggestionFor(issue models.Issue) *models.Suggestion {
	t := e.thresholds

	switch issue.Type {
	case models.IssueHighCPUUsage:
		return &models.Suggestion{
			Type:        "scale_cpu",
			Component:   issue.Component,
			Description: fmt.Sprintf("Scale CPU resources for %s", issue.Component),
			Details: map[string]interface{}{
				"current_usage": issue.Details["usage"],
				"target_usage":  t.CPUUsageWarning - 10,
			},
		}
	case models.IssueHighMemoryUsage:
		return &models.Suggestion{
			Type:        "scale_memory",
			Component:   issue.Component,
			Description: fmt.Sprintf("Scale memory resources for %s", issue.Component),
			Details: map[string]interface{}{
				"current_usage": issue.Details["usage"],
				"target_usage":  t.MemoryUsageWarning - 10,
			},
		}
	case models.IssueFrequentRestarts:
		return &models.Suggestion{
			Type:        "investigate_restarts",
			Component:   issue.Component,
			Description: fmt.Sprintf("Investigate frequent restarts of %s", issue.Component),
			Details: map[string]interface{}{
				"restart_count": issue.Details["restart_count"],
				"threshold":     t.PodRestartThreshold,
			},
		}
	case models.IssueDiskPressure:
		return &models.Suggestion{
			Type:        "cleanup_disk",
			Component:   issue.Component,
			Description: fmt.Sprintf("Clean up disk space on %s", issue.Component),
			Details:     map[string]interface{}{"pressure_type": "disk"},
		}
	case models.IssueMemoryPressure:
		return &models.Suggestion{
			Type:        "cleanup_memory",
			Component:   issue.Component,
			Description: fmt.Sprintf("Clean up memory on %s", issue.Component),
			Details:     map[string]interface{}{"pressure_type": "memory"},
		}
	case models.IssuePIDPressure:
		return &models.Suggestion{
			Type:        "cleanup_pids",
			Component:   issue.Component,
			Description: fmt.Sprintf("Clean up PIDs on %s", issue.Component),
			Details:     map[string]interface{}{"pressure_type": "pid"},
		}
	case models.IssueCPUUsageTrend:
		return &models.Suggestion{
			Type:        "scale_cpu_trend",
			Component:   issue.Component,
			Description: fmt.Sprintf("Scale CPU resources for %s based on trend", issue.Component),
			Details: map[string]interface{}{
				"slope":         issue.Details["slope"],
				"current_usage": issue.Details["current_usage"],
			},
		}
	case models.IssueMemoryUsageTrend:
		return &models.Suggestion{
			Type:        "scale_memory_trend",
			Component:   issue.Component,
			Description: fmt.Sprintf("Scale memory resources for %s based on trend", issue.Component),
			Details: map[string]interface{}{
				"slope":         issue.Details["slope"],
				"current_usage": issue.Details["current_usage"],
			},
		}
	case models.IssueResourceCorrelation:
		return &models.Suggestion{
			Type:        "balance_resources",
			Component:   issue.Component,
			Description: fmt.Sprintf("Balance CPU and memory resources on %s", issue.Component),
			Details: map[string]interface{}{
				"correlation": issue.Details["correlation"],
				"threshold":   t.CorrelationThreshold,
			},
		}
	}

	return nil
}
