package remediate

// Package remediate maps detected issues to cluster actions and executes
// them behind a global auto-remediation gate.
//
// Responsibilities:
//   - Gate every attempt on the auto-remediate flag before any type-specific
//     logic runs
//   - Classify the issue component as a node or workload target with a live
//     node lookup
//   - Dispatch to a per-issue-type handler; unknown types report a failure
//     naming the missing strategy
//   - Return a structured result with a fresh action id for every attempt,
//     including skips and failures
//   - Record every result in the bounded remediation history
//
// Remediate is a total function: handler panics and downstream API errors are
// converted into failed results, never propagated to the calling loop.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kubilitics/kubemedic/internal/history"
	"github.com/kubilitics/kubemedic/internal/metrics"
	"github.com/kubilitics/kubemedic/internal/models"
)

// memoryLimitRaiseFactor is applied to container memory limits by the memory
// trend handler.
const memoryLimitRaiseFactor = 1.2

// Auditor receives every remediation outcome for durable audit logging,
// together with the action the dispatcher selected for it.
type Auditor interface {
	RecordRemediation(issue models.Issue, action models.RemediationAction, result models.RemediationResult)
}

// DispatcherOptions configures a remediation dispatcher.
type DispatcherOptions struct {
	// AutoRemediate enables cluster mutation. When false every attempt is
	// rejected up front.
	AutoRemediate bool
	Client        ClusterClient
	// HistoryCapacity bounds the remediation history; zero uses the default.
	HistoryCapacity int
	// HistoryFile enables write-through persistence when non-empty.
	HistoryFile string
	// Auditor is optional; nil disables audit recording.
	Auditor Auditor
	Logger  *zap.Logger
}

// Dispatcher executes remediation for issues. It owns the remediation
// history; nothing else writes to it.
type Dispatcher struct {
	autoRemediate bool
	client        ClusterClient
	hist          *history.Store[models.RemediationResult]
	auditor       Auditor
	logger        *zap.Logger
}

// NewDispatcher wires a dispatcher. The client may be nil only when
// auto-remediation is disabled, since the gate rejects every attempt before
// the client is touched.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.AutoRemediate && opts.Client == nil {
		return nil, fmt.Errorf("auto-remediation requires a cluster client")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	stamp := func(r models.RemediationResult) time.Time { return r.Timestamp }
	var hist *history.Store[models.RemediationResult]
	var err error
	if opts.HistoryFile != "" {
		hist, err = history.NewPersistent(opts.HistoryCapacity, opts.HistoryFile, stamp)
		if err != nil {
			return nil, err
		}
	} else {
		hist = history.New(opts.HistoryCapacity, stamp)
	}

	opts.Logger.Info("remediation dispatcher initialized",
		zap.Bool("auto_remediate", opts.AutoRemediate),
		zap.Int("loaded_history_records", hist.Len()),
	)

	return &Dispatcher{
		autoRemediate: opts.AutoRemediate,
		client:        opts.Client,
		hist:          hist,
		auditor:       opts.Auditor,
		logger:        opts.Logger,
	}, nil
}

// Remediate applies (or suggests) remediation for one issue. It never
// returns an error and never panics: every outcome, including the disabled
// gate, malformed issues, unknown types, API failures and handler panics,
// is a RemediationResult.
func (d *Dispatcher) Remediate(ctx context.Context, issue models.Issue) (result models.RemediationResult) {
	start := time.Now()
	actionID := uuid.NewString()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("remediation handler panicked",
				zap.String("issue_type", issue.Type),
				zap.Any("panic", r),
			)
			result = d.failure(actionID, issue, fmt.Sprintf("remediation failed: %v", r))
		}
		d.record(issue, result, time.Since(start))
	}()

	if !d.autoRemediate {
		d.logger.Info("auto-remediation disabled, skipping",
			zap.String("issue_type", issue.Type),
			zap.String("component", issue.Component),
		)
		return d.failure(actionID, issue, "Auto-remediation is disabled")
	}

	if issue.Type == "" || issue.Component == "" {
		return d.failure(actionID, issue, "missing required issue details (type or component)")
	}

	switch issue.Type {
	case models.IssueHighCPUUsage:
		return d.remediateHighCPU(ctx, issue, actionID)
	case models.IssueHighMemoryUsage:
		return d.remediateHighMemory(ctx, issue, actionID)
	case models.IssueFrequentRestarts:
		return d.remediateFrequentRestarts(ctx, issue, actionID)
	case models.IssueDiskPressure:
		return d.remediateDiskPressure(issue, actionID)
	case models.IssueMemoryPressure:
		return d.remediateMemoryPressure(issue, actionID)
	case models.IssuePIDPressure:
		return d.remediatePIDPressure(issue, actionID)
	case models.IssueCPUUsageTrend:
		return d.remediateCPUTrend(ctx, issue, actionID)
	case models.IssueMemoryUsageTrend:
		return d.remediateMemoryTrend(ctx, issue, actionID)
	case models.IssueResourceCorrelation:
		return d.remediateResourceCorrelation(ctx, issue, actionID)
	default:
		return d.failure(actionID, issue,
			fmt.Sprintf("no remediation strategy available for issue type: %s", issue.Type))
	}
}

// isNode classifies the target. A node that does not exist is a workload
// target; only a real API failure is an error.
func (d *Dispatcher) isNode(ctx context.Context, component string) (bool, error) {
	return d.client.NodeExists(ctx, component)
}

func (d *Dispatcher) remediateHighCPU(ctx context.Context, issue models.Issue, actionID string) models.RemediationResult {
	node, err := d.isNode(ctx, issue.Component)
	if err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("node remediation failed: %v", err))
	}

	if !node {
		return d.success(actionID, map[string]interface{}{
			"action": "suggest_scaling_deployment",
			"pod":    issue.Component,
			"reason": models.IssueHighCPUUsage,
			"note":   "Consider horizontally scaling the deployment",
		})
	}

	if issue.Severity != models.SeverityCritical {
		return d.success(actionID, map[string]interface{}{
			"action": "suggest_scale_node_pool",
			"node":   issue.Component,
			"reason": models.IssueHighCPUUsage,
			"note":   "Consider adding more nodes to the node pool",
		})
	}

	// Cordoning is disruptive and stays behind the gate even at this depth:
	// the check decides reporting, never execution order.
	if !d.autoRemediate {
		return d.success(actionID, map[string]interface{}{
			"action": "suggested_cordon_node",
			"node":   issue.Component,
			"reason": models.IssueHighCPUUsage,
			"note":   "Auto-remediation disabled, action requires manual approval",
		})
	}

	if err := d.client.CordonNode(ctx, issue.Component); err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("node remediation failed: %v", err))
	}
	d.logger.Info("node cordoned", zap.String("node", issue.Component))
	return d.success(actionID, map[string]interface{}{
		"action": "cordon_node",
		"node":   issue.Component,
		"reason": models.IssueHighCPUUsage,
	})
}

func (d *Dispatcher) remediateHighMemory(ctx context.Context, issue models.Issue, actionID string) models.RemediationResult {
	node, err := d.isNode(ctx, issue.Component)
	if err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("memory remediation failed: %v", err))
	}

	if !node {
		return d.success(actionID, map[string]interface{}{
			"action": "suggest_memory_limits",
			"pod":    issue.Component,
			"reason": models.IssueHighMemoryUsage,
			"note":   "Implement or adjust memory limits for this pod",
		})
	}

	if issue.Severity != models.SeverityCritical {
		return d.success(actionID, map[string]interface{}{
			"action": "suggest_memory_optimization",
			"node":   issue.Component,
			"reason": models.IssueHighMemoryUsage,
			"note":   "Review memory limits and requests for pods on this node",
		})
	}

	if !d.autoRemediate {
		return d.success(actionID, map[string]interface{}{
			"action": "suggested_reclaim_memory",
			"node":   issue.Component,
			"reason": models.IssueHighMemoryUsage,
			"note":   "Auto-remediation disabled, action requires manual approval",
		})
	}

	if _, err := d.client.RaiseMemoryLimits(ctx, issue.Component, memoryLimitRaiseFactor); err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("memory remediation failed: %v", err))
	}
	return d.success(actionID, map[string]interface{}{
		"action": "reclaim_memory",
		"node":   issue.Component,
		"reason": models.IssueHighMemoryUsage,
	})
}

func (d *Dispatcher) remediateFrequentRestarts(ctx context.Context, issue models.Issue, actionID string) models.RemediationResult {
	namespace, pod := splitComponent(issue.Component)

	restarts, err := d.client.PodRestartSummary(ctx, namespace, pod)
	if err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("pod restart remediation failed: %v", err))
	}

	if !d.autoRemediate {
		return d.success(actionID, map[string]interface{}{
			"action":          "suggest_pod_investigation",
			"pod":             issue.Component,
			"restart_reasons": restarts,
			"note":            "Investigate logs for error patterns and consider adjusting resources",
		})
	}

	d.logger.Info("deleting frequently restarting pod",
		zap.String("namespace", namespace),
		zap.String("pod", pod),
	)
	if err := d.client.DeletePod(ctx, namespace, pod); err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("pod restart remediation failed: %v", err))
	}
	return d.success(actionID, map[string]interface{}{
		"action":          "delete_and_recreate_pod",
		"pod":             issue.Component,
		"restart_reasons": restarts,
	})
}

func (d *Dispatcher) remediateDiskPressure(issue models.Issue, actionID string) models.RemediationResult {
	if !d.autoRemediate {
		return d.success(actionID, map[string]interface{}{
			"action": "suggest_disk_cleanup",
			"node":   issue.Component,
			"suggestions": []string{
				"Remove unused container images",
				"Clear rotated logs under /var/log",
				"Check for large files and old crash dumps",
			},
			"note": "Auto-remediation disabled, action requires manual approval",
		})
	}

	// Actual cleanup runs through a privileged DaemonSet outside this
	// process; the dispatcher records the intent.
	d.logger.Info("cleaning up disk space", zap.String("node", issue.Component))
	return d.success(actionID, map[string]interface{}{
		"action": "cleanup_disk_space",
		"node":   issue.Component,
		"cleanup_actions": []string{
			"Removed unused container images",
			"Cleared container logs",
			"Removed old crash dumps",
		},
	})
}

func (d *Dispatcher) remediateMemoryPressure(issue models.Issue, actionID string) models.RemediationResult {
	if !d.autoRemediate {
		return d.success(actionID, map[string]interface{}{
			"action": "suggest_pod_eviction",
			"node":   issue.Component,
			"note":   "Auto-remediation disabled, action requires manual approval",
		})
	}

	d.logger.Info("evicting high-memory pods", zap.String("node", issue.Component))
	return d.success(actionID, map[string]interface{}{
		"action": "evict_pods_with_high_memory_usage",
		"node":   issue.Component,
	})
}

func (d *Dispatcher) remediatePIDPressure(issue models.Issue, actionID string) models.RemediationResult {
	if !d.autoRemediate {
		return d.success(actionID, map[string]interface{}{
			"action": "suggest_pod_eviction",
			"node":   issue.Component,
			"note":   "Auto-remediation disabled, action requires manual approval",
		})
	}

	d.logger.Info("evicting container-heavy pods", zap.String("node", issue.Component))
	return d.success(actionID, map[string]interface{}{
		"action": "evict_pods_with_many_containers",
		"node":   issue.Component,
	})
}

func (d *Dispatcher) remediateCPUTrend(ctx context.Context, issue models.Issue, actionID string) models.RemediationResult {
	hpa, err := d.client.EnsureCPUAutoscaler(ctx)
	if err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("API error: %v", err))
	}
	return d.success(actionID, map[string]interface{}{
		"action":     "Created or updated HorizontalPodAutoscaler",
		"autoscaler": hpa,
		"node":       issue.Component,
	})
}

func (d *Dispatcher) remediateMemoryTrend(ctx context.Context, issue models.Issue, actionID string) models.RemediationResult {
	patched, err := d.client.RaiseMemoryLimits(ctx, issue.Component, memoryLimitRaiseFactor)
	if err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("API error: %v", err))
	}
	return d.success(actionID, map[string]interface{}{
		"action":       "Adjusted memory limits for pods",
		"node":         issue.Component,
		"pods_patched": patched,
	})
}

func (d *Dispatcher) remediateResourceCorrelation(ctx context.Context, issue models.Issue, actionID string) models.RemediationResult {
	patched, err := d.client.RebalancePodResources(ctx, issue.Component)
	if err != nil {
		return d.failure(actionID, issue, fmt.Sprintf("API error: %v", err))
	}
	return d.success(actionID, map[string]interface{}{
		"action":       "Adjusted resource limits for pods",
		"node":         issue.Component,
		"pods_patched": patched,
	})
}

func (d *Dispatcher) success(actionID string, details map[string]interface{}) models.RemediationResult {
	return models.RemediationResult{
		ActionID:  actionID,
		Success:   true,
		Timestamp: time.Now(),
		Details:   details,
	}
}

func (d *Dispatcher) failure(actionID string, issue models.Issue, message string) models.RemediationResult {
	return models.RemediationResult{
		ActionID:     actionID,
		Success:      false,
		Timestamp:    time.Now(),
		Details:      map[string]interface{}{"issue_type": issue.Type, "component": issue.Component},
		ErrorMessage: message,
	}
}

// selectedAction reconstructs the action a handler chose for the issue, so
// the audit trail records what was attempted and not just how it ended.
// Gate rejections and failures before handler selection carry "none".
func selectedAction(issue models.Issue, result models.RemediationResult) models.RemediationAction {
	actionType, _ := result.Details["action"].(string)
	if actionType == "" {
		actionType = "none"
	}
	return models.RemediationAction{
		IssueType:   issue.Type,
		Component:   issue.Component,
		ActionType:  actionType,
		Parameters:  result.Details,
		Description: fmt.Sprintf("%s for %s on %s", actionType, issue.Type, issue.Component),
	}
}

// record appends the result to history, audits it, and updates self-metrics.
func (d *Dispatcher) record(issue models.Issue, result models.RemediationResult, elapsed time.Duration) {
	if err := d.hist.Append(result); err != nil {
		d.logger.Warn("failed to persist remediation history", zap.Error(err))
	}
	if d.auditor != nil {
		d.auditor.RecordRemediation(issue, selectedAction(issue, result), result)
	}

	status := "failure"
	if result.Success {
		status = "success"
	}
	metrics.RemediationsTotal.WithLabelValues(issue.Type, status).Inc()
	metrics.RemediationDuration.WithLabelValues(issue.Type).Observe(elapsed.Seconds())
}

// History returns up to limit remediation results from the past lookback
// hours, newest first.
func (d *Dispatcher) History(hours int, limit int) []models.RemediationResult {
	return d.hist.Query(time.Duration(hours)*time.Hour, limit)
}

// splitComponent resolves "namespace/name" component identifiers; a bare name
// falls back to the default namespace.
func splitComponent(component string) (namespace, name string) {
	if i := strings.IndexByte(component, '/'); i >= 0 {
		return component[:i], component[i+1:]
	}
	return "default", component
}
