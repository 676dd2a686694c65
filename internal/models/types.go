package models

// Package models defines the shared data model for the prediction and
// remediation pipeline.
//
// Responsibilities:
//   - ClusterMetricsSnapshot: one point-in-time capture of per-node and
//     per-pod measurements
//   - Issue: a detected condition with a severity and type
//   - PredictionResult: the output of one analysis pass
//   - RemediationAction / RemediationResult: a selected action and its outcome
//
// Snapshot maps are keyed by node or pod identifier and may have different
// key sets across snapshots (nodes and pods come and go). A missing key means
// "no data", not zero: analyzers only include keys present in a snapshot when
// building history series.

import "time"

// Severity classifies how urgent an issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// Issue types produced by the analyzers. The set is open: issues deserialized
// from external sources may carry types not listed here, and both the
// prediction engine and the remediation dispatcher treat unknown types as
// valid input (no suggestion, reported-failure remediation).
const (
	IssueHighCPUUsage        = "high_cpu_usage"
	IssueHighMemoryUsage     = "high_memory_usage"
	IssueFrequentRestarts    = "frequent_restarts"
	IssueDiskPressure        = "disk_pressure"
	IssueMemoryPressure      = "memory_pressure"
	IssuePIDPressure         = "pid_pressure"
	IssueCPUUsageTrend       = "cpu_usage_trend"
	IssueMemoryUsageTrend    = "memory_usage_trend"
	IssueResourceCorrelation = "resource_correlation"
	IssueMLAnomaly           = "ml_anomaly"
)

// NetworkIO holds per-node network throughput in bytes per second.
type NetworkIO struct {
	In  float64 `json:"in"`
	Out float64 `json:"out"`
}

// ClusterMetricsSnapshot is an immutable record of cluster measurements for
// one point in time. Usage values are percentages in [0,100] by convention,
// but faulty input above 100 is tolerated and must not break analysis.
// Restart counts are cumulative, not per-interval.
type ClusterMetricsSnapshot struct {
	Timestamp      time.Time            `json:"timestamp"`
	CPUUsage       map[string]float64   `json:"cpu_usage"`
	MemoryUsage    map[string]float64   `json:"memory_usage"`
	PodRestarts    map[string]int       `json:"pod_restarts"`
	PodStatus      map[string]string    `json:"pod_status"`
	NodeStatus     map[string]string    `json:"node_status"`
	DiskPressure   map[string]bool      `json:"disk_pressure"`
	MemoryPressure map[string]bool      `json:"memory_pressure"`
	PIDPressure    map[string]bool      `json:"pid_pressure"`
	NetworkIO      map[string]NetworkIO `json:"network_io"`
}

// NewSnapshot returns a snapshot with all maps allocated, stamped now.
func NewSnapshot() ClusterMetricsSnapshot {
	return ClusterMetricsSnapshot{
		Timestamp:      time.Now(),
		CPUUsage:       make(map[string]float64),
		MemoryUsage:    make(map[string]float64),
		PodRestarts:    make(map[string]int),
		PodStatus:      make(map[string]string),
		NodeStatus:     make(map[string]string),
		DiskPressure:   make(map[string]bool),
		MemoryPressure: make(map[string]bool),
		PIDPressure:    make(map[string]bool),
		NetworkIO:      make(map[string]NetworkIO),
	}
}

// Issue is a detected condition warranting attention. Issues are not
// deduplicated across analyzers: the same component can receive several issue
// records of different types in one prediction.
type Issue struct {
	Type        string                 `json:"type"`
	Component   string                 `json:"component"`
	Severity    Severity               `json:"severity"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details"`
}

// Suggestion is advisory remediation text attached to a prediction result.
// It is not an executed action.
type Suggestion struct {
	Type        string                 `json:"type"`
	Component   string                 `json:"component"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details"`
}

// MetricTrend summarizes the trajectory of one series for one component.
type MetricTrend struct {
	Slope   float64 `json:"slope"`
	Current float64 `json:"current"`
	Average float64 `json:"average"`
}

// TrendSummary reports per-component trends regardless of whether any
// threshold was crossed.
type TrendSummary struct {
	CPU      map[string]MetricTrend `json:"cpu_trends"`
	Memory   map[string]MetricTrend `json:"memory_trends"`
	Restarts map[string]MetricTrend `json:"restart_trends"`
}

// ResourceCorrelation reports the CPU-memory relationship for one node.
type ResourceCorrelation struct {
	Correlation   float64 `json:"correlation"`
	CPUAverage    float64 `json:"cpu_average"`
	MemoryAverage float64 `json:"memory_average"`
}

// PressureCorrelation reports the pairwise relationships between the three
// node pressure conditions.
type PressureCorrelation struct {
	DiskMemory float64 `json:"disk_memory"`
	DiskPID    float64 `json:"disk_pid"`
	MemoryPID  float64 `json:"memory_pid"`
}

// CorrelationSummary reports statistical correlations over the analysis
// window, independent of issue thresholds.
type CorrelationSummary struct {
	CPUMemory map[string]ResourceCorrelation `json:"cpu_memory_correlations"`
	Pressure  map[string]PressureCorrelation `json:"pressure_correlations"`
}

// PredictionResult is the output of one analysis pass. It is created fresh on
// every call and immutable once returned.
type PredictionResult struct {
	Timestamp    time.Time          `json:"timestamp"`
	Issues       []Issue            `json:"issues"`
	Confidence   float64            `json:"confidence"`
	Suggestions  []Suggestion       `json:"remediation_suggestions"`
	Trends       TrendSummary       `json:"trends"`
	Correlations CorrelationSummary `json:"correlations"`
}

// RemediationAction describes a concrete operation selected for an issue.
type RemediationAction struct {
	IssueType   string                 `json:"issue_type"`
	Component   string                 `json:"component"`
	ActionType  string                 `json:"action_type"`
	Parameters  map[string]interface{} `json:"parameters"`
	Description string                 `json:"description"`
}

// RemediationResult is the structured outcome of one remediation attempt.
// An ActionID is generated for every attempt, including skips and failures,
// so callers always have a stable reference. Success=true does not imply a
// mutating action occurred: suggestion-only outcomes also report success.
type RemediationResult struct {
	ActionID     string                 `json:"action_id"`
	Success      bool                   `json:"success"`
	Timestamp    time.Time              `json:"timestamp"`
	Details      map[string]interface{} `json:"details"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}
