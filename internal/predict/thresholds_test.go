package predict

import (
	"testing"

	"github.com/kubilitics/kubemedic/internal/models"
)

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds should validate: %v", err)
	}

	bad := DefaultThresholds()
	bad.CPUUsageWarning = 95
	if err := bad.Validate(); err == nil {
		t.Error("expected error when cpu warning >= critical")
	}

	bad = DefaultThresholds()
	bad.MemoryUsageWarning = 90
	if err := bad.Validate(); err == nil {
		t.Error("expected error when memory warning >= critical")
	}

	bad = DefaultThresholds()
	bad.PodRestartThreshold = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero restart threshold")
	}

	bad = DefaultThresholds()
	bad.CorrelationThreshold = 1.5
	if err := bad.Validate(); err == nil {
		t.Error("expected error for correlation threshold above 1")
	}
}

func TestEvaluateHealthySnapshot(t *testing.T) {
	e := NewThresholdEvaluator(DefaultThresholds())

	snap := models.NewSnapshot()
	snap.CPUUsage["node-1"] = 45.0
	snap.MemoryUsage["node-1"] = 50.0
	snap.PodRestarts["default/web-0"] = 1

	issues := e.Evaluate(snap)
	if len(issues) != 0 {
		t.Errorf("expected no issues for healthy snapshot, got %d: %+v", len(issues), issues)
	}
}

func TestEvaluateCPUSeverity(t *testing.T) {
	e := NewThresholdEvaluator(DefaultThresholds())

	tests := []struct {
		name     string
		usage    float64
		want     int
		severity models.Severity
	}{
		{"below warning", 79.9, 0, ""},
		{"at warning", 80.0, 1, models.SeverityWarning},
		{"between", 85.0, 1, models.SeverityWarning},
		{"at critical", 90.0, 1, models.SeverityCritical},
		{"above critical", 99.0, 1, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := models.NewSnapshot()
			snap.CPUUsage["node-1"] = tt.usage

			issues := e.Evaluate(snap)
			if len(issues) != tt.want {
				t.Fatalf("usage %.1f: expected %d issues, got %d", tt.usage, tt.want, len(issues))
			}
			if tt.want == 0 {
				return
			}
			issue := issues[0]
			if issue.Type != models.IssueHighCPUUsage {
				t.Errorf("expected type %s, got %s", models.IssueHighCPUUsage, issue.Type)
			}
			if issue.Severity != tt.severity {
				t.Errorf("usage %.1f: expected severity %s, got %s", tt.usage, tt.severity, issue.Severity)
			}
			if issue.Details["usage"] != tt.usage {
				t.Errorf("expected usage detail %.1f, got %v", tt.usage, issue.Details["usage"])
			}
		})
	}
}

func TestEvaluateCriticalSuppressesWarning(t *testing.T) {
	e := NewThresholdEvaluator(DefaultThresholds())

	snap := models.NewSnapshot()
	snap.CPUUsage["node-1"] = 95.0
	snap.MemoryUsage["node-1"] = 92.0

	issues := e.Evaluate(snap)
	if len(issues) != 2 {
		t.Fatalf("expected exactly one issue per metric, got %d", len(issues))
	}
	for _, issue := range issues {
		if issue.Severity != models.SeverityCritical {
			t.Errorf("issue %s: expected critical, got %s", issue.Type, issue.Severity)
		}
	}
}

func TestEvaluateRestartsAndPressure(t *testing.T) {
	e := NewThresholdEvaluator(DefaultThresholds())

	snap := models.NewSnapshot()
	snap.PodRestarts["default/crashy"] = 5
	snap.PodRestarts["default/stable"] = 4
	snap.DiskPressure["node-1"] = true
	snap.MemoryPressure["node-1"] = false
	snap.PIDPressure["node-2"] = true

	issues := e.Evaluate(snap)

	byType := make(map[string][]models.Issue)
	for _, issue := range issues {
		byType[issue.Type] = append(byType[issue.Type], issue)
	}

	restarts := byType[models.IssueFrequentRestarts]
	if len(restarts) != 1 {
		t.Fatalf("expected 1 restart issue, got %d", len(restarts))
	}
	if restarts[0].Component != "default/crashy" {
		t.Errorf("expected crashy pod flagged, got %s", restarts[0].Component)
	}
	if restarts[0].Details["restart_count"] != 5 {
		t.Errorf("expected restart_count 5, got %v", restarts[0].Details["restart_count"])
	}

	if len(byType[models.IssueDiskPressure]) != 1 {
		t.Errorf("expected 1 disk pressure issue, got %d", len(byType[models.IssueDiskPressure]))
	}
	if len(byType[models.IssueMemoryPressure]) != 0 {
		t.Errorf("false pressure flag should not fire, got %d issues", len(byType[models.IssueMemoryPressure]))
	}
	if len(byType[models.IssuePIDPressure]) != 1 {
		t.Errorf("expected 1 pid pressure issue, got %d", len(byType[models.IssuePIDPressure]))
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	e := NewThresholdEvaluator(DefaultThresholds())

	snap := models.NewSnapshot()
	snap.CPUUsage["node-1"] = 95.0
	snap.PodRestarts["default/crashy"] = 10

	first := e.Evaluate(snap)
	second := e.Evaluate(snap)
	if len(first) != len(second) {
		t.Fatalf("same snapshot produced %d then %d issues", len(first), len(second))
	}
}

func TestEvaluateOverHundredPercentTolerated(t *testing.T) {
	e := NewThresholdEvaluator(DefaultThresholds())

	snap := models.NewSnapshot()
	snap.CPUUsage["node-1"] = 130.0

	issues := e.Evaluate(snap)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue for >100%% usage, got %d", len(issues))
	}
	if issues[0].Severity != models.SeverityCritical {
		t.Errorf("expected critical for 130%%, got %s", issues[0].Severity)
	}
}
