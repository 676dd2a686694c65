package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, m.Load(context.Background()))

	cfg := m.Get(context.Background())
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Collection.IntervalSeconds)
	assert.Equal(t, 300, cfg.Prediction.IntervalSeconds)
	assert.Equal(t, 1000, cfg.Prediction.HistorySize)
	assert.Equal(t, 90.0, cfg.Prediction.Thresholds.CPUUsageCritical)
	assert.Equal(t, 80.0, cfg.Prediction.Thresholds.CPUUsageWarning)
	assert.Equal(t, 5, cfg.Prediction.Thresholds.PodRestartThreshold)
	assert.Equal(t, 1800, cfg.Prediction.Thresholds.TrendWindowSeconds)
	assert.Equal(t, 0.7, cfg.Prediction.Thresholds.CorrelationThreshold)
	assert.False(t, cfg.Remediation.AutoRemediate, "auto-remediation must default off")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
prediction:
  interval_seconds: 120
  thresholds:
    cpu_usage_critical: 95
    cpu_usage_warning: 85
remediation:
  auto_remediate: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m := NewManager(path)
	require.NoError(t, m.Load(context.Background()))

	cfg := m.Get(context.Background())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Prediction.IntervalSeconds)
	assert.Equal(t, 95.0, cfg.Prediction.Thresholds.CPUUsageCritical)
	assert.Equal(t, 85.0, cfg.Prediction.Thresholds.CPUUsageWarning)
	assert.True(t, cfg.Remediation.AutoRemediate)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 60, cfg.Collection.IntervalSeconds)
	assert.Equal(t, 5, cfg.Prediction.Thresholds.PodRestartThreshold)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("KUBEMEDIC_SERVER_PORT", "7070")
	t.Setenv("KUBEMEDIC_REMEDIATION_AUTO_REMEDIATE", "true")

	m := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, m.Load(context.Background()))

	cfg := m.Get(context.Background())
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.Remediation.AutoRemediate)
}

func TestValidateDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, m.Load(context.Background()))
	assert.NoError(t, m.Validate(context.Background()))
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"cpu warning above critical", func(c *Config) { c.Prediction.Thresholds.CPUUsageWarning = 95 }},
		{"zero restart threshold", func(c *Config) { c.Prediction.Thresholds.PodRestartThreshold = 0 }},
		{"bad correlation threshold", func(c *Config) { c.Prediction.Thresholds.CorrelationThreshold = 2 }},
		{"zero collection interval", func(c *Config) { c.Collection.IntervalSeconds = 0 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.NotEmpty(t, cfg.Validate())
		})
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600))

	m := NewManager(path)
	ctx := context.Background()
	require.NoError(t, m.Load(ctx))
	assert.Equal(t, 9090, m.Get(ctx).Server.Port)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9191\n"), 0o600))
	require.NoError(t, m.Reload(ctx))
	assert.Equal(t, 9191, m.Get(ctx).Server.Port)
}
