package config

// Package config provides configuration management for kubemedic.
//
// Responsibilities:
//   - Load configuration from a YAML file and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading via file watching
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (KUBEMEDIC_* prefix)
//   2. YAML config file (default: /etc/kubemedic/config.yaml)
//   3. Built-in defaults (lowest priority)
//
// Main Configuration Sections:
//
//   1. Server
//      - port: HTTP listen port for /metrics and /healthz (default 8080)
//
//   2. Cluster
//      - kubeconfig_path: Path to kubeconfig; empty tries in-cluster first
//      - api_timeout_seconds: Timeout for outbound cluster API calls
//      - rate_limit_qps / rate_limit_burst: Outbound API rate limiting
//
//   3. Collection
//      - interval_seconds: Seconds between metric collection passes
//
//   4. Prediction
//      - interval_seconds: Seconds between analysis passes
//      - history_size: Bounded history capacity for metrics and predictions
//      - metrics_history_file / prediction_history_file: Optional persistence
//      - model_path: Optional trained anomaly model artifact
//      - thresholds.*: Rule thresholds for the analyzers
//
//   5. Remediation
//      - auto_remediate: Global gate for cluster mutation
//      - history_file: Optional remediation history persistence
//
//   6. Logging
//      - level: "debug" | "info" | "warn" | "error"
//      - format: "json" | "console"
//
//   7. Audit
//      - log_path: Audit log file; empty disables audit logging
//      - max_size_mb / max_backups / max_age_days: Rotation policy

import "fmt"

// Config contains all configuration fields.
type Config struct {
	Server struct {
		Port int
	}

	Cluster struct {
		KubeconfigPath    string
		APITimeoutSeconds int
		RateLimitQPS      float64
		RateLimitBurst    int
	}

	Collection struct {
		IntervalSeconds int
	}

	Prediction struct {
		IntervalSeconds       int
		HistorySize           int
		MetricsHistoryFile    string
		PredictionHistoryFile string
		ModelPath             string

		Thresholds struct {
			CPUUsageCritical     float64
			CPUUsageWarning      float64
			MemoryUsageCritical  float64
			MemoryUsageWarning   float64
			PodRestartThreshold  int
			TrendWindowSeconds   int
			CorrelationThreshold float64
		}
	}

	Remediation struct {
		AutoRemediate bool
		HistoryFile   string
	}

	Logging struct {
		Level  string
		Format string
	}

	Audit struct {
		LogPath    string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Port = 8080

	cfg.Cluster.APITimeoutSeconds = 30
	cfg.Cluster.RateLimitQPS = 10
	cfg.Cluster.RateLimitBurst = 20

	cfg.Collection.IntervalSeconds = 60

	cfg.Prediction.IntervalSeconds = 300
	cfg.Prediction.HistorySize = 1000
	cfg.Prediction.Thresholds.CPUUsageCritical = 90
	cfg.Prediction.Thresholds.CPUUsageWarning = 80
	cfg.Prediction.Thresholds.MemoryUsageCritical = 90
	cfg.Prediction.Thresholds.MemoryUsageWarning = 80
	cfg.Prediction.Thresholds.PodRestartThreshold = 5
	cfg.Prediction.Thresholds.TrendWindowSeconds = 1800
	cfg.Prediction.Thresholds.CorrelationThreshold = 0.7

	cfg.Remediation.AutoRemediate = false

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Audit.MaxSizeMB = 100
	cfg.Audit.MaxBackups = 5
	cfg.Audit.MaxAgeDays = 30

	return cfg
}

// Validate checks configuration consistency and returns all problems found.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port))
	}
	if c.Cluster.APITimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("cluster.api_timeout_seconds must not be negative, got %d", c.Cluster.APITimeoutSeconds))
	}
	if c.Cluster.RateLimitQPS < 0 {
		errs = append(errs, fmt.Errorf("cluster.rate_limit_qps must not be negative, got %v", c.Cluster.RateLimitQPS))
	}
	if c.Collection.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("collection.interval_seconds must be positive, got %d", c.Collection.IntervalSeconds))
	}
	if c.Prediction.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("prediction.interval_seconds must be positive, got %d", c.Prediction.IntervalSeconds))
	}
	if c.Prediction.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("prediction.history_size must be positive, got %d", c.Prediction.HistorySize))
	}

	t := c.Prediction.Thresholds
	if t.CPUUsageWarning >= t.CPUUsageCritical {
		errs = append(errs, fmt.Errorf("prediction.thresholds: cpu warning %.1f must be below critical %.1f", t.CPUUsageWarning, t.CPUUsageCritical))
	}
	if t.MemoryUsageWarning >= t.MemoryUsageCritical {
		errs = append(errs, fmt.Errorf("prediction.thresholds: memory warning %.1f must be below critical %.1f", t.MemoryUsageWarning, t.MemoryUsageCritical))
	}
	if t.PodRestartThreshold <= 0 {
		errs = append(errs, fmt.Errorf("prediction.thresholds: pod_restart_threshold must be positive, got %d", t.PodRestartThreshold))
	}
	if t.TrendWindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("prediction.thresholds: trend_window_seconds must be positive, got %d", t.TrendWindowSeconds))
	}
	if t.CorrelationThreshold <= 0 || t.CorrelationThreshold > 1 {
		errs = append(errs, fmt.Errorf("prediction.thresholds: correlation_threshold must be in (0,1], got %.2f", t.CorrelationThreshold))
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be one of debug|info|warn|error, got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errs
}
