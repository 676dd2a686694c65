package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Manager is the interface for configuration management.
type Manager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error
	// Get returns the current configuration.
	Get(ctx context.Context) *Config
	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error
	// Watch watches for configuration changes and reloads.
	Watch(ctx context.Context) <-chan Config
	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewManager creates a configuration manager for the given file path. The
// file is optional; defaults and environment variables apply without it.
func NewManager(configPath string) Manager {
	return &viperConfigManager{
		configPath: configPath,
		watchChan:  make(chan Config, 1),
	}
}

type viperConfigManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

func (m *viperConfigManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("KUBEMEDIC")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// Config file is optional: defaults plus env vars are a valid setup.
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// File not found via viper - OK, use defaults
		} else if os.IsNotExist(err) {
			// File not found via os - OK, use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	m.unmarshalConfig()
	return nil
}

func (m *viperConfigManager) Get(ctx context.Context) *Config {
	return m.config
}

func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		m.unmarshalConfig()
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update
		}
	})

	return m.watchChan
}

func (m *viperConfigManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	m.unmarshalConfig()
	return nil
}

func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("server.port", defaults.Server.Port)

	m.viper.SetDefault("cluster.kubeconfig_path", defaults.Cluster.KubeconfigPath)
	m.viper.SetDefault("cluster.api_timeout_seconds", defaults.Cluster.APITimeoutSeconds)
	m.viper.SetDefault("cluster.rate_limit_qps", defaults.Cluster.RateLimitQPS)
	m.viper.SetDefault("cluster.rate_limit_burst", defaults.Cluster.RateLimitBurst)

	m.viper.SetDefault("collection.interval_seconds", defaults.Collection.IntervalSeconds)

	m.viper.SetDefault("prediction.interval_seconds", defaults.Prediction.IntervalSeconds)
	m.viper.SetDefault("prediction.history_size", defaults.Prediction.HistorySize)
	m.viper.SetDefault("prediction.metrics_history_file", defaults.Prediction.MetricsHistoryFile)
	m.viper.SetDefault("prediction.prediction_history_file", defaults.Prediction.PredictionHistoryFile)
	m.viper.SetDefault("prediction.model_path", defaults.Prediction.ModelPath)
	m.viper.SetDefault("prediction.thresholds.cpu_usage_critical", defaults.Prediction.Thresholds.CPUUsageCritical)
	m.viper.SetDefault("prediction.thresholds.cpu_usage_warning", defaults.Prediction.Thresholds.CPUUsageWarning)
	m.viper.SetDefault("prediction.thresholds.memory_usage_critical", defaults.Prediction.Thresholds.MemoryUsageCritical)
	m.viper.SetDefault("prediction.thresholds.memory_usage_warning", defaults.Prediction.Thresholds.MemoryUsageWarning)
	m.viper.SetDefault("prediction.thresholds.pod_restart_threshold", defaults.Prediction.Thresholds.PodRestartThreshold)
	m.viper.SetDefault("prediction.thresholds.trend_window_seconds", defaults.Prediction.Thresholds.TrendWindowSeconds)
	m.viper.SetDefault("prediction.thresholds.correlation_threshold", defaults.Prediction.Thresholds.CorrelationThreshold)

	m.viper.SetDefault("remediation.auto_remediate", defaults.Remediation.AutoRemediate)
	m.viper.SetDefault("remediation.history_file", defaults.Remediation.HistoryFile)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)

	m.viper.SetDefault("audit.log_path", defaults.Audit.LogPath)
	m.viper.SetDefault("audit.max_size_mb", defaults.Audit.MaxSizeMB)
	m.viper.SetDefault("audit.max_backups", defaults.Audit.MaxBackups)
	m.viper.SetDefault("audit.max_age_days", defaults.Audit.MaxAgeDays)
}

func (m *viperConfigManager) unmarshalConfig() {
	cfg := &Config{}

	cfg.Server.Port = m.viper.GetInt("server.port")

	cfg.Cluster.KubeconfigPath = m.viper.GetString("cluster.kubeconfig_path")
	cfg.Cluster.APITimeoutSeconds = m.viper.GetInt("cluster.api_timeout_seconds")
	cfg.Cluster.RateLimitQPS = m.viper.GetFloat64("cluster.rate_limit_qps")
	cfg.Cluster.RateLimitBurst = m.viper.GetInt("cluster.rate_limit_burst")

	cfg.Collection.IntervalSeconds = m.viper.GetInt("collection.interval_seconds")

	cfg.Prediction.IntervalSeconds = m.viper.GetInt("prediction.interval_seconds")
	cfg.Prediction.HistorySize = m.viper.GetInt("prediction.history_size")
	cfg.Prediction.MetricsHistoryFile = m.viper.GetString("prediction.metrics_history_file")
	cfg.Prediction.PredictionHistoryFile = m.viper.GetString("prediction.prediction_history_file")
	cfg.Prediction.ModelPath = m.viper.GetString("prediction.model_path")
	cfg.Prediction.Thresholds.CPUUsageCritical = m.viper.GetFloat64("prediction.thresholds.cpu_usage_critical")
	cfg.Prediction.Thresholds.CPUUsageWarning = m.viper.GetFloat64("prediction.thresholds.cpu_usage_warning")
	cfg.Prediction.Thresholds.MemoryUsageCritical = m.viper.GetFloat64("prediction.thresholds.memory_usage_critical")
	cfg.Prediction.Thresholds.MemoryUsageWarning = m.viper.GetFloat64("prediction.thresholds.memory_usage_warning")
	cfg.Prediction.Thresholds.PodRestartThreshold = m.viper.GetInt("prediction.thresholds.pod_restart_threshold")
	cfg.Prediction.Thresholds.TrendWindowSeconds = m.viper.GetInt("prediction.thresholds.trend_window_seconds")
	cfg.Prediction.Thresholds.CorrelationThreshold = m.viper.GetFloat64("prediction.thresholds.correlation_threshold")

	cfg.Remediation.AutoRemediate = m.viper.GetBool("remediation.auto_remediate")
	cfg.Remediation.HistoryFile = m.viper.GetString("remediation.history_file")

	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")

	cfg.Audit.LogPath = m.viper.GetString("audit.log_path")
	cfg.Audit.MaxSizeMB = m.viper.GetInt("audit.max_size_mb")
	cfg.Audit.MaxBackups = m.viper.GetInt("audit.max_backups")
	cfg.Audit.MaxAgeDays = m.viper.GetInt("audit.max_age_days")

	m.config = cfg
}
