package audit

// Package audit provides the append-only audit trail for remediation
// attempts and prediction passes. Audit records are structured JSON lines
// written through a rotating file sink, separate from application logging.

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kubilitics/kubemedic/internal/models"
)

// Config represents audit logger configuration.
type Config struct {
	// LogPath is the path to the audit log file.
	LogPath string

	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int

	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int

	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int

	// Compress determines if rotated files should be compressed.
	Compress bool
}

// DefaultConfig returns default audit logger configuration.
func DefaultConfig() *Config {
	return &Config{
		LogPath:    "logs/audit.log",
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

// Logger writes audit records. Audit entries are always INFO level and
// append-only; rotation is the only mutation the file ever sees.
type Logger struct {
	logger *zap.Logger
}

// NewLogger creates an audit logger with file rotation.
func NewLogger(config *Config) (*Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.LogPath == "" {
		return nil, fmt.Errorf("audit log path is required")
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
	}

	rotator := &lumberjack.Logger{
		Filename:   config.LogPath,
		MaxSize:    config.MaxSize,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAge,
		Compress:   config.Compress,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator),
		zapcore.InfoLevel,
	)

	return &Logger{logger: zap.New(core)}, nil
}

// RecordRemediation writes one audit entry per remediation attempt,
// successful or not, naming the action the dispatcher selected.
func (l *Logger) RecordRemediation(issue models.Issue, action models.RemediationAction, result models.RemediationResult) {
	l.logger.Info("remediation",
		zap.String("action_id", result.ActionID),
		zap.String("issue_type", issue.Type),
		zap.String("component", issue.Component),
		zap.String("severity", string(issue.Severity)),
		zap.String("action_type", action.ActionType),
		zap.String("action_description", action.Description),
		zap.Bool("success", result.Success),
		zap.Any("details", result.Details),
		zap.String("error_message", result.ErrorMessage),
	)
}

// RecordPrediction writes one audit entry per analysis pass.
func (l *Logger) RecordPrediction(result models.PredictionResult) {
	l.logger.Info("prediction",
		zap.Time("analyzed_at", result.Timestamp),
		zap.Int("issues", len(result.Issues)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("suggestions", len(result.Suggestions)),
	)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.logger.Sync()
}
