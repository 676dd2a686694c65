package server

// Package server wires the whole process together: configuration, logging,
// the cluster client, the prediction engine, the remediation dispatcher, the
// background service loops, and the HTTP surface (/healthz, /status,
// /metrics, and the history endpoints).

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kubilitics/kubemedic/internal/audit"
	"github.com/kubilitics/kubemedic/internal/config"
	"github.com/kubilitics/kubemedic/internal/k8s"
	"github.com/kubilitics/kubemedic/internal/logging"
	"github.com/kubilitics/kubemedic/internal/predict"
	"github.com/kubilitics/kubemedic/internal/predict/anomaly"
	"github.com/kubilitics/kubemedic/internal/remediate"
	"github.com/kubilitics/kubemedic/internal/service"
)

// Server owns every long-lived component of the process.
type Server struct {
	cfg        *config.Config
	logger     *zap.Logger
	auditor    *audit.Logger
	engine     *predict.Engine
	dispatcher *remediate.Dispatcher
	svc        *service.Service
	httpServer *http.Server

	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer builds and wires all components from validated configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	var auditor *audit.Logger
	if cfg.Audit.LogPath != "" {
		auditor, err = audit.NewLogger(&audit.Config{
			LogPath:    cfg.Audit.LogPath,
			MaxSize:    cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAge:     cfg.Audit.MaxAgeDays,
			Compress:   true,
		})
		if err != nil {
			return nil, fmt.Errorf("creating audit logger: %w", err)
		}
	}

	// An unreachable cluster degrades the process, it does not abort it:
	// analysis, the HTTP surface, and the history endpoints keep working,
	// only live collection and remediation execution are disabled.
	var mutator remediate.ClusterClient
	var collector service.Collector
	autoRemediate := cfg.Remediation.AutoRemediate

	client, err := k8s.NewClient(cfg.Cluster.KubeconfigPath)
	if err != nil {
		logger.Warn("cluster client unavailable, running analysis-only", zap.Error(err))
		if autoRemediate {
			logger.Warn("auto-remediation disabled: no cluster client")
			autoRemediate = false
		}
	} else {
		client.SetTimeout(time.Duration(cfg.Cluster.APITimeoutSeconds) * time.Second)
		if cfg.Cluster.RateLimitQPS > 0 {
			client.SetLimiter(rate.NewLimiter(rate.Limit(cfg.Cluster.RateLimitQPS), cfg.Cluster.RateLimitBurst))
		}
		mutator = k8s.NewMutator(client, logger.Named("k8s"))
		collector = k8s.NewCollector(client, logger.Named("collect"))
	}

	detector, err := anomaly.DetectorFromPath(cfg.Prediction.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("loading anomaly model: %w", err)
	}

	thresholds := predict.DefaultThresholds()
	t := cfg.Prediction.Thresholds
	thresholds.CPUUsageCritical = t.CPUUsageCritical
	thresholds.CPUUsageWarning = t.CPUUsageWarning
	thresholds.MemoryUsageCritical = t.MemoryUsageCritical
	thresholds.MemoryUsageWarning = t.MemoryUsageWarning
	thresholds.PodRestartThreshold = t.PodRestartThreshold
	thresholds.TrendWindow = time.Duration(t.TrendWindowSeconds) * time.Second
	thresholds.CorrelationThreshold = t.CorrelationThreshold

	engine, err := predict.NewEngine(predict.EngineOptions{
		Thresholds:            thresholds,
		HistoryCapacity:       cfg.Prediction.HistorySize,
		MetricsHistoryFile:    cfg.Prediction.MetricsHistoryFile,
		PredictionHistoryFile: cfg.Prediction.PredictionHistoryFile,
		Detector:              detector,
		Logger:                logger.Named("predict"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating prediction engine: %w", err)
	}

	var dispatcherAuditor remediate.Auditor
	if auditor != nil {
		dispatcherAuditor = auditor
	}
	dispatcher, err := remediate.NewDispatcher(remediate.DispatcherOptions{
		AutoRemediate:   autoRemediate,
		Client:          mutator,
		HistoryCapacity: cfg.Prediction.HistorySize,
		HistoryFile:     cfg.Remediation.HistoryFile,
		Auditor:         dispatcherAuditor,
		Logger:          logger.Named("remediate"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating remediation dispatcher: %w", err)
	}

	svcOpts := service.Options{
		Collector:          collector,
		Predictor:          engine,
		Remediator:         dispatcher,
		CollectionInterval: time.Duration(cfg.Collection.IntervalSeconds) * time.Second,
		PredictionInterval: time.Duration(cfg.Prediction.IntervalSeconds) * time.Second,
		Logger:             logger.Named("service"),
	}
	if auditor != nil {
		svcOpts.Auditor = auditor
	}
	svc := service.New(svcOpts)

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		auditor:    auditor,
		engine:     engine,
		dispatcher: dispatcher,
		svc:        svc,
		done:       make(chan struct{}),
	}
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: s.routes(),
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/v1/predictions", s.handlePredictions)
	mux.HandleFunc("/api/v1/remediations", s.handleRemediations)
	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.svc.Status())
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	hours, limit := queryWindow(r)
	writeJSON(w, s.engine.PredictionHistory(hours, limit))
}

func (s *Server) handleRemediations(w http.ResponseWriter, r *http.Request) {
	hours, limit := queryWindow(r)
	writeJSON(w, s.dispatcher.History(hours, limit))
}

// queryWindow parses the hours and limit query parameters with the defaults
// the history endpoints share.
func queryWindow(r *http.Request) (hours, limit int) {
	hours, limit = 24, 100
	if v, err := strconv.Atoi(r.URL.Query().Get("hours")); err == nil && v > 0 {
		hours = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	return hours, limit
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Start launches the background loops and the HTTP listener.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		s.svc.Run(ctx)
		close(s.done)
	}()

	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts everything down: loops first, then the HTTP listener, then the
// log sinks.
func (s *Server) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.logger.Warn("service loops did not stop in time")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	if s.auditor != nil {
		_ = s.auditor.Sync()
	}
	_ = s.logger.Sync()
	return nil
}
