// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"medsearch-service/internal/app"
	"medsearch-service/internal/common/camunda"
	"medsearch-service/internal/common/config"
	"medsearch-service/internal/common/logger"
	medicationsearch "medsearch-service/internal/workers/medication/medication-search"
	"medsearch-service/pkg/registry"
)

const healthAddress = ":8080"

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	// --- Activity registry ---
	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.String("path", cfg.Registry.Path), zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	activity, ok := reg.FindByTaskType(medicationsearch.TaskType)
	if !ok {
		zapLog.Fatal("activity not registered", zap.String("taskType", medicationsearch.TaskType))
	}
	if !activity.ImplementationStatus.Servable() {
		zapLog.Warn("activity is not marked completed",
			zap.String("activity", activity.ID),
			zap.String("status", string(activity.ImplementationStatus)),
		)
	}
	inputValidator, err := activity.InputValidator()
	if err != nil {
		zapLog.Fatal("activity input schema invalid", zap.String("activity", activity.ID), zap.Error(err))
	}
	jobTimeout, err := activity.TimeoutDuration()
	if err != nil {
		zapLog.Fatal("activity timeout invalid", zap.String("activity", activity.ID), zap.Error(err))
	}
	if jobTimeout == 0 {
		jobTimeout = config.GetDuration(cfg.Camunda.Timeout)
	}

	// --- Search stack ---
	a, err := app.New(ctx, cfg, "worker-manager", zapLog)
	if err != nil {
		zapLog.Fatal("search stack failed to start", zap.Error(err))
	}

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = app.RetryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		a.Close()
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully", zap.String("gateway", cfg.Camunda.BrokerAddress))

	topology, err := camunda.Execute(ctx, zeebeClient, "topology", zeebeClient.GetClient().NewTopologyCommand().Send)
	if err != nil {
		zapLog.Warn("topology request failed", zap.Error(err))
	} else {
		zapLog.Info("broker topology",
			zap.Int("brokers", len(topology.Brokers)),
			zap.Int32("partitions", topology.PartitionsCount),
			zap.String("gatewayVersion", topology.GatewayVersion),
		)
	}

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	if config.IsWorkerEnabled(cfg, medicationsearch.TaskType) {
		wcfg := config.GetWorkerConfig(cfg, medicationsearch.TaskType)
		maxJobs := wcfg.MaxJobsActive
		if maxJobs <= 0 {
			maxJobs = cfg.Camunda.MaxJobsActive
		}

		handler := medicationsearch.NewHandler(medicationsearch.HandlerOptions{
			Config:         &medicationsearch.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			Searcher:       a.Orchestrator,
			InputValidator: inputValidator,
			Observability:  a.Observability,
			Logger:         &workerLogger{log},
		})
		workers = append(workers, camunda.NewWorker(zeebeClient.GetClient(), camunda.WorkerOptions{
			TaskType:      medicationsearch.TaskType,
			MaxJobsActive: maxJobs,
			Timeout:       jobTimeout,
		}, handler, zapLog))
	} else {
		zapLog.Info("worker disabled", zap.String("taskType", medicationsearch.TaskType))
	}

	zapLog.Info("workers registered",
		zap.Int("count", len(workers)),
		zap.String("version", cfg.App.Version),
		zap.String("registryVersion", reg.Version),
	)

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebeClient.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	healthServer := &http.Server{Addr: healthAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", healthAddress))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down health server", zap.Error(err))
	}
	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	a.Close()

	zapLog.Info("Worker manager stopped")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// workerLogger narrows logger.Logger to the worker's Logger interface.
type workerLogger struct {
	logger.Logger
}

func (l *workerLogger) With(fields map[string]interface{}) medicationsearch.Logger {
	return &workerLogger{l.Logger.With(fields)}
}
