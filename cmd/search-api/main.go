// cmd/search-api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"medsearch-service/internal/api"
	"medsearch-service/internal/app"
	"medsearch-service/internal/common/config"
	"medsearch-service/internal/common/logger"
)

func main() {
	bootLog := logger.New("info", "console")
	bootLog.Info("Starting search API...")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	ctx := context.Background()

	a, err := app.New(ctx, cfg, "search-api", zapLog)
	if err != nil {
		zapLog.Fatal("search stack failed to start", zap.Error(err))
	}
	defer a.Close()

	log := logger.NewZapAdapter(zapLog)
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(api.NewHandler(a.Orchestrator, log), cfg.Server.CORSOrigins, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("search API listening",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", cfg.App.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("search API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down search API", zap.Error(err))
	}
	zapLog.Info("Search API stopped")
}
