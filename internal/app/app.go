// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"medsearch-service/internal/alerts"
	"medsearch-service/internal/common/circuitbreaker"
	"medsearch-service/internal/common/config"
	httpclient "medsearch-service/internal/common/http"
	"medsearch-service/internal/common/logger"
	"medsearch-service/internal/common/observability"
	"medsearch-service/internal/history"
	"medsearch-service/internal/search/aggregator"
	"medsearch-service/internal/search/catalog"
	"medsearch-service/internal/search/websearch"
	"medsearch-service/internal/service"
)

const userAgent = "medsearch-service/1.0"

var (
	historyAttempts   = 5
	historyRetryDelay = 2 * time.Second
)

// App is the wired search stack shared by the API server and the worker
// manager.
type App struct {
	Config        *config.Config
	Orchestrator  *service.Orchestrator
	Ledger        *history.Ledger
	Catalog       *catalog.Client
	Web           *websearch.Client
	Notifier      alerts.Notifier
	Observability *observability.Observability

	historyCloser io.Closer
	zapLog        *zap.Logger
}

// New builds every component from cfg. The history backend is retried with
// backoff since it is usually a container that starts alongside us.
func New(ctx context.Context, cfg *config.Config, serviceName string, zapLog *zap.Logger) (*App, error) {
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(serviceName, zapLog)

	notifier, err := alerts.New(ctx, cfg.Alerts, serviceName, log)
	if err != nil {
		zapLog.Warn("degradation alerts disabled", zap.Error(err))
		notifier = alerts.NewNoop()
	}

	timeout := cfg.SearchTimeout()

	catalogClient := catalog.NewClient(
		catalog.Config{
			BaseURL:    cfg.Search.Catalog.BaseURL,
			PageLimit:  cfg.Search.Catalog.PageLimit,
			MaxResults: cfg.Search.Catalog.MaxResults,
			Timeout:    timeout,
		},
		newUpstreamClient(catalog.SourceName, cfg, zapLog),
		notifier,
		log.With(map[string]interface{}{"source": catalog.SourceName}),
	)

	webClient := websearch.NewClient(
		websearch.Config{
			BaseURL:          cfg.Search.Web.BaseURL,
			APIKey:           cfg.Search.Web.APIKey,
			EngineID:         cfg.Search.Web.EngineID,
			ResultsPerDomain: cfg.Search.Web.ResultsPerDomain,
			Domains:          cfg.Search.Web.Domains,
			Timeout:          timeout,
		},
		newUpstreamClient(websearch.SourceName, cfg, zapLog),
		notifier,
		log.With(map[string]interface{}{"source": websearch.SourceName}),
	)

	var (
		store  history.Store
		closer io.Closer
	)
	err = RetryWithBackoff(func() error {
		var openErr error
		store, closer, openErr = history.Open(ctx, cfg)
		return openErr
	}, historyAttempts, historyRetryDelay, zapLog, fmt.Sprintf("history backend %q", cfg.History.Backend))
	if err != nil {
		return nil, err
	}

	ledger := history.NewLedger(store, config.GetDuration(cfg.History.WriteTimeout), log)

	orch := service.New(service.Deps{
		Searcher:      aggregator.New(catalogClient, webClient),
		Ledger:        ledger,
		CatalogStatus: catalogClient,
		Web:           webClient,
		Observability: obs,
		Logger:        log,
		HistoryLimit:  cfg.History.ReadLimit,
	})

	zapLog.Info("search stack ready",
		zap.String("history", store.Name()),
		zap.Bool("webConfigured", webClient.Configured()),
		zap.Duration("searchTimeout", timeout),
	)

	return &App{
		Config:        cfg,
		Orchestrator:  orch,
		Ledger:        ledger,
		Catalog:       catalogClient,
		Web:           webClient,
		Notifier:      notifier,
		Observability: obs,
		historyCloser: closer,
		zapLog:        zapLog,
	}, nil
}

func newUpstreamClient(source string, cfg *config.Config, zapLog *zap.Logger) *httpclient.Client {
	cb := cfg.Search.CircuitBreaker
	breaker := circuitbreaker.New(source, circuitbreaker.Settings{
		MaxFailures:     cb.MaxFailures,
		ResetTimeout:    config.GetDuration(cb.ResetTimeout),
		HalfOpenMaxReqs: cb.HalfOpenMaxReqs,
	}, zapLog)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10

	return httpclient.NewClient(cfg.SearchTimeout(),
		httpclient.WithHTTPClient(&http.Client{
			Timeout:   cfg.SearchTimeout(),
			Transport: transport,
		}),
		httpclient.WithBreaker(breaker),
		httpclient.WithUserAgent(userAgent),
	)
}

// Close waits for pending alerts and releases the history backend.
func (a *App) Close() {
	if w, ok := a.Notifier.(interface{ Wait() }); ok {
		w.Wait()
	}
	if a.historyCloser != nil {
		if err := a.historyCloser.Close(); err != nil {
			a.zapLog.Warn("failed to close history backend", zap.Error(err))
		}
	}
	a.Observability.Shutdown()
}

// RetryWithBackoff attempts to execute a function with exponential backoff
func RetryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
