// internal/service/orchestrator.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "medsearch-service/internal/common/errors"
	"medsearch-service/internal/common/metrics"
	"medsearch-service/internal/common/observability"
	"medsearch-service/internal/models"
	"medsearch-service/internal/search/websearch"
)

const (
	msgCatalogFailed = "PBS search failed"
	msgWebFailed     = "Google search failed"
	msgUnifiedFailed = "Unified search failed"
)

type Searcher interface {
	SearchCatalog(ctx context.Context, query string) []models.CatalogRecord
	SearchWeb(ctx context.Context, query string) []models.WebResult
	UnifiedSearch(ctx context.Context, query string) models.UnifiedResult
}

type HistoryLedger interface {
	Record(ctx context.Context, q models.Query)
	Recent(ctx context.Context, limit int) ([]models.Query, error)
	Ping(ctx context.Context) error
}

type SourceStatus interface {
	Available() bool
}

type WebInfoProvider interface {
	Info() websearch.Info
	Configured() bool
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Deps struct {
	Searcher      Searcher
	Ledger        HistoryLedger
	CatalogStatus SourceStatus
	Web           WebInfoProvider
	Observability *observability.Observability
	Logger        Logger
	HealthTimeout time.Duration
	// HistoryLimit bounds History; the ledger caps it at 50.
	HistoryLimit int
}

// Result carries the outcome of a category-dispatched search; exactly one
// field matching Category is set.
type Result struct {
	Category models.Category
	Catalog  []models.CatalogRecord
	Web      []models.WebResult
	Unified  *models.UnifiedResult
}

// Orchestrator is the service boundary shared by the HTTP API and the
// workflow worker: record the query, dispatch, return a typed result.
type Orchestrator struct {
	search   Searcher
	ledger   HistoryLedger
	obs      *observability.Observability
	logger   Logger
	checkers []Checker
	limit    int
	newID    func() string
	now      func() time.Time
	web      WebInfoProvider
}

func New(deps Deps) *Orchestrator {
	timeout := deps.HealthTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Orchestrator{
		search: deps.Searcher,
		ledger: deps.Ledger,
		obs:    deps.Observability,
		logger: deps.Logger,
		web:    deps.Web,
		limit:  deps.HistoryLimit,
		checkers: []Checker{
			databaseChecker{store: deps.Ledger, timeout: timeout},
			catalogChecker{source: deps.CatalogStatus},
			webChecker{web: deps.Web},
		},
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (o *Orchestrator) SearchCatalog(ctx context.Context, text string) (records []models.CatalogRecord, err error) {
	defer o.recoverSearch(models.CategoryCatalog, msgCatalogFailed, &err)
	defer o.observe(ctx, models.CategoryCatalog, o.now())

	o.begin(ctx, text, models.CategoryCatalog)
	return o.search.SearchCatalog(ctx, text), nil
}

func (o *Orchestrator) SearchWeb(ctx context.Context, text string) (results []models.WebResult, err error) {
	defer o.recoverSearch(models.CategoryWeb, msgWebFailed, &err)
	defer o.observe(ctx, models.CategoryWeb, o.now())

	o.begin(ctx, text, models.CategoryWeb)
	return o.search.SearchWeb(ctx, text), nil
}

func (o *Orchestrator) SearchUnified(ctx context.Context, text string) (result models.UnifiedResult, err error) {
	defer o.recoverSearch(models.CategoryUnified, msgUnifiedFailed, &err)
	defer o.observe(ctx, models.CategoryUnified, o.now())

	o.begin(ctx, text, models.CategoryUnified)
	return o.search.UnifiedSearch(ctx, text), nil
}

// Search dispatches on category.
func (o *Orchestrator) Search(ctx context.Context, text string, category models.Category) (*Result, error) {
	res := &Result{Category: category}
	var err error

	switch category {
	case models.CategoryCatalog:
		res.Catalog, err = o.SearchCatalog(ctx, text)
	case models.CategoryWeb:
		res.Web, err = o.SearchWeb(ctx, text)
	case models.CategoryUnified:
		var unified models.UnifiedResult
		unified, err = o.SearchUnified(ctx, text)
		res.Unified = &unified
	default:
		return nil, apperrors.NewInvalidSearchRequestError(fmt.Sprintf("unknown search category %q", category))
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}

// History returns the most recent queries, newest first.
func (o *Orchestrator) History(ctx context.Context) ([]models.Query, error) {
	return o.ledger.Recent(ctx, o.limit)
}

func (o *Orchestrator) Health(ctx context.Context) HealthReport {
	return runCheckers(ctx, o.checkers, o.now().UTC())
}

func (o *Orchestrator) WebInfo() websearch.Info {
	return o.web.Info()
}

func (o *Orchestrator) begin(ctx context.Context, text string, category models.Category) models.Query {
	q := models.Query{
		ID:        o.newID(),
		Text:      text,
		Category:  category,
		Timestamp: o.now().UTC(),
	}
	metrics.SearchRequests.WithLabelValues(string(category)).Inc()
	o.ledger.Record(ctx, q)
	return q
}

func (o *Orchestrator) observe(ctx context.Context, category models.Category, start time.Time) {
	if o.obs != nil {
		o.obs.RecordSearch(ctx, string(category), o.now().Sub(start))
	}
}

func (o *Orchestrator) recoverSearch(category models.Category, message string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	cause := fmt.Errorf("panic: %v", r)
	o.logger.Error("search dispatch failed", map[string]interface{}{
		"category": string(category),
		"error":    cause.Error(),
	})
	*err = apperrors.NewSearchFailedError(message, cause)
}
