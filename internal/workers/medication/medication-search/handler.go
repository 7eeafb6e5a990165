// internal/workers/medication/medication-search/handler.go
package medicationsearch

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "medsearch-service/internal/common/errors"
	"medsearch-service/internal/common/metrics"
	"medsearch-service/internal/common/observability"
	"medsearch-service/internal/common/validation"
	"medsearch-service/internal/models"
	"medsearch-service/internal/service"
)

const (
	TaskType = "medication-search"
)

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Searcher is the orchestrator entry point the worker dispatches through.
type Searcher interface {
	Search(ctx context.Context, text string, category models.Category) (*service.Result, error)
}

var inputSchema = validation.MustValidator(validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"query":      {Type: "string"},
		"searchType": {Type: "string"},
	},
	Required:             []string{"query"},
	AdditionalProperties: true,
})

type HandlerOptions struct {
	Config   *Config
	Searcher Searcher
	// InputValidator overrides the built-in input schema, e.g. with the one
	// declared in the activity registry.
	InputValidator *validation.Validator
	Observability  *observability.Observability
	Logger         Logger
}

type Handler struct {
	config       *Config
	searcher     Searcher
	obs          *observability.Observability
	logger       Logger
	validator    *validation.Validator
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(opts HandlerOptions) *Handler {
	cfg := opts.Config
	if cfg == nil {
		cfg = LoadConfig()
	}
	validator := opts.InputValidator
	if validator == nil {
		validator = inputSchema
	}
	log := opts.Logger.With(map[string]interface{}{
		"taskType": TaskType,
	})
	return &Handler{
		config:       cfg,
		searcher:     opts.Searcher,
		obs:          opts.Observability,
		logger:       log,
		validator:    validator,
		errorHandler: apperrors.NewErrorHandler(log),
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.record(ctx, start, "completed")
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &raw); err != nil {
		return nil, apperrors.NewInvalidSearchRequestError("job variables are not a JSON object")
	}

	result := h.validator.ValidateObject(raw)
	if !result.Valid {
		return nil, apperrors.NewInvalidSearchRequestError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidSearchRequestError(err.Error())
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	category, err := models.ParseCategory(input.SearchType)
	if err != nil {
		return nil, apperrors.NewInvalidSearchRequestError(err.Error())
	}

	res, err := h.searcher.Search(ctx, input.Query, category)
	if err != nil {
		return nil, err
	}

	output := &Output{Category: category, SearchTimestamp: h.now().UTC()}
	switch category {
	case models.CategoryCatalog:
		output.PBSResults = res.Catalog
	case models.CategoryWeb:
		output.WebResults = res.Web
	case models.CategoryUnified:
		output.PBSResults = res.Unified.CatalogRecords
		output.WebResults = res.Unified.WebResults
		output.SearchTimestamp = res.Unified.ProducedAt
	}

	h.logger.Info("medication search completed", map[string]interface{}{
		"category":     string(category),
		"pbsResults":   len(output.PBSResults),
		"webResults":   len(output.WebResults),
		"searchedText": input.Query,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, sendErr := cmd.Send(ctx); sendErr != nil {
		h.logger.Error("Failed to send complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  sendErr.Error(),
		})
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := apperrors.AsStandardError(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
	h.record(ctx, start, "failed")
}

func (h *Handler) record(ctx context.Context, start time.Time, status string) {
	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(elapsed.Seconds())
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, status)
		h.obs.RecordJobDuration(ctx, elapsed, status)
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
