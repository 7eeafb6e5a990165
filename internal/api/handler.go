// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "medsearch-service/internal/common/errors"
	"medsearch-service/internal/common/validation"
	"medsearch-service/internal/models"
	"medsearch-service/internal/search/websearch"
	"medsearch-service/internal/service"
)

const (
	RootMessage = "Medical Search API - Australian Healthcare Database Search"

	maxBodyBytes = 1 << 20
)

// Service is the orchestration surface the handlers need.
type Service interface {
	SearchCatalog(ctx context.Context, text string) ([]models.CatalogRecord, error)
	SearchWeb(ctx context.Context, text string) ([]models.WebResult, error)
	SearchUnified(ctx context.Context, text string) (models.UnifiedResult, error)
	History(ctx context.Context) ([]models.Query, error)
	Health(ctx context.Context) service.HealthReport
	WebInfo() websearch.Info
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type searchRequest struct {
	Query      string `json:"query"`
	SearchType string `json:"search_type,omitempty"`
}

var searchRequestSchema = validation.MustValidator(validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"query": {Type: "string", Description: "free-text medication query, may be empty"},
		"search_type": {
			Type: "string",
			Enum: []string{"catalog", "pbs", "web", "google", "google_search", "unified"},
		},
	},
	Required: []string{"query"},
})

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler serves the /api surface over a Service.
type Handler struct {
	svc    Service
	logger Logger
}

func NewHandler(svc Service, logger Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRoutes registers the API routes and /metrics on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/{$}", h.handleRoot)

	mux.HandleFunc("POST /api/search/catalog", h.handleSearchCatalog)
	mux.HandleFunc("POST /api/search/pbs", h.handleSearchCatalog)
	mux.HandleFunc("POST /api/search/web", h.handleSearchWeb)
	mux.HandleFunc("POST /api/search/google", h.handleSearchWeb)
	mux.HandleFunc("POST /api/search/unified", h.handleSearchUnified)

	mux.HandleFunc("GET /api/search/history", h.handleHistory)
	mux.HandleFunc("GET /api/search/web-info", h.handleWebInfo)
	mux.HandleFunc("GET /api/search/google-info", h.handleWebInfo)
	mux.HandleFunc("GET /api/health", h.handleHealth)

	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
}

func (h *Handler) handleSearchCatalog(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}
	records, err := h.svc.SearchCatalog(r.Context(), req.Query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) handleSearchWeb(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}
	results, err := h.svc.SearchWeb(r.Context(), req.Query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleSearchUnified(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSearch(w, r)
	if !ok {
		return
	}
	result, err := h.svc.SearchUnified(r.Context(), req.Query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.History(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleWebInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.WebInfo())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health(r.Context()))
}

// decodeSearch reads and validates a search body. On failure the 400 has
// already been written.
func (h *Handler) decodeSearch(w http.ResponseWriter, r *http.Request) (searchRequest, bool) {
	var req searchRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "request body too large"})
			return req, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "unable to read request body"})
		return req, false
	}

	result := searchRequestSchema.ValidateBytes(body)
	if !result.Valid {
		detail := strings.Join(result.GetErrorMessages(), "; ")
		h.logger.Warn("invalid search request", map[string]interface{}{
			"path":   r.URL.Path,
			"detail": detail,
		})
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: detail})
		return req, false
	}

	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON"})
		return req, false
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := apperrors.AsStandardError(err)
	h.logger.Error("request failed", map[string]interface{}{
		"path":  r.URL.Path,
		"code":  string(stdErr.Code),
		"error": err.Error(),
	})
	writeJSON(w, stdErr.HTTPStatus(), errorResponse{Detail: stdErr.Message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
