package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"airhealth-platform/internal/assembly"
	"airhealth-platform/internal/filters"
	"airhealth-platform/internal/services"
	"airhealth-platform/pkg/logging"
	"airhealth-platform/pkg/metrics"
)

const defaultTrendWindow = 7

// AnalysisHandler handles the analysis API endpoints.
type AnalysisHandler struct {
	service *services.AnalysisService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(service *services.AnalysisService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthCheck handles GET /health
func (h *AnalysisHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"service":   "airhealth-platform",
		"timestamp": time.Now().UTC(),
	}

	if _, err := h.service.FilterSummary(r.Context()); err != nil {
		status["status"] = "degraded"
		status["detail"] = "dataset not loaded"
	}

	h.sendJSON(w, status, http.StatusOK)
}

// GetAvailableValues handles GET /api/analysis/values
func (h *AnalysisHandler) GetAvailableValues(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/values")()

	values, err := h.service.AvailableValues(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, values, http.StatusOK)
}

// ApplyFilters handles POST /api/analysis/filters
func (h *AnalysisHandler) ApplyFilters(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/filters")()

	var req filters.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, r, "invalid filter request body", http.StatusBadRequest)
		return
	}

	summary, err := h.service.ApplyFilters(r.Context(), req)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, summary, http.StatusOK)
}

// ResetFilters handles POST /api/analysis/filters/reset
func (h *AnalysisHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/filters/reset")()

	summary, err := h.service.ResetFilters(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, summary, http.StatusOK)
}

// GetFilterSummary handles GET /api/analysis/filters
func (h *AnalysisHandler) GetFilterSummary(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/filters")()

	summary, err := h.service.FilterSummary(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, summary, http.StatusOK)
}

// GetCorrelation handles GET /api/analysis/correlation
func (h *AnalysisHandler) GetCorrelation(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/correlation")()

	x := r.URL.Query().Get("x")
	y := r.URL.Query().Get("y")
	if x == "" || y == "" {
		h.sendError(w, r, "both x and y query parameters are required", http.StatusBadRequest)
		return
	}

	report, err := h.service.Correlation(r.Context(), x, y)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, toCorrelationResponse(report), http.StatusOK)
}

// GetGroupComparison handles GET /api/analysis/comparison
func (h *AnalysisHandler) GetGroupComparison(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/comparison")()

	column := r.URL.Query().Get("column")
	if column == "" {
		column = "respiratory_cases"
	}

	equalVariance := false
	if v := r.URL.Query().Get("equal_variance"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.sendError(w, r, "equal_variance must be a boolean", http.StatusBadRequest)
			return
		}
		equalVariance = parsed
	}

	report, err := h.service.CompareHighAQI(r.Context(), column, equalVariance)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, toComparisonResponse(report), http.StatusOK)
}

// GetQuality handles GET /api/analysis/quality
func (h *AnalysisHandler) GetQuality(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/quality")()

	report, err := h.service.Quality(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, report, http.StatusOK)
}

// GetTrend handles GET /api/analysis/trend
func (h *AnalysisHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/trend")()

	column := r.URL.Query().Get("column")
	if column == "" {
		h.sendError(w, r, "column query parameter is required", http.StatusBadRequest)
		return
	}

	window := defaultTrendWindow
	if v := r.URL.Query().Get("window"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.sendError(w, r, "window must be a positive integer", http.StatusBadRequest)
			return
		}
		window = parsed
	}

	summary, err := h.service.Trend(r.Context(), column, window)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, toTrendResponse(summary), http.StatusOK)
}

// ReloadDataset handles POST /api/analysis/reload
func (h *AnalysisHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/analysis/reload")()

	if err := h.service.LoadDataset(r.Context()); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	summary, err := h.service.FilterSummary(r.Context())
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	h.sendJSON(w, summary, http.StatusOK)
}

func (h *AnalysisHandler) observe(endpoint string) func() {
	start := time.Now()
	return func() {
		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

// sendServiceError maps service errors to HTTP status codes.
func (h *AnalysisHandler) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rangeErr *filters.InvalidRangeError
	var unavailable *assembly.SourceUnavailableError
	var mismatch *assembly.SchemaMismatchError

	switch {
	case errors.Is(err, services.ErrDatasetNotLoaded):
		h.sendError(w, r, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &rangeErr):
		h.sendError(w, r, rangeErr.Error(), http.StatusBadRequest)
	case errors.As(err, &unavailable):
		h.sendError(w, r, unavailable.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &mismatch):
		h.sendError(w, r, mismatch.Error(), http.StatusBadGateway)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Request failed", logging.Fields{
			"path": r.URL.Path,
		}, err)
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
	}
}

// sendJSON sends a JSON response
func (h *AnalysisHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *AnalysisHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIError(http.StatusText(statusCode), r.URL.Path)

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all analysis API routes
func (h *AnalysisHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/analysis/values", h.GetAvailableValues).Methods("GET")
	router.HandleFunc("/api/analysis/filters", h.GetFilterSummary).Methods("GET")
	router.HandleFunc("/api/analysis/filters", h.ApplyFilters).Methods("POST")
	router.HandleFunc("/api/analysis/filters/reset", h.ResetFilters).Methods("POST")
	router.HandleFunc("/api/analysis/correlation", h.GetCorrelation).Methods("GET")
	router.HandleFunc("/api/analysis/comparison", h.GetGroupComparison).Methods("GET")
	router.HandleFunc("/api/analysis/quality", h.GetQuality).Methods("GET")
	router.HandleFunc("/api/analysis/trend", h.GetTrend).Methods("GET")
	router.HandleFunc("/api/analysis/reload", h.ReloadDataset).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
