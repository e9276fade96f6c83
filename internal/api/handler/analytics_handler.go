package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"campaign-analytics/internal/analytics"
	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
	"campaign-analytics/pkg/logger"
)

// LoadHistory lists past dataset loads.
type LoadHistory interface {
	ListLoads(ctx context.Context, limit int) ([]model.LoadEntry, error)
}

// Handler serves the analytics endpoints.
type Handler struct {
	engine  *analytics.Engine
	history LoadHistory
}

// New creates a Handler. history may be nil when no snapshot store is configured.
func New(engine *analytics.Engine, history LoadHistory) *Handler {
	return &Handler{engine: engine, history: history}
}

type errorResponse struct {
	Error string `json:"error"`
}

// ConversionRate returns per-record conversion rates and the extremes.
// @Summary Conversion rate per customer
// @Description Computes conversions/revenue for every record and returns the records with the highest and lowest rate
// @Tags analytics
// @Produce json
// @Success 200 {object} model.ConversionRateReport
// @Failure 405 {object} errorResponse
// @Router /api/conversion-rate/ [get]
func (h *Handler) ConversionRate(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.engine.ConversionRate(r.Context()))
}

// StatusDistribution returns revenue and conversion totals by status.
// @Summary Status distribution
// @Description Totals by (status, type, category) with record counts, and totals by status
// @Tags analytics
// @Produce json
// @Success 200 {object} model.StatusDistributionReport
// @Failure 405 {object} errorResponse
// @Router /api/status-distribution/ [get]
func (h *Handler) StatusDistribution(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.engine.StatusDistribution(r.Context()))
}

// CategoryTypePerformance returns totals by category and type and the top group.
// @Summary Category/type performance
// @Description Totals by (category, type); top_performance is the group with the most conversions, null when the dataset is empty
// @Tags analytics
// @Produce json
// @Success 200 {object} model.PerformanceReport
// @Failure 405 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/category-type-performance/ [get]
func (h *Handler) CategoryTypePerformance(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.CategoryTypePerformance(r.Context())
	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeEmpty) {
		logger.WithContext(r.Context()).Error("category type performance failed", zap.Error(err))
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResp(w, http.StatusOK, report)
}

// FilteredAggregation returns per-customer averages over CONVERSION records.
// @Summary Average revenue and conversions of CONVERSION records
// @Description Averages by customer_id over records whose type is exactly CONVERSION
// @Tags analytics
// @Produce json
// @Success 200 {array} model.CustomerAverage
// @Failure 405 {object} errorResponse
// @Router /api/filtered-aggregation/ [get]
func (h *Handler) FilteredAggregation(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.engine.FilteredAggregation(r.Context()))
}

// Dataset describes the table currently served.
// @Summary Current dataset
// @Description Source, load id, record count and columns of the dataset being served
// @Tags dataset
// @Produce json
// @Success 200 {object} model.TableInfo
// @Router /api/dataset/ [get]
func (h *Handler) Dataset(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, h.engine.Info())
}

// DatasetLoads lists recent dataset loads.
// @Summary Dataset load history
// @Description Most recent loads first, including failed ones
// @Tags dataset
// @Produce json
// @Param limit query int false "Maximum number of entries" default(20)
// @Success 200 {array} model.LoadEntry
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/dataset/loads/ [get]
func (h *Handler) DatasetLoads(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		jsonErr(w, http.StatusNotFound, "load history is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	loads, err := h.history.ListLoads(r.Context(), limit)
	if err != nil {
		logger.WithContext(r.Context()).Error("list loads failed", zap.Error(err))
		jsonErr(w, http.StatusInternalServerError, "failed to list loads")
		return
	}
	jsonResp(w, http.StatusOK, loads)
}

// Health reports liveness.
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("encode response", zap.Error(err))
		code = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
