package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"campaign-analytics/internal/api/handler"
	"campaign-analytics/pkg/metrics"
	"campaign-analytics/pkg/router"

	_ "campaign-analytics/docs"
)

// Options toggles the supplementary routes.
type Options struct {
	MetricsPath string // empty disables /metrics
	Swagger     bool
}

// RegisterRoutes wires the analytics endpoints onto r.
func RegisterRoutes(r *router.Router, h *handler.Handler, opts Options) {
	r.GET("/api/conversion-rate/", h.ConversionRate)
	r.GET("/api/status-distribution/", h.StatusDistribution)
	r.GET("/api/category-type-performance/", h.CategoryTypePerformance)
	r.GET("/api/filtered-aggregation/", h.FilteredAggregation)

	r.GET("/api/dataset/", h.Dataset)
	r.GET("/api/dataset/loads/", h.DatasetLoads)
	r.GET("/healthz", h.Health)

	if opts.MetricsPath != "" {
		r.Handle(http.MethodGet, opts.MetricsPath, metrics.Handler())
	}
	if opts.Swagger {
		r.Handle(http.MethodGet, "/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}
}

// NewRouter builds a router with every route registered.
func NewRouter(h *handler.Handler, opts Options) *router.Router {
	r := router.New()
	RegisterRoutes(r, h, opts)
	return r
}
