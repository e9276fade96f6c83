// Package metrics holds the Prometheus collectors for the analytics service.
//
// Collectors are registered on the default registry through promauto and are
// exposed by Handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequests counts served requests.
	// Labels: route (registered pattern), method, status (code)
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPLatency tracks request latency in seconds.
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"route", "method"},
	)

	// DatasetRecords is the size of the table currently served.
	// Labels: state (valid/invalid)
	DatasetRecords = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analytics_dataset_records",
			Help: "Records in the currently served dataset",
		},
		[]string{"state"},
	)

	// DatasetLoads counts dataset load attempts.
	// Labels: origin (source/snapshot), status (success/failure)
	DatasetLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_dataset_loads_total",
			Help: "Total number of dataset load attempts",
		},
		[]string{"origin", "status"},
	)
)

// ObserveRequest records one served request.
func ObserveRequest(route, method string, status int, took time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(took.Seconds())
}

// SetDataset publishes the record counts of a freshly loaded table.
func SetDataset(valid, invalid int) {
	DatasetRecords.WithLabelValues("valid").Set(float64(valid))
	DatasetRecords.WithLabelValues("invalid").Set(float64(invalid))
}

// RecordLoad counts a load attempt.
func RecordLoad(origin string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	DatasetLoads.WithLabelValues(origin, status).Inc()
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
