package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-analytics/internal/analytics"
	"campaign-analytics/internal/api"
	"campaign-analytics/internal/api/handler"
	"campaign-analytics/internal/dataset"
	"campaign-analytics/internal/model"
)

// --- test helpers -----------------------------------------------------------

const scenarioCSV = `customer_id,revenue,conversions,status,type,category
1,100,10,OK,CONVERSION,A
2,50,5,OK,CLICK,B
`

const headerOnlyCSV = "customer_id,revenue,conversions,status,type,category\n"

var analyticsRoutes = []string{
	"/api/conversion-rate/",
	"/api/status-distribution/",
	"/api/category-type-performance/",
	"/api/filtered-aggregation/",
}

type fakeHistory struct {
	loads []model.LoadEntry
	err   error
	limit int
}

func (f *fakeHistory) ListLoads(_ context.Context, limit int) ([]model.LoadEntry, error) {
	f.limit = limit
	return f.loads, f.err
}

func mustTable(t *testing.T, csvText string) *model.Table {
	t.Helper()
	table, _, err := dataset.ParseString(csvText, "test.csv", "load-test")
	require.NoError(t, err)
	return table
}

func newServer(t *testing.T, csvText string, history handler.LoadHistory) (http.Handler, *dataset.Holder) {
	t.Helper()
	holder := dataset.NewHolder(mustTable(t, csvText))
	h := handler.New(analytics.New(holder), history)
	return api.NewRouter(h, api.Options{MetricsPath: "/metrics", Swagger: true}), holder
}

func request(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return request(t, h, http.MethodGet, path)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), "body: %s", rr.Body.String())
}

// --- analytics endpoints ----------------------------------------------------

func TestConversionRate_Scenario(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	rr := get(t, h, "/api/conversion-rate/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"conversion_rates": [
			{"customer_id": 1, "conversion_rate": 0.1},
			{"customer_id": 2, "conversion_rate": 0.1}
		],
		"highest": {"customer_id": 1, "revenue": 100, "conversions": 10, "status": "OK", "type": "CONVERSION", "category": "A", "conversion_rate": 0.1},
		"lowest":  {"customer_id": 1, "revenue": 100, "conversions": 10, "status": "OK", "type": "CONVERSION", "category": "A", "conversion_rate": 0.1}
	}`, rr.Body.String())
}

func TestFilteredAggregation_Scenario(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	rr := get(t, h, "/api/filtered-aggregation/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"customer_id": 1, "avg_revenue": 100, "avg_conversions": 10}]`, rr.Body.String())
}

func TestStatusDistribution_Scenario(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	rr := get(t, h, "/api/status-distribution/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"status_distribution": [
			{"status": "OK", "type": "CLICK", "category": "B", "total_revenue": 50, "total_conversions": 5, "count": 1},
			{"status": "OK", "type": "CONVERSION", "category": "A", "total_revenue": 100, "total_conversions": 10, "count": 1}
		],
		"total_status_analysis": [
			{"status": "OK", "total_revenue": 150, "total_conversions": 15}
		]
	}`, rr.Body.String())
}

func TestCategoryTypePerformance_Scenario(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	rr := get(t, h, "/api/category-type-performance/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{
		"performance": [
			{"category": "A", "type": "CONVERSION", "total_revenue": 100, "total_conversions": 10},
			{"category": "B", "type": "CLICK", "total_revenue": 50, "total_conversions": 5}
		],
		"top_performance": {"category": "A", "type": "CONVERSION", "total_conversions": 10}
	}`, rr.Body.String())
}

func TestEndpoints_EmptyDataset(t *testing.T) {
	h, _ := newServer(t, headerOnlyCSV, nil)

	want := map[string]string{
		"/api/conversion-rate/":           `{"conversion_rates": [], "highest": null, "lowest": null}`,
		"/api/status-distribution/":       `{"status_distribution": [], "total_status_analysis": []}`,
		"/api/category-type-performance/": `{"performance": [], "top_performance": null}`,
		"/api/filtered-aggregation/":      `[]`,
	}
	for path, body := range want {
		t.Run(path, func(t *testing.T) {
			rr := get(t, h, path)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, body, rr.Body.String())
		})
	}
}

func TestConversionRate_MissingExtraValuesEncodeAsNull(t *testing.T) {
	h, _ := newServer(t, `customer_id,revenue,conversions,status,type,category,score,note
1,100,10,OK,CONVERSION,A,NaN,first
2,50,10,OK,CLICK,B,inf,
`, nil)
	rr := get(t, h, "/api/conversion-rate/")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Highest map[string]interface{} `json:"highest"`
		Lowest  map[string]interface{} `json:"lowest"`
	}
	decode(t, rr, &body)

	assert.Equal(t, 2.0, body.Highest["customer_id"])
	assert.Contains(t, body.Highest, "score")
	assert.Nil(t, body.Highest["score"])
	assert.Nil(t, body.Highest["note"])

	assert.Equal(t, 1.0, body.Lowest["customer_id"])
	assert.Nil(t, body.Lowest["score"])
	assert.Equal(t, "first", body.Lowest["note"])
}

func TestConversionRate_NonFiniteEncodesAsNull(t *testing.T) {
	h, _ := newServer(t, `customer_id,revenue,conversions,status,type,category
1,0,5,OK,CONVERSION,A
2,0,0,OK,CLICK,A
3,20,4,OK,CLICK,A
`, nil)
	rr := get(t, h, "/api/conversion-rate/")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		ConversionRates []struct {
			CustomerID     json.Number `json:"customer_id"`
			ConversionRate *float64    `json:"conversion_rate"`
		} `json:"conversion_rates"`
		Highest map[string]interface{} `json:"highest"`
		Lowest  map[string]interface{} `json:"lowest"`
	}
	decode(t, rr, &resp)

	require.Len(t, resp.ConversionRates, 3)
	assert.Nil(t, resp.ConversionRates[0].ConversionRate)
	assert.Nil(t, resp.ConversionRates[1].ConversionRate)
	require.NotNil(t, resp.ConversionRates[2].ConversionRate)
	assert.InDelta(t, 0.2, *resp.ConversionRates[2].ConversionRate, 1e-12)

	assert.EqualValues(t, 3, resp.Highest["customer_id"])
	assert.EqualValues(t, 3, resp.Lowest["customer_id"])
}

func TestEndpoints_Idempotent(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	for _, path := range analyticsRoutes {
		first := get(t, h, path).Body.String()
		second := get(t, h, path).Body.String()
		assert.Equal(t, first, second, path)
	}

	// The rate computation must not leak a column into the served dataset.
	var info model.TableInfo
	decode(t, get(t, h, "/api/dataset/"), &info)
	assert.NotContains(t, info.Columns, "conversion_rate")
}

func TestEndpoints_ServeSwappedTable(t *testing.T) {
	h, holder := newServer(t, scenarioCSV, nil)

	holder.Swap(mustTable(t, scenarioCSV+"3,10,9,OK,CONVERSION,C\n"))

	var rows []map[string]interface{}
	decode(t, get(t, h, "/api/filtered-aggregation/"), &rows)
	require.Len(t, rows, 2)
	assert.EqualValues(t, 3, rows[1]["customer_id"])
}

// --- routing ------------------------------------------------------------------

func TestEndpoints_MethodNotAllowed(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	for _, path := range analyticsRoutes {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			rr := request(t, h, method, path)
			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, "%s %s", method, path)

			var body map[string]string
			decode(t, rr, &body)
			assert.NotEmpty(t, body["error"])
		}
	}
}

func TestEndpoints_NotFound(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	rr := get(t, h, "/api/unknown/")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEndpoints_RedirectMissingSlash(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	for _, path := range analyticsRoutes {
		rr := get(t, h, strings.TrimSuffix(path, "/"))
		assert.Equal(t, http.StatusMovedPermanently, rr.Code, path)
		assert.Equal(t, path, rr.Header().Get("Location"))
	}
}

// --- supplementary endpoints ------------------------------------------------

func TestDataset_Info(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	rr := get(t, h, "/api/dataset/")
	require.Equal(t, http.StatusOK, rr.Code)

	var info model.TableInfo
	decode(t, rr, &info)
	assert.Equal(t, "test.csv", info.Source)
	assert.Equal(t, "load-test", info.LoadID)
	assert.Equal(t, 2, info.RecordCount)
	assert.Equal(t, model.RequiredColumns, info.Columns)
}

func TestDatasetLoads(t *testing.T) {
	history := &fakeHistory{loads: []model.LoadEntry{
		{LoadID: "b", Source: "test.csv", Status: "failed", Error: "timeout", LoadedAt: time.Unix(20, 0).UTC()},
		{LoadID: "a", Source: "test.csv", Status: "ok", RecordsValid: 2, LoadedAt: time.Unix(10, 0).UTC()},
	}}
	h, _ := newServer(t, scenarioCSV, history)

	rr := get(t, h, "/api/dataset/loads/?limit=5")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, history.limit)

	var loads []model.LoadEntry
	decode(t, rr, &loads)
	require.Len(t, loads, 2)
	assert.Equal(t, "b", loads[0].LoadID)
	assert.Equal(t, "timeout", loads[0].Error)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/dataset/loads/?limit=zero").Code)

	history.err = errors.New("db closed")
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/api/dataset/loads/").Code)
}

func TestDatasetLoads_Disabled(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/dataset/loads/").Code)
}

func TestHealth(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	rr := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rr.Body.String())
}

func TestMetrics(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	get(t, h, "/api/conversion-rate/")

	rr := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(rr.Body)
	require.NoError(t, err)

	requests := families["analytics_http_requests_total"]
	require.NotNil(t, requests)
	assert.Equal(t, dto.MetricType_COUNTER, requests.GetType())

	var served float64
	for _, m := range requests.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "route" && l.GetValue() == "/api/conversion-rate/" {
				served += m.GetCounter().GetValue()
			}
		}
	}
	assert.GreaterOrEqual(t, served, 1.0)
}

func TestSwaggerDoc(t *testing.T) {
	h, _ := newServer(t, scenarioCSV, nil)
	rr := get(t, h, "/swagger/doc.json")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/api/conversion-rate/")
}
