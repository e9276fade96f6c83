// Package analytics implements the campaign aggregation queries.
//
// Every query is a single group-by fold over an immutable model.Table. The
// Engine resolves the current table once per call so a concurrent reload never
// changes the data underneath a running query.
package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"campaign-analytics/internal/model"
	"campaign-analytics/pkg/logger"
)

// TableSource provides the table to query.
type TableSource interface {
	Table() *model.Table
}

// Static is a TableSource that always returns the same table.
type Static struct{ T *model.Table }

// Table implements TableSource.
func (s Static) Table() *model.Table { return s.T }

// Engine runs the aggregation queries against a TableSource.
type Engine struct {
	source TableSource
}

// New creates an Engine reading from source.
func New(source TableSource) *Engine {
	return &Engine{source: source}
}

// Info describes the table currently served.
func (e *Engine) Info() model.TableInfo {
	return e.source.Table().Info()
}

// ConversionRate runs ConversionRates on the current table.
func (e *Engine) ConversionRate(ctx context.Context) model.ConversionRateReport {
	t := e.source.Table()
	defer trace(ctx, "conversion_rate", t, time.Now())
	return ConversionRates(t)
}

// StatusDistribution runs StatusDistribution on the current table.
func (e *Engine) StatusDistribution(ctx context.Context) model.StatusDistributionReport {
	t := e.source.Table()
	defer trace(ctx, "status_distribution", t, time.Now())
	return StatusDistribution(t)
}

// CategoryTypePerformance runs CategoryTypePerformance on the current table.
func (e *Engine) CategoryTypePerformance(ctx context.Context) (model.PerformanceReport, error) {
	t := e.source.Table()
	defer trace(ctx, "category_type_performance", t, time.Now())
	return CategoryTypePerformance(t)
}

// FilteredAggregation runs FilteredAggregation on the current table.
func (e *Engine) FilteredAggregation(ctx context.Context) []model.CustomerAverage {
	t := e.source.Table()
	defer trace(ctx, "filtered_aggregation", t, time.Now())
	return FilteredAggregation(t)
}

func trace(ctx context.Context, query string, t *model.Table, start time.Time) {
	logger.WithContext(ctx).Debug("query executed",
		zap.String("query", query),
		zap.Int("records", t.Len()),
		zap.String("load_id", t.LoadID()),
		zap.Duration("took", time.Since(start)),
	)
}
