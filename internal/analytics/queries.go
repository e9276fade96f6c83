package analytics

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
)

// ConversionType is the record type kept by FilteredAggregation.
const ConversionType = "CONVERSION"

// ConversionRates computes conversions/revenue for every record.
//
// Rates live in a request-local slice; the table is not modified. Records with
// a non-finite rate (zero revenue or missing values) are listed with a null
// rate and never selected as highest or lowest. Among equal extremal rates the
// first record in table order wins.
func ConversionRates(t *model.Table) model.ConversionRateReport {
	n := t.Len()
	report := model.ConversionRateReport{
		ConversionRates: make([]model.CustomerRate, 0, n),
	}

	hi, lo := -1, -1
	rates := make([]float64, n)
	for i := 0; i < n; i++ {
		rec := t.At(i)
		rate := rec.Conversions / rec.Revenue
		rates[i] = rate
		report.ConversionRates = append(report.ConversionRates, model.CustomerRate{
			CustomerID:     rec.CustomerID,
			ConversionRate: model.Float(rate),
		})

		if math.IsNaN(rate) || math.IsInf(rate, 0) {
			continue
		}
		if hi < 0 || rate > rates[hi] {
			hi = i
		}
		if lo < 0 || rate < rates[lo] {
			lo = i
		}
	}

	if hi >= 0 {
		report.Highest = &model.RatedRecord{Row: hi, Record: t.At(hi), ConversionRate: rates[hi]}
		report.Lowest = &model.RatedRecord{Row: lo, Record: t.At(lo), ConversionRate: rates[lo]}
	}
	return report
}

type statusKey struct {
	status, typ, category string
}

func compareStatusKeys(a, b statusKey) int {
	return cmp.Or(
		strings.Compare(a.status, b.status),
		strings.Compare(a.typ, b.typ),
		strings.Compare(a.category, b.category),
	)
}

// StatusDistribution groups by (status, type, category) and by status alone.
// Both listings are ordered by key, byte-wise.
func StatusDistribution(t *model.Table) model.StatusDistributionReport {
	byGroup := newFold[statusKey]()
	byStatus := newFold[string]()
	for i := 0; i < t.Len(); i++ {
		rec := t.At(i)
		byGroup.add(statusKey{rec.Status, rec.Type, rec.Category}, rec)
		byStatus.add(rec.Status, rec)
	}

	report := model.StatusDistributionReport{
		StatusDistribution:  make([]model.StatusGroup, 0, len(byGroup.keys)),
		TotalStatusAnalysis: make([]model.StatusTotal, 0, len(byStatus.keys)),
	}
	for _, k := range byGroup.sorted(compareStatusKeys) {
		acc := byGroup.get(k)
		report.StatusDistribution = append(report.StatusDistribution, model.StatusGroup{
			Status:           k.status,
			Type:             k.typ,
			Category:         k.category,
			TotalRevenue:     acc.revenue.sum(),
			TotalConversions: acc.conversions.sum(),
			Count:            acc.count,
		})
	}
	for _, k := range byStatus.sorted(strings.Compare) {
		acc := byStatus.get(k)
		report.TotalStatusAnalysis = append(report.TotalStatusAnalysis, model.StatusTotal{
			Status:           k,
			TotalRevenue:     acc.revenue.sum(),
			TotalConversions: acc.conversions.sum(),
		})
	}
	return report
}

type categoryTypeKey struct {
	category, typ string
}

func compareCategoryTypeKeys(a, b categoryTypeKey) int {
	return cmp.Or(
		strings.Compare(a.category, b.category),
		strings.Compare(a.typ, b.typ),
	)
}

// CategoryTypePerformance groups by (category, type) and picks the group with
// the most conversions. Ties go to the smallest (category, type) key.
//
// An empty table yields an empty listing, a nil TopPerformance and an error
// of type empty.
func CategoryTypePerformance(t *model.Table) (model.PerformanceReport, error) {
	groups := newFold[categoryTypeKey]()
	for i := 0; i < t.Len(); i++ {
		rec := t.At(i)
		groups.add(categoryTypeKey{rec.Category, rec.Type}, rec)
	}

	keys := groups.sorted(compareCategoryTypeKeys)
	report := model.PerformanceReport{
		Performance: make([]model.CategoryTypePerformance, 0, len(keys)),
	}
	for _, k := range keys {
		acc := groups.get(k)
		report.Performance = append(report.Performance, model.CategoryTypePerformance{
			Category:         k.category,
			Type:             k.typ,
			TotalRevenue:     acc.revenue.sum(),
			TotalConversions: acc.conversions.sum(),
		})
	}

	if len(keys) == 0 {
		return report, apperrors.New(apperrors.ErrorTypeEmpty, "top performance is undefined for an empty table")
	}

	// keys are already in ascending key order, so a stable sort by
	// descending conversions keeps the smallest key first among ties.
	ranked := slices.Clone(keys)
	slices.SortStableFunc(ranked, func(a, b categoryTypeKey) int {
		return compareDesc(groups.get(a).conversions.sum(), groups.get(b).conversions.sum())
	})
	top := ranked[0]
	report.TopPerformance = &model.TopPerformance{
		Category:         top.category,
		Type:             top.typ,
		TotalConversions: groups.get(top).conversions.sum(),
	}
	return report, nil
}

// compareDesc orders larger values first. NaN sorts last.
func compareDesc(a, b model.Float) int {
	return cmp.Compare(float64(b), float64(a))
}

// FilteredAggregation averages revenue and conversions per customer over the
// records whose type is exactly ConversionType. Integer identifiers are grouped
// by value, so "07" and "7" are one customer. Customers are ordered by
// model.CompareCustomerIDs. No matching record yields an empty slice.
func FilteredAggregation(t *model.Table) []model.CustomerAverage {
	customers := newFold[model.CustomerID]()
	for i := 0; i < t.Len(); i++ {
		rec := t.At(i)
		if rec.Type != ConversionType {
			continue
		}
		customers.add(rec.CustomerID.Canonical(), rec)
	}

	out := make([]model.CustomerAverage, 0, len(customers.keys))
	for _, id := range customers.sorted(model.CompareCustomerIDs) {
		acc := customers.get(id)
		out = append(out, model.CustomerAverage{
			CustomerID:     id,
			AvgRevenue:     acc.revenue.mean(),
			AvgConversions: acc.conversions.mean(),
		})
	}
	return out
}
