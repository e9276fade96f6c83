package model

import "github.com/goccy/go-json"

// CustomerRate is one entry of the conversion rate listing.
type CustomerRate struct {
	CustomerID     CustomerID `json:"customer_id"`
	ConversionRate Float      `json:"conversion_rate"`
}

// RatedRecord is a full record together with its conversion rate.
// It encodes as a flat object: every column plus conversion_rate.
type RatedRecord struct {
	// Row is the record's position in the table. It is not serialized.
	Row            int
	Record         Record
	ConversionRate float64
}

// MarshalJSON implements json.Marshaler.
func (r RatedRecord) MarshalJSON() ([]byte, error) {
	fields := r.Record.Fields()
	fields["conversion_rate"] = Float(r.ConversionRate)
	return json.Marshal(fields)
}

// ConversionRateReport is the result of the conversion rate query.
// Highest and Lowest are nil when no record has a finite rate.
type ConversionRateReport struct {
	ConversionRates []CustomerRate `json:"conversion_rates"`
	Highest         *RatedRecord   `json:"highest"`
	Lowest          *RatedRecord   `json:"lowest"`
}

// StatusGroup aggregates records sharing status, type and category.
type StatusGroup struct {
	Status           string `json:"status"`
	Type             string `json:"type"`
	Category         string `json:"category"`
	TotalRevenue     Float  `json:"total_revenue"`
	TotalConversions Float  `json:"total_conversions"`
	Count            int    `json:"count"`
}

// StatusTotal aggregates records sharing a status.
type StatusTotal struct {
	Status           string `json:"status"`
	TotalRevenue     Float  `json:"total_revenue"`
	TotalConversions Float  `json:"total_conversions"`
}

// StatusDistributionReport is the result of the status distribution query.
type StatusDistributionReport struct {
	StatusDistribution  []StatusGroup `json:"status_distribution"`
	TotalStatusAnalysis []StatusTotal `json:"total_status_analysis"`
}

// CategoryTypePerformance aggregates records sharing category and type.
type CategoryTypePerformance struct {
	Category         string `json:"category"`
	Type             string `json:"type"`
	TotalRevenue     Float  `json:"total_revenue"`
	TotalConversions Float  `json:"total_conversions"`
}

// TopPerformance is the category/type group with the most conversions.
type TopPerformance struct {
	Category         string `json:"category"`
	Type             string `json:"type"`
	TotalConversions Float  `json:"total_conversions"`
}

// PerformanceReport is the result of the category/type performance query.
// TopPerformance is nil for an empty table.
type PerformanceReport struct {
	Performance    []CategoryTypePerformance `json:"performance"`
	TopPerformance *TopPerformance           `json:"top_performance"`
}

// CustomerAverage holds per-customer means over filtered records.
type CustomerAverage struct {
	CustomerID     CustomerID `json:"customer_id"`
	AvgRevenue     Float      `json:"avg_revenue"`
	AvgConversions Float      `json:"avg_conversions"`
}
