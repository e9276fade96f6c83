// Package export writes query results to CSV or JSON files.
package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
)

// File formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Report is one query result to export.
type Report struct {
	Query  string
	LoadID string
	Data   interface{}
}

// Result describes a finished export.
type Result struct {
	Format      string    `json:"format"`
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	ExportedAt  time.Time `json:"exported_at"`
}

// FileFormat determines the export format from the file extension.
// Unknown extensions default to JSON.
func FileFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	default:
		return FormatJSON
	}
}

// WriteFile exports rep to path, creating parent directories as needed.
func WriteFile(path string, rep Report) (Result, error) {
	result := Result{Format: FileFormat(path), Path: path}

	var rows [][]string
	if result.Format == FormatCSV {
		var err error
		if rows, err = csvRows(rep.Data); err != nil {
			return result, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return result, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "create export directory")
	}
	file, err := os.Create(path)
	if err != nil {
		return result, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "create export file")
	}
	defer file.Close()

	result.ExportedAt = time.Now().UTC()

	switch result.Format {
	case FormatCSV:
		writer := csv.NewWriter(file)
		if err := writer.WriteAll(rows); err != nil {
			return result, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "write CSV export")
		}
		result.RecordCount = len(rows) - 1
	default:
		result.RecordCount = recordCount(rep.Data)
		encoder := json.NewEncoder(file)
		encoder.SetIndent("", "  ")
		envelope := map[string]interface{}{
			"export_info": map[string]interface{}{
				"query":        rep.Query,
				"load_id":      rep.LoadID,
				"exported_at":  result.ExportedAt,
				"record_count": result.RecordCount,
			},
			"data": rep.Data,
		}
		if err := encoder.Encode(envelope); err != nil {
			return result, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "encode JSON export")
		}
	}

	if err := file.Close(); err != nil {
		return result, apperrors.Wrap(err, apperrors.ErrorTypeInternal, "close export file")
	}
	return result, nil
}

// csvRows flattens a tabular query result into a header plus rows.
func csvRows(data interface{}) ([][]string, error) {
	switch v := data.(type) {
	case model.ConversionRateReport:
		rows := [][]string{{"customer_id", "conversion_rate"}}
		for _, r := range v.ConversionRates {
			rows = append(rows, []string{string(r.CustomerID), formatFloat(r.ConversionRate)})
		}
		return rows, nil

	case model.StatusDistributionReport:
		rows := [][]string{{"status", "type", "category", "total_revenue", "total_conversions", "count"}}
		for _, g := range v.StatusDistribution {
			rows = append(rows, []string{
				g.Status, g.Type, g.Category,
				formatFloat(g.TotalRevenue), formatFloat(g.TotalConversions), strconv.Itoa(g.Count),
			})
		}
		return rows, nil

	case model.PerformanceReport:
		rows := [][]string{{"category", "type", "total_revenue", "total_conversions"}}
		for _, p := range v.Performance {
			rows = append(rows, []string{p.Category, p.Type, formatFloat(p.TotalRevenue), formatFloat(p.TotalConversions)})
		}
		return rows, nil

	case []model.CustomerAverage:
		rows := [][]string{{"customer_id", "avg_revenue", "avg_conversions"}}
		for _, a := range v {
			rows = append(rows, []string{string(a.CustomerID), formatFloat(a.AvgRevenue), formatFloat(a.AvgConversions)})
		}
		return rows, nil

	default:
		return nil, apperrors.Newf(apperrors.ErrorTypeValidation, "CSV export is not supported for %T", data)
	}
}

func recordCount(data interface{}) int {
	switch v := data.(type) {
	case model.ConversionRateReport:
		return len(v.ConversionRates)
	case model.StatusDistributionReport:
		return len(v.StatusDistribution)
	case model.PerformanceReport:
		return len(v.Performance)
	case []model.CustomerAverage:
		return len(v)
	case map[string]interface{}:
		n := 0
		for _, inner := range v {
			n += recordCount(inner)
		}
		return n
	default:
		return 0
	}
}

// formatFloat renders non-finite values as an empty cell.
func formatFloat(f model.Float) string {
	if !f.IsFinite() {
		return ""
	}
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}
