package export

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
)

func averages() []model.CustomerAverage {
	return []model.CustomerAverage{
		{CustomerID: "1", AvgRevenue: 150, AvgConversions: 15},
		{CustomerID: "C-7", AvgRevenue: model.Float(math.NaN()), AvgConversions: 2.5},
	}
}

func TestFileFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, FileFormat("out/report.CSV"))
	assert.Equal(t, FormatJSON, FileFormat("out/report.json"))
	assert.Equal(t, FormatJSON, FileFormat("out/report"))
}

func TestWriteFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "averages.csv")

	result, err := WriteFile(path, Report{Query: "filtered-aggregation", LoadID: "load-1", Data: averages()})
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, result.Format)
	assert.Equal(t, 2, result.RecordCount)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"customer_id", "avg_revenue", "avg_conversions"},
		{"1", "150", "15"},
		{"C-7", "", "2.5"},
	}, rows)
}

func TestWriteFile_CSVStatusDistribution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.csv")
	rep := model.StatusDistributionReport{
		StatusDistribution: []model.StatusGroup{
			{Status: "OK", Type: "CLICK", Category: "B", TotalRevenue: 50, TotalConversions: 5, Count: 1},
		},
	}

	result, err := WriteFile(path, Report{Query: "status-distribution", Data: rep})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RecordCount)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "status,type,category,total_revenue,total_conversions,count\nOK,CLICK,B,50,5,1\n", string(body))
}

func TestWriteFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "averages.json")

	result, err := WriteFile(path, Report{Query: "filtered-aggregation", LoadID: "load-1", Data: averages()})
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, result.Format)
	assert.Equal(t, 2, result.RecordCount)

	body, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc struct {
		ExportInfo struct {
			Query       string `json:"query"`
			LoadID      string `json:"load_id"`
			RecordCount int    `json:"record_count"`
		} `json:"export_info"`
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "filtered-aggregation", doc.ExportInfo.Query)
	assert.Equal(t, "load-1", doc.ExportInfo.LoadID)
	assert.Equal(t, 2, doc.ExportInfo.RecordCount)
	require.Len(t, doc.Data, 2)
	assert.Nil(t, doc.Data[1]["avg_revenue"])
}

func TestWriteFile_CSVRejectsCombinedReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.csv")

	_, err := WriteFile(path, Report{Query: "all", Data: map[string]interface{}{"filtered-aggregation": averages()}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
