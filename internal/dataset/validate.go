package dataset

import (
	"fmt"
	"strings"

	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
	"campaign-analytics/pkg/utils"
)

// validateHeader checks that every required column is present and returns the
// position of each column. The first occurrence of a duplicated name wins.
func validateHeader(headers []string) (map[string]int, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range model.RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Newf(apperrors.ErrorTypeValidation,
			"missing required column(s): %s", strings.Join(missing, ", ")).
			WithDetail("columns", headers)
	}
	return index, nil
}

// buildRecord converts one CSV row into a Record.
func buildRecord(index map[string]int, headers []string, row []string) (model.Record, error) {
	cell := func(col string) string { return row[index[col]] }

	var rec model.Record
	var err error
	if rec.Revenue, err = parseNumeric(model.ColumnRevenue, cell(model.ColumnRevenue)); err != nil {
		return rec, err
	}
	if rec.Conversions, err = parseNumeric(model.ColumnConversions, cell(model.ColumnConversions)); err != nil {
		return rec, err
	}

	rec.CustomerID = model.NewCustomerID(cell(model.ColumnCustomerID))
	rec.Status = cell(model.ColumnStatus)
	rec.Type = cell(model.ColumnType)
	rec.Category = cell(model.ColumnCategory)

	for i, h := range headers {
		if index[h] != i || isRequired(h) {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]interface{})
		}
		rec.Extra[h] = utils.ParseValue(row[i])
	}
	return rec, nil
}

func isRequired(col string) bool {
	for _, c := range model.RequiredColumns {
		if c == col {
			return true
		}
	}
	return false
}

func parseNumeric(col, raw string) (float64, error) {
	v, err := utils.ParseNumber(raw)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrorTypeValidation,
			fmt.Sprintf("field %s must be numeric, got %q", col, raw))
	}
	return v, nil
}
