// Package dataset acquires the campaign CSV and turns it into a model.Table.
package dataset

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
	"campaign-analytics/pkg/logger"
	"campaign-analytics/pkg/utils"
)

// IsRemote reports whether source is fetched over HTTP.
func IsRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Fetch opens source, an HTTP(S) URL or a local path. The caller closes the
// returned reader.
//
// Transport failures and 5xx responses are connection errors (retryable);
// 4xx responses and missing files are not_found errors.
func Fetch(ctx context.Context, client *http.Client, source string) (io.ReadCloser, error) {
	if source == "" {
		return nil, apperrors.New(apperrors.ErrorTypeConfig, "dataset source is empty")
	}

	if !IsRemote(source) {
		file, err := os.Open(source)
		if err != nil {
			if stderrors.Is(err, os.ErrNotExist) {
				return nil, apperrors.Wrap(err, apperrors.ErrorTypeNotFound, "open CSV file")
			}
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeData, "open CSV file")
		}
		return file, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeConfig, "build CSV request")
	}
	req.Header.Set("Accept", "text/csv, */*")

	resp, err := client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeTimeout, "GET CSV")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeConnection, "GET CSV")
	}

	switch {
	case resp.StatusCode >= 500:
		resp.Body.Close()
		return nil, apperrors.Newf(apperrors.ErrorTypeConnection, "GET CSV: unexpected status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		resp.Body.Close()
		return nil, apperrors.Newf(apperrors.ErrorTypeNotFound, "GET CSV: unexpected status %d", resp.StatusCode)
	case resp.StatusCode >= 300:
		resp.Body.Close()
		return nil, apperrors.Newf(apperrors.ErrorTypeData, "GET CSV: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// Parse reads a CSV document into a Table.
//
// The header must contain every model.RequiredColumns entry. Rows with the
// wrong number of fields or with unparsable numeric cells are skipped and
// counted as invalid. Empty numeric cells are kept as NaN.
func Parse(ctx context.Context, r io.Reader, source, loadID string) (*model.Table, model.LoadStats, error) {
	start := time.Now()
	stats := model.LoadStats{LoadID: loadID, Source: source, Origin: model.OriginSource}
	log := logger.WithContext(ctx)

	csvReader := csv.NewReader(r)
	csvReader.LazyQuotes = true
	csvReader.ReuseRecord = true

	raw, err := csvReader.Read()
	if err == io.EOF {
		return nil, stats, apperrors.New(apperrors.ErrorTypeValidation, "CSV has no header")
	}
	if err != nil {
		return nil, stats, apperrors.Wrap(err, apperrors.ErrorTypeData, "failed to read CSV header")
	}

	headers := make([]string, len(raw))
	for i, h := range raw {
		headers[i] = utils.CleanHeader(h)
	}
	index, err := validateHeader(headers)
	if err != nil {
		return nil, stats, err
	}

	var records []model.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, stats, apperrors.Wrap(err, apperrors.ErrorTypeTimeout, "parse CSV")
		}

		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !stderrors.As(err, &parseErr) {
				return nil, stats, apperrors.Wrap(err, apperrors.ErrorTypeConnection, "read CSV body")
			}
			stats.RecordsRead++
			stats.RecordsInvalid++
			log.Warn("skipping malformed CSV row", zap.Int("line", parseErr.Line), zap.Error(err))
			continue
		}
		stats.RecordsRead++

		rec, err := buildRecord(index, headers, row)
		if err != nil {
			stats.RecordsInvalid++
			if stats.RecordsInvalid <= 5 {
				line, _ := csvReader.FieldPos(0)
				log.Warn("skipping invalid CSV row", zap.Int("line", line), zap.Error(err))
			}
			continue
		}
		records = append(records, rec)
	}

	stats.RecordsValid = len(records)
	stats.LoadedAt = time.Now().UTC()
	stats.Duration = time.Since(start)

	log.Info("CSV parsed",
		zap.String("source", source),
		zap.Int("records_read", stats.RecordsRead),
		zap.Int("records_valid", stats.RecordsValid),
		zap.Int("records_invalid", stats.RecordsInvalid),
		zap.Duration("took", stats.Duration),
	)

	return model.NewTable(source, loadID, stats.LoadedAt, headers, records), stats, nil
}

// ParseString is a convenience wrapper around Parse for in-memory CSV.
func ParseString(csvText, source, loadID string) (*model.Table, model.LoadStats, error) {
	return Parse(context.Background(), strings.NewReader(csvText), source, loadID)
}
