// Package store persists dataset snapshots and the load history in sqlite.
package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"math"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"campaign-analytics/internal/model"
	apperrors "campaign-analytics/pkg/errors"
)

// Load statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS dataset_loads (
	id TEXT PRIMARY KEY,
	source TEXT,
	status TEXT,
	columns TEXT,
	records_valid INTEGER,
	records_invalid INTEGER,
	error TEXT,
	loaded_at DATETIME
);
CREATE TABLE IF NOT EXISTS dataset_rows (
	load_id TEXT,
	row_index INTEGER,
	customer_id TEXT,
	revenue REAL,
	conversions REAL,
	status TEXT,
	type TEXT,
	category TEXT,
	extra TEXT,
	PRIMARY KEY (load_id, row_index)
);
`

// Store is a sqlite-backed snapshot store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "open snapshot db")
	}
	// sqlite allows a single writer; ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "create snapshot tables")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot records a successful load and replaces the stored rows with t.
// Only the latest snapshot's rows are kept; the load history is kept in full.
func (s *Store) SaveSnapshot(ctx context.Context, stats model.LoadStats, t *model.Table) error {
	columnsJSON, err := json.Marshal(t.Columns())
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStorage, "encode columns")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStorage, "begin snapshot")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dataset_loads (id, source, status, columns, records_valid, records_invalid, error, loaded_at)
		 VALUES (?, ?, ?, ?, ?, ?, '', ?)`,
		stats.LoadID, stats.Source, StatusOK, string(columnsJSON),
		stats.RecordsValid, stats.RecordsInvalid, stats.LoadedAt.UTC()); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStorage, "insert load")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM dataset_rows`); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStorage, "clear previous snapshot")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO dataset_rows (load_id, row_index, customer_id, revenue, conversions, status, type, category, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStorage, "prepare row insert")
	}
	defer stmt.Close()

	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		var extra []byte
		if len(r.Extra) > 0 {
			if extra, err = encodeExtra(r.Extra); err != nil {
				return err
			}
		}
		if _, err := stmt.ExecContext(ctx, stats.LoadID, i, string(r.CustomerID),
			nullable(r.Revenue), nullable(r.Conversions),
			r.Status, r.Type, r.Category, string(extra)); err != nil {
			return apperrors.Wrap(err, apperrors.ErrorTypeStorage, "insert row")
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStorage, "commit snapshot")
	}
	return nil
}

// SaveLoadError records a failed load.
func (s *Store) SaveLoadError(ctx context.Context, loadID, source string, loadErr error) error {
	if loadErr == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dataset_loads (id, source, status, columns, records_valid, records_invalid, error, loaded_at)
		 VALUES (?, ?, ?, '[]', 0, 0, ?, ?)`,
		loadID, source, StatusFailed, loadErr.Error(), time.Now().UTC())
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeStorage, "insert load error")
	}
	return nil
}

// LatestSnapshot returns the most recently saved table.
func (s *Store) LatestSnapshot(ctx context.Context) (*model.Table, error) {
	var (
		loadID, source, columnsJSON string
		loadedAt                    time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, columns, loaded_at FROM dataset_loads
		 WHERE status = ? ORDER BY loaded_at DESC, rowid DESC LIMIT 1`, StatusOK).
		Scan(&loadID, &source, &columnsJSON, &loadedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrorTypeNotFound, "no snapshot stored")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "query latest load")
	}

	var columns []string
	if err := json.Unmarshal([]byte(columnsJSON), &columns); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "decode columns")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT customer_id, revenue, conversions, status, type, category, extra
		 FROM dataset_rows WHERE load_id = ? ORDER BY row_index`, loadID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "query snapshot rows")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			r                    model.Record
			customerID, extra    string
			revenue, conversions sql.NullFloat64
		)
		if err := rows.Scan(&customerID, &revenue, &conversions, &r.Status, &r.Type, &r.Category, &extra); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "scan snapshot row")
		}
		r.CustomerID = model.CustomerID(customerID)
		r.Revenue = fromNullable(revenue)
		r.Conversions = fromNullable(conversions)
		if extra != "" {
			if r.Extra, err = decodeExtra(extra); err != nil {
				return nil, err
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "read snapshot rows")
	}

	return model.NewTable(source, loadID, loadedAt, columns, records), nil
}

// ListLoads returns the most recent loads, newest first.
func (s *Store) ListLoads(ctx context.Context, limit int) ([]model.LoadEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, records_valid, records_invalid, error, loaded_at
		 FROM dataset_loads ORDER BY loaded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "query loads")
	}
	defer rows.Close()

	loads := []model.LoadEntry{}
	for rows.Next() {
		var e model.LoadEntry
		if err := rows.Scan(&e.LoadID, &e.Source, &e.Status, &e.RecordsValid, &e.RecordsInvalid, &e.Error, &e.LoadedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "scan load")
		}
		loads = append(loads, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "read loads")
	}
	return loads, nil
}

// nullable maps NaN to SQL NULL.
func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// encodeExtra serializes extra columns. Non-finite numbers are stored as null.
func encodeExtra(extra map[string]interface{}) ([]byte, error) {
	clean := make(map[string]interface{}, len(extra))
	for k, v := range extra {
		switch f := v.(type) {
		case float64:
			if math.IsNaN(f) || math.IsInf(f, 0) {
				v = nil
			}
		case model.Float:
			if !f.IsFinite() {
				v = nil
			}
		}
		clean[k] = v
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "encode extra columns")
	}
	return b, nil
}

// decodeExtra restores extra columns, keeping integral numbers as int.
func decodeExtra(raw string) (map[string]interface{}, error) {
	var extra map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrorTypeStorage, "decode extra columns")
	}
	for k, v := range extra {
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			extra[k] = int(f)
		}
	}
	return extra, nil
}
