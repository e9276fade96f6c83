package model

import "time"

// Column names of the campaign dataset.
const (
	ColumnCustomerID  = "customer_id"
	ColumnRevenue     = "revenue"
	ColumnConversions = "conversions"
	ColumnStatus      = "status"
	ColumnType        = "type"
	ColumnCategory    = "category"
)

// RequiredColumns must all be present in a dataset header.
var RequiredColumns = []string{
	ColumnCustomerID,
	ColumnRevenue,
	ColumnConversions,
	ColumnStatus,
	ColumnType,
	ColumnCategory,
}

// Record represents one row of the campaign dataset.
// Missing numeric cells are NaN.
type Record struct {
	CustomerID  CustomerID
	Revenue     float64
	Conversions float64
	Status      string
	Type        string
	Category    string

	// Extra holds any additional columns, parsed as int, float64 or string.
	// Missing cells are nil.
	Extra map[string]interface{}
}

// Fields returns every column of the record keyed by column name.
func (r Record) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, 6+len(r.Extra))
	for k, v := range r.Extra {
		if f, ok := v.(float64); ok {
			v = Float(f)
		}
		fields[k] = v
	}
	fields[ColumnCustomerID] = r.CustomerID
	fields[ColumnRevenue] = Float(r.Revenue)
	fields[ColumnConversions] = Float(r.Conversions)
	fields[ColumnStatus] = r.Status
	fields[ColumnType] = r.Type
	fields[ColumnCategory] = r.Category
	return fields
}

// Table is an ordered, immutable collection of records. It is safe for
// concurrent readers; nothing mutates a Table after NewTable returns.
type Table struct {
	source   string
	loadID   string
	loadedAt time.Time
	columns  []string
	records  []Record
}

// NewTable copies columns and records into a new Table.
func NewTable(source, loadID string, loadedAt time.Time, columns []string, records []Record) *Table {
	t := &Table{
		source:   source,
		loadID:   loadID,
		loadedAt: loadedAt,
		columns:  append([]string(nil), columns...),
		records:  make([]Record, len(records)),
	}
	copy(t.records, records)
	return t
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// At returns the i-th record by value.
func (t *Table) At(i int) Record { return t.records[i] }

// Columns returns the header in source order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Source returns the URL or path the table was loaded from.
func (t *Table) Source() string { return t.source }

// LoadID returns the identifier of the load that produced the table.
func (t *Table) LoadID() string {
	if t == nil {
		return ""
	}
	return t.loadID
}

// LoadedAt returns when the table was loaded.
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// Info summarizes the table for the dataset endpoint.
func (t *Table) Info() TableInfo {
	if t == nil {
		return TableInfo{Columns: []string{}}
	}
	return TableInfo{
		Source:      t.source,
		LoadID:      t.loadID,
		RecordCount: len(t.records),
		Columns:     t.Columns(),
		LoadedAt:    t.loadedAt,
	}
}

// TableInfo describes the table currently served.
type TableInfo struct {
	Source      string    `json:"source"`
	LoadID      string    `json:"load_id"`
	RecordCount int       `json:"record_count"`
	Columns     []string  `json:"columns"`
	LoadedAt    time.Time `json:"loaded_at"`
}
