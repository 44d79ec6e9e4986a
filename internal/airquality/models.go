package airquality

import (
	"time"

	"github.com/i474232898/air-quality-monitor/internal/common"
)

// Canonical column names, in output order.
const (
	ColumnDatetime  = "datetime"
	ColumnParameter = "parameter"
	ColumnValue     = "value"
	ColumnUnit      = "unit"
	ColumnLocation  = "location"
)

// CanonicalColumns is the fixed column set of every CanonicalTable.
var CanonicalColumns = []string{
	ColumnDatetime,
	ColumnParameter,
	ColumnValue,
	ColumnUnit,
	ColumnLocation,
}

// RawMeasurement is one record as returned by the upstream API.
// No fixed schema is guaranteed.
type RawMeasurement map[string]any

// RawTable is API-response-shaped tabular data with a heterogeneous column set.
type RawTable struct {
	Columns []string         `json:"columns"`
	Rows    []RawMeasurement `json:"rows"`
}

// NewRawTable builds a table from decoded records. Columns are listed in
// first-seen order across all records.
func NewRawTable(records []RawMeasurement) RawTable {
	seen := make(map[string]bool)
	var columns []string
	for _, rec := range records {
		for _, k := range sortedKeys(rec) {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	if records == nil {
		records = []RawMeasurement{}
	}
	return RawTable{Columns: columns, Rows: records}
}

// EmptyRawTable returns a zero-row table carrying the canonical column names.
func EmptyRawTable() RawTable {
	return RawTable{
		Columns: append([]string(nil), CanonicalColumns...),
		Rows:    []RawMeasurement{},
	}
}

// Len returns the number of rows.
func (t RawTable) Len() int { return len(t.Rows) }

// HasColumn reports whether the table carries the named column.
func (t RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append returns a table holding the rows of both tables.
func (t RawTable) Append(other RawTable) RawTable {
	rows := make([]RawMeasurement, 0, len(t.Rows)+len(other.Rows))
	rows = append(rows, t.Rows...)
	rows = append(rows, other.Rows...)
	return NewRawTable(rows)
}

// Site is a monitoring location returned by the locations lookup.
type Site struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Locality string `json:"locality"`
}

// Matches reports whether the site's name or locality contains city,
// ignoring case.
func (s Site) Matches(city string) bool {
	return common.ContainsFold(s.Name, city) || common.ContainsFold(s.Locality, city)
}

// CanonicalRow is one normalized measurement.
// A nil Datetime marks a missing or unparseable timestamp. Value is nil only
// when the whole value column was missing.
type CanonicalRow struct {
	Datetime  *time.Time `json:"datetime"`
	Parameter string     `json:"parameter"`
	Value     *float64   `json:"value"`
	Unit      string     `json:"unit"`
	Location  string     `json:"location"`

	// Extra holds the record's other normalized fields (secondary date
	// aliases, imputed numeric columns, pass-through values).
	Extra map[string]any `json:"extra,omitempty"`
}

// CanonicalTable is the fixed five-column output of the pipeline.
type CanonicalTable struct {
	Columns []string       `json:"columns"`
	Rows    []CanonicalRow `json:"rows"`
}

// EmptyCanonicalTable returns a zero-row table with the canonical columns.
func EmptyCanonicalTable() CanonicalTable {
	return CanonicalTable{
		Columns: append([]string(nil), CanonicalColumns...),
		Rows:    []CanonicalRow{},
	}
}

// Len returns the number of rows.
func (t CanonicalTable) Len() int { return len(t.Rows) }

// Empty reports whether the table holds no rows.
func (t CanonicalTable) Empty() bool { return len(t.Rows) == 0 }

// Raw converts the table back into raw records so it can be fed through
// Clean again.
func (t CanonicalTable) Raw() RawTable {
	rows := make([]RawMeasurement, 0, len(t.Rows))
	for _, r := range t.Rows {
		rec := make(RawMeasurement, len(r.Extra)+len(CanonicalColumns))
		for k, v := range r.Extra {
			rec[k] = v
		}
		rec[ColumnParameter] = r.Parameter
		rec[ColumnUnit] = r.Unit
		rec[ColumnLocation] = r.Location
		if r.Datetime != nil {
			rec[ColumnDatetime] = *r.Datetime
		} else {
			rec[ColumnDatetime] = nil
		}
		if r.Value != nil {
			rec[ColumnValue] = *r.Value
		} else {
			rec[ColumnValue] = nil
		}
		rows = append(rows, rec)
	}
	return NewRawTable(rows)
}
