package airquality

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// cleanRow is a record on its way through Clean.
type cleanRow struct {
	rec   RawMeasurement
	ts    *time.Time
	param string
	value *float64
}

// Clean normalizes a raw table into the canonical schema. It never fails:
// cells that cannot be coerced degrade to missing values.
//
// Steps: parse the primary timestamp (per row, falling back to the first
// alias the row carries when it lacks the primary key), drop duplicate (datetime, parameter)
// pairs keeping the first, coerce the remaining date aliases, mean-impute
// numeric columns and sort ascending by timestamp with missing timestamps last.
func Clean(t RawTable) CanonicalTable {
	if t.Len() == 0 {
		return EmptyCanonicalTable()
	}

	primary, hasPrimary := primaryDateAlias(t)
	hasParameter := anyRowHas(t, ColumnParameter)
	field := ResolveLocationField(t)

	rows := make([]cleanRow, 0, t.Len())
	for _, src := range t.Rows {
		rec := make(RawMeasurement, len(src))
		for k, v := range src {
			rec[k] = v
		}
		row := cleanRow{rec: rec, param: parameterCode(rec[ColumnParameter])}
		if hasPrimary {
			if v, ok := rowTimestamp(rec, primary); ok {
				if ts, ok := ParseTimestamp(v); ok {
					row.ts = &ts
				}
			}
		}
		rows = append(rows, row)
	}

	rows = dedupe(rows, hasParameter)

	for _, alias := range DateAliases {
		if hasPrimary && topKey(alias) == topKey(primary) {
			continue
		}
		coerceDateColumn(rows, alias)
	}

	for i := range rows {
		rows[i].value = numericCell(rows[i].rec[ColumnValue], true)
	}
	imputeValues(rows)
	excluded := excludedKeys(field, primary)
	imputeNumericExtras(rows, excluded)

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].ts, rows[j].ts
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})

	out := CanonicalTable{
		Columns: append([]string(nil), CanonicalColumns...),
		Rows:    make([]CanonicalRow, 0, len(rows)),
	}
	for _, r := range rows {
		out.Rows = append(out.Rows, CanonicalRow{
			Datetime:  r.ts,
			Parameter: r.param,
			Value:     r.value,
			Unit:      unitOf(r.rec),
			Location:  locationDisplay(r.rec, field),
			Extra:     extraFields(r.rec, excluded, primary),
		})
	}
	return out
}

// rowTimestamp reads the primary alias from rec. A record without that key
// falls back to the first alias it does carry.
func rowTimestamp(rec RawMeasurement, primary string) (any, bool) {
	if v, ok := lookup(rec, primary); ok {
		return v, true
	}
	for _, alias := range DateAliases {
		if v, ok := lookup(rec, alias); ok {
			return v, true
		}
	}
	return nil, false
}

// dedupe keeps the first row for each (datetime, parameter) key. Missing
// timestamps compare equal to each other.
func dedupe(rows []cleanRow, byParameter bool) []cleanRow {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := "NaT"
		if r.ts != nil {
			key = r.ts.Format(time.RFC3339Nano)
		}
		if byParameter {
			key += "\x00" + r.param
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// coerceDateColumn parses alias in every row that carries it. Unparseable
// cells become nil. Dotted aliases are stored under their flattened name.
func coerceDateColumn(rows []cleanRow, alias string) {
	for i := range rows {
		v, ok := lookup(rows[i].rec, alias)
		if !ok {
			continue
		}
		if ts, ok := ParseTimestamp(v); ok {
			rows[i].rec[alias] = ts
		} else {
			rows[i].rec[alias] = nil
		}
	}
}

// imputeValues fills missing values with the mean of the present ones.
// A column with no present values stays empty.
func imputeValues(rows []cleanRow) {
	var sum float64
	var n int
	for _, r := range rows {
		if r.value != nil {
			sum += *r.value
			n++
		}
	}
	if n == 0 || n == len(rows) {
		return
	}
	mean := sum / float64(n)
	for i := range rows {
		if rows[i].value == nil {
			m := mean
			rows[i].value = &m
		}
	}
}

// imputeNumericExtras mean-imputes every other column whose present cells are
// all numbers.
func imputeNumericExtras(rows []cleanRow, excluded map[string]bool) {
	columns := map[string]bool{}
	for _, r := range rows {
		for k := range r.rec {
			if !excluded[k] {
				columns[k] = true
			}
		}
	}

	for col := range columns {
		var sum float64
		var present, missing int
		numeric := true
		for _, r := range rows {
			v, ok := r.rec[col]
			if !ok || v == nil {
				missing++
				continue
			}
			f := numericCell(v, false)
			if f == nil {
				if isNaN(v) {
					missing++
					continue
				}
				numeric = false
				break
			}
			sum += *f
			present++
		}
		if !numeric || present == 0 || missing == 0 {
			continue
		}
		mean := sum / float64(present)
		for i := range rows {
			v, ok := rows[i].rec[col]
			if !ok || v == nil || isNaN(v) {
				rows[i].rec[col] = mean
			}
		}
	}
}

// numericCell coerces a cell to a finite float. Strings are parsed only when
// parseStrings is set.
func numericCell(v any, parseStrings bool) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		if !parseStrings {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// parameterCode extracts the pollutant code from a string or a nested
// {"name": ...} object.
func parameterCode(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case map[string]any:
		for _, k := range []string{"name", "code", "parameter"} {
			if s := stringify(x[k]); s != "" {
				return s
			}
		}
	}
	return stringify(v)
}

func unitOf(rec RawMeasurement) string {
	for _, k := range []string{"unit", "units"} {
		if s := stringify(rec[k]); s != "" {
			return s
		}
	}
	if obj, ok := rec[ColumnParameter].(map[string]any); ok {
		return stringify(obj["units"])
	}
	return ""
}

// locationDisplay prefers the table's resolved location field and falls back
// to the other known shapes for rows that do not follow it.
func locationDisplay(rec RawMeasurement, field LocationField) string {
	if s := field.Value(rec); s != "" {
		return s
	}
	candidates := []LocationField{
		{Kind: LocationNested, Column: "location", Subfield: "name"},
		{Kind: LocationNested, Column: "location", Subfield: "city"},
		{Kind: LocationFlat, Column: "locationName"},
		{Kind: LocationFlat, Column: "location"},
	}
	for _, c := range candidates {
		if s := c.Value(rec); s != "" {
			return s
		}
	}
	return ""
}

func excludedKeys(field LocationField, primary string) map[string]bool {
	ex := map[string]bool{
		ColumnDatetime:  true,
		ColumnParameter: true,
		ColumnValue:     true,
		ColumnUnit:      true,
		"units":         true,
		ColumnLocation:  true,
		"locationName":  true,
	}
	if field.Column != "" {
		ex[field.Column] = true
	}
	if primary != "" {
		ex[topKey(primary)] = true
	}
	for _, alias := range DateAliases {
		ex[alias] = true
	}
	return ex
}

func extraFields(rec RawMeasurement, excluded map[string]bool, primary string) map[string]any {
	var extra map[string]any
	for k, v := range rec {
		switch {
		case primary != "" && k == topKey(primary):
			continue
		case isDateAlias(k):
		case excluded[k]:
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}

func isDateAlias(k string) bool {
	for _, alias := range DateAliases {
		if alias == k {
			return true
		}
	}
	return false
}

func anyRowHas(t RawTable, key string) bool {
	for _, row := range t.Rows {
		if _, ok := row[key]; ok {
			return true
		}
	}
	return false
}

// topKey returns the record key a dotted alias lives under.
func topKey(alias string) string {
	if i := strings.IndexByte(alias, '.'); i >= 0 {
		return alias[:i]
	}
	return alias
}
