package airquality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/i474232898/air-quality-monitor/internal/common"
)

// LocationKind tags how a table represents the location of a record.
type LocationKind int

const (
	// LocationAbsent means no location-bearing field exists.
	LocationAbsent LocationKind = iota
	// LocationNested means the location is an object with a name or city field.
	LocationNested
	// LocationFlat means the location is a plain string column.
	LocationFlat
)

func (k LocationKind) String() string {
	switch k {
	case LocationNested:
		return "nested"
	case LocationFlat:
		return "flat"
	default:
		return "absent"
	}
}

// LocationField describes where a table keeps its location signal.
// It is resolved once per table and then applied to each row.
type LocationField struct {
	Kind     LocationKind
	Column   string
	Subfield string
}

// ResolveLocationField inspects the table and picks the location field in
// priority order: nested location.name / location.city, flat locationName,
// flat location.
func ResolveLocationField(t RawTable) LocationField {
	if t.HasColumn("location") {
		for _, row := range t.Rows {
			obj, ok := row["location"].(map[string]any)
			if !ok {
				continue
			}
			if _, ok := obj["name"]; ok {
				return LocationField{Kind: LocationNested, Column: "location", Subfield: "name"}
			}
			if _, ok := obj["city"]; ok {
				return LocationField{Kind: LocationNested, Column: "location", Subfield: "city"}
			}
			break
		}
	}
	if t.HasColumn("locationName") {
		return LocationField{Kind: LocationFlat, Column: "locationName"}
	}
	if t.HasColumn("location") {
		return LocationField{Kind: LocationFlat, Column: "location"}
	}
	return LocationField{Kind: LocationAbsent}
}

// Value extracts the location display string from a record. Records that do
// not match the resolved shape yield "".
func (f LocationField) Value(rec RawMeasurement) string {
	switch f.Kind {
	case LocationNested:
		obj, ok := rec[f.Column].(map[string]any)
		if !ok {
			return ""
		}
		return stringify(obj[f.Subfield])
	case LocationFlat:
		return stringify(rec[f.Column])
	default:
		return ""
	}
}

// FilterByCity keeps rows whose location contains city, ignoring case.
// A table without a location signal is returned as is.
func FilterByCity(t RawTable, city string) RawTable {
	field := ResolveLocationField(t)
	if field.Kind == LocationAbsent || t.Len() == 0 {
		return t
	}

	rows := make([]RawMeasurement, 0, t.Len())
	for _, row := range t.Rows {
		if common.ContainsFold(field.Value(row), city) {
			rows = append(rows, row)
		}
	}
	return RawTable{Columns: t.Columns, Rows: rows}
}

// lookup resolves a field by literal key first, then as a dotted path through
// nested objects ("date.utc").
func lookup(rec RawMeasurement, key string) (any, bool) {
	if v, ok := rec[key]; ok {
		return v, true
	}
	if !strings.Contains(key, ".") {
		return nil, false
	}
	parts := strings.Split(key, ".")
	var cur any = map[string]any(rec)
	for _, p := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// stringify renders scalar cells as text; nil and nested values become "".
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%g", x)
	case bool, int, int64:
		return fmt.Sprint(x)
	default:
		return ""
	}
}

func sortedKeys(rec RawMeasurement) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
