package airquality

import (
	"reflect"
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("time.Parse(%q) error = %v", s, err)
	}
	return ts.UTC()
}

func TestClean_EmptyTable(t *testing.T) {
	got := Clean(EmptyRawTable())

	if got.Len() != 0 {
		t.Fatalf("Clean(empty).Len() = %d, want 0", got.Len())
	}
	if !reflect.DeepEqual(got.Columns, CanonicalColumns) {
		t.Errorf("Clean(empty).Columns = %v, want %v", got.Columns, CanonicalColumns)
	}

	got = Clean(RawTable{})
	if got.Len() != 0 || len(got.Columns) != 5 {
		t.Errorf("Clean(zero value) = %+v, want empty canonical table", got)
	}
}

func TestClean_DeduplicatesKeepingFirst(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25", "value": 12.0, "unit": "µg/m³", "location": "London Westminster"},
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25", "value": 99.0, "unit": "µg/m³", "location": "London Westminster"},
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "no2", "value": 30.0, "unit": "µg/m³", "location": "London Westminster"},
	})

	got := Clean(raw)

	if got.Len() != 2 {
		t.Fatalf("Clean().Len() = %d, want 2", got.Len())
	}
	var pm25 []CanonicalRow
	for _, r := range got.Rows {
		if r.Parameter == "pm25" {
			pm25 = append(pm25, r)
		}
	}
	if len(pm25) != 1 {
		t.Fatalf("pm25 rows = %d, want 1", len(pm25))
	}
	if *pm25[0].Value != 12.0 {
		t.Errorf("pm25 value = %v, want 12 (first occurrence)", *pm25[0].Value)
	}
	if pm25[0].Location != "London Westminster" {
		t.Errorf("pm25 location = %q, want %q", pm25[0].Location, "London Westminster")
	}
}

func TestClean_DeduplicatesMissingTimestampsTogether(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "not a date", "parameter": "pm25", "value": 1.0},
		{"datetime": nil, "parameter": "pm25", "value": 2.0},
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25", "value": 3.0},
	})

	got := Clean(raw)

	if got.Len() != 2 {
		t.Fatalf("Clean().Len() = %d, want 2", got.Len())
	}
	if got.Rows[1].Datetime != nil {
		t.Errorf("last row datetime = %v, want nil", got.Rows[1].Datetime)
	}
	if *got.Rows[1].Value != 1.0 {
		t.Errorf("missing-timestamp row value = %v, want 1", *got.Rows[1].Value)
	}
}

func TestClean_DeduplicatesOnTimestampWithoutParameter(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"date": "2024-01-01 10:00:00", "value": 1.0},
		{"date": "2024-01-01 10:00:00", "value": 2.0},
		{"date": "2024-01-01 11:00:00", "value": 3.0},
	})

	got := Clean(raw)

	if got.Len() != 2 {
		t.Fatalf("Clean().Len() = %d, want 2", got.Len())
	}
}

func TestClean_ImputesMissingValuesWithMean(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25", "value": 10.0},
		{"datetime": "2024-01-01T01:00:00Z", "parameter": "pm25", "value": nil},
		{"datetime": "2024-01-01T02:00:00Z", "parameter": "pm25", "value": 20.0},
	})

	got := Clean(raw)

	if got.Len() != 3 {
		t.Fatalf("Clean().Len() = %d, want 3", got.Len())
	}
	want := []float64{10, 15, 20}
	for i, r := range got.Rows {
		if r.Value == nil {
			t.Fatalf("row %d value is nil", i)
		}
		if *r.Value != want[i] {
			t.Errorf("row %d value = %v, want %v", i, *r.Value, want[i])
		}
	}
}

func TestClean_ImputationPreservesMean(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25", "value": 4.0, "pressure": 1000.0},
		{"datetime": "2024-01-01T01:00:00Z", "parameter": "pm25", "value": "8", "pressure": nil},
		{"datetime": "2024-01-01T02:00:00Z", "parameter": "pm25", "value": "n/a", "pressure": 1010.0},
		{"datetime": "2024-01-01T03:00:00Z", "parameter": "pm25", "pressure": 1020.0},
	})

	got := Clean(raw)

	var sum float64
	for _, r := range got.Rows {
		if r.Value == nil {
			t.Fatalf("value missing after Clean: %+v", r)
		}
		sum += *r.Value
	}
	if mean := sum / float64(got.Len()); mean != 6 {
		t.Errorf("value mean = %v, want 6", mean)
	}

	var psum float64
	for _, r := range got.Rows {
		p, ok := r.Extra["pressure"].(float64)
		if !ok {
			t.Fatalf("pressure missing after Clean: %+v", r.Extra)
		}
		psum += p
	}
	if mean := psum / float64(got.Len()); mean != 1010 {
		t.Errorf("pressure mean = %v, want 1010", mean)
	}
}

func TestClean_FullyMissingValueColumnStaysEmpty(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25"},
		{"datetime": "2024-01-01T01:00:00Z", "parameter": "pm25", "value": nil},
	})

	for _, r := range Clean(raw).Rows {
		if r.Value != nil {
			t.Errorf("value = %v, want nil", *r.Value)
		}
	}
}

func TestClean_SortsAscendingWithMissingLast(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "2024-01-01T02:00:00Z", "parameter": "pm25", "value": 3.0},
		{"datetime": "garbage", "parameter": "o3", "value": 9.0},
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25", "value": 1.0},
		{"datetime": "2024-01-01T01:00:00Z", "parameter": "pm25", "value": 2.0},
	})

	got := Clean(raw)

	want := []float64{1, 2, 3, 9}
	for i, r := range got.Rows {
		if *r.Value != want[i] {
			t.Errorf("row %d value = %v, want %v", i, *r.Value, want[i])
		}
	}
	if got.Rows[3].Datetime != nil {
		t.Errorf("last row datetime = %v, want nil", got.Rows[3].Datetime)
	}
}

func TestClean_NestedShapes(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{
			"date":      map[string]any{"utc": "2024-01-01T01:00:00Z", "local": "2024-01-01T02:00:00+01:00"},
			"parameter": map[string]any{"id": 2.0, "name": "pm25", "units": "µg/m³"},
			"value":     7.5,
			"location":  map[string]any{"name": "Paris Centre", "city": "Paris"},
		},
		{
			"date":      map[string]any{"utc": "2024-01-01T00:00:00Z"},
			"parameter": map[string]any{"id": 2.0, "name": "pm25", "units": "µg/m³"},
			"value":     5.5,
			"location":  map[string]any{"name": "Paris Est", "city": "Paris"},
		},
	})

	got := Clean(raw)

	if got.Len() != 2 {
		t.Fatalf("Clean().Len() = %d, want 2", got.Len())
	}
	first := got.Rows[0]
	if !first.Datetime.Equal(mustTime(t, "2024-01-01T00:00:00Z")) {
		t.Errorf("first datetime = %v, want 2024-01-01T00:00:00Z", first.Datetime)
	}
	if first.Parameter != "pm25" {
		t.Errorf("parameter = %q, want pm25", first.Parameter)
	}
	if first.Unit != "µg/m³" {
		t.Errorf("unit = %q, want µg/m³", first.Unit)
	}
	if first.Location != "Paris Est" {
		t.Errorf("location = %q, want Paris Est", first.Location)
	}
}

func TestClean_CoercesSecondaryDateAliases(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "2024-01-01T00:00:00Z", "dateLocal": "2024-01-01T01:00:00+01:00", "parameter": "pm25", "value": 1.0},
		{"datetime": "2024-01-01T01:00:00Z", "dateLocal": "bad", "parameter": "pm25", "value": 2.0},
	})

	got := Clean(raw)

	local, ok := got.Rows[0].Extra["dateLocal"].(time.Time)
	if !ok {
		t.Fatalf("dateLocal = %T, want time.Time", got.Rows[0].Extra["dateLocal"])
	}
	if !local.Equal(mustTime(t, "2024-01-01T00:00:00Z")) {
		t.Errorf("dateLocal = %v, want 2024-01-01T00:00:00Z", local)
	}
	if v := got.Rows[1].Extra["dateLocal"]; v != nil {
		t.Errorf("unparseable dateLocal = %v, want nil", v)
	}
}

func TestClean_RowWithoutPrimaryFallsBackToOtherAlias(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "2024-01-01T02:00:00Z", "parameter": "pm25", "value": 2.0},
		{"date": map[string]any{"utc": "2024-01-01T01:00:00Z"}, "parameter": "pm25", "value": 1.0},
		{"datetime": nil, "date": "2024-01-01T00:00:00Z", "parameter": "no2", "value": 3.0},
	})

	got := Clean(raw)

	if got.Len() != 3 {
		t.Fatalf("Clean().Len() = %d, want 3", got.Len())
	}
	if got.Rows[0].Datetime == nil || !got.Rows[0].Datetime.Equal(mustTime(t, "2024-01-01T01:00:00Z")) {
		t.Errorf("date-only row datetime = %v, want 2024-01-01T01:00:00Z", got.Rows[0].Datetime)
	}
	if *got.Rows[0].Value != 1 {
		t.Errorf("first row value = %v, want 1", *got.Rows[0].Value)
	}
	// An explicit null under the primary key is a missing timestamp.
	if got.Rows[2].Datetime != nil || got.Rows[2].Parameter != "no2" {
		t.Errorf("last row = %+v, want no2 with nil datetime", got.Rows[2])
	}

	if twice := Clean(got.Raw()); !reflect.DeepEqual(got, twice) {
		t.Errorf("Clean(Clean(x).Raw()) != Clean(x)\nonce:  %+v\ntwice: %+v", got, twice)
	}
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	rec := RawMeasurement{"datetime": "2024-01-01T00:00:00Z", "dateLocal": "2024-01-01", "value": "3"}
	raw := NewRawTable([]RawMeasurement{rec})

	Clean(raw)

	if rec["dateLocal"] != "2024-01-01" || rec["value"] != "3" {
		t.Errorf("input record mutated: %v", rec)
	}
}

func TestClean_Idempotent(t *testing.T) {
	raw := NewRawTable([]RawMeasurement{
		{"datetime": "2024-01-01T02:00:00Z", "parameter": "pm25", "value": 20.0, "unit": "µg/m³", "location": "London Westminster", "dateLocal": "2024-01-01T02:00:00Z", "sensorId": 4.0},
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25", "value": 10.0, "unit": "µg/m³", "location": "London Westminster", "sensorId": nil},
		{"datetime": "2024-01-01T00:00:00Z", "parameter": "pm25", "value": 11.0, "unit": "µg/m³", "location": "London Westminster"},
		{"datetime": "2024-01-01T01:00:00Z", "parameter": "no2", "value": nil, "unit": "µg/m³", "locationName": "London Bloomsbury", "sensorId": 8.0},
		{"datetime": nil, "parameter": "o3", "value": 40.0, "unit": "ppm"},
	})

	once := Clean(raw)
	twice := Clean(once.Raw())

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Clean(Clean(x).Raw()) != Clean(x)\nonce:  %+v\ntwice: %+v", once, twice)
	}
}
