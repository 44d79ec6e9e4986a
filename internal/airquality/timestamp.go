package airquality

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateAliases are the field names a record may carry a timestamp under, in
// priority order. The first alias present in a table is its primary timestamp.
var DateAliases = []string{
	"datetime",
	"date",
	"date.utc",
	"dateLocal",
	"period.datetimeFrom.utc",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp coerces a cell into a UTC timestamp. It accepts time values,
// strings in the layouts above, nested {"utc", "local"} objects and unix
// seconds. Anything else reports false.
func ParseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		return x.UTC(), true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return ParseTimestamp(*x)
	case string:
		return parseTimestampString(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(x)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	case int64:
		return time.Unix(x, 0).UTC(), true
	case int:
		return time.Unix(int64(x), 0).UTC(), true
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return ParseTimestamp(f)
		}
		return time.Time{}, false
	case map[string]any:
		for _, k := range []string{"utc", "local"} {
			if inner, ok := x[k]; ok {
				if ts, ok := ParseTimestamp(inner); ok {
					return ts, true
				}
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), true
	}
	return time.Time{}, false
}

// primaryDateAlias returns the first alias carried by any row of the table.
func primaryDateAlias(t RawTable) (string, bool) {
	for _, alias := range DateAliases {
		for _, row := range t.Rows {
			if _, ok := lookup(row, alias); ok {
				return alias, true
			}
		}
	}
	return "", false
}
