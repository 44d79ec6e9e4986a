package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
)

// TrendWindow is how far back the trend chart reaches.
const TrendWindow = 24 * time.Hour

const notAvailable = "N/A"

// Summary holds the headline counters of a table.
type Summary struct {
	TotalMeasurements int    `json:"totalMeasurements"`
	Parameters        int    `json:"parameters"`
	LatestUpdate      string `json:"latestUpdate"`
	Locations         int    `json:"locations"`
}

// Highlight is the latest value of one parameter.
type Highlight struct {
	Parameter string  `json:"parameter"`
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Display   string  `json:"display"`
	Unit      string  `json:"unit,omitempty"`
}

// Point is one sample of a trend series.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is the trend of one parameter.
type Series struct {
	Parameter string  `json:"parameter"`
	Unit      string  `json:"unit,omitempty"`
	Points    []Point `json:"points"`
}

// Dashboard is the presentation view of a canonical table.
type Dashboard struct {
	City       string      `json:"city"`
	NoData     bool        `json:"noData"`
	Message    string      `json:"message,omitempty"`
	Summary    Summary     `json:"summary"`
	Highlights []Highlight `json:"highlights"`
	Trend      []Series    `json:"trend"`
}

var labels = map[string]string{
	"pm25": "PM2.5 (μg/m³)",
	"no2":  "NO₂ (μg/m³)",
}

// Build renders the dashboard for city. now anchors the trend window.
func Build(city string, table airquality.CanonicalTable, now time.Time) Dashboard {
	d := Dashboard{
		City:       city,
		Highlights: []Highlight{},
		Trend:      []Series{},
	}
	if table.Empty() {
		d.NoData = true
		d.Message = fmt.Sprintf("No air quality data found for %s. Try a different city or check the API key.", city)
		d.Summary.LatestUpdate = notAvailable
		return d
	}

	d.Summary = summarize(table)
	d.Highlights = highlights(table)
	d.Trend = trend(table, now)
	return d
}

func summarize(table airquality.CanonicalTable) Summary {
	params := map[string]bool{}
	locations := map[string]bool{}
	var latest *time.Time
	for _, r := range table.Rows {
		if r.Parameter != "" {
			params[r.Parameter] = true
		}
		if r.Location != "" {
			locations[r.Location] = true
		}
		if r.Datetime != nil && (latest == nil || r.Datetime.After(*latest)) {
			latest = r.Datetime
		}
	}

	s := Summary{
		TotalMeasurements: table.Len(),
		Parameters:        len(params),
		Locations:         len(locations),
		LatestUpdate:      notAvailable,
	}
	if latest != nil {
		s.LatestUpdate = latest.Format("15:04")
	}
	return s
}

// highlights returns pm25 and no2 followed by at most two other parameters
// taken from the first two distinct parameters of the table.
func highlights(table airquality.CanonicalTable) []Highlight {
	out := []Highlight{}
	for _, p := range []string{"pm25", "no2"} {
		if h, ok := latestOf(table, p); ok {
			out = append(out, h)
		}
	}

	for _, p := range distinctParameters(table, 2) {
		if p == "pm25" || p == "no2" {
			continue
		}
		if h, ok := latestOf(table, p); ok {
			out = append(out, h)
		}
	}
	return out
}

func latestOf(table airquality.CanonicalTable, param string) (Highlight, bool) {
	for i := len(table.Rows) - 1; i >= 0; i-- {
		r := table.Rows[i]
		if r.Parameter != param || r.Value == nil {
			continue
		}
		label, ok := labels[param]
		if !ok {
			label = strings.ToUpper(param)
		}
		return Highlight{
			Parameter: param,
			Label:     label,
			Value:     *r.Value,
			Display:   fmt.Sprintf("%.2f", *r.Value),
			Unit:      r.Unit,
		}, true
	}
	return Highlight{}, false
}

func distinctParameters(table airquality.CanonicalTable, limit int) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range table.Rows {
		if r.Parameter == "" || seen[r.Parameter] {
			continue
		}
		seen[r.Parameter] = true
		out = append(out, r.Parameter)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func trend(table airquality.CanonicalTable, now time.Time) []Series {
	cutoff := now.Add(-TrendWindow)
	index := map[string]int{}
	out := []Series{}
	for _, r := range table.Rows {
		if r.Datetime == nil || r.Value == nil || r.Datetime.Before(cutoff) {
			continue
		}
		i, ok := index[r.Parameter]
		if !ok {
			i = len(out)
			index[r.Parameter] = i
			out = append(out, Series{Parameter: r.Parameter, Unit: r.Unit})
		}
		out[i].Points = append(out[i].Points, Point{Time: *r.Datetime, Value: *r.Value})
	}
	return out
}
