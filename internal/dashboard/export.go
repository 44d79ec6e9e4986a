package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
)

// ExportFilename returns the download name of a table exported on day now.
func ExportFilename(city string, now time.Time) string {
	name := strings.Join(strings.Fields(city), "_")
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("air_quality_%s_%s.csv", name, now.Format("20060102"))
}

// WriteCSV writes the canonical columns of table as CSV with a header row.
func WriteCSV(w io.Writer, table airquality.CanonicalTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(airquality.CanonicalColumns); err != nil {
		return err
	}

	for _, r := range table.Rows {
		record := []string{"", r.Parameter, "", r.Unit, r.Location}
		if r.Datetime != nil {
			record[0] = r.Datetime.UTC().Format(time.RFC3339)
		}
		if r.Value != nil {
			record[2] = strconv.FormatFloat(*r.Value, 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
