package openaq

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/i474232898/air-quality-monitor/internal/airquality"
)

// Fetcher runs an ordered list of strategies until one yields data.
type Fetcher struct {
	client     *Client
	strategies []Strategy
}

// NewFetcher creates a Fetcher. Without explicit strategies it runs the
// sites lookup followed by the direct query.
func NewFetcher(client *Client, strategies ...Strategy) *Fetcher {
	if len(strategies) == 0 {
		strategies = []Strategy{
			NewSitesStrategy(client, nil, defaultSiteLimit, defaultLookback),
			NewDirectStrategy(client, defaultLookback),
		}
	}
	return &Fetcher{client: client, strategies: strategies}
}

// Fetch returns raw measurements for city.
//
// It fails with *airquality.ConfigError before any request when the
// credential is unusable, and with *airquality.UpstreamError when the last
// fallback request was rejected as invalid. Every other failure degrades to
// an empty table.
func (f *Fetcher) Fetch(ctx context.Context, city string) (airquality.RawTable, error) {
	if err := airquality.ValidateCredential(f.client.APIKey()); err != nil {
		return airquality.RawTable{}, err
	}

	rec := NewRecorder(uuid.NewString())
	log.Printf("DEBUG: openaq: [%s] fetching measurements for %q with %d strategies", rec.TraceID(), city, len(f.strategies))

	for _, s := range f.strategies {
		if ctx.Err() != nil {
			break
		}
		table, ok := s.Attempt(ctx, city, rec)
		if !ok {
			continue
		}
		log.Printf("INFO: openaq: [%s] strategy %s returned %d rows for %q", rec.TraceID(), s.Name(), table.Len(), city)
		if table.Len() == 0 {
			return airquality.EmptyRawTable(), nil
		}
		return table, nil
	}

	last, statusErr, ok := rec.Last()
	if ok && statusErr != nil && statusErr.StatusCode == http.StatusUnprocessableEntity {
		err := &airquality.UpstreamError{
			TraceID:    rec.TraceID(),
			StatusCode: statusErr.StatusCode,
			Message:    statusErr.Message,
			Params:     last.Params,
			Body:       statusErr.Body,
			Attempts:   rec.Attempts(),
		}
		log.Printf("ERROR: openaq: [%s] %v", rec.TraceID(), err)
		return airquality.RawTable{}, err
	}

	for _, a := range rec.Attempts() {
		log.Printf("INFO: openaq: [%s] no data: %s", rec.TraceID(), a)
	}
	return airquality.EmptyRawTable(), nil
}
