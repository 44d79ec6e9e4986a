package openaq

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
)

// Strategy is one way of obtaining measurements for a city. Attempt reports
// ok when it produced a usable result; failures are recorded, not returned.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, city string, rec *Recorder) (airquality.RawTable, bool)
}

const (
	defaultSiteLimit    = 5
	defaultLookback     = 24 * time.Hour
	locationsPageLimit  = 1000
	siteMeasureLimit    = 1000
	geocodeRadiusMeters = 25000
)

// SitesStrategy looks up monitoring sites matching the city and queries
// each one's recent measurements.
type SitesStrategy struct {
	client    *Client
	geocoder  Geocoder
	siteLimit int
	lookback  time.Duration
	now       func() time.Time
}

// NewSitesStrategy creates a SitesStrategy. geo may be nil. siteLimit is
// clamped to 1..defaultSiteLimit to keep the per-fetch request count fixed.
func NewSitesStrategy(client *Client, geo Geocoder, siteLimit int, lookback time.Duration) *SitesStrategy {
	if siteLimit <= 0 || siteLimit > defaultSiteLimit {
		siteLimit = defaultSiteLimit
	}
	if lookback <= 0 {
		lookback = defaultLookback
	}
	return &SitesStrategy{
		client:    client,
		geocoder:  geo,
		siteLimit: siteLimit,
		lookback:  lookback,
		now:       time.Now,
	}
}

func (s *SitesStrategy) Name() string { return "sites" }

func (s *SitesStrategy) Attempt(ctx context.Context, city string, rec *Recorder) (airquality.RawTable, bool) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(locationsPageLimit))
	if s.geocoder != nil {
		lat, lon, err := s.geocoder.Coordinates(ctx, city)
		if err != nil {
			log.Printf("openaq: [%s] geocoding failed, searching all sites: %v", rec.TraceID(), err)
		} else {
			params.Set("coordinates", fmt.Sprintf("%.4f,%.4f", lat, lon))
			params.Set("radius", strconv.Itoa(geocodeRadiusMeters))
		}
	}

	sites, err := s.client.Locations(ctx, params)
	rec.Record(s.Name(), endpointLocations, params, err)
	if err != nil {
		return airquality.RawTable{}, false
	}

	var candidates []airquality.Site
	for _, site := range sites {
		if site.Matches(city) {
			candidates = append(candidates, site)
			if len(candidates) == s.siteLimit {
				break
			}
		}
	}
	if len(candidates) == 0 {
		return airquality.RawTable{}, false
	}

	dateFrom := s.now().UTC().Add(-s.lookback).Format(time.RFC3339)
	var records []airquality.RawMeasurement
	for _, site := range candidates {
		params := url.Values{}
		params.Set("locations_id", strconv.FormatInt(site.ID, 10))
		params.Set("date_from", dateFrom)
		params.Set("limit", strconv.Itoa(siteMeasureLimit))

		rows, err := s.client.Measurements(ctx, params)
		rec.Record(s.Name(), endpointMeasurements, params, err)
		if err != nil {
			continue
		}
		for _, r := range rows {
			if v, ok := r["location"]; !ok || v == nil {
				r["location"] = site.Name
			}
			records = append(records, r)
		}
	}

	if len(records) == 0 {
		return airquality.RawTable{}, false
	}
	return airquality.NewRawTable(records), true
}

// DirectStrategy queries measurements directly with progressively simpler
// parameter sets and filters the result by city.
type DirectStrategy struct {
	client   *Client
	lookback time.Duration
	now      func() time.Time
}

// NewDirectStrategy creates a DirectStrategy.
func NewDirectStrategy(client *Client, lookback time.Duration) *DirectStrategy {
	if lookback <= 0 {
		lookback = defaultLookback
	}
	return &DirectStrategy{client: client, lookback: lookback, now: time.Now}
}

func (s *DirectStrategy) Name() string { return "direct" }

// paramSets returns the fallback parameter combinations, most specific first.
func (s *DirectStrategy) paramSets() []url.Values {
	return []url.Values{
		{
			"date_from": {s.now().UTC().Add(-s.lookback).Format(time.RFC3339)},
			"limit":     {"100"},
		},
		{"limit": {"50"}},
		{},
	}
}

func (s *DirectStrategy) Attempt(ctx context.Context, city string, rec *Recorder) (airquality.RawTable, bool) {
	for _, params := range s.paramSets() {
		rows, err := s.client.Measurements(ctx, params)
		rec.Record(s.Name(), endpointMeasurements, params, err)
		if err != nil {
			continue
		}

		table := airquality.NewRawTable(rows)
		if filtered := airquality.FilterByCity(table, city); filtered.Len() > 0 {
			return filtered, true
		}
		return table, true
	}
	return airquality.RawTable{}, false
}
