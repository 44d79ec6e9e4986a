package airquality

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/i474232898/air-quality-monitor/internal/metrics"
)

// Fetcher abstracts the upstream data source.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (RawTable, error)
}

// Store is the contract the presentation-layer cache must satisfy.
type Store interface {
	Save(city string, table CanonicalTable)
	Get(city string) (CanonicalTable, error)
}

// Service runs the fetch-and-clean pipeline and caches its results.
type Service struct {
	store   Store
	fetcher Fetcher
}

// NewService creates a new Service. store may be nil to disable caching.
func NewService(store Store, fetcher Fetcher) *Service {
	return &Service{
		store:   store,
		fetcher: fetcher,
	}
}

// CityKey returns the canonical key for a city name.
func CityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// Run fetches raw measurements for city and normalizes them. It never reads
// or writes the cache.
func (s *Service) Run(ctx context.Context, city string) (CanonicalTable, error) {
	if s.fetcher == nil {
		return CanonicalTable{}, fmt.Errorf("no fetcher configured")
	}

	raw, err := s.fetcher.Fetch(ctx, city)
	if err != nil {
		var cfgErr *ConfigError
		var upErr *UpstreamError
		switch {
		case errors.As(err, &cfgErr):
			metrics.RecordPipelineOutcome(metrics.OutcomeConfigError)
		case errors.As(err, &upErr):
			metrics.RecordPipelineOutcome(metrics.OutcomeUpstreamError)
		}
		return CanonicalTable{}, err
	}

	table := Clean(raw)
	if table.Empty() {
		metrics.RecordPipelineOutcome(metrics.OutcomeEmpty)
		log.Printf("INFO: no air quality data for %q", city)
	} else {
		metrics.RecordPipelineOutcome(metrics.OutcomeData)
		log.Printf("DEBUG: cleaned %d of %d raw rows for %q", table.Len(), raw.Len(), city)
	}
	return table, nil
}

// Get returns the cached table for city, running the pipeline on a miss.
// Errors are never cached.
func (s *Service) Get(ctx context.Context, city string) (CanonicalTable, error) {
	key := CityKey(city)
	if s.store != nil {
		if table, err := s.store.Get(key); err == nil {
			metrics.RecordCacheLookup(true)
			return table, nil
		}
		metrics.RecordCacheLookup(false)
	}

	table, err := s.Run(ctx, city)
	if err != nil {
		return CanonicalTable{}, err
	}
	if s.store != nil {
		s.store.Save(key, table)
	}
	return table, nil
}
