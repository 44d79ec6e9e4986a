package store

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
)

var (
	// ErrNotFound is returned when no fresh table is cached for a city.
	ErrNotFound = errors.New("no cached air quality data for city")
)

// entry is one cached pipeline result.
type entry struct {
	table    airquality.CanonicalTable
	storedAt time.Time
	ttl      time.Duration
}

// MemoryStore is a concurrency-safe in-memory cache of canonical tables,
// keyed by normalized city name.
type MemoryStore struct {
	mu sync.RWMutex

	// key: airquality.CityKey(city)
	data map[string]entry

	// retention configuration
	ttl       time.Duration // how long a table stays fresh
	emptyTTL  time.Duration // how long a zero-row table stays fresh
	maxCities int           // max number of cached cities (0 = unlimited)

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore.
// If ttl is <= 0, entries never expire. Zero-row tables use emptyTTL, capped
// at ttl, so a short upstream outage is not reported as "no data" for long.
// If maxCities is <= 0, it is treated as unlimited.
func NewMemoryStore(ttl, emptyTTL time.Duration, maxCities int) *MemoryStore {
	if ttl > 0 && (emptyTTL <= 0 || emptyTTL > ttl) {
		emptyTTL = ttl
	}
	return &MemoryStore{
		data:      make(map[string]entry),
		ttl:       ttl,
		emptyTTL:  emptyTTL,
		maxCities: maxCities,
		now:       time.Now,
	}
}

// Save stores the table for a city and enforces the city limit by evicting
// the oldest entry.
func (s *MemoryStore) Save(city string, table airquality.CanonicalTable) {
	key := airquality.CityKey(city)

	s.mu.Lock()
	defer s.mu.Unlock()

	ttl := s.ttl
	if table.Empty() {
		ttl = s.emptyTTL
	}
	s.data[key] = entry{table: table, storedAt: s.now(), ttl: ttl}

	for s.maxCities > 0 && len(s.data) > s.maxCities {
		var (
			oldestKey string
			oldest    time.Time
			found     bool
		)
		for k, e := range s.data {
			if !found || e.storedAt.Before(oldest) {
				oldestKey, oldest, found = k, e.storedAt, true
			}
		}
		delete(s.data, oldestKey)
	}
}

// Get returns the cached table for a city if it is still fresh.
func (s *MemoryStore) Get(city string) (airquality.CanonicalTable, error) {
	key := airquality.CityKey(city)

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || s.expired(e) {
		return airquality.CanonicalTable{}, ErrNotFound
	}
	return e.table, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, e := range s.data {
		if s.expired(e) {
			delete(s.data, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached cities, fresh or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) expired(e entry) bool {
	return e.ttl > 0 && s.now().Sub(e.storedAt) >= e.ttl
}
