package openaq

import (
	"context"
	"fmt"
	"time"

	"github.com/kelvins/geocoder"
)

// Geocoder resolves a city name to coordinates.
type Geocoder interface {
	Coordinates(ctx context.Context, city string) (lat, lon float64, err error)
}

// GoogleGeocoder resolves cities through the Google geocoding API.
type GoogleGeocoder struct {
	timeout time.Duration
	lookup  func(city string) (float64, float64, error)
}

// NewGoogleGeocoder configures the geocoding API key and returns a Geocoder.
// It returns nil when apiKey is empty so callers can skip geocoding.
func NewGoogleGeocoder(apiKey string, timeout time.Duration) Geocoder {
	if apiKey == "" {
		return nil
	}
	geocoder.ApiKey = apiKey
	return newGoogleGeocoder(timeout, googleLookup)
}

func newGoogleGeocoder(timeout time.Duration, lookup func(string) (float64, float64, error)) *GoogleGeocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleGeocoder{timeout: timeout, lookup: lookup}
}

func googleLookup(city string) (float64, float64, error) {
	loc, err := geocoder.Geocoding(geocoder.Address{City: city})
	if err != nil {
		return 0, 0, err
	}
	return loc.Latitude, loc.Longitude, nil
}

type coordinates struct {
	lat, lon float64
	err      error
}

// Coordinates bounds the lookup by the geocoder timeout and ctx. The geocoding
// library uses its own HTTP client without a deadline, so an abandoned lookup
// finishes in the background and its result is dropped.
func (g *GoogleGeocoder) Coordinates(ctx context.Context, city string) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan coordinates, 1)
	go func() {
		lat, lon, err := g.lookup(city)
		done <- coordinates{lat: lat, lon: lon, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return 0, 0, fmt.Errorf("geocode %q: %w", city, res.err)
		}
		return res.lat, res.lon, nil
	case <-ctx.Done():
		return 0, 0, fmt.Errorf("geocode %q: %w", city, ctx.Err())
	}
}
