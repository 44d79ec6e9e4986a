package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// OpenAQAPIKey is the resolved upstream credential. It is empty when
	// CredentialErr is set.
	OpenAQAPIKey  string
	CredentialErr error

	OpenAQBaseURL string

	// HTTPTimeout bounds every upstream request.
	HTTPTimeout time.Duration

	// UpstreamRPS spaces sequential upstream requests (0 = no spacing).
	UpstreamRPS float64

	// SiteLimit caps the number of sites queried per fetch (at most 5).
	SiteLimit int

	// Lookback is the measurement window requested from the API.
	Lookback time.Duration

	// GeocoderAPIKey enables coordinate-based site lookup when set.
	GeocoderAPIKey string

	// Dashboard cache.
	CacheTTL           time.Duration
	CacheEmptyTTL      time.Duration
	CacheMaxCities     int
	CacheSweepInterval time.Duration

	// Cities offered by the dashboard.
	Cities []string

	Port string
}

// Load reads configuration from environment with sensible defaults.
// A missing credential is not an error here; it is reported through
// CredentialErr so the server can start and explain the problem per request.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenAQAPIKey, cfg.CredentialErr = ResolveAPIKey(DefaultCredentialSources()...)
	cfg.OpenAQBaseURL = getenvDefault("OPENAQ_BASE_URL", "https://api.openaq.org")
	cfg.GeocoderAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.Lookback, err = getenvDuration("LOOKBACK", "24h"); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getenvDuration("CACHE_TTL", "5m"); err != nil {
		return nil, err
	}
	if cfg.CacheEmptyTTL, err = getenvDuration("CACHE_EMPTY_TTL", "30s"); err != nil {
		return nil, err
	}
	if cfg.CacheSweepInterval, err = getenvDuration("CACHE_SWEEP_INTERVAL", "1m"); err != nil {
		return nil, err
	}

	cfg.UpstreamRPS = getenvFloat("UPSTREAM_RPS", 5)
	cfg.SiteLimit = getenvInt("SITE_LIMIT", 5)
	if cfg.SiteLimit < 1 || cfg.SiteLimit > 5 {
		log.Printf("INFO: SITE_LIMIT %d out of range 1-5; using 5", cfg.SiteLimit)
		cfg.SiteLimit = 5
	}
	cfg.CacheMaxCities = getenvInt("CACHE_MAX_CITIES", 64)
	cfg.Port = getenvDefault("PORT", "8080")

	cities, err := LoadCities(os.Getenv("CITIES_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Cities = cities

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
