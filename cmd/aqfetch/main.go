package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
	"github.com/i474232898/air-quality-monitor/internal/airquality/openaq"
	"github.com/i474232898/air-quality-monitor/internal/config"
	"github.com/i474232898/air-quality-monitor/internal/dashboard"
)

const (
	exitError  = 1
	exitConfig = 2
)

func main() {
	var city = flag.StringP("city", "c", "", "city to fetch air quality data for")
	var format = flag.StringP("format", "f", "csv", "output format: csv or json")
	var timeout = flag.Duration("timeout", 0, "per-request timeout, default from HTTP_TIMEOUT")
	var geocode = flag.Bool("geocode", false, "narrow the site lookup with GOOGLE_GEOCODER_API_KEY")

	flag.Parse()

	if *city == "" {
		flag.Usage()
		log.Fatal("please specify a city")
	}
	if *format != "csv" && *format != "json" {
		flag.Usage()
		log.Fatalf("unknown format %q", *format)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.CredentialErr != nil {
		log.Print(cfg.CredentialErr)
		os.Exit(exitConfig)
	}
	if *timeout > 0 {
		cfg.HTTPTimeout = *timeout
	}

	client := openaq.NewClient(openaq.Config{
		BaseURL:           cfg.OpenAQBaseURL,
		APIKey:            cfg.OpenAQAPIKey,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.UpstreamRPS,
	})
	var geo openaq.Geocoder
	if *geocode {
		geo = openaq.NewGoogleGeocoder(cfg.GeocoderAPIKey, cfg.HTTPTimeout)
	}
	fetcher := openaq.NewFetcher(client,
		openaq.NewSitesStrategy(client, geo, cfg.SiteLimit, cfg.Lookback),
		openaq.NewDirectStrategy(client, cfg.Lookback),
	)

	// No store: every invocation runs the pipeline.
	service := airquality.NewService(nil, fetcher)

	ctx, cancel := context.WithTimeout(context.Background(), 12*cfg.HTTPTimeout)
	defer cancel()

	table, err := service.Run(ctx, *city)
	if err != nil {
		log.Print(err)
		var cfgErr *airquality.ConfigError
		if errors.As(err, &cfgErr) {
			os.Exit(exitConfig)
		}
		os.Exit(exitError)
	}

	if table.Empty() {
		fmt.Fprintf(os.Stderr, "no air quality data found for %s\n", *city)
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(struct {
			City      string                    `json:"city"`
			FetchedAt time.Time                 `json:"fetchedAt"`
			Dashboard dashboard.Dashboard       `json:"dashboard"`
			Table     airquality.CanonicalTable `json:"table"`
		}{
			City:      *city,
			FetchedAt: time.Now().UTC(),
			Dashboard: dashboard.Build(*city, table, time.Now().UTC()),
			Table:     table,
		})
	default:
		err = dashboard.WriteCSV(os.Stdout, table)
	}
	if err != nil {
		log.Print(err)
		os.Exit(exitError)
	}
}
