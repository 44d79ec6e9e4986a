package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/air-quality-monitor/internal/airquality"
	"github.com/i474232898/air-quality-monitor/internal/airquality/openaq"
	httpapi "github.com/i474232898/air-quality-monitor/internal/api/http"
	"github.com/i474232898/air-quality-monitor/internal/config"
	"github.com/i474232898/air-quality-monitor/internal/scheduler"
	"github.com/i474232898/air-quality-monitor/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.CredentialErr != nil {
		log.Printf("ERROR: %v; air quality requests will fail until it is fixed", cfg.CredentialErr)
	}

	// Shared HTTP client for outbound OpenAQ calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	client := openaq.NewClient(openaq.Config{
		BaseURL:           cfg.OpenAQBaseURL,
		APIKey:            cfg.OpenAQAPIKey,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.UpstreamRPS,
		HTTPClient:        httpClient,
	})

	// Geocoding is optional and only narrows the locations lookup.
	geo := openaq.NewGoogleGeocoder(cfg.GeocoderAPIKey, cfg.HTTPTimeout)

	fetcher := openaq.NewFetcher(client,
		openaq.NewSitesStrategy(client, geo, cfg.SiteLimit, cfg.Lookback),
		openaq.NewDirectStrategy(client, cfg.Lookback),
	)

	// Short-lived dashboard cache.
	memStore := store.NewMemoryStore(cfg.CacheTTL, cfg.CacheEmptyTTL, cfg.CacheMaxCities)

	service := airquality.NewService(memStore, fetcher)

	// Scheduler that periodically drops expired cache entries.
	sched := scheduler.New(memStore, cfg.CacheSweepInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "air-quality-monitor",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":     "ok",
			"service":    "air-quality-monitor",
			"credential": cfg.CredentialErr == nil,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg.Cities)

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
