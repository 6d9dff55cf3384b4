package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"weather-pipeline/internal/config"
	"weather-pipeline/internal/models"
	"weather-pipeline/internal/nws"
	"weather-pipeline/internal/repository"
	"weather-pipeline/internal/services"
	"weather-pipeline/pkg/database"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// fetch runs the full pipeline once for a single coordinate, without the
// HTTP server. Useful for smoke tests and backfills.
func main() {
	userID := flag.String("user-id", "cli", "User id recorded with the request")
	lat := flag.Float64("lat", 0, "Latitude")
	lon := flag.Float64("lon", 0, "Longitude")
	flag.Parse()

	if *lat < -90 || *lat > 90 || *lon < -180 || *lon > 180 {
		fmt.Fprintln(os.Stderr, "latitude must be in [-90, 90] and longitude in [-180, 180]")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("weather-fetch", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[FETCH_START] Running one-shot forecast fetch", logging.Fields{
		"user_id":   *userID,
		"latitude":  *lat,
		"longitude": *lon,
	})

	metricsCollector := metrics.NewCollector("weather_fetch")

	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[FETCH_ERROR] Failed to open database", logging.Fields{}, err)
	}
	defer db.Close()

	if err := db.WaitForReady(ctx, cfg.Startup.MaxAttempts, cfg.Startup.RetryDelay); err != nil {
		logger.Fatal(ctx, "[FETCH_ERROR] Database never became ready", logging.Fields{}, err)
	}

	nwsClient := nws.NewClient(nws.Config{
		BaseURL:   cfg.Upstream.BaseURL,
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.Upstream.Timeout,
	}, logger, metricsCollector)

	weatherRepo := repository.NewWeatherRepository(db, logger, metricsCollector)
	forecastService := services.NewForecastService(nwsClient, weatherRepo, logger, metricsCollector)

	summary, err := forecastService.FetchAndStore(ctx, *userID, models.Coordinate{
		Latitude:  *lat,
		Longitude: *lon,
	})
	if err != nil {
		logger.Fatal(ctx, "[FETCH_ERROR] Pipeline failed", logging.Fields{}, err)
	}

	fmt.Printf("request_id=%d hourly_count=%d summary=%q\n",
		summary.RequestID, summary.HourlyCount, summary.ForecastSummary)
}
