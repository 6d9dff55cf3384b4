package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"

	"weather-pipeline/internal/enrich"
	"weather-pipeline/internal/models"
	"weather-pipeline/internal/nws"
	"weather-pipeline/internal/repository"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// ForecastProvider abstracts the upstream weather API so test doubles can
// stand in for the real client.
type ForecastProvider interface {
	ResolvePoint(ctx context.Context, coord models.Coordinate) (*nws.GridPoint, error)
	GetForecast(ctx context.Context, url string) ([]models.ForecastPeriod, models.Coordinate, error)
	GetHourlyForecast(ctx context.Context, url string) ([]models.ForecastPeriod, error)
}

var (
	// ErrNoCurrentData means the upstream answered but returned no current
	// forecast periods.
	ErrNoCurrentData = errors.New("no current forecast period available")

	// ErrNoHourlyData means the upstream answered but returned no hourly
	// forecast periods.
	ErrNoHourlyData = errors.New("no hourly forecast period available")
)

// StoreError wraps a persistence failure. The transaction has been rolled
// back; nothing was committed.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) IsTransient() bool {
	return true
}

// ForecastSummary is the caller-visible result of a successful request.
type ForecastSummary struct {
	RequestID       int64  `json:"request_id"`
	ForecastSummary string `json:"forecast_summary"`
	HourlyCount     int    `json:"hourly_count"`
}

// ForecastService orchestrates one weather request end to end: resolve the
// gridpoint, fetch current and hourly forecasts, enrich, persist atomically.
type ForecastService struct {
	provider ForecastProvider
	repo     repository.WeatherRepository
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewForecastService creates a new forecast service
func NewForecastService(provider ForecastProvider, repo repository.WeatherRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ForecastService {
	return &ForecastService{
		provider: provider,
		repo:     repo,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// FetchAndStore runs the full pipeline for one coordinate. Every failure is
// logged here with the failing stage; callers receive the error for status
// mapping but surface only a generic message.
func (s *ForecastService) FetchAndStore(ctx context.Context, userID string, coord models.Coordinate) (*ForecastSummary, error) {
	s.logger.Info(ctx, "[PIPELINE_START] Weather request received", logging.Fields{
		"user_id":   userID,
		"latitude":  coord.Latitude,
		"longitude": coord.Longitude,
	})

	grid, err := s.provider.ResolvePoint(ctx, coord)
	if err != nil {
		s.logFailure(ctx, "resolve_gridpoint", userID, coord, err)
		return nil, err
	}

	currentPeriods, gridCenter, err := s.provider.GetForecast(ctx, grid.ForecastURL)
	if err != nil {
		s.logFailure(ctx, "fetch_current", userID, coord, err)
		return nil, err
	}
	if len(currentPeriods) == 0 {
		s.logFailure(ctx, "fetch_current", userID, coord, ErrNoCurrentData)
		return nil, ErrNoCurrentData
	}

	hourlyPeriods, err := s.provider.GetHourlyForecast(ctx, grid.HourlyForecastURL)
	if err != nil {
		s.logFailure(ctx, "fetch_hourly", userID, coord, err)
		return nil, err
	}
	if len(hourlyPeriods) == 0 {
		s.logFailure(ctx, "fetch_hourly", userID, coord, ErrNoHourlyData)
		return nil, ErrNoHourlyData
	}

	enrichStart := time.Now()
	enriched := enrich.EnrichHourly(hourlyPeriods, coord, gridCenter)
	s.metrics.EnrichmentDuration.Observe(time.Since(enrichStart).Seconds())

	req := &models.WeatherRequest{
		UserID:    userID,
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		CreatedAt: time.Now().UTC(),
	}

	current := buildCurrentRow(currentPeriods[0])
	hourlyRows := buildHourlyRows(enriched)

	requestID, err := s.repo.SaveForecast(ctx, req, current, hourlyRows)
	if err != nil {
		storeErr := &StoreError{Err: err}
		s.logFailure(ctx, "persist", userID, coord, storeErr)
		return nil, storeErr
	}

	ctx = logging.ContextWithRequestID(ctx, requestID)
	s.logger.Info(ctx, "[PIPELINE_COMPLETE] Forecast persisted", logging.Fields{
		"user_id":      userID,
		"hourly_count": len(hourlyRows),
	})

	return &ForecastSummary{
		RequestID:       requestID,
		ForecastSummary: current.Summary,
		HourlyCount:     len(hourlyRows),
	}, nil
}

// GetForecastBundle retrieves a previously persisted request.
func (s *ForecastService) GetForecastBundle(ctx context.Context, requestID int64) (*models.ForecastBundle, error) {
	return s.repo.GetForecastBundle(ctx, requestID)
}

// HealthCheck probes the store.
func (s *ForecastService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func (s *ForecastService) logFailure(ctx context.Context, stage, userID string, coord models.Coordinate, err error) {
	s.logger.Error(ctx, "[PIPELINE_ERROR] Weather request failed", logging.Fields{
		"stage":     stage,
		"user_id":   userID,
		"latitude":  coord.Latitude,
		"longitude": coord.Longitude,
	}, err)
}

func buildCurrentRow(p models.ForecastPeriod) *models.CurrentForecast {
	var temp float64
	if p.Temperature != nil {
		temp = *p.Temperature
	}

	var precip *float64
	if p.ProbabilityOfPrecipitation != nil {
		precip = p.ProbabilityOfPrecipitation.Value
	}

	return &models.CurrentForecast{
		Summary:                  p.DetailedForecast,
		StartTime:                models.ParseStartTime(p.StartTime),
		Temperature:              temp,
		WindSpeed:                enrich.ParseWindSpeed(p.WindSpeed),
		PrecipitationProbability: precip,
		RawData:                  types.JSONText(p.Raw),
	}
}

func buildHourlyRows(enriched []models.EnrichedHourly) []*models.HourlyForecast {
	rows := make([]*models.HourlyForecast, 0, len(enriched))

	for _, rec := range enriched {
		rows = append(rows, &models.HourlyForecast{
			StartTime:                models.ParseStartTime(rec.StartTime),
			Temperature:              rec.Temperature,
			TemperatureRatio:         rec.TemperatureRatio,
			WindSpeed:                rec.WindSpeed,
			WindAboveAvg:             rec.WindAboveAverage,
			PrecipitationProbability: rec.PrecipitationProbability,
			DistanceMiles:            rec.DistanceMiles,
			RawData:                  types.JSONText(rec.Raw),
		})
	}

	return rows
}
