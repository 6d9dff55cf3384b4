package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"weather-pipeline/internal/models"
	"weather-pipeline/pkg/database"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// WeatherRepository provides data access for persisted forecast requests
type WeatherRepository interface {
	// SaveForecast persists the parent request, its current-forecast row,
	// and all hourly rows in a single transaction, returning the generated
	// request id. On any failure nothing is committed.
	SaveForecast(ctx context.Context, req *models.WeatherRequest, current *models.CurrentForecast, hourly []*models.HourlyForecast) (int64, error)

	// GetForecastBundle retrieves a persisted request with its children.
	GetForecastBundle(ctx context.Context, requestID int64) (*models.ForecastBundle, error)

	// HealthCheck probes store connectivity.
	HealthCheck(ctx context.Context) error
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWeatherRepository creates a new weather repository
func NewWeatherRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// SaveForecast writes one request bundle atomically.
func (r *weatherRepository) SaveForecast(ctx context.Context, req *models.WeatherRequest, current *models.CurrentForecast, hourly []*models.HourlyForecast) (int64, error) {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.DBQueryDuration.WithLabelValues("save_forecast").Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_SAVE_FORECAST] Forecast bundle write finished", logging.Fields{
			"hourly_count": len(hourly),
			"duration_ms":  duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var requestID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO weather_requests (user_id, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		req.UserID,
		req.Latitude,
		req.Longitude,
		req.CreatedAt,
	).Scan(&requestID)
	if err != nil {
		r.metrics.RecordDBError("insert_request_error")
		return 0, fmt.Errorf("failed to insert weather request: %w", err)
	}

	req.ID = requestID
	current.RequestID = requestID

	_, err = tx.ExecContext(ctx, `
		INSERT INTO current_forecasts (
			request_id, summary, start_time, temperature, wind_speed,
			precipitation_probability, raw_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		current.RequestID,
		current.Summary,
		current.StartTime,
		current.Temperature,
		current.WindSpeed,
		current.PrecipitationProbability,
		current.RawData,
	)
	if err != nil {
		r.metrics.RecordDBError("insert_current_error")
		return 0, fmt.Errorf("failed to insert current forecast: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO hourly_forecasts (
			request_id, start_time, temperature, temperature_ratio,
			wind_speed, wind_above_avg, precipitation_probability,
			distance_miles, raw_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare hourly insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range hourly {
		h.RequestID = requestID

		_, err := stmt.ExecContext(ctx,
			h.RequestID,
			h.StartTime,
			h.Temperature,
			h.TemperatureRatio,
			h.WindSpeed,
			h.WindAboveAvg,
			h.PrecipitationProbability,
			h.DistanceMiles,
			h.RawData,
		)
		if err != nil {
			r.metrics.RecordDBError("insert_hourly_error")
			return 0, fmt.Errorf("failed to insert hourly forecast: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.metrics.RecordDBError("transaction_commit_error")
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.RequestsPersistedTotal.Inc()
	r.metrics.HourlyRowsPersisted.Observe(float64(len(hourly)))

	return requestID, nil
}

// GetForecastBundle retrieves a persisted request with its current and
// hourly rows.
func (r *weatherRepository) GetForecastBundle(ctx context.Context, requestID int64) (*models.ForecastBundle, error) {
	var req models.WeatherRequest
	err := r.db.GetContext(ctx, "get_request", &req, `
		SELECT id, user_id, latitude, longitude, created_at
		FROM weather_requests
		WHERE id = $1
	`, requestID)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "weather_request",
			ID:       strconv.FormatInt(requestID, 10),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get weather request: %w", err)
	}

	bundle := &models.ForecastBundle{Request: &req}

	var current models.CurrentForecast
	err = r.db.GetContext(ctx, "get_current", &current, `
		SELECT id, request_id, summary, start_time, temperature, wind_speed,
		       precipitation_probability, raw_data
		FROM current_forecasts
		WHERE request_id = $1
	`, requestID)

	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get current forecast: %w", err)
	}
	if err == nil {
		bundle.Current = &current
	}

	var hourly []*models.HourlyForecast
	err = r.db.SelectContext(ctx, "get_hourly", &hourly, `
		SELECT id, request_id, start_time, temperature, temperature_ratio,
		       wind_speed, wind_above_avg, precipitation_probability,
		       distance_miles, raw_data
		FROM hourly_forecasts
		WHERE request_id = $1
		ORDER BY start_time, id
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly forecasts: %w", err)
	}

	bundle.Hourly = hourly

	return bundle, nil
}

// HealthCheck performs a repository health check
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
