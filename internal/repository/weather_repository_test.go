package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-pipeline/internal/models"
	"weather-pipeline/pkg/database"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

func newMockRepository(t *testing.T) (WeatherRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())

	db := database.NewFromDB(sqlx.NewDb(mockDB, "sqlmock"), logger, collector)

	return NewWeatherRepository(db, logger, collector), mock
}

func testBundle() (*models.WeatherRequest, *models.CurrentForecast, []*models.HourlyForecast) {
	start := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)
	ratio := 1.0

	req := &models.WeatherRequest{
		UserID:    "u1",
		Latitude:  42.3601,
		Longitude: -71.0589,
		CreatedAt: start,
	}
	current := &models.CurrentForecast{
		Summary:     "Partly cloudy.",
		StartTime:   start,
		Temperature: 40,
		WindSpeed:   10,
		RawData:     types.JSONText(`{"temperature":40}`),
	}
	hourly := []*models.HourlyForecast{
		{
			StartTime:        start,
			Temperature:      40,
			TemperatureRatio: &ratio,
			WindSpeed:        10,
			WindAboveAvg:     false,
			DistanceMiles:    6.9086,
			RawData:          types.JSONText(`{"temperature":40}`),
		},
		{
			StartTime:        start.Add(time.Hour),
			Temperature:      40,
			TemperatureRatio: &ratio,
			WindSpeed:        15,
			WindAboveAvg:     true,
			DistanceMiles:    6.9086,
			RawData:          types.JSONText(`{"temperature":40}`),
		},
	}

	return req, current, hourly
}

func TestSaveForecast_CommitsBundle(t *testing.T) {
	repo, mock := newMockRepository(t)
	req, current, hourly := testBundle()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO weather_requests").
		WithArgs(req.UserID, req.Latitude, req.Longitude, req.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO current_forecasts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare("INSERT INTO hourly_forecasts")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := repo.SaveForecast(context.Background(), req, current, hourly)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	// Children carry the generated parent id.
	assert.Equal(t, int64(42), req.ID)
	assert.Equal(t, int64(42), current.RequestID)
	for _, h := range hourly {
		assert.Equal(t, int64(42), h.RequestID)
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveForecast_RollsBackOnHourlyFailure(t *testing.T) {
	repo, mock := newMockRepository(t)
	req, current, hourly := testBundle()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO weather_requests").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO current_forecasts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare("INSERT INTO hourly_forecasts")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	id, err := repo.SaveForecast(context.Background(), req, current, hourly)
	require.Error(t, err)
	assert.Zero(t, id)
	assert.Contains(t, err.Error(), "failed to insert hourly forecast")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveForecast_RollsBackOnRequestFailure(t *testing.T) {
	repo, mock := newMockRepository(t)
	req, current, hourly := testBundle()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO weather_requests").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.SaveForecast(context.Background(), req, current, hourly)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert weather request")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForecastBundle(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, user_id, latitude, longitude, created_at").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "latitude", "longitude", "created_at"}).
			AddRow(int64(42), "u1", 42.3601, -71.0589, created))
	mock.ExpectQuery("FROM current_forecasts").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "request_id", "summary", "start_time", "temperature",
			"wind_speed", "precipitation_probability", "raw_data",
		}).AddRow(int64(1), int64(42), "Partly cloudy.", created, 40.0, 10, nil, []byte(`{}`)))
	mock.ExpectQuery("FROM hourly_forecasts").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "request_id", "start_time", "temperature", "temperature_ratio",
			"wind_speed", "wind_above_avg", "precipitation_probability",
			"distance_miles", "raw_data",
		}).
			AddRow(int64(1), int64(42), created, 40.0, 1.0, 10, false, nil, 6.9086, []byte(`{}`)).
			AddRow(int64(2), int64(42), created.Add(time.Hour), 42.0, 1.05, 15, true, 20.0, 6.9086, []byte(`{}`)))

	bundle, err := repo.GetForecastBundle(context.Background(), 42)
	require.NoError(t, err)

	require.NotNil(t, bundle.Request)
	assert.Equal(t, "u1", bundle.Request.UserID)

	require.NotNil(t, bundle.Current)
	assert.Equal(t, "Partly cloudy.", bundle.Current.Summary)

	require.Len(t, bundle.Hourly, 2)
	assert.True(t, bundle.Hourly[1].WindAboveAvg)
	require.NotNil(t, bundle.Hourly[1].PrecipitationProbability)
	assert.Equal(t, 20.0, *bundle.Hourly[1].PrecipitationProbability)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForecastBundle_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT id, user_id, latitude, longitude, created_at").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "latitude", "longitude", "created_at"}))

	bundle, err := repo.GetForecastBundle(context.Background(), 7)
	require.Error(t, err)
	assert.Nil(t, bundle)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "weather_request", notFound.Resource)
	assert.Equal(t, "7", notFound.ID)
	assert.False(t, notFound.IsTransient())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForecastBundle_NoCurrentRow(t *testing.T) {
	repo, mock := newMockRepository(t)
	created := time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, user_id, latitude, longitude, created_at").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "latitude", "longitude", "created_at"}).
			AddRow(int64(42), "u1", 42.3601, -71.0589, created))
	mock.ExpectQuery("FROM current_forecasts").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM hourly_forecasts").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	bundle, err := repo.GetForecastBundle(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, bundle.Current)
	assert.Empty(t, bundle.Hourly)

	assert.NoError(t, mock.ExpectationsWereMet())
}
