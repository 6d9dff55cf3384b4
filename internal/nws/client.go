package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"weather-pipeline/internal/models"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

const acceptHeader = "application/ld+json"

// GridPoint addresses the forecast resources for a resolved coordinate.
type GridPoint struct {
	ForecastURL       string
	HourlyForecastURL string
}

// Config holds upstream client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the NWS-style forecast API. It owns a pooled HTTP client
// with a fixed timeout and a circuit breaker shared by all calls.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewClient creates a new upstream client.
func NewClient(cfg Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	settings := gobreaker.Settings{
		Name:    "weather-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(context.Background(), "[UPSTREAM_BREAKER] Circuit breaker state changed", logging.Fields{
				"from": from.String(),
				"to":   to.String(),
			})
			if to == gobreaker.StateOpen {
				metricsCollector.UpstreamBreakerOpen.Set(1)
			} else {
				metricsCollector.UpstreamBreakerOpen.Set(0)
			}
		},
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// pointsResponse covers both the flat ld+json shape and the geo+json shape
// with fields nested under properties.
type pointsResponse struct {
	Forecast       string `json:"forecast"`
	ForecastHourly string `json:"forecastHourly"`
	Properties     struct {
		Forecast       string `json:"forecast"`
		ForecastHourly string `json:"forecastHourly"`
	} `json:"properties"`
}

type forecastResponse struct {
	Geometry   json.RawMessage         `json:"geometry"`
	Periods    []models.ForecastPeriod `json:"periods"`
	Properties struct {
		Periods []models.ForecastPeriod `json:"periods"`
	} `json:"properties"`
}

// ResolvePoint looks up the gridpoint for a coordinate and returns the
// forecast handles.
func (c *Client) ResolvePoint(ctx context.Context, coord models.Coordinate) (*GridPoint, error) {
	url := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, coord.Latitude, coord.Longitude)

	c.logger.Debug(ctx, "[NWS_POINTS] Resolving gridpoint", logging.Fields{
		"latitude":  coord.Latitude,
		"longitude": coord.Longitude,
	})

	body, err := c.get(ctx, "points", url)
	if err != nil {
		return nil, err
	}

	var resp pointsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Call: "points", URL: url, Reason: "invalid JSON"}
	}

	forecastURL := resp.Forecast
	if forecastURL == "" {
		forecastURL = resp.Properties.Forecast
	}
	hourlyURL := resp.ForecastHourly
	if hourlyURL == "" {
		hourlyURL = resp.Properties.ForecastHourly
	}

	if forecastURL == "" || hourlyURL == "" {
		return nil, &MalformedResponseError{Call: "points", URL: url, Reason: "missing forecast URLs"}
	}

	return &GridPoint{
		ForecastURL:       forecastURL,
		HourlyForecastURL: hourlyURL,
	}, nil
}

// GetForecast fetches the point forecast and derives the grid-center
// coordinate from the response geometry. A missing or malformed geometry
// yields a (0, 0) center, not an error.
func (c *Client) GetForecast(ctx context.Context, url string) ([]models.ForecastPeriod, models.Coordinate, error) {
	body, err := c.get(ctx, "forecast", url)
	if err != nil {
		return nil, models.Coordinate{}, err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, models.Coordinate{}, &MalformedResponseError{Call: "forecast", URL: url, Reason: "invalid JSON"}
	}

	center, ok := gridCenterFromGeometry(resp.Geometry)
	if !ok {
		c.logger.Warn(ctx, "[NWS_GEOMETRY] No usable polygon geometry, grid center defaults to origin", logging.Fields{
			"url": url,
		})
	}

	periods := resp.Periods
	if len(periods) == 0 {
		periods = resp.Properties.Periods
	}

	c.logger.Debug(ctx, "[NWS_FORECAST] Point forecast fetched", logging.Fields{
		"period_count": len(periods),
		"grid_lat":     center.Latitude,
		"grid_lon":     center.Longitude,
	})

	return periods, center, nil
}

// GetHourlyForecast fetches the hourly forecast periods.
func (c *Client) GetHourlyForecast(ctx context.Context, url string) ([]models.ForecastPeriod, error) {
	body, err := c.get(ctx, "hourly", url)
	if err != nil {
		return nil, err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &MalformedResponseError{Call: "hourly", URL: url, Reason: "invalid JSON"}
	}

	periods := resp.Periods
	if len(periods) == 0 {
		periods = resp.Properties.Periods
	}

	c.logger.Debug(ctx, "[NWS_HOURLY] Hourly forecast fetched", logging.Fields{
		"period_count": len(periods),
	})

	return periods, nil
}

// get performs one GET through the circuit breaker and returns the body for
// a 2xx response. Transport failures, non-2xx statuses, and an open breaker
// all surface as *UpstreamError.
func (c *Client) get(ctx context.Context, call, url string) ([]byte, error) {
	timer := time.Now()
	defer func() {
		c.metrics.UpstreamRequestDuration.WithLabelValues(call).Observe(time.Since(timer).Seconds())
	}()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", acceptHeader)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}

		return io.ReadAll(resp.Body)
	})
	if err != nil {
		c.metrics.RecordUpstreamError(call, "transport")
		c.logger.Error(ctx, "[NWS_ERROR] Weather API call failed", logging.Fields{
			"call": call,
			"url":  url,
		}, err)
		return nil, &UpstreamError{Call: call, URL: url, Err: err}
	}

	return result.([]byte), nil
}
