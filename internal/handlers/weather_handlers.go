package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"weather-pipeline/internal/models"
	"weather-pipeline/internal/nws"
	"weather-pipeline/internal/repository"
	"weather-pipeline/internal/services"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// WeatherHandler handles weather API endpoints
type WeatherHandler struct {
	service  *services.ForecastService
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
	validate *validator.Validate
}

// NewWeatherHandler creates a new weather handler
func NewWeatherHandler(service *services.ForecastService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherHandler {
	return &WeatherHandler{
		service:  service,
		logger:   logger,
		metrics:  metricsCollector,
		validate: validator.New(),
	}
}

// WeatherRequestInput is the POST /weather request body.
type WeatherRequestInput struct {
	UserID    string  `json:"user_id" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// PostWeather handles POST /weather
func (h *WeatherHandler) PostWeather(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/weather").Observe(duration.Seconds())
	}()

	var input WeatherRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(&input); err != nil {
		h.sendError(w, r, "invalid request parameters", http.StatusBadRequest)
		return
	}

	coord := models.Coordinate{
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	}

	summary, err := h.service.FetchAndStore(ctx, input.UserID, coord)
	if err != nil {
		// The cause was already logged with full context at the service
		// boundary; the caller only learns the failure category.
		status, message := classifyError(err)
		h.metrics.RecordAPIError(errorType(err), "/weather")
		h.sendError(w, r, message, status)
		return
	}

	h.metrics.RecordAPIRequest("/weather", "POST", "200")
	h.sendJSON(w, summary, http.StatusOK)
}

// GetForecastBundle handles GET /api/weather/requests/{id}
func (h *WeatherHandler) GetForecastBundle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/weather/requests").Observe(duration.Seconds())
	}()

	requestID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.sendError(w, r, "invalid request id", http.StatusBadRequest)
		return
	}

	bundle, err := h.service.GetForecastBundle(ctx, requestID)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			h.sendError(w, r, "weather request not found", http.StatusNotFound)
			return
		}

		h.logger.Error(ctx, "[API_GET_BUNDLE_ERROR] Failed to get forecast bundle", logging.Fields{
			"request_id": requestID,
		}, err)
		h.metrics.RecordAPIError("internal_error", "/api/weather/requests")
		h.sendError(w, r, "internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/weather/requests", "GET", "200")
	h.sendJSON(w, bundle, http.StatusOK)
}

// HealthCheck handles GET /healthz
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_ERROR] Store unreachable", logging.Fields{}, err)
		h.sendJSON(w, map[string]string{"status": "db_unreachable"}, http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// classifyError maps pipeline failures to HTTP statuses. The message stays
// generic regardless of the cause.
func classifyError(err error) (int, string) {
	var upstream *nws.UpstreamError
	var malformed *nws.MalformedResponseError
	var store *services.StoreError

	switch {
	case errors.As(err, &upstream),
		errors.As(err, &malformed),
		errors.Is(err, services.ErrNoCurrentData),
		errors.Is(err, services.ErrNoHourlyData):
		return http.StatusBadGateway, "upstream weather service error"
	case errors.As(err, &store):
		return http.StatusServiceUnavailable, "internal server error"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func errorType(err error) string {
	var upstream *nws.UpstreamError
	var malformed *nws.MalformedResponseError
	var store *services.StoreError

	switch {
	case errors.As(err, &upstream):
		return "upstream_unavailable"
	case errors.As(err, &malformed):
		return "upstream_malformed"
	case errors.Is(err, services.ErrNoCurrentData), errors.Is(err, services.ErrNoHourlyData):
		return "upstream_no_data"
	case errors.As(err, &store):
		return "store_unavailable"
	default:
		return "internal_error"
	}
}

// sendJSON sends a JSON response
func (h *WeatherHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *WeatherHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	h.sendJSON(w, ErrorResponse{Error: message}, statusCode)
}

// RegisterRoutes registers all weather API routes
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/weather", h.PostWeather).Methods("POST")
	router.HandleFunc("/api/weather/requests/{id}", h.GetForecastBundle).Methods("GET")
	router.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}
