package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the weather pipeline API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Weather Pipeline API",
			"description": "Forecast enrichment and ingestion service backed by the National Weather Service API and PostgreSQL",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/weather": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Fetch, enrich, and persist a forecast",
					"description": "Resolves the gridpoint for the coordinate, fetches current and hourly forecasts, enriches the hourly periods with derived metrics, and persists everything in one transaction",
					"requestBody": map[string]interface{}{
						"required": true,
						"content": map[string]interface{}{
							"application/json": map[string]interface{}{
								"schema": map[string]interface{}{
									"type":     "object",
									"required": []string{"user_id", "latitude", "longitude"},
									"properties": map[string]interface{}{
										"user_id":   map[string]string{"type": "string"},
										"latitude":  map[string]interface{}{"type": "number", "minimum": -90, "maximum": 90},
										"longitude": map[string]interface{}{"type": "number", "minimum": -180, "maximum": 180},
									},
								},
							},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Forecast persisted",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"request_id":       map[string]string{"type": "integer"},
											"forecast_summary": map[string]string{"type": "string"},
											"hourly_count":     map[string]string{"type": "integer"},
										},
									},
								},
							},
						},
						"400": map[string]interface{}{"description": "Invalid request body or coordinates"},
						"502": map[string]interface{}{"description": "Upstream weather service error"},
						"503": map[string]interface{}{"description": "Store unavailable"},
					},
				},
			},
			"/api/weather/requests/{id}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get a persisted forecast bundle",
					"description": "Returns the request row with its current and hourly forecast records",
					"parameters": []map[string]interface{}{
						{
							"name":     "id",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "integer"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Forecast bundle"},
						"404": map[string]interface{}{"description": "Unknown request id"},
					},
				},
			},
			"/healthz": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Store reachable"},
						"500": map[string]interface{}{"description": "Store unreachable"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
