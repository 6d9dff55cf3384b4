package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Coordinate is a geographic point supplied by the caller.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PrecipitationProbability mirrors the nested upstream structure; Value is
// nil when the upstream omits it.
type PrecipitationProbability struct {
	Value *float64 `json:"value"`
}

// ForecastPeriod is a single raw forecast time slice from the upstream API.
// Every field is optional: upstream payloads are treated as untrusted and
// partial. Raw keeps a verbatim copy of the source JSON for persistence.
type ForecastPeriod struct {
	StartTime                  string                    `json:"startTime"`
	Temperature                *float64                  `json:"temperature"`
	WindSpeed                  string                    `json:"windSpeed"`
	DetailedForecast           string                    `json:"detailedForecast"`
	ProbabilityOfPrecipitation *PrecipitationProbability `json:"probabilityOfPrecipitation"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and retains the source bytes.
func (p *ForecastPeriod) UnmarshalJSON(data []byte) error {
	type alias ForecastPeriod

	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	*p = ForecastPeriod(a)
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// EnrichedHourly is one hourly period with derived metrics attached.
type EnrichedHourly struct {
	StartTime                string   `json:"start_time"`
	Temperature              float64  `json:"temperature"`
	TemperatureRatio         *float64 `json:"temperature_ratio"`
	WindSpeed                int      `json:"wind_speed"`
	WindAboveAverage         bool     `json:"wind_above_avg"`
	PrecipitationProbability *float64 `json:"precipitation_probability"`
	DistanceMiles            float64  `json:"distance_miles"`

	Raw json.RawMessage `json:"-"`
}

// WeatherRequest is the persisted root record, one per /weather call.
type WeatherRequest struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CurrentForecast is the one-to-one current conditions row.
type CurrentForecast struct {
	ID                       int64          `json:"id" db:"id"`
	RequestID                int64          `json:"request_id" db:"request_id"`
	Summary                  string         `json:"summary" db:"summary"`
	StartTime                time.Time      `json:"start_time" db:"start_time"`
	Temperature              float64        `json:"temperature" db:"temperature"`
	WindSpeed                int            `json:"wind_speed" db:"wind_speed"`
	PrecipitationProbability *float64       `json:"precipitation_probability" db:"precipitation_probability"`
	RawData                  types.JSONText `json:"raw_data" db:"raw_data"`
}

// HourlyForecast is one enriched hourly row, at most 24 per request.
type HourlyForecast struct {
	ID                       int64          `json:"id" db:"id"`
	RequestID                int64          `json:"request_id" db:"request_id"`
	StartTime                time.Time      `json:"start_time" db:"start_time"`
	Temperature              float64        `json:"temperature" db:"temperature"`
	TemperatureRatio         *float64       `json:"temperature_ratio" db:"temperature_ratio"`
	WindSpeed                int            `json:"wind_speed" db:"wind_speed"`
	WindAboveAvg             bool           `json:"wind_above_avg" db:"wind_above_avg"`
	PrecipitationProbability *float64       `json:"precipitation_probability" db:"precipitation_probability"`
	DistanceMiles            float64        `json:"distance_miles" db:"distance_miles"`
	RawData                  types.JSONText `json:"raw_data" db:"raw_data"`
}

// ForecastBundle groups one request with its persisted children, as served
// by the read-back endpoint.
type ForecastBundle struct {
	Request *WeatherRequest   `json:"request"`
	Current *CurrentForecast  `json:"current"`
	Hourly  []*HourlyForecast `json:"hourly"`
}

// ParseStartTime parses an upstream period timestamp. Upstream start times
// are RFC3339; a malformed one degrades to the zero time rather than
// failing the request.
func ParseStartTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
