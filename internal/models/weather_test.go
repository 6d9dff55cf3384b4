package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestForecastPeriod_UnmarshalJSON(t *testing.T) {
	src := `{"startTime":"2024-01-01T00:00:00-05:00","temperature":40,"windSpeed":"10 mph","detailedForecast":"Partly cloudy.","icon":"https://example.test/icon"}`

	var p ForecastPeriod
	if err := json.Unmarshal([]byte(src), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if p.StartTime != "2024-01-01T00:00:00-05:00" {
		t.Errorf("StartTime = %q", p.StartTime)
	}
	if p.Temperature == nil || *p.Temperature != 40 {
		t.Errorf("Temperature = %v, want 40", p.Temperature)
	}
	if p.WindSpeed != "10 mph" {
		t.Errorf("WindSpeed = %q", p.WindSpeed)
	}

	// Raw keeps the full source document, including fields the struct does
	// not model.
	if string(p.Raw) != src {
		t.Errorf("Raw = %s, want verbatim source", p.Raw)
	}
}

func TestForecastPeriod_UnmarshalJSON_PartialPayload(t *testing.T) {
	var p ForecastPeriod
	if err := json.Unmarshal([]byte(`{}`), &p); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if p.Temperature != nil {
		t.Errorf("Temperature = %v, want nil", *p.Temperature)
	}
	if p.ProbabilityOfPrecipitation != nil {
		t.Errorf("ProbabilityOfPrecipitation = %v, want nil", p.ProbabilityOfPrecipitation)
	}
	if string(p.Raw) != `{}` {
		t.Errorf("Raw = %s, want {}", p.Raw)
	}
}

func TestParseStartTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "RFC3339 with offset",
			input: "2024-01-01T00:00:00-05:00",
			want:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("", -5*3600)),
		},
		{
			name:  "UTC",
			input: "2024-01-01T05:00:00Z",
			want:  time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC),
		},
		{name: "malformed degrades to zero", input: "not a time", want: time.Time{}},
		{name: "empty degrades to zero", input: "", want: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseStartTime(tt.input); !got.Equal(tt.want) {
				t.Errorf("ParseStartTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
