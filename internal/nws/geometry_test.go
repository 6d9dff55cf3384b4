package nws

import (
	"encoding/json"
	"testing"
)

func TestGridCenterFromGeometry(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLat float64
		wantLon float64
		wantOK  bool
	}{
		{
			name:    "WKT polygon drops closing vertex",
			raw:     `"POLYGON((-71.0 42.0, -71.2 42.0, -71.2 42.2, -71.0 42.2, -71.0 42.0))"`,
			wantLat: 42.1,
			wantLon: -71.1,
			wantOK:  true,
		},
		{
			name: "GeoJSON polygon drops closing vertex",
			raw: `{"type":"Polygon","coordinates":[[` +
				`[-71.0,42.0],[-71.2,42.0],[-71.2,42.2],[-71.0,42.2],[-71.0,42.0]]]}`,
			wantLat: 42.1,
			wantLon: -71.1,
			wantOK:  true,
		},
		{
			name: "GeoJSON positions with elevation",
			raw: `{"type":"Polygon","coordinates":[[` +
				`[-71.0,42.0,10],[-71.2,42.0,10],[-71.2,42.2,10],[-71.0,42.2,10],[-71.0,42.0,10]]]}`,
			wantLat: 42.1,
			wantLon: -71.1,
			wantOK:  true,
		},
		{name: "absent geometry", raw: "", wantOK: false},
		{name: "null geometry", raw: "null", wantOK: false},
		{name: "not a polygon string", raw: `"LINESTRING(-71.0 42.0, -71.2 42.0)"`, wantOK: false},
		{name: "WKT with only closing vertex", raw: `"POLYGON((-71.0 42.0))"`, wantOK: false},
		{name: "WKT with garbage pair", raw: `"POLYGON((-71.0 42.0, oops, -71.0 42.0))"`, wantOK: false},
		{name: "GeoJSON wrong type", raw: `{"type":"Point","coordinates":[[[-71.0,42.0]]]}`, wantOK: false},
		{name: "GeoJSON empty rings", raw: `{"type":"Polygon","coordinates":[]}`, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			center, ok := gridCenterFromGeometry(json.RawMessage(tt.raw))

			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !tt.wantOK {
				if center.Latitude != 0 || center.Longitude != 0 {
					t.Errorf("center = %+v, want origin on failure", center)
				}
				return
			}

			if !almostEqual(center.Latitude, tt.wantLat) {
				t.Errorf("Latitude = %v, want %v", center.Latitude, tt.wantLat)
			}
			if !almostEqual(center.Longitude, tt.wantLon) {
				t.Errorf("Longitude = %v, want %v", center.Longitude, tt.wantLon)
			}
		})
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
