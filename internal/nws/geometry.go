package nws

import (
	"encoding/json"
	"strconv"
	"strings"

	"weather-pipeline/internal/models"
)

// gridCenterFromGeometry approximates the center of the upstream grid cell
// by averaging the polygon vertex coordinates. The geometry arrives either
// as a WKT string ("POLYGON((lon lat, lon lat, ...))", the ld+json shape) or
// as a GeoJSON-style object with nested coordinate arrays. Returns false
// when the geometry is absent or unusable; distance is a secondary
// enrichment, so callers degrade instead of failing.
func gridCenterFromGeometry(raw json.RawMessage) (models.Coordinate, bool) {
	if len(raw) == 0 {
		return models.Coordinate{}, false
	}

	var wkt string
	if err := json.Unmarshal(raw, &wkt); err == nil {
		return gridCenterFromWKT(wkt)
	}

	var geo struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &geo); err == nil && geo.Type == "Polygon" {
		return gridCenterFromRings(geo.Coordinates)
	}

	return models.Coordinate{}, false
}

func gridCenterFromWKT(s string) (models.Coordinate, bool) {
	if !strings.HasPrefix(s, "POLYGON((") || !strings.HasSuffix(s, "))") {
		return models.Coordinate{}, false
	}

	body := strings.TrimSuffix(strings.TrimPrefix(s, "POLYGON(("), "))")
	pairs := strings.Split(body, ",")

	// The final vertex closes the ring and duplicates the first one.
	if len(pairs) < 2 {
		return models.Coordinate{}, false
	}
	pairs = pairs[:len(pairs)-1]

	var sumLat, sumLon float64
	for _, pair := range pairs {
		fields := strings.Fields(pair)
		if len(fields) != 2 {
			return models.Coordinate{}, false
		}

		lon, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return models.Coordinate{}, false
		}
		lat, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return models.Coordinate{}, false
		}

		sumLat += lat
		sumLon += lon
	}

	n := float64(len(pairs))
	return models.Coordinate{Latitude: sumLat / n, Longitude: sumLon / n}, true
}

func gridCenterFromRings(rings [][][]float64) (models.Coordinate, bool) {
	if len(rings) == 0 || len(rings[0]) < 2 {
		return models.Coordinate{}, false
	}

	// GeoJSON positions are [lon, lat]; drop the closing vertex.
	ring := rings[0][:len(rings[0])-1]

	var sumLat, sumLon float64
	for _, pos := range ring {
		if len(pos) < 2 {
			return models.Coordinate{}, false
		}
		sumLon += pos[0]
		sumLat += pos[1]
	}

	n := float64(len(ring))
	return models.Coordinate{Latitude: sumLat / n, Longitude: sumLon / n}, true
}
