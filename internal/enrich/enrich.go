// Package enrich derives comparative metrics from raw hourly forecast
// periods: temperature ratio against the window average, wind-above-average
// flag, and great-circle distance from the requested point to the forecast
// grid center.
package enrich

import (
	"math"
	"strconv"
	"strings"

	"github.com/umahmood/haversine"

	"weather-pipeline/internal/models"
)

// HourlyWindow caps how many hourly periods are enriched and persisted.
const HourlyWindow = 24

// ParseWindSpeed extracts the leading numeric token from a free-form wind
// string ("10 mph" -> 10, "5 to 10 mph" -> 5). Returns 0 for anything it
// cannot parse; never fails.
func ParseWindSpeed(s string) int {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return n
}

// DistanceMiles is the great-circle distance between two coordinates,
// rounded to 4 decimal places.
func DistanceMiles(a, b models.Coordinate) float64 {
	mi, _ := haversine.Distance(
		haversine.Coord{Lat: a.Latitude, Lon: a.Longitude},
		haversine.Coord{Lat: b.Latitude, Lon: b.Longitude},
	)
	return roundTo(mi, 4)
}

// EnrichHourly transforms raw hourly periods into enriched records. At most
// the first HourlyWindow periods are used, in their original order. Missing
// fields degrade to defaults; the function never fails, and an empty input
// yields an empty output.
//
// TemperatureRatio is nil when the window has no temperatures or their
// average is zero, signaling "unavailable" instead of a misleading value.
func EnrichHourly(periods []models.ForecastPeriod, requester, gridCenter models.Coordinate) []models.EnrichedHourly {
	if len(periods) > HourlyWindow {
		periods = periods[:HourlyWindow]
	}

	enriched := make([]models.EnrichedHourly, 0, len(periods))
	if len(periods) == 0 {
		return enriched
	}

	var tempSum float64
	tempCount := 0
	windSpeeds := make([]int, len(periods))
	var windSum float64

	for i, p := range periods {
		if p.Temperature != nil {
			tempSum += *p.Temperature
			tempCount++
		}

		windSpeeds[i] = ParseWindSpeed(p.WindSpeed)
		windSum += float64(windSpeeds[i])
	}

	var avgTemp float64
	hasAvgTemp := tempCount > 0
	if hasAvgTemp {
		avgTemp = tempSum / float64(tempCount)
	}

	avgWind := windSum / float64(len(periods))

	// Computed once, identical on every record in the window.
	distance := DistanceMiles(requester, gridCenter)

	for i, p := range periods {
		var temp float64
		if p.Temperature != nil {
			temp = *p.Temperature
		}

		var ratio *float64
		if hasAvgTemp && avgTemp != 0 {
			r := roundTo(temp/avgTemp, 2)
			ratio = &r
		}

		var precip *float64
		if p.ProbabilityOfPrecipitation != nil {
			precip = p.ProbabilityOfPrecipitation.Value
		}

		enriched = append(enriched, models.EnrichedHourly{
			StartTime:                p.StartTime,
			Temperature:              temp,
			TemperatureRatio:         ratio,
			WindSpeed:                windSpeeds[i],
			WindAboveAverage:         float64(windSpeeds[i]) > avgWind,
			PrecipitationProbability: precip,
			DistanceMiles:            distance,
			Raw:                      p.Raw,
		})
	}

	return enriched
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
