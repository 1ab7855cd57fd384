// Package geo implements great-circle distance math on WGS84 coordinates.
package geo

import (
	"math"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between a and b in kilometres,
// rounded to two decimals. Non-finite input yields 0.
func DistanceKm(a, b model.Coordinate) float64 {
	if !finite(a.Lat) || !finite(a.Lon) || !finite(b.Lat) || !finite(b.Lon) {
		return 0
	}

	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sinLon*sinLon
	// float error can push h slightly outside [0,1]
	h = math.Min(math.Max(h, 0), 1)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return Round2(EarthRadiusKm * c)
}

// Round2 rounds to two decimals; NaN and infinities become 0.
func Round2(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return math.Round(v*100) / 100
}

// ValidCoordinate reports whether c is finite and inside lat [-90,90], lon [-180,180].
func ValidCoordinate(c model.Coordinate) bool {
	return ValidLatitude(c.Lat) && ValidLongitude(c.Lon)
}

func ValidLatitude(lat float64) bool {
	return finite(lat) && lat >= -90 && lat <= 90
}

func ValidLongitude(lon float64) bool {
	return finite(lon) && lon >= -180 && lon <= 180
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
