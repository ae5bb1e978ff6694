package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for all distance calculations.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two points
// given in degrees, rounded to one decimal place.
//
// s2.LatLng.Distance is the haversine formula. Inputs are not normalized, so
// out-of-range values yield a meaningless but finite result.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return Round1(a.Distance(b).Radians() * EarthRadiusKm)
}

// Round1 rounds x to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// ValidLatLng reports whether lat/lon are finite and inside the WGS84 ranges.
func ValidLatLng(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
