package location

import "github.com/benmeehan/qtracker/pkg/geo"

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Valid reports whether the coordinates are inside the WGS84 ranges.
func (c Coordinates) Valid() bool {
	return geo.ValidLatLng(c.Latitude, c.Longitude)
}

// DistanceKm returns the haversine distance to other, rounded to one decimal.
func (c Coordinates) DistanceKm(other Coordinates) float64 {
	return geo.DistanceKm(c.Latitude, c.Longitude, other.Latitude, other.Longitude)
}

// DistanceBetween returns the haversine distance from a to b in km.
func DistanceBetween(a, b Coordinates) float64 {
	return a.DistanceKm(b)
}

// Place is a coarse, human readable location.
type Place struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// Empty reports whether neither city nor country is known.
func (p Place) Empty() bool {
	return p.City == "" && p.Country == ""
}
