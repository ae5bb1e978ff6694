package location

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/s2"

	"github.com/benmeehan/qtracker/pkg/geo"
)

// GazetteerCity is one entry of the offline gazetteer.
type GazetteerCity struct {
	City       string  `yaml:"city"`
	Country    string  `yaml:"country"`
	Latitude   float64 `yaml:"latitude"`
	Longitude  float64 `yaml:"longitude"`
	Population int     `yaml:"population"`
}

// DefaultGazetteer lists the cities the tracker is seeded around plus the
// larger club destinations.
var DefaultGazetteer = []GazetteerCity{
	{City: "Berlin", Country: "Germany", Latitude: 52.5200, Longitude: 13.4050, Population: 3645000},
	{City: "Hamburg", Country: "Germany", Latitude: 53.5511, Longitude: 9.9937, Population: 1841000},
	{City: "Munich", Country: "Germany", Latitude: 48.1351, Longitude: 11.5820, Population: 1472000},
	{City: "Leipzig", Country: "Germany", Latitude: 51.3397, Longitude: 12.3731, Population: 597000},
	{City: "Amsterdam", Country: "Netherlands", Latitude: 52.3676, Longitude: 4.9041, Population: 872000},
	{City: "London", Country: "United Kingdom", Latitude: 51.5074, Longitude: -0.1278, Population: 8982000},
	{City: "Manchester", Country: "United Kingdom", Latitude: 53.4808, Longitude: -2.2426, Population: 553000},
	{City: "Paris", Country: "France", Latitude: 48.8566, Longitude: 2.3522, Population: 2161000},
	{City: "Barcelona", Country: "Spain", Latitude: 41.3874, Longitude: 2.1686, Population: 1620000},
	{City: "Ibiza", Country: "Spain", Latitude: 38.9067, Longitude: 1.4206, Population: 50000},
	{City: "Tbilisi", Country: "Georgia", Latitude: 41.7151, Longitude: 44.8271, Population: 1118000},
	{City: "Prague", Country: "Czech Republic", Latitude: 50.0755, Longitude: 14.4378, Population: 1309000},
	{City: "New York", Country: "United States", Latitude: 40.7128, Longitude: -74.0060, Population: 8336000},
	{City: "Detroit", Country: "United States", Latitude: 42.3314, Longitude: -83.0458, Population: 639000},
	{City: "Chicago", Country: "United States", Latitude: 41.8781, Longitude: -87.6298, Population: 2746000},
	{City: "Tokyo", Country: "Japan", Latitude: 35.6762, Longitude: 139.6503, Population: 13960000},
}

// GazetteerGeocoder reverse geocodes offline by snapping to the nearest known city.
type GazetteerGeocoder struct {
	cities []GazetteerCity
	points []s2.LatLng
	maxKm  float64
}

// NewGazetteerGeocoder builds a geocoder over cities. Coordinates further than
// maxKm from every city are reported as unavailable.
func NewGazetteerGeocoder(cities []GazetteerCity, maxKm float64) *GazetteerGeocoder {
	if len(cities) == 0 {
		cities = DefaultGazetteer
	}
	points := make([]s2.LatLng, len(cities))
	for i, c := range cities {
		points[i] = s2.LatLngFromDegrees(c.Latitude, c.Longitude)
	}
	return &GazetteerGeocoder{cities: cities, points: points, maxKm: maxKm}
}

type gazetteerCandidate struct {
	idx  int
	dist float64
}

// ReverseGeocode returns the nearest city within the cutoff.
func (g *GazetteerGeocoder) ReverseGeocode(_ context.Context, c Coordinates) (Place, error) {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return Place{}, fmt.Errorf("%w: invalid coordinates", ErrUnavailable)
	}

	query := s2.LatLngFromDegrees(c.Latitude, c.Longitude)
	candidates := make([]gazetteerCandidate, 0, len(g.points))
	for i, p := range g.points {
		km := query.Distance(p).Radians() * geo.EarthRadiusKm
		if g.maxKm > 0 && km > g.maxKm {
			continue
		}
		candidates = append(candidates, gazetteerCandidate{idx: i, dist: km})
	}

	if len(candidates) == 0 {
		return Place{}, fmt.Errorf("%w: no known city near %.4f,%.4f", ErrUnavailable, c.Latitude, c.Longitude)
	}

	// Sort by distance, then population (desc), then city name for full determinism.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := g.cities[candidates[i].idx], g.cities[candidates[j].idx]
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		if a.Population != b.Population {
			return a.Population > b.Population
		}
		return a.City < b.City
	})

	best := g.cities[candidates[0].idx]
	return Place{City: best.City, Country: best.Country}, nil
}
