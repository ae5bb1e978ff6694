package location

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// googleMapsAPI is the subset of *maps.Client used here.
type googleMapsAPI interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// GoogleGeolocationProvider uses the Google Maps APIs both to estimate the device
// position (from nearby WiFi access points and the request IP) and to reverse geocode.
type GoogleGeolocationProvider struct {
	client     googleMapsAPI
	modemIndex int
	language   string
}

// NewGoogleGeolocationProvider creates a new GoogleGeolocationProvider instance.
func NewGoogleGeolocationProvider(apiKey string, language string) (*GoogleGeolocationProvider, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &GoogleGeolocationProvider{
		client:   c,
		language: language,
	}, nil
}

// GetCoordinates retrieves the device's position using the Google Maps Geolocation API.
// Missing WiFi or cell data is not fatal; the API falls back to the request IP.
func (g *GoogleGeolocationProvider) GetCoordinates(ctx context.Context) (Coordinates, error) {
	req := &maps.GeolocationRequest{ConsiderIP: true}

	if wifiAPs, err := getWiFiAccessPoints(ctx); err == nil {
		req.WiFiAccessPoints = wifiAPs
	}
	if cellTowers, err := getCellTowers(ctx, g.modemIndex); err == nil {
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("%w: geolocate: %v", ErrUnavailable, err)
	}

	return Coordinates{
		Latitude:  resp.Location.Lat,
		Longitude: resp.Location.Lng,
	}, nil
}

// ReverseGeocode resolves the locality and country containing c.
func (g *GoogleGeolocationProvider) ReverseGeocode(ctx context.Context, c Coordinates) (Place, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng:     &maps.LatLng{Lat: c.Latitude, Lng: c.Longitude},
		ResultType: []string{"locality", "country"},
		Language:   g.language,
	})
	if err != nil {
		return Place{}, fmt.Errorf("%w: reverse geocode: %v", ErrUnavailable, err)
	}

	var place Place
	for _, r := range results {
		for _, comp := range r.AddressComponents {
			switch {
			case place.City == "" && hasType(comp.Types, "locality"):
				place.City = comp.LongName
			case place.City == "" && hasType(comp.Types, "postal_town"):
				place.City = comp.LongName
			case place.Country == "" && hasType(comp.Types, "country"):
				place.Country = comp.LongName
			}
		}
		if place.City != "" && place.Country != "" {
			break
		}
	}

	if place.Empty() {
		return Place{}, fmt.Errorf("%w: no locality for %.4f,%.4f", ErrUnavailable, c.Latitude, c.Longitude)
	}
	return place, nil
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
