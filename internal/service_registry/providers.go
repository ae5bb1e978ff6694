package service_registry

import (
	"fmt"

	"github.com/benmeehan/qtracker/internal/utils"
	"github.com/benmeehan/qtracker/pkg/location"
)

// Providers are the location sources the resolver chains together.
type Providers struct {
	Coordinates location.CoordinatesProvider
	Geocoder    location.ReverseGeocoder
	IPLocator   location.IPLocator
}

// BuildProviders constructs the location providers selected in config. A
// provider set to "none" stays nil and its resolution step is skipped.
func BuildProviders(config *utils.Config) (Providers, error) {
	l := config.Location
	var p Providers

	stub := &location.StaticProvider{
		Place: &location.Place{City: l.Stub.City, Country: l.Stub.Country},
		Delay: l.Stub.Delay,
	}
	if l.Stub.Latitude != 0 || l.Stub.Longitude != 0 {
		stub.Coordinates = &location.Coordinates{Latitude: l.Stub.Latitude, Longitude: l.Stub.Longitude}
	}

	var google *location.GoogleGeolocationProvider
	if l.CoordinatesProvider == utils.ProviderGoogle || l.ReverseGeocoder == utils.ProviderGoogle {
		var err error
		google, err = location.NewGoogleGeolocationProvider(l.MapsAPIKey, l.MapsLanguage)
		if err != nil {
			return Providers{}, fmt.Errorf("failed to create Google Geolocation provider: %w", err)
		}
	}

	switch l.CoordinatesProvider {
	case utils.ProviderStub:
		p.Coordinates = stub
	case utils.ProviderGPS:
		p.Coordinates = location.NewDeviceSensorProvider(l.GPSDevicePort, l.GPSDeviceBaudRate)
	case utils.ProviderGoogle:
		p.Coordinates = google
	}

	switch l.ReverseGeocoder {
	case utils.ProviderStub:
		p.Geocoder = stub
	case utils.ProviderGazetteer:
		p.Geocoder = location.NewGazetteerGeocoder(nil, l.GazetteerMaxKm)
	case utils.ProviderGoogle:
		p.Geocoder = google
	}

	switch l.IPLocator {
	case utils.ProviderStub:
		p.IPLocator = stub
	case utils.ProviderIPAPI:
		p.IPLocator = location.NewIPAPIProvider(l.IPAPIURL, l.IPAPITimeout)
	}

	return p, nil
}
