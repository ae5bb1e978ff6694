package location

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a provider declines, is denied, times out or
// simply has nothing to report.
var ErrUnavailable = errors.New("location: unavailable")

// CoordinatesProvider reports the device's current position.
type CoordinatesProvider interface {
	GetCoordinates(ctx context.Context) (Coordinates, error)
}

// ReverseGeocoder turns coordinates into a city and country.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinates) (Place, error)
}

// IPLocator resolves a coarse location from the caller's public IP address.
type IPLocator interface {
	LocateIP(ctx context.Context) (Place, error)
}
