package constants

import "time"

const (
	// DefaultCity and DefaultCountry are used when no location step yields a result.
	DefaultCity    = "New York"
	DefaultCountry = "United States"

	// DeviceLocationTimeout bounds the device coordinates request.
	DeviceLocationTimeout = 5 * time.Second

	// LocationLookupTimeout bounds the geocoding and IP steps of a shared resolution.
	LocationLookupTimeout = 30 * time.Second

	// NearbyRadiusKm is the acceptance radius of the "nearby" display mode.
	NearbyRadiusKm = 25.0

	// RefreshDelay simulates the network round-trip of a refresh.
	RefreshDelay = 1 * time.Second

	// AuthLatency simulates the login/register round-trip.
	AuthLatency = 800 * time.Millisecond

	// PlaceholderImage is used for venues added without an image.
	PlaceholderImage = "https://images.unsplash.com/photo-1566737236500-c8ac43014a67?q=80&w=1170"

	// DescriptionTemplate is used for venues added without a description.
	DescriptionTemplate = "A nightclub located in %s"
)
