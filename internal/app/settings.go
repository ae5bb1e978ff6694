package app

import (
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/internal/filters"
	"github.com/benmeehan/qtracker/internal/models"
)

// Settings are the tunables of a Tracker. Zero values take the defaults.
type Settings struct {
	RefreshDelay    time.Duration
	AuthLatency     time.Duration
	DeviceTimeout   time.Duration
	NearbyRadiusKm  float64
	Composition     filters.Composition
	DefaultLocation *models.UserLocation
}

func (s Settings) withDefaults() Settings {
	if s.DeviceTimeout <= 0 {
		s.DeviceTimeout = constants.DeviceLocationTimeout
	}
	if s.NearbyRadiusKm <= 0 {
		s.NearbyRadiusKm = constants.NearbyRadiusKm
	}
	if s.Composition == "" {
		s.Composition = filters.CompositionIntersect
	}
	return s
}

// VenueView is a venue annotated for display.
type VenueView struct {
	models.Venue
	IsFavorite     bool     `json:"isFavorite"`
	DistanceKm     *float64 `json:"distanceKm,omitempty"`
	LastUpdatedAgo string   `json:"lastUpdatedAgo"`
}
