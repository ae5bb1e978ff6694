package models

import (
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/pkg/location"
)

// CurrentStatus is the latest community-reported state of a venue's queue.
type CurrentStatus struct {
	QueueLength int             `json:"queueLength" yaml:"queue_length"` // Approximate headcount
	WaitTime    int             `json:"waitTime" yaml:"wait_time"`       // Minutes
	LastUpdated time.Time       `json:"lastUpdated" yaml:"-"`
	Trend       constants.Trend `json:"trend" yaml:"trend"`
}

// Venue is a club listed on the board.
type Venue struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Location      string                `json:"location"` // Free text, "city, country"
	City          string                `json:"city,omitempty"`
	Country       string                `json:"country,omitempty"`
	Description   string                `json:"description"`
	Image         string                `json:"image"`
	Genres        []string              `json:"genres,omitempty"`
	Coordinates   *location.Coordinates `json:"coordinates,omitempty"`
	CurrentStatus CurrentStatus         `json:"currentStatus"`
}

// Clone returns a deep copy so callers never share slices or pointers with the store.
func (v Venue) Clone() Venue {
	if v.Genres != nil {
		v.Genres = append([]string(nil), v.Genres...)
	}
	if v.Coordinates != nil {
		c := *v.Coordinates
		v.Coordinates = &c
	}
	return v
}

// NewVenueInput carries the fields a user supplies when adding a venue.
type NewVenueInput struct {
	Name        string                `json:"name"`
	Location    string                `json:"location"`
	City        string                `json:"city,omitempty"`
	Country     string                `json:"country,omitempty"`
	Description string                `json:"description,omitempty"`
	Image       string                `json:"image,omitempty"`
	Genres      []string              `json:"genres,omitempty"`
	Coordinates *location.Coordinates `json:"coordinates,omitempty"`
}

// DeriveTrend compares a new queue length with the previous one.
func DeriveTrend(previous, next int) constants.Trend {
	switch {
	case next > previous:
		return constants.TrendIncreasing
	case next < previous:
		return constants.TrendDecreasing
	default:
		return constants.TrendStable
	}
}
