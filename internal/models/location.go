package models

import "github.com/benmeehan/qtracker/pkg/location"

// UserLocation is where the current user is, as resolved or entered by hand.
type UserLocation struct {
	City        string                `json:"city"`
	Country     string                `json:"country"`
	Coordinates *location.Coordinates `json:"coordinates,omitempty"`
}

// NewUserLocation builds a UserLocation from a place and optional coordinates.
func NewUserLocation(p location.Place, c *location.Coordinates) UserLocation {
	loc := UserLocation{City: p.City, Country: p.Country}
	if c != nil {
		cc := *c
		loc.Coordinates = &cc
	}
	return loc
}
