package mocks

import (
	"context"

	"github.com/benmeehan/qtracker/pkg/location"
	"github.com/stretchr/testify/mock"
)

// CoordinatesProvider is a mock implementation of location.CoordinatesProvider
type CoordinatesProvider struct {
	mock.Mock
}

func (m *CoordinatesProvider) GetCoordinates(ctx context.Context) (location.Coordinates, error) {
	args := m.Called(ctx)
	return args.Get(0).(location.Coordinates), args.Error(1)
}

// ReverseGeocoder is a mock implementation of location.ReverseGeocoder
type ReverseGeocoder struct {
	mock.Mock
}

func (m *ReverseGeocoder) ReverseGeocode(ctx context.Context, c location.Coordinates) (location.Place, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(location.Place), args.Error(1)
}

// IPLocator is a mock implementation of location.IPLocator
type IPLocator struct {
	mock.Mock
}

func (m *IPLocator) LocateIP(ctx context.Context) (location.Place, error) {
	args := m.Called(ctx)
	return args.Get(0).(location.Place), args.Error(1)
}
