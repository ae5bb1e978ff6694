package location

import (
	"context"
	"fmt"
	"time"
)

// StaticProvider answers every lookup with a fixed result after a simulated
// network delay. A nil field makes the corresponding lookup unavailable.
// It implements CoordinatesProvider, ReverseGeocoder and IPLocator.
type StaticProvider struct {
	Coordinates *Coordinates
	Place       *Place
	Delay       time.Duration
}

// NewStaticProvider returns a provider that always reports place after delay.
func NewStaticProvider(place Place, delay time.Duration) *StaticProvider {
	return &StaticProvider{Place: &place, Delay: delay}
}

func (s *StaticProvider) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func (s *StaticProvider) GetCoordinates(ctx context.Context) (Coordinates, error) {
	if err := s.wait(ctx); err != nil {
		return Coordinates{}, err
	}
	if s.Coordinates == nil {
		return Coordinates{}, ErrUnavailable
	}
	return *s.Coordinates, nil
}

func (s *StaticProvider) ReverseGeocode(ctx context.Context, _ Coordinates) (Place, error) {
	return s.place(ctx)
}

func (s *StaticProvider) LocateIP(ctx context.Context) (Place, error) {
	return s.place(ctx)
}

func (s *StaticProvider) place(ctx context.Context) (Place, error) {
	if err := s.wait(ctx); err != nil {
		return Place{}, err
	}
	if s.Place == nil {
		return Place{}, ErrUnavailable
	}
	return *s.Place, nil
}
