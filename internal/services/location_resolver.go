package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/pkg/kvstore"
	"github.com/benmeehan/qtracker/pkg/location"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const resolveKey = "resolve"

// LocationResolver determines the user's city and country. It tries, in order,
// the last persisted value, device coordinates followed by reverse geocoding,
// an IP lookup and finally the configured default. Every result is persisted.
type LocationResolver struct {
	// Configuration fields
	deviceTimeout   time.Duration
	resolveTimeout  time.Duration
	defaultLocation *models.UserLocation

	// Dependencies
	coordinates location.CoordinatesProvider
	geocoder    location.ReverseGeocoder
	ipLocator   location.IPLocator
	store       kvstore.Store
	publisher   events.Publisher
	logger      zerolog.Logger

	// Internal state management
	group   singleflight.Group
	mu      sync.RWMutex
	current *models.UserLocation
}

// NewLocationResolver creates a resolver. Any provider may be nil, in which
// case its step is skipped.
func NewLocationResolver(coordinates location.CoordinatesProvider, geocoder location.ReverseGeocoder, ipLocator location.IPLocator,
	store kvstore.Store, deviceTimeout time.Duration, publisher events.Publisher, logger zerolog.Logger) *LocationResolver {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if deviceTimeout <= 0 {
		deviceTimeout = constants.DeviceLocationTimeout
	}
	return &LocationResolver{
		deviceTimeout:  deviceTimeout,
		resolveTimeout: deviceTimeout + constants.LocationLookupTimeout,
		coordinates:    coordinates,
		geocoder:       geocoder,
		ipLocator:      ipLocator,
		store:          store,
		publisher:      publisher,
		logger:         logger,
	}
}

// WithDefault sets the location used when every other step fails.
func (r *LocationResolver) WithDefault(loc models.UserLocation) *LocationResolver {
	r.defaultLocation = &loc
	return r
}

// Resolve returns the user's location. Concurrent callers share one run,
// which is detached from any single caller's cancellation and bounded by its
// own timeout. A caller whose ctx ends stops waiting without affecting the others.
func (r *LocationResolver) Resolve(ctx context.Context) (models.UserLocation, error) {
	if err := ctx.Err(); err != nil {
		return models.UserLocation{}, fmt.Errorf("resolve location: %w", err)
	}

	ch := r.group.DoChan(resolveKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.resolveTimeout)
		defer cancel()
		return r.resolve(rctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return models.UserLocation{}, res.Err
		}
		return res.Val.(models.UserLocation), nil
	case <-ctx.Done():
		return models.UserLocation{}, fmt.Errorf("resolve location: %w", ctx.Err())
	}
}

func (r *LocationResolver) resolve(ctx context.Context) (models.UserLocation, error) {
	if loc, ok := r.Current(); ok {
		return loc, nil
	}

	var persisted models.UserLocation
	err := kvstore.GetJSON(r.store, constants.StorageKeyLocation, &persisted)
	switch {
	case err == nil:
		r.setCurrent(persisted)
		r.logger.Debug().Str("city", persisted.City).Msg("Using persisted location")
		return persisted, nil
	case !errors.Is(err, kvstore.ErrNotFound):
		r.logger.Error().Err(err).Msg("Failed to read persisted location")
	}

	coords := r.deviceCoordinates(ctx)

	if coords != nil && r.geocoder != nil {
		place, err := r.geocoder.ReverseGeocode(ctx, *coords)
		if err == nil && !place.Empty() {
			return r.commit(models.NewUserLocation(place, coords), "device"), nil
		}
		r.logger.Debug().Err(err).Msg("Reverse geocoding failed")
	}

	if r.ipLocator != nil {
		place, err := r.ipLocator.LocateIP(ctx)
		if err == nil && !place.Empty() {
			return r.commit(models.NewUserLocation(place, coords), "ip"), nil
		}
		r.logger.Debug().Err(err).Msg("IP location lookup failed")
	}

	if r.defaultLocation != nil {
		return r.commit(*r.defaultLocation, "default"), nil
	}
	return models.UserLocation{}, models.ErrLocationUnavailable
}

// deviceCoordinates asks the device for its position, bounded by the device
// timeout. Denial, timeout and invalid fixes all yield nil.
func (r *LocationResolver) deviceCoordinates(ctx context.Context) *location.Coordinates {
	if r.coordinates == nil {
		return nil
	}
	dctx, cancel := context.WithTimeout(ctx, r.deviceTimeout)
	defer cancel()

	c, err := r.coordinates.GetCoordinates(dctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Device coordinates unavailable")
		return nil
	}
	if !c.Valid() {
		r.logger.Debug().
			Float64("latitude", c.Latitude).
			Float64("longitude", c.Longitude).
			Msg("Ignoring out of range device coordinates")
		return nil
	}
	return &c
}

func (r *LocationResolver) commit(loc models.UserLocation, source string) models.UserLocation {
	if err := kvstore.SetJSON(r.store, constants.StorageKeyLocation, loc); err != nil {
		r.logger.Error().Err(err).Msg("Failed to persist location")
	}
	r.setCurrent(loc)

	r.logger.Info().
		Str("city", loc.City).
		Str("country", loc.Country).
		Str("source", source).
		Msg("Location resolved")
	r.publisher.Publish(events.Event{Kind: events.LocationResolved, Payload: loc})
	return loc
}

// Set overwrites the location with a manual entry and persists it.
func (r *LocationResolver) Set(loc models.UserLocation) (models.UserLocation, error) {
	loc.City = strings.TrimSpace(loc.City)
	loc.Country = strings.TrimSpace(loc.Country)
	if loc.Coordinates != nil && !loc.Coordinates.Valid() {
		return models.UserLocation{}, models.NewValidationError("coordinates", "Coordinates are out of range")
	}
	loc = models.NewUserLocation(location.Place{City: loc.City, Country: loc.Country}, loc.Coordinates)

	if err := kvstore.SetJSON(r.store, constants.StorageKeyLocation, loc); err != nil {
		r.logger.Error().Err(err).Msg("Failed to persist location")
		return models.UserLocation{}, fmt.Errorf("persist location: %w", err)
	}
	r.setCurrent(loc)

	r.logger.Info().Str("city", loc.City).Str("country", loc.Country).Msg("Location changed")
	r.publisher.Publish(events.Event{Kind: events.LocationChanged, Payload: loc})
	return loc, nil
}

// Forget drops the known location so the next Resolve runs the chain again.
func (r *LocationResolver) Forget() error {
	if err := r.store.Delete(constants.StorageKeyLocation); err != nil {
		return fmt.Errorf("forget location: %w", err)
	}
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
	return nil
}

// Current returns the location known in this session, if any.
func (r *LocationResolver) Current() (models.UserLocation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return models.UserLocation{}, false
	}
	return models.NewUserLocation(location.Place{City: r.current.City, Country: r.current.Country}, r.current.Coordinates), true
}

func (r *LocationResolver) setCurrent(loc models.UserLocation) {
	r.mu.Lock()
	r.current = &loc
	r.mu.Unlock()
}
