// Package app wires the venue store, update log, favorites, location resolver
// and filter engine into the Tracker that every adapter talks to.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/filters"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/internal/seed"
	"github.com/benmeehan/qtracker/internal/services"
	"github.com/benmeehan/qtracker/internal/utils"
	"github.com/benmeehan/qtracker/pkg/kvstore"
	"github.com/benmeehan/qtracker/pkg/location"
	"github.com/rs/zerolog"
)

// Options configures a Tracker.
type Options struct {
	Seed        seed.Data
	Store       kvstore.Store
	Coordinates location.CoordinatesProvider
	Geocoder    location.ReverseGeocoder
	IPLocator   location.IPLocator
	Settings    Settings
	Logger      zerolog.Logger
}

// Tracker owns all application state. It is safe for concurrent use.
type Tracker struct {
	settings Settings
	logger   zerolog.Logger
	now      func() time.Time

	bus       *events.Bus
	venues    *services.VenueStore
	updates   *services.UpdateLog
	queue     *services.QueueService
	favorites *services.FavoritesSet
	resolver  *services.LocationResolver
	auth      *services.AuthService

	mu     sync.RWMutex
	params filters.Params
}

// New builds a Tracker from opts.
func New(opts Options) (*Tracker, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("tracker: a key-value store is required")
	}
	s := opts.Settings.withDefaults()
	logger := opts.Logger

	bus := events.NewBus(logger.With().Str("component", "events").Logger())
	venues := services.NewVenueStore(opts.Seed.Venues, s.RefreshDelay, bus, logger.With().Str("component", "venues").Logger())
	updates := services.NewUpdateLog()
	updates.Seed(opts.Seed.Updates)

	resolver := services.NewLocationResolver(opts.Coordinates, opts.Geocoder, opts.IPLocator, opts.Store,
		s.DeviceTimeout, bus, logger.With().Str("component", "location").Logger())
	if s.DefaultLocation != nil {
		resolver.WithDefault(*s.DefaultLocation)
	}

	t := &Tracker{
		settings:  s,
		logger:    logger,
		now:       time.Now,
		bus:       bus,
		venues:    venues,
		updates:   updates,
		queue:     services.NewQueueService(venues, updates, bus, logger.With().Str("component", "queue").Logger()),
		favorites: services.NewFavoritesSet(opts.Store, bus, logger.With().Str("component", "favorites").Logger()),
		resolver:  resolver,
		auth:      services.NewAuthService(opts.Store, s.AuthLatency, bus, logger.With().Str("component", "auth").Logger()),
		params:    filters.Params{DisplayMode: filters.ModeAll},
	}

	logger.Info().
		Int("venues", venues.Len()).
		Int("updates", updates.Len()).
		Str("composition", string(s.Composition)).
		Msg("Tracker ready")
	return t, nil
}

// Events returns the bus domain events are published on.
func (t *Tracker) Events() *events.Bus {
	return t.bus
}

// Resolver returns the location resolver, for the startup location service.
func (t *Tracker) Resolver() *services.LocationResolver {
	return t.resolver
}

// Venues returns every venue in insertion order.
func (t *Tracker) Venues() []models.Venue {
	return t.venues.List()
}

// Venue returns the venue with id.
func (t *Tracker) Venue(id string) (models.Venue, error) {
	v, ok := t.venues.Get(id)
	if !ok {
		return models.Venue{}, models.ErrVenueNotFound
	}
	return v, nil
}

// VenueUpdates returns the updates of the venue with id, newest first.
func (t *Tracker) VenueUpdates(id string) ([]models.StatusUpdate, error) {
	if _, ok := t.venues.Get(id); !ok {
		return nil, models.ErrVenueNotFound
	}
	return t.updates.ForVenue(id), nil
}

// SubmitUpdate records a status update. When UserID is empty the signed-in
// user is used as the author.
func (t *Tracker) SubmitUpdate(in models.StatusUpdateInput) (models.StatusUpdate, error) {
	if in.UserID == "" {
		if u, ok := t.auth.Current(); ok {
			in.UserID, in.UserName = u.ID, u.Name
		}
	}
	return t.queue.Submit(in)
}

// CreateVenue adds a venue and returns its id.
func (t *Tracker) CreateVenue(in models.NewVenueInput) (string, error) {
	return t.venues.Create(in)
}

// ToggleFavorite flips the favorite flag of id and returns the new state.
func (t *Tracker) ToggleFavorite(id string) (bool, error) {
	return t.favorites.Toggle(id)
}

// IsFavorite reports whether id is a favorite.
func (t *Tracker) IsFavorite(id string) bool {
	return t.favorites.IsFavorite(id)
}

// Favorites returns the favorite venue ids in the order they were added.
func (t *Tracker) Favorites() []string {
	return t.favorites.IDs()
}

// ResolveLocation runs the location fallback chain.
func (t *Tracker) ResolveLocation(ctx context.Context) (models.UserLocation, error) {
	return t.resolver.Resolve(ctx)
}

// SetLocation overwrites the user's location.
func (t *Tracker) SetLocation(loc models.UserLocation) (models.UserLocation, error) {
	return t.resolver.Set(loc)
}

// ForgetLocation clears the known location so the next resolution starts over.
func (t *Tracker) ForgetLocation() error {
	return t.resolver.Forget()
}

// Location returns the location known in this session.
func (t *Tracker) Location() (models.UserLocation, bool) {
	return t.resolver.Current()
}

// SetFilters replaces the session's view parameters.
func (t *Tracker) SetFilters(p filters.Params) {
	if p.DisplayMode == "" {
		p.DisplayMode = filters.ModeAll
	}
	t.mu.Lock()
	t.params = p
	t.mu.Unlock()
}

// Filters returns the session's view parameters.
func (t *Tracker) Filters() filters.Params {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.params
}

// ClearFilters resets every filter and the search text, keeping the display mode.
func (t *Tracker) ClearFilters() {
	t.mu.Lock()
	t.params.Clear()
	t.mu.Unlock()
}

// VisibleVenues computes the venue list under the session's view parameters.
func (t *Tracker) VisibleVenues() []VenueView {
	return t.View(t.Filters(), t.settings.Composition)
}

// View computes the venue list under p without touching the session's parameters.
func (t *Tracker) View(p filters.Params, composition filters.Composition) []VenueView {
	all := t.venues.List()
	loc, hasLoc := t.resolver.Current()

	scope := filters.Scope{
		IsFavorite:  t.favorites.IsFavorite,
		Composition: composition,
	}
	if hasLoc {
		scope.Origin = loc.Coordinates
	}
	if p.DisplayMode == filters.ModeNearby && hasLoc {
		scope.Nearby = filters.NearbySet(all, &loc, t.settings.NearbyRadiusKm)
	}

	visible := filters.Compute(all, p, scope)
	out := make([]VenueView, 0, len(visible))
	for _, v := range visible {
		out = append(out, t.annotate(v, scope.Origin))
	}
	return out
}

// VenueView returns the venue with id annotated for display.
func (t *Tracker) VenueView(id string) (VenueView, error) {
	v, err := t.Venue(id)
	if err != nil {
		return VenueView{}, err
	}
	var origin *location.Coordinates
	if loc, ok := t.resolver.Current(); ok {
		origin = loc.Coordinates
	}
	return t.annotate(v, origin), nil
}

func (t *Tracker) annotate(v models.Venue, origin *location.Coordinates) VenueView {
	view := VenueView{
		Venue:          v,
		IsFavorite:     t.favorites.IsFavorite(v.ID),
		LastUpdatedAgo: utils.FormatTimeAgo(v.CurrentStatus.LastUpdated, t.now()),
	}
	if d, ok := filters.DistanceTo(v, origin); ok {
		view.DistanceKm = &d
	}
	return view
}

// Composition returns the configured filter composition.
func (t *Tracker) Composition() filters.Composition {
	return t.settings.Composition
}

// Refresh simulates reloading venues from a remote source.
func (t *Tracker) Refresh(ctx context.Context) error {
	return t.venues.Refresh(ctx)
}

// IsLoading reports whether a refresh is running.
func (t *Tracker) IsLoading() bool {
	return t.venues.IsLoading()
}

// Login signs a user in.
func (t *Tracker) Login(ctx context.Context, email, password string) (models.User, error) {
	return t.auth.Login(ctx, email, password)
}

// Register creates an account and signs it in.
func (t *Tracker) Register(ctx context.Context, name, email, password string) (models.User, error) {
	return t.auth.Register(ctx, name, email, password)
}

// Logout signs the current user out.
func (t *Tracker) Logout() error {
	return t.auth.Logout()
}

// CurrentUser returns the signed-in user.
func (t *Tracker) CurrentUser() (models.User, bool) {
	return t.auth.Current()
}
