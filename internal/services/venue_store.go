package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/rs/zerolog"
)

// VenueStore owns the canonical venue collection in insertion order.
type VenueStore struct {
	// Configuration fields
	refreshDelay time.Duration

	// Dependencies
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string

	// Internal state management
	mu      sync.RWMutex
	venues  []models.Venue
	index   map[string]int
	loading bool
}

// NewVenueStore creates a VenueStore holding a copy of seed. Seed entries with
// an empty or duplicate id are skipped.
func NewVenueStore(seed []models.Venue, refreshDelay time.Duration, publisher events.Publisher, logger zerolog.Logger) *VenueStore {
	if publisher == nil {
		publisher = events.Nop{}
	}
	s := &VenueStore{
		refreshDelay: refreshDelay,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
		newID:        newID,
		venues:       make([]models.Venue, 0, len(seed)),
		index:        make(map[string]int, len(seed)),
	}
	for _, v := range seed {
		if v.ID == "" {
			logger.Warn().Str("name", v.Name).Msg("Skipping seed venue without id")
			continue
		}
		if _, dup := s.index[v.ID]; dup {
			logger.Warn().Str("venue_id", v.ID).Msg("Skipping duplicate seed venue")
			continue
		}
		s.index[v.ID] = len(s.venues)
		s.venues = append(s.venues, v.Clone())
	}
	return s
}

// List returns a copy of every venue in insertion order.
func (s *VenueStore) List() []models.Venue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Venue, len(s.venues))
	for i, v := range s.venues {
		out[i] = v.Clone()
	}
	return out
}

// Get returns the venue with id.
func (s *VenueStore) Get(id string) (models.Venue, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.Venue{}, false
	}
	return s.venues[i].Clone(), true
}

// Len returns the number of venues.
func (s *VenueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.venues)
}

// Create validates in, appends a new venue with a fresh id and default status,
// and returns the id.
func (s *VenueStore) Create(in models.NewVenueInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", models.NewValidationError("name", "Club name is required")
	}
	loc := strings.TrimSpace(in.Location)
	if loc == "" {
		return "", models.NewValidationError("location", "Location is required")
	}
	if in.Coordinates != nil && !in.Coordinates.Valid() {
		return "", models.NewValidationError("coordinates", "Coordinates are out of range")
	}

	city, country := strings.TrimSpace(in.City), strings.TrimSpace(in.Country)
	if city == "" && country == "" {
		city, country = splitLocation(loc)
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = fmt.Sprintf(constants.DescriptionTemplate, loc)
	}
	image := strings.TrimSpace(in.Image)
	if image == "" {
		image = constants.PlaceholderImage
	}

	var genres []string
	for _, g := range in.Genres {
		if g = strings.TrimSpace(g); g != "" {
			genres = append(genres, g)
		}
	}

	v := models.Venue{
		Name:        name,
		Location:    loc,
		City:        city,
		Country:     country,
		Description: description,
		Image:       image,
		Genres:      genres,
		Coordinates: in.Coordinates,
	}

	s.mu.Lock()
	for v.ID == "" {
		id := s.newID()
		if _, taken := s.index[id]; !taken {
			v.ID = id
		}
	}
	v.CurrentStatus = models.CurrentStatus{LastUpdated: s.now(), Trend: constants.TrendStable}
	v = v.Clone()
	s.index[v.ID] = len(s.venues)
	s.venues = append(s.venues, v)
	s.mu.Unlock()

	s.logger.Info().Str("venue_id", v.ID).Str("name", v.Name).Msg("Venue created")
	s.publisher.Publish(events.Event{Kind: events.VenueCreated, VenueID: v.ID, Payload: v.Clone()})
	return v.ID, nil
}

// ApplyStatusUpdate replaces the venue's current status with the values of u,
// deriving the trend from the previous queue length.
func (s *VenueStore) ApplyStatusUpdate(u models.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[u.VenueID]
	if !ok {
		return fmt.Errorf("apply update %s: %w", u.ID, models.ErrVenueNotFound)
	}
	prev := s.venues[i].CurrentStatus
	s.venues[i].CurrentStatus = models.CurrentStatus{
		QueueLength: u.QueueLength,
		WaitTime:    u.WaitTime,
		LastUpdated: u.Timestamp,
		Trend:       models.DeriveTrend(prev.QueueLength, u.QueueLength),
	}
	return nil
}

// IsLoading reports whether a refresh is running.
func (s *VenueStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Refresh simulates reloading the collection from a remote source. The data is
// unchanged. Only one refresh runs at a time.
func (s *VenueStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return models.ErrRefreshInProgress
	}
	s.loading = true
	s.mu.Unlock()

	s.publisher.Publish(events.Event{Kind: events.RefreshStarted})

	var err error
	if s.refreshDelay > 0 {
		timer := time.NewTimer(s.refreshDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			err = fmt.Errorf("refresh: %w", ctx.Err())
		}
	}

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("Refresh interrupted")
		return err
	}
	s.publisher.Publish(events.Event{Kind: events.RefreshCompleted})
	s.logger.Debug().Msg("Venues refreshed")
	return nil
}

// splitLocation reads "city, country" free text. Anything between the first
// and last comma is ignored.
func splitLocation(loc string) (city, country string) {
	parts := strings.Split(loc, ",")
	city = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		country = strings.TrimSpace(parts[len(parts)-1])
	}
	return city, country
}
