package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVenueStore(delay time.Duration) (*VenueStore, *recorder) {
	rec := &recorder{}
	s := NewVenueStore(seedVenues(), delay, rec, zerolog.Nop())
	s.now = clock()
	s.newID = sequence("v")
	return s, rec
}

func TestVenueStore_ListAndGet(t *testing.T) {
	s, _ := newTestVenueStore(0)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Berghain", list[0].Name)
	assert.Equal(t, "Watergate", list[1].Name)

	v, ok := s.Get("2")
	require.True(t, ok)
	assert.Equal(t, "Watergate", v.Name)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestVenueStore_ReturnsCopies(t *testing.T) {
	s, _ := newTestVenueStore(0)

	list := s.List()
	list[0].Name = "changed"
	list[0].Genres[0] = "changed"
	list[0].Coordinates.Latitude = 0

	v, _ := s.Get("1")
	assert.Equal(t, "Berghain", v.Name)
	assert.Equal(t, "Techno", v.Genres[0])
	assert.Equal(t, 52.5111, v.Coordinates.Latitude)
}

func TestVenueStore_SkipsDuplicateSeed(t *testing.T) {
	seed := append(seedVenues(), models.Venue{ID: "1", Name: "Impostor"}, models.Venue{Name: "No id"})
	s := NewVenueStore(seed, 0, nil, zerolog.Nop())

	assert.Equal(t, 2, s.Len())
	v, _ := s.Get("1")
	assert.Equal(t, "Berghain", v.Name)
}

func TestVenueStore_CreateDefaults(t *testing.T) {
	s, rec := newTestVenueStore(0)

	id, err := s.Create(models.NewVenueInput{
		Name:     "  Tresor ",
		Location: "Berlin, Germany",
		Genres:   []string{" Techno ", "", "  ", "Industrial"},
	})
	require.NoError(t, err)
	assert.Equal(t, "v1", id)

	v, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Tresor", v.Name)
	assert.Equal(t, "Berlin", v.City)
	assert.Equal(t, "Germany", v.Country)
	assert.Equal(t, "A nightclub located in Berlin, Germany", v.Description)
	assert.Equal(t, constants.PlaceholderImage, v.Image)
	assert.Equal(t, []string{"Techno", "Industrial"}, v.Genres)
	assert.Equal(t, 0, v.CurrentStatus.QueueLength)
	assert.Equal(t, 0, v.CurrentStatus.WaitTime)
	assert.Equal(t, constants.TrendStable, v.CurrentStatus.Trend)
	assert.Equal(t, baseTime.Add(time.Minute), v.CurrentStatus.LastUpdated)

	list := s.List()
	assert.Equal(t, id, list[len(list)-1].ID, "new venues are appended")
	assert.Equal(t, []events.Kind{events.VenueCreated}, rec.kinds())
}

func TestVenueStore_CreateKeepsSuppliedFields(t *testing.T) {
	s, _ := newTestVenueStore(0)

	id, err := s.Create(models.NewVenueInput{
		Name:        "Fabric",
		Location:    "London, United Kingdom",
		City:        "London",
		Description: "Farringdon institution",
		Image:       "https://example.com/fabric.jpg",
		Coordinates: &location.Coordinates{Latitude: 51.5196, Longitude: -0.1025},
	})
	require.NoError(t, err)

	v, _ := s.Get(id)
	assert.Equal(t, "London", v.City)
	assert.Empty(t, v.Country, "explicit city disables location splitting")
	assert.Equal(t, "Farringdon institution", v.Description)
	assert.Equal(t, "https://example.com/fabric.jpg", v.Image)
	assert.Nil(t, v.Genres)
	require.NotNil(t, v.Coordinates)
	assert.Equal(t, 51.5196, v.Coordinates.Latitude)
}

func TestVenueStore_CreateValidation(t *testing.T) {
	s, rec := newTestVenueStore(0)

	cases := []struct {
		name  string
		input models.NewVenueInput
		field string
	}{
		{"missing name", models.NewVenueInput{Name: "  ", Location: "Berlin"}, "name"},
		{"missing location", models.NewVenueInput{Name: "Tresor", Location: ""}, "location"},
		{"bad coordinates", models.NewVenueInput{Name: "Tresor", Location: "Berlin", Coordinates: &location.Coordinates{Latitude: 91}}, "coordinates"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(tc.input)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	assert.Equal(t, 2, s.Len())
	assert.Empty(t, rec.kinds())
}

func TestVenueStore_CreateNeverReusesID(t *testing.T) {
	s, _ := newTestVenueStore(0)
	ids := []string{"1", "2", "", "fresh"}
	s.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	id, err := s.Create(models.NewVenueInput{Name: "Tresor", Location: "Berlin, Germany"})
	require.NoError(t, err)
	assert.Equal(t, "fresh", id)
}

func TestVenueStore_ApplyStatusUpdate(t *testing.T) {
	s, _ := newTestVenueStore(0)
	ts := baseTime.Add(time.Hour)

	require.NoError(t, s.ApplyStatusUpdate(models.StatusUpdate{ID: "u1", VenueID: "1", QueueLength: 200, WaitTime: 130, Timestamp: ts}))
	v, _ := s.Get("1")
	assert.Equal(t, models.CurrentStatus{QueueLength: 200, WaitTime: 130, LastUpdated: ts, Trend: constants.TrendIncreasing}, v.CurrentStatus)

	require.NoError(t, s.ApplyStatusUpdate(models.StatusUpdate{ID: "u2", VenueID: "1", QueueLength: 200, WaitTime: 90, Timestamp: ts}))
	v, _ = s.Get("1")
	assert.Equal(t, constants.TrendStable, v.CurrentStatus.Trend)

	err := s.ApplyStatusUpdate(models.StatusUpdate{ID: "u3", VenueID: "nope"})
	assert.ErrorIs(t, err, models.ErrVenueNotFound)
}

func TestVenueStore_Refresh(t *testing.T) {
	s, rec := newTestVenueStore(50 * time.Millisecond)
	before := s.List()

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()

	require.Eventually(t, s.IsLoading, time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Refresh(context.Background()), models.ErrRefreshInProgress)

	require.NoError(t, <-done)
	assert.False(t, s.IsLoading())
	assert.Equal(t, before, s.List())
	assert.Equal(t, []events.Kind{events.RefreshStarted, events.RefreshCompleted}, rec.kinds())
}

func TestVenueStore_RefreshCancelled(t *testing.T) {
	s, rec := newTestVenueStore(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Refresh(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, s.IsLoading())
	assert.Equal(t, []events.Kind{events.RefreshStarted}, rec.kinds())
}

func TestVenueStore_ConcurrentAccess(t *testing.T) {
	s, _ := newTestVenueStore(0)
	s.newID = newID

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Create(models.NewVenueInput{Name: "Club", Location: "Berlin, Germany"})
		}()
		go func() {
			defer wg.Done()
			_ = s.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 22, s.Len())
}
