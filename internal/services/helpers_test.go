package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/pkg/kvstore"
	"github.com/benmeehan/qtracker/pkg/location"
)

var baseTime = time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

// clock returns increasing timestamps one minute apart, starting at baseTime.
func clock() func() time.Time {
	var mu sync.Mutex
	t := baseTime
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}

// sequence returns ids "<prefix>1", "<prefix>2", ...
func sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func seedVenues() []models.Venue {
	return []models.Venue{
		{
			ID: "1", Name: "Berghain", Location: "Berlin, Germany", City: "Berlin", Country: "Germany",
			Genres:      []string{"Techno", "House", "Electronic"},
			Coordinates: &location.Coordinates{Latitude: 52.5111, Longitude: 13.4399},
			CurrentStatus: models.CurrentStatus{
				QueueLength: 180, WaitTime: 120, LastUpdated: baseTime.Add(-15 * time.Minute), Trend: constants.TrendIncreasing,
			},
		},
		{
			ID: "2", Name: "Watergate", Location: "Berlin, Germany", City: "Berlin", Country: "Germany",
			Genres:      []string{"House", "Tech House", "Electronic"},
			Coordinates: &location.Coordinates{Latitude: 52.5031, Longitude: 13.4416},
			CurrentStatus: models.CurrentStatus{
				QueueLength: 75, WaitTime: 45, LastUpdated: baseTime.Add(-35 * time.Minute), Trend: constants.TrendStable,
			},
		},
	}
}

// failingStore wraps a store and fails every write while fail is set.
type failingStore struct {
	kvstore.Store
	fail bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Set(key, value string) error {
	if f.fail {
		return errDiskFull
	}
	return f.Store.Set(key, value)
}

func (f *failingStore) Delete(key string) error {
	if f.fail {
		return errDiskFull
	}
	return f.Store.Delete(key)
}
