// Package seed provides the venues and status updates loaded at startup.
package seed

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/pkg/file"
	"github.com/benmeehan/qtracker/pkg/location"
	"gopkg.in/yaml.v3"
)

//go:embed venues.yaml
var defaultData []byte

// Data is a parsed seed document.
type Data struct {
	Venues  []models.Venue
	Updates []models.StatusUpdate // Newest first
}

type document struct {
	Venues  []venueEntry  `yaml:"venues"`
	Updates []updateEntry `yaml:"updates"`
}

type venueEntry struct {
	ID          string                `yaml:"id"`
	Name        string                `yaml:"name"`
	Location    string                `yaml:"location"`
	City        string                `yaml:"city"`
	Country     string                `yaml:"country"`
	Image       string                `yaml:"image"`
	Description string                `yaml:"description"`
	Genres      []string              `yaml:"genres"`
	Coordinates *location.Coordinates `yaml:"coordinates"`
	Status      struct {
		QueueLength int             `yaml:"queue_length"`
		WaitTime    int             `yaml:"wait_time"`
		MinutesAgo  int             `yaml:"minutes_ago"`
		Trend       constants.Trend `yaml:"trend"`
	} `yaml:"status"`
}

type updateEntry struct {
	ID          string `yaml:"id"`
	ClubID      string `yaml:"club_id"`
	MinutesAgo  int    `yaml:"minutes_ago"`
	QueueLength int    `yaml:"queue_length"`
	WaitTime    int    `yaml:"wait_time"`
	UserID      string `yaml:"user_id"`
	UserName    string `yaml:"user_name"`
	Comment     string `yaml:"comment"`
}

// Default returns the built-in demo data with times relative to now.
func Default(now time.Time) (Data, error) {
	return Parse(defaultData, now)
}

// LoadFile reads a seed document from path.
func LoadFile(path string, fileClient file.FileOperations, now time.Time) (Data, error) {
	raw, err := fileClient.ReadFileRaw(path)
	if err != nil {
		return Data{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw, now)
}

// Parse decodes a seed document. Relative times are resolved against now.
func Parse(raw []byte, now time.Time) (Data, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Data{}, fmt.Errorf("decode seed: %w", err)
	}

	var data Data
	ids := make(map[string]struct{}, len(doc.Venues))
	for i, e := range doc.Venues {
		v, err := e.venue(now)
		if err != nil {
			return Data{}, fmt.Errorf("venue %d: %w", i, err)
		}
		if _, dup := ids[v.ID]; dup {
			return Data{}, fmt.Errorf("venue %d: duplicate id %q", i, v.ID)
		}
		ids[v.ID] = struct{}{}
		data.Venues = append(data.Venues, v)
	}

	for i, e := range doc.Updates {
		if _, ok := ids[e.ClubID]; !ok {
			return Data{}, fmt.Errorf("update %d: unknown club %q", i, e.ClubID)
		}
		if e.ID == "" || e.QueueLength < 0 || e.WaitTime < 0 {
			return Data{}, fmt.Errorf("update %d: invalid entry", i)
		}
		data.Updates = append(data.Updates, models.StatusUpdate{
			ID:          e.ID,
			VenueID:     e.ClubID,
			UserID:      e.UserID,
			UserName:    e.UserName,
			QueueLength: e.QueueLength,
			WaitTime:    e.WaitTime,
			Comment:     e.Comment,
			Timestamp:   now.Add(-time.Duration(e.MinutesAgo) * time.Minute),
		})
	}
	return data, nil
}

func (e venueEntry) venue(now time.Time) (models.Venue, error) {
	if e.ID == "" || strings.TrimSpace(e.Name) == "" || strings.TrimSpace(e.Location) == "" {
		return models.Venue{}, fmt.Errorf("id, name and location are required")
	}
	if e.Coordinates != nil && !e.Coordinates.Valid() {
		return models.Venue{}, fmt.Errorf("coordinates out of range")
	}
	if e.Status.QueueLength < 0 || e.Status.WaitTime < 0 {
		return models.Venue{}, fmt.Errorf("negative status")
	}

	trend := e.Status.Trend
	switch trend {
	case constants.TrendIncreasing, constants.TrendDecreasing, constants.TrendStable:
	case "":
		trend = constants.TrendStable
	default:
		return models.Venue{}, fmt.Errorf("unknown trend %q", trend)
	}

	city, country := e.City, e.Country
	if city == "" && country == "" {
		parts := strings.Split(e.Location, ",")
		city = strings.TrimSpace(parts[0])
		if len(parts) > 1 {
			country = strings.TrimSpace(parts[len(parts)-1])
		}
	}

	return models.Venue{
		ID:          e.ID,
		Name:        e.Name,
		Location:    e.Location,
		City:        city,
		Country:     country,
		Description: e.Description,
		Image:       e.Image,
		Genres:      e.Genres,
		Coordinates: e.Coordinates,
		CurrentStatus: models.CurrentStatus{
			QueueLength: e.Status.QueueLength,
			WaitTime:    e.Status.WaitTime,
			LastUpdated: now.Add(-time.Duration(e.Status.MinutesAgo) * time.Minute),
			Trend:       trend,
		},
	}, nil
}
