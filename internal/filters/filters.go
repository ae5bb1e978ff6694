// Package filters derives the visible venue list from the full collection and
// the user's current display mode, filters and search text.
package filters

import (
	"fmt"
	"strings"

	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/pkg/location"
)

// DisplayMode selects the base set of venues.
type DisplayMode string

const (
	ModeAll       DisplayMode = "all"
	ModeFavorites DisplayMode = "favorites"
	ModeNearby    DisplayMode = "nearby"
)

// ParseDisplayMode maps user input to a DisplayMode; empty input is ModeAll.
func ParseDisplayMode(s string) (DisplayMode, error) {
	switch DisplayMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeFavorites:
		return ModeFavorites, nil
	case ModeNearby:
		return ModeNearby, nil
	default:
		return "", fmt.Errorf("unknown display mode %q", s)
	}
}

// Composition decides how active filters combine.
type Composition string

const (
	// CompositionIntersect narrows the display-mode base set by every active filter.
	CompositionIntersect Composition = "intersect"
	// CompositionOverride lets the location, genre and distance filters each
	// re-derive from the full collection, the last active one winning, before
	// search narrows the result. An active distance filter with no origin
	// yields the full collection. This is how the browser client behaves.
	CompositionOverride Composition = "override"
)

// ParseComposition maps user input to a Composition; empty input is CompositionIntersect.
func ParseComposition(s string) (Composition, error) {
	switch Composition(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompositionIntersect:
		return CompositionIntersect, nil
	case CompositionOverride:
		return CompositionOverride, nil
	default:
		return "", fmt.Errorf("unknown filter composition %q", s)
	}
}

// Params are the user-controlled view parameters.
type Params struct {
	DisplayMode   DisplayMode `json:"displayMode"`
	City          string      `json:"city,omitempty"`
	Country       string      `json:"country,omitempty"`
	Genre         string      `json:"genre,omitempty"`
	MaxDistanceKm float64     `json:"maxDistance,omitempty"` // Active when > 0
	SearchText    string      `json:"searchQuery,omitempty"`
}

// Active counts the filters that are set, not counting display mode or search.
func (p Params) Active() int {
	n := 0
	if p.City != "" || p.Country != "" {
		n++
	}
	if p.Genre != "" {
		n++
	}
	if p.MaxDistanceKm > 0 {
		n++
	}
	return n
}

// Clear resets every filter and the search text, keeping the display mode.
func (p *Params) Clear() {
	*p = Params{DisplayMode: p.DisplayMode}
}

// Scope is the state the parameters are evaluated against.
type Scope struct {
	IsFavorite  func(venueID string) bool
	Nearby      map[string]struct{} // Precomputed nearby venue ids
	Origin      *location.Coordinates
	Composition Composition
}

// Compute returns the venues visible under p, in the order of all.
// It never mutates all.
func Compute(all []models.Venue, p Params, s Scope) []models.Venue {
	if s.Composition == CompositionOverride {
		return computeOverride(all, p, s)
	}

	out := make([]models.Venue, 0, len(all))
	query := normalizedQuery(p.SearchText)
	for _, v := range all {
		if !inBaseSet(v, p.DisplayMode, s) {
			continue
		}
		if !MatchesLocation(v, p.City, p.Country) {
			continue
		}
		if p.Genre != "" && !MatchesGenre(v, p.Genre) {
			continue
		}
		if p.MaxDistanceKm > 0 && s.Origin != nil && !WithinDistance(v, *s.Origin, p.MaxDistanceKm) {
			continue
		}
		if query != "" && !matchesQuery(v, query) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func computeOverride(all []models.Venue, p Params, s Scope) []models.Venue {
	working := make([]models.Venue, 0, len(all))
	for _, v := range all {
		if inBaseSet(v, p.DisplayMode, s) {
			working = append(working, v)
		}
	}

	if p.City != "" || p.Country != "" {
		working = filter(all, func(v models.Venue) bool { return MatchesLocation(v, p.City, p.Country) })
	}
	if p.Genre != "" {
		working = filter(all, func(v models.Venue) bool { return MatchesGenre(v, p.Genre) })
	}
	if p.MaxDistanceKm > 0 {
		// Without an origin every venue passes, which resets the working set.
		origin := s.Origin
		working = filter(all, func(v models.Venue) bool {
			return origin == nil || WithinDistance(v, *origin, p.MaxDistanceKm)
		})
	}

	if query := normalizedQuery(p.SearchText); query != "" {
		working = filter(working, func(v models.Venue) bool { return matchesQuery(v, query) })
	}
	return working
}

func filter(in []models.Venue, keep func(models.Venue) bool) []models.Venue {
	out := make([]models.Venue, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func inBaseSet(v models.Venue, mode DisplayMode, s Scope) bool {
	switch mode {
	case ModeFavorites:
		return s.IsFavorite != nil && s.IsFavorite(v.ID)
	case ModeNearby:
		_, ok := s.Nearby[v.ID]
		return ok
	default:
		return true
	}
}

// MatchesLocation reports whether the venue's location string contains both the
// city and the country (case-insensitive). An empty dimension always matches.
func MatchesLocation(v models.Venue, city, country string) bool {
	loc := strings.ToLower(v.Location)
	if city != "" && !strings.Contains(loc, strings.ToLower(city)) {
		return false
	}
	if country != "" && !strings.Contains(loc, strings.ToLower(country)) {
		return false
	}
	return true
}

// MatchesGenre reports whether one of the venue's genres equals genre, ignoring case.
// A venue without genres never matches.
func MatchesGenre(v models.Venue, genre string) bool {
	for _, g := range v.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// WithinDistance reports whether the venue is at most maxKm from origin.
// A venue without coordinates never matches.
func WithinDistance(v models.Venue, origin location.Coordinates, maxKm float64) bool {
	d, ok := DistanceTo(v, &origin)
	return ok && d <= maxKm
}

// DistanceTo returns the distance in km from origin to the venue, if both are known.
func DistanceTo(v models.Venue, origin *location.Coordinates) (float64, bool) {
	if origin == nil || v.Coordinates == nil {
		return 0, false
	}
	return location.DistanceBetween(*origin, *v.Coordinates), true
}

func normalizedQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func matchesQuery(v models.Venue, query string) bool {
	return strings.Contains(strings.ToLower(v.Name), query) ||
		strings.Contains(strings.ToLower(v.Location), query)
}
