package filters

import (
	"strings"

	"github.com/benmeehan/qtracker/internal/models"
)

// NearbySet returns the ids of venues near loc. With coordinates, a venue is
// nearby when it lies within radiusKm; without them, when its location string
// contains loc's city.
func NearbySet(all []models.Venue, loc *models.UserLocation, radiusKm float64) map[string]struct{} {
	set := make(map[string]struct{})
	if loc == nil {
		return set
	}

	if loc.Coordinates != nil {
		for _, v := range all {
			if WithinDistance(v, *loc.Coordinates, radiusKm) {
				set[v.ID] = struct{}{}
			}
		}
		return set
	}

	city := strings.ToLower(strings.TrimSpace(loc.City))
	if city == "" {
		return set
	}
	for _, v := range all {
		if strings.Contains(strings.ToLower(v.Location), city) {
			set[v.ID] = struct{}{}
		}
	}
	return set
}
