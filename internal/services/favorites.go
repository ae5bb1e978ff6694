package services

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/pkg/kvstore"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// FavoritesSet is the persisted set of favorite venue ids. Ids are not
// checked against the venue store.
type FavoritesSet struct {
	store     kvstore.Store
	publisher events.Publisher
	logger    zerolog.Logger

	mu      sync.Mutex // Serializes toggles and their persistence
	members cmap.ConcurrentMap[string, int64]
	seq     int64
}

// NewFavoritesSet creates the set and loads it from store. Unreadable data is
// logged and the set starts empty.
func NewFavoritesSet(store kvstore.Store, publisher events.Publisher, logger zerolog.Logger) *FavoritesSet {
	if publisher == nil {
		publisher = events.Nop{}
	}
	f := &FavoritesSet{
		store:     store,
		publisher: publisher,
		logger:    logger,
		members:   cmap.New[int64](),
	}
	f.load()
	return f
}

func (f *FavoritesSet) load() {
	var ids []string
	err := kvstore.GetJSON(f.store, constants.StorageKeyFavorites, &ids)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return
	case err != nil:
		f.logger.Error().Err(err).Msg("Failed to load favorites, starting empty")
		return
	}
	for _, id := range ids {
		if id == "" || f.members.Has(id) {
			continue
		}
		f.members.Set(id, f.seq)
		f.seq++
	}
	f.logger.Debug().Int("count", f.members.Count()).Msg("Favorites loaded")
}

// Toggle flips the membership of id, persists the set and returns the new membership.
// On a persistence failure the change is reverted.
func (f *FavoritesSet) Toggle(id string) (bool, error) {
	f.mu.Lock()
	prevSeq, was := f.members.Get(id)
	if was {
		f.members.Remove(id)
	} else {
		f.members.Set(id, f.seq)
		f.seq++
	}

	if err := kvstore.SetJSON(f.store, constants.StorageKeyFavorites, f.ids()); err != nil {
		if was {
			f.members.Set(id, prevSeq)
		} else {
			f.members.Remove(id)
		}
		f.mu.Unlock()
		f.logger.Error().Err(err).Str("venue_id", id).Msg("Failed to persist favorites")
		return was, fmt.Errorf("persist favorites: %w", err)
	}
	f.mu.Unlock()

	now := !was
	f.publisher.Publish(events.Event{
		Kind:    events.FavoriteToggled,
		VenueID: id,
		Payload: events.FavoriteToggledPayload{VenueID: id, Favorite: now},
	})
	return now, nil
}

// IsFavorite reports whether id is in the set.
func (f *FavoritesSet) IsFavorite(id string) bool {
	return f.members.Has(id)
}

// IDs returns the favorite ids in the order they were added.
func (f *FavoritesSet) IDs() []string {
	return f.ids()
}

func (f *FavoritesSet) ids() []string {
	items := f.members.Items()
	out := make([]string, 0, len(items))
	for id := range items {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return items[out[i]] < items[out[j]] })
	return out
}
