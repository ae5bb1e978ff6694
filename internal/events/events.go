package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind names a domain event.
type Kind string

const (
	UpdateRecorded   Kind = "update.recorded"
	VenueCreated     Kind = "venue.created"
	FavoriteToggled  Kind = "favorite.toggled"
	LocationResolved Kind = "location.resolved"
	LocationChanged  Kind = "location.changed"
	RefreshStarted   Kind = "refresh.started"
	RefreshCompleted Kind = "refresh.completed"
	UserLoggedIn     Kind = "user.login"
	UserLoggedOut    Kind = "user.logout"
)

// Event is emitted by core operations after their state change is visible.
type Event struct {
	Kind    Kind      `json:"kind"`
	Time    time.Time `json:"time"`
	VenueID string    `json:"venueId,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

// FavoriteToggledPayload is the payload of FavoriteToggled events.
type FavoriteToggledPayload struct {
	VenueID  string `json:"venueId"`
	Favorite bool   `json:"favorite"`
}

// Handler receives events.
type Handler func(Event)

// Publisher is implemented by anything core services can emit events to.
type Publisher interface {
	Publish(e Event)
}

// Bus delivers each event synchronously, in subscription order, on the publisher's goroutine.
type Bus struct {
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	order    []int
}

// NewBus creates an empty Bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		logger:   logger,
		now:      time.Now,
		handlers: make(map[int]Handler),
	}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.handlers[id]; !ok {
			return
		}
		delete(b.handlers, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish stamps e with the current time if unset and hands it to every subscriber.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Interface("panic", r).
				Str("kind", string(e.Kind)).
				Msg("Event subscriber panicked")
		}
	}()
	h(e)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(Event) {}
