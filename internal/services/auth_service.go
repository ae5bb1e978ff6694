package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/internal/events"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/pkg/kvstore"
	"github.com/rs/zerolog"
)

// AuthService is a stand-in for a real identity backend: any non-empty
// credentials are accepted after a simulated round-trip.
type AuthService struct {
	latency   time.Duration
	store     kvstore.Store
	publisher events.Publisher
	logger    zerolog.Logger
	intN      func(n int) int

	mu   sync.RWMutex
	user *models.User
}

// NewAuthService creates the service and restores the persisted user, if any.
func NewAuthService(store kvstore.Store, latency time.Duration, publisher events.Publisher, logger zerolog.Logger) *AuthService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	a := &AuthService{
		latency:   latency,
		store:     store,
		publisher: publisher,
		logger:    logger,
		intN:      rand.Intn,
	}

	var u models.User
	err := kvstore.GetJSON(store, constants.StorageKeyUser, &u)
	switch {
	case err == nil && u.ID != "":
		a.user = &u
	case err != nil && !errors.Is(err, kvstore.ErrNotFound):
		logger.Error().Err(err).Msg("Failed to load signed-in user")
	}
	return a
}

// Login signs in with email and password. The display name is the local part of the email.
func (a *AuthService) Login(ctx context.Context, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.User{}, models.ErrInvalidCredentials
	}
	name, _, _ := strings.Cut(email, "@")
	return a.signIn(ctx, models.User{Name: name, Email: email})
}

// Register creates an account and signs it in.
func (a *AuthService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return models.User{}, models.ErrInvalidCredentials
	}
	return a.signIn(ctx, models.User{Name: name, Email: email})
}

func (a *AuthService) signIn(ctx context.Context, u models.User) (models.User, error) {
	if err := a.wait(ctx); err != nil {
		return models.User{}, err
	}
	u.ID = fmt.Sprintf("user%d", a.intN(1000))

	if err := kvstore.SetJSON(a.store, constants.StorageKeyUser, u); err != nil {
		a.logger.Error().Err(err).Msg("Failed to persist signed-in user")
		return models.User{}, fmt.Errorf("persist user: %w", err)
	}
	a.mu.Lock()
	a.user = &u
	a.mu.Unlock()

	a.logger.Info().Str("user_id", u.ID).Str("user_name", u.Name).Msg("User signed in")
	a.publisher.Publish(events.Event{Kind: events.UserLoggedIn, Payload: u})
	return u, nil
}

// Logout signs the current user out. It is a no-op when nobody is signed in.
func (a *AuthService) Logout() error {
	a.mu.Lock()
	prev := a.user
	a.user = nil
	a.mu.Unlock()
	if prev == nil {
		return nil
	}

	if err := a.store.Delete(constants.StorageKeyUser); err != nil {
		a.mu.Lock()
		a.user = prev
		a.mu.Unlock()
		return fmt.Errorf("clear user: %w", err)
	}
	a.logger.Info().Str("user_id", prev.ID).Msg("User signed out")
	a.publisher.Publish(events.Event{Kind: events.UserLoggedOut, Payload: *prev})
	return nil
}

// Current returns the signed-in user.
func (a *AuthService) Current() (models.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return models.User{}, false
	}
	return *a.user, true
}

func (a *AuthService) wait(ctx context.Context) error {
	if a.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(a.latency)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
