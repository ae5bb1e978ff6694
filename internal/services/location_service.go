package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/models"
	"github.com/rs/zerolog"
)

// locationResolver is the part of LocationResolver the service drives.
type locationResolver interface {
	Resolve(ctx context.Context) (models.UserLocation, error)
}

// LocationService resolves the user's location in the background at startup so
// the first "nearby" request does not wait on the device. When resolution
// fails it retries every interval until it succeeds or the service stops.
type LocationService struct {
	// Configuration fields
	interval time.Duration

	// Dependencies
	resolver locationResolver
	logger   zerolog.Logger

	// Internal state management
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocationService creates a new LocationService.
func NewLocationService(interval time.Duration, resolver locationResolver, logger zerolog.Logger) *LocationService {
	return &LocationService{
		interval: interval,
		resolver: resolver,
		logger:   logger,
	}
}

// Start launches the background resolution.
func (l *LocationService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.running = true

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.run()
	}()

	l.logger.Info().Dur("retry_interval", l.interval).Msg("LocationService started")
	return nil
}

// Stop cancels a running resolution and waits for the goroutine to exit.
func (l *LocationService) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}
	l.running = false
	cancel := l.cancel
	l.mu.Unlock()

	cancel()
	l.wg.Wait()

	l.logger.Info().Msg("LocationService stopped")
	return nil
}

func (l *LocationService) run() {
	if l.resolveOnce() || l.interval <= 0 {
		return
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if l.resolveOnce() {
				return
			}
		case <-l.ctx.Done():
			l.logger.Debug().Msg("LocationService is stopping")
			return
		}
	}
}

func (l *LocationService) resolveOnce() bool {
	loc, err := l.resolver.Resolve(l.ctx)
	if err != nil {
		if l.ctx.Err() == nil {
			l.logger.Error().Err(err).Msg("Failed to resolve location")
		}
		return false
	}
	l.logger.Debug().Str("city", loc.City).Str("country", loc.Country).Msg("Startup location ready")
	return true
}
