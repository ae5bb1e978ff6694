// Package api exposes the tracker over HTTP and streams domain events to
// websocket clients.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/qtracker/internal/app"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout = 5 * time.Second
	visitorTTL      = 10 * time.Minute
)

// Config holds the HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	UpdateRate     float64 // Status submissions per second per client
	UpdateBurst    int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Server serves the REST API and the event stream.
type Server struct {
	tracker *app.Tracker
	cfg     Config
	logger  zerolog.Logger
	limiter *rateLimiter
	hub     *eventHub
	handler http.Handler

	mu          sync.Mutex
	running     bool
	httpServer  *http.Server
	listener    net.Listener
	unsubscribe func()
}

// NewServer creates a Server for tracker. It does not listen until Start.
func NewServer(tracker *app.Tracker, cfg Config, logger zerolog.Logger) *Server {
	s := &Server{
		tracker: tracker,
		cfg:     cfg,
		logger:  logger,
		limiter: newRateLimiter(cfg.UpdateRate, cfg.UpdateBurst, visitorTTL),
		hub:     newEventHub(cfg.AllowedOrigins, logger),
	}

	router := httprouter.New()
	s.routes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})
	s.handler = s.logRequests(securityHeaders(c.Handler(router)))
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and begins serving.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("api service is already running")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	s.listener = ln
	s.unsubscribe = s.tracker.Events().Subscribe(s.hub.broadcast)
	s.running = true

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}(s.httpServer)

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("API server listening")
	return nil
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.New("api service is not running")
	}
	s.running = false

	s.unsubscribe()
	s.hub.close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	s.logger.Info().Msg("API server stopped")
	return nil
}

// Addr returns the address the server listens on, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || !s.running {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) routes(r *httprouter.Router) {
	r.GET("/health", s.health)

	r.GET("/v1/venues", s.listVenues)
	r.POST("/v1/venues", s.createVenue)
	r.GET("/v1/venues/:id", s.getVenue)
	r.GET("/v1/venues/:id/updates", s.listUpdates)
	r.POST("/v1/venues/:id/updates", s.limiter.Limit(s.submitUpdate))

	r.GET("/v1/favorites", s.listFavorites)
	r.POST("/v1/favorites/:id", s.toggleFavorite)

	r.GET("/v1/location", s.getLocation)
	r.PUT("/v1/location", s.setLocation)
	r.DELETE("/v1/location", s.forgetLocation)
	r.POST("/v1/location/resolve", s.resolveLocation)

	r.GET("/v1/filters", s.getFilters)
	r.PUT("/v1/filters", s.setFilters)
	r.DELETE("/v1/filters", s.clearFilters)

	r.POST("/v1/refresh", s.refresh)

	r.POST("/v1/auth/login", s.login)
	r.POST("/v1/auth/register", s.register)
	r.POST("/v1/auth/logout", s.logout)
	r.GET("/v1/auth/me", s.me)

	r.GET("/v1/events", s.hub.serve)
}
