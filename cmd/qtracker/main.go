package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benmeehan/qtracker/internal/app"
	"github.com/benmeehan/qtracker/internal/filters"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/benmeehan/qtracker/internal/seed"
	"github.com/benmeehan/qtracker/internal/service_registry"
	"github.com/benmeehan/qtracker/internal/utils"
	"github.com/benmeehan/qtracker/pkg/file"
	"github.com/benmeehan/qtracker/pkg/kvstore"
	"github.com/benmeehan/qtracker/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Bootstrap logger until the configured level is known
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}
	log = newLogger(config)

	store, err := kvstore.New(config.Storage.Backend, config.Storage.Path, fileClient)
	if err != nil {
		log.Fatal().Err(err).Str("backend", config.Storage.Backend).Msg("Failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	data, err := loadSeed(config, fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load venue data")
	}

	providers, err := service_registry.BuildProviders(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create location providers")
	}

	composition, err := filters.ParseComposition(config.Filters.Composition)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid filter composition")
	}

	tracker, err := app.New(app.Options{
		Seed:        data,
		Store:       store,
		Coordinates: providers.Coordinates,
		Geocoder:    providers.Geocoder,
		IPLocator:   providers.IPLocator,
		Settings: app.Settings{
			RefreshDelay:   config.Venues.RefreshDelay,
			AuthLatency:    config.Auth.Latency,
			DeviceTimeout:  config.Location.DeviceTimeout,
			NearbyRadiusKm: config.Location.NearbyRadiusKm,
			Composition:    composition,
			DefaultLocation: &models.UserLocation{
				City:    config.Location.DefaultCity,
				Country: config.Location.DefaultCountry,
			},
		},
		Logger: log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create tracker")
	}

	// Initialize the shared MQTT connection
	var mqttClient *mqtt.MqttService
	if config.MQTT.Enabled {
		// Generate a unique MQTT Client ID by appending a UUID
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		log.Info().Str("client_id", clientID).Msg("Using MQTT Client ID")

		mqttClient = mqtt.NewMqttService(fileClient)
		err = mqttClient.Initialize(mqtt.Options{
			Broker:        config.MQTT.Broker,
			ClientID:      clientID,
			Username:      config.MQTT.Username,
			Password:      config.MQTT.Password,
			CACertificate: config.MQTT.CACertificate,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		defer mqttClient.Disconnect(250)
	}

	// Create a new service registry to manage services
	var registry *service_registry.ServiceRegistry
	if mqttClient != nil {
		registry = service_registry.NewServiceRegistry(mqttClient, log)
	} else {
		registry = service_registry.NewServiceRegistry(nil, log)
	}

	// Register all services based on the configuration
	if err := registry.RegisterServices(config, tracker); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := registry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := registry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Some services failed to stop")
	}
}

func newLogger(config *utils.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if config.Logging.Console {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func loadSeed(config *utils.Config, fileClient file.FileOperations) (seed.Data, error) {
	if config.Venues.SeedFile == "" {
		return seed.Default(time.Now())
	}
	return seed.LoadFile(config.Venues.SeedFile, fileClient, time.Now())
}
