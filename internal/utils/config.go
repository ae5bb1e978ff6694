package utils

import (
	"fmt"
	"time"

	"github.com/benmeehan/qtracker/internal/constants"
	"github.com/benmeehan/qtracker/pkg/file"
)

// Location provider names accepted in the location section.
const (
	ProviderNone      = "none"
	ProviderStub      = "stub"
	ProviderGPS       = "gps"
	ProviderGoogle    = "google"
	ProviderGazetteer = "gazetteer"
	ProviderIPAPI     = "ipapi"
)

// Config represents the structure of the configuration file.
type Config struct {
	Logging struct {
		Level   string `yaml:"level"`   // zerolog level name
		Console bool   `yaml:"console"` // Human readable output instead of JSON
	} `yaml:"logging"`

	Storage struct {
		Backend string `yaml:"backend"` // bolt, file or memory
		Path    string `yaml:"path"`    // Database or JSON file path
	} `yaml:"storage"`

	Location struct {
		CoordinatesProvider string        `yaml:"coordinates_provider"` // none, stub, gps or google
		ReverseGeocoder     string        `yaml:"reverse_geocoder"`     // none, stub, gazetteer or google
		IPLocator           string        `yaml:"ip_locator"`           // none, stub or ipapi
		DeviceTimeout       time.Duration `yaml:"device_timeout"`       // Bound on the device coordinates request
		RetryInterval       time.Duration `yaml:"retry_interval"`       // Startup resolution retry interval, 0 disables retries
		DefaultCity         string        `yaml:"default_city"`
		DefaultCountry      string        `yaml:"default_country"`
		NearbyRadiusKm      float64       `yaml:"nearby_radius_km"` // Acceptance radius of the nearby display mode

		Stub struct {
			City      string        `yaml:"city"`
			Country   string        `yaml:"country"`
			Latitude  float64       `yaml:"latitude"`
			Longitude float64       `yaml:"longitude"`
			Delay     time.Duration `yaml:"delay"` // Simulated lookup latency
		} `yaml:"stub"`

		GPSDevicePort     string        `yaml:"gps_device_port"`      // UNIX port where the GPS sensor is mounted
		GPSDeviceBaudRate int           `yaml:"gps_baud_rate"`        // The baud rate for the GPS sensor
		MapsAPIKey        string        `yaml:"maps_api_key"`         // Google Maps API key
		MapsLanguage      string        `yaml:"maps_language"`        // Language of reverse geocoding results
		GazetteerMaxKm    float64       `yaml:"gazetteer_max_km"`     // Farthest a gazetteer city may be
		IPAPIURL          string        `yaml:"ipapi_url"`            // ip-api compatible endpoint
		IPAPITimeout      time.Duration `yaml:"ipapi_timeout"`        // HTTP timeout for the IP lookup
	} `yaml:"location"`

	Venues struct {
		RefreshDelay time.Duration `yaml:"refresh_delay"` // Simulated refresh round-trip
		SeedFile     string        `yaml:"seed_file"`     // Overrides the built-in demo data
	} `yaml:"venues"`

	Filters struct {
		Composition string `yaml:"composition"` // intersect or override
	} `yaml:"filters"`

	Auth struct {
		Latency time.Duration `yaml:"latency"` // Simulated login round-trip
	} `yaml:"auth"`

	API struct {
		Enabled        bool          `yaml:"enabled"`
		Addr           string        `yaml:"addr"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
		UpdateRate     float64       `yaml:"update_rate"`  // Status submissions per second per client
		UpdateBurst    int           `yaml:"update_burst"` // Submission burst per client
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
	} `yaml:"api"`

	MQTT struct {
		Enabled        bool          `yaml:"enabled"`
		Broker         string        `yaml:"broker"`         // MQTT broker address
		ClientID       string        `yaml:"client_id"`      // MQTT client ID prefix
		Username       string        `yaml:"username"`
		Password       string        `yaml:"password"`
		CACertificate  string        `yaml:"ca_certificate"` // Path to the CA certificate, empty for plain TCP
		Topic          string        `yaml:"topic"`          // Prefix, events go to <topic>/<kind>
		QOS            int           `yaml:"qos"`
		Workers        int           `yaml:"workers"`
		PublishTimeout time.Duration `yaml:"publish_timeout"`
	} `yaml:"mqtt"`
}

// DefaultConfig returns a configuration that runs fully offline with stubbed
// location providers and in-memory storage.
func DefaultConfig() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadConfig loads the YAML configuration from the specified file and fills
// in defaults for every unset value.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", filename, err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Logging.Level, "info")
	setDefault(&c.Storage.Backend, "memory")

	l := &c.Location
	setDefault(&l.CoordinatesProvider, ProviderStub)
	setDefault(&l.ReverseGeocoder, ProviderStub)
	setDefault(&l.IPLocator, ProviderStub)
	setDefault(&l.DeviceTimeout, constants.DeviceLocationTimeout)
	setDefault(&l.DefaultCity, constants.DefaultCity)
	setDefault(&l.DefaultCountry, constants.DefaultCountry)
	setDefault(&l.NearbyRadiusKm, constants.NearbyRadiusKm)
	setDefault(&l.Stub.City, "Berlin")
	setDefault(&l.Stub.Country, "Germany")
	setDefault(&l.GPSDeviceBaudRate, 9600)
	setDefault(&l.MapsLanguage, "en")
	setDefault(&l.GazetteerMaxKm, 50.0)
	setDefault(&l.IPAPIURL, "http://ip-api.com/json")
	setDefault(&l.IPAPITimeout, 5*time.Second)

	setDefault(&c.Venues.RefreshDelay, constants.RefreshDelay)
	setDefault(&c.Filters.Composition, "intersect")
	setDefault(&c.Auth.Latency, constants.AuthLatency)

	setDefault(&c.API.Addr, ":8080")
	setDefault(&c.API.UpdateRate, 0.2)
	setDefault(&c.API.UpdateBurst, 3)
	setDefault(&c.API.ReadTimeout, 10*time.Second)
	setDefault(&c.API.WriteTimeout, 10*time.Second)
	if len(c.API.AllowedOrigins) == 0 {
		c.API.AllowedOrigins = []string{"*"}
	}

	setDefault(&c.MQTT.ClientID, "qtracker")
	setDefault(&c.MQTT.Topic, "qtracker/events")
	setDefault(&c.MQTT.Workers, 2)
	setDefault(&c.MQTT.PublishTimeout, 5*time.Second)
}

// Validate rejects values the services cannot start with.
func (c *Config) Validate() error {
	if !oneOf(c.Storage.Backend, "bolt", "file", "memory") {
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend)
	}
	l := c.Location
	if !oneOf(l.CoordinatesProvider, ProviderNone, ProviderStub, ProviderGPS, ProviderGoogle) {
		return fmt.Errorf("location.coordinates_provider: unknown provider %q", l.CoordinatesProvider)
	}
	if !oneOf(l.ReverseGeocoder, ProviderNone, ProviderStub, ProviderGazetteer, ProviderGoogle) {
		return fmt.Errorf("location.reverse_geocoder: unknown provider %q", l.ReverseGeocoder)
	}
	if !oneOf(l.IPLocator, ProviderNone, ProviderStub, ProviderIPAPI) {
		return fmt.Errorf("location.ip_locator: unknown provider %q", l.IPLocator)
	}
	if (l.CoordinatesProvider == ProviderGoogle || l.ReverseGeocoder == ProviderGoogle) && l.MapsAPIKey == "" {
		return fmt.Errorf("location.maps_api_key is required for the google provider")
	}
	if l.CoordinatesProvider == ProviderGPS && l.GPSDevicePort == "" {
		return fmt.Errorf("location.gps_device_port is required for the gps provider")
	}
	if !oneOf(c.Filters.Composition, "intersect", "override") {
		return fmt.Errorf("filters.composition: unknown composition %q", c.Filters.Composition)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QOS < 0 || c.MQTT.QOS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	return nil
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}

func oneOf(s string, options ...string) bool {
	_, ok := SliceToSet(options)[s]
	return ok
}
