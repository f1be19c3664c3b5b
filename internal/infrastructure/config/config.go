package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for BrewControl.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Brewery  BreweryConfig  `yaml:"brewery"`
	Sensor   SensorConfig   `yaml:"sensor"`
	Heater   HeaterConfig   `yaml:"heater"`
	Buttons  ButtonsConfig  `yaml:"buttons"`
	Mashing  MashingConfig  `yaml:"mashing"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BreweryConfig contains rig-specific information and the mash
// profile executed on start.
type BreweryConfig struct {
	Name string `yaml:"name"`

	// Rests is the mash profile, executed in order.
	Rests []RestConfig `yaml:"rests"`
}

// RestConfig describes one hold step of the mash profile.
type RestConfig struct {
	// Name identifies the rest in telemetry and history.
	Name string `yaml:"name"`

	// Temperature is the hold target in degrees Celsius.
	Temperature float64 `yaml:"temperature"`

	// Duration is how long to hold once the target is reached.
	Duration time.Duration `yaml:"duration"`

	// AutoContinue advances to the next rest without a button press.
	AutoContinue bool `yaml:"auto_continue"`
}

// SensorConfig contains temperature sensor settings.
type SensorConfig struct {
	// Driver selects the sensor implementation: "ds18b20" or "fake".
	Driver string `yaml:"driver"`

	// DeviceID is the 1-wire device identifier (e.g. "28-000006b4e9a1").
	// Only used by the ds18b20 driver.
	DeviceID string `yaml:"device_id"`

	// PollInterval is how often the background poller samples the sensor.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// HeaterConfig contains heater actuator settings.
type HeaterConfig struct {
	// Driver selects the actuator implementation: "gpio" or "fake".
	Driver string `yaml:"driver"`

	// Chip is the GPIO character device name (e.g. "gpiochip0").
	Chip string `yaml:"chip"`

	// Pin is the GPIO line offset driving the heater relay.
	Pin int `yaml:"pin"`

	// ActiveLow inverts the relay drive for active-low relay boards.
	ActiveLow bool `yaml:"active_low"`
}

// ButtonsConfig contains physical button settings.
type ButtonsConfig struct {
	// Chip is the GPIO character device name shared by all buttons.
	Chip string `yaml:"chip"`

	// Pins are the GPIO line offsets of the continue/start buttons.
	// Empty is valid; the virtual button still works.
	Pins []int `yaml:"pins"`

	// DebouncePeriod filters contact bounce on button edges.
	DebouncePeriod time.Duration `yaml:"debounce_period"`
}

// MashingConfig contains rest execution settings.
type MashingConfig struct {
	// ControlInterval is the duty-cycle window of the rest control loop.
	ControlInterval time.Duration `yaml:"control_interval"`

	// SimulationInterval replaces ControlInterval when the heater is a
	// fake actuator, slowing the loop down for bench runs.
	SimulationInterval time.Duration `yaml:"simulation_interval"`

	// Cooldown is the pause after a completed mash before the start
	// buttons are re-armed.
	Cooldown time.Duration `yaml:"cooldown"`

	// Hysteresis is exposed to external control integrations. The rest
	// control loop itself does not consume it.
	Hysteresis float64 `yaml:"hysteresis"`

	// DutyTable overrides the built-in duty-cycle table. Keys are
	// temperature deltas in tenths of a degree, values percent of the
	// control interval the heater is on. Empty means use the default
	// table.
	DutyTable map[int]int `yaml:"duty_table"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for the
// temperature time-series logger.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: BREWCONTROL_SECTION_KEY
// For example: BREWCONTROL_DATABASE_PATH, BREWCONTROL_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// The defaults describe a simulated rig: fake sensor and heater, no
// MQTT, no InfluxDB. Hardware settings must be configured explicitly.
func defaultConfig() *Config {
	return &Config{
		Brewery: BreweryConfig{
			Name: "BrewControl",
		},
		Sensor: SensorConfig{
			Driver:       "fake",
			PollInterval: time.Second,
		},
		Heater: HeaterConfig{
			Driver: "fake",
			Chip:   "gpiochip0",
			Pin:    17,
		},
		Buttons: ButtonsConfig{
			Chip:           "gpiochip0",
			DebouncePeriod: 20 * time.Millisecond,
		},
		Mashing: MashingConfig{
			ControlInterval:    time.Second,
			SimulationInterval: 5 * time.Second,
			Cooldown:           2 * time.Second,
			Hysteresis:         -0.01,
		},
		Database: DatabaseConfig{
			Path:        "./data/brewcontrol.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "brewcontrol",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BREWCONTROL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BREWCONTROL_NAME"); v != "" {
		cfg.Brewery.Name = v
	}

	// Database
	if v := os.Getenv("BREWCONTROL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Sensor
	if v := os.Getenv("BREWCONTROL_SENSOR_DEVICE_ID"); v != "" {
		cfg.Sensor.DeviceID = v
	}

	// MQTT
	if v := os.Getenv("BREWCONTROL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BREWCONTROL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BREWCONTROL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("BREWCONTROL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Brewery.Name == "" {
		errs = append(errs, "brewery.name is required")
	}
	for i, rest := range c.Brewery.Rests {
		if rest.Name == "" {
			errs = append(errs, fmt.Sprintf("brewery.rests[%d].name is required", i))
		}
		if rest.Temperature <= 0 || rest.Temperature > 110 {
			errs = append(errs, fmt.Sprintf("brewery.rests[%d].temperature must be between 0 and 110", i))
		}
		if rest.Duration < 0 {
			errs = append(errs, fmt.Sprintf("brewery.rests[%d].duration must not be negative", i))
		}
	}

	switch c.Sensor.Driver {
	case "ds18b20":
		if c.Sensor.DeviceID == "" {
			errs = append(errs, "sensor.device_id is required for the ds18b20 driver")
		}
	case "fake":
	default:
		errs = append(errs, fmt.Sprintf("sensor.driver %q is not supported (ds18b20, fake)", c.Sensor.Driver))
	}
	if c.Sensor.PollInterval <= 0 {
		errs = append(errs, "sensor.poll_interval must be positive")
	}

	switch c.Heater.Driver {
	case "gpio":
		if c.Heater.Chip == "" {
			errs = append(errs, "heater.chip is required for the gpio driver")
		}
		if c.Heater.Pin < 0 {
			errs = append(errs, "heater.pin must not be negative")
		}
	case "fake":
	default:
		errs = append(errs, fmt.Sprintf("heater.driver %q is not supported (gpio, fake)", c.Heater.Driver))
	}

	if c.Mashing.ControlInterval <= 0 {
		errs = append(errs, "mashing.control_interval must be positive")
	}
	if c.Mashing.SimulationInterval <= 0 {
		errs = append(errs, "mashing.simulation_interval must be positive")
	}
	if c.Mashing.Cooldown < 0 {
		errs = append(errs, "mashing.cooldown must not be negative")
	}
	for delta, percent := range c.Mashing.DutyTable {
		if delta < 0 {
			errs = append(errs, fmt.Sprintf("mashing.duty_table delta %d must not be negative", delta))
		}
		if percent < 0 || percent > 100 {
			errs = append(errs, fmt.Sprintf("mashing.duty_table percent %d must be between 0 and 100", percent))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
