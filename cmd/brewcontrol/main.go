// BrewControl - mash process controller
//
// This is the main entry point for the BrewControl daemon. It drives
// an unattended mash: a chain of temperature rests executed against a
// 1-wire sensor and a relay-switched heating element, controllable
// from physical buttons and over MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/goodrick/brewcontrol/migrations"

	"github.com/goodrick/brewcontrol/internal/actuator"
	"github.com/goodrick/brewcontrol/internal/button"
	"github.com/goodrick/brewcontrol/internal/infrastructure/config"
	"github.com/goodrick/brewcontrol/internal/infrastructure/database"
	"github.com/goodrick/brewcontrol/internal/infrastructure/influxdb"
	"github.com/goodrick/brewcontrol/internal/infrastructure/logging"
	"github.com/goodrick/brewcontrol/internal/infrastructure/mqtt"
	"github.com/goodrick/brewcontrol/internal/mashing"
	"github.com/goodrick/brewcontrol/internal/remote"
	"github.com/goodrick/brewcontrol/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting BrewControl",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and run migrations
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Build hardware drivers
	poller, err := buildSensor(cfg.Sensor, log)
	if err != nil {
		return err
	}
	heater, heaterClose, err := buildHeater(cfg.Heater)
	if err != nil {
		return err
	}
	if heaterClose != nil {
		defer heaterClose()
	}
	buttons, buttonsClose, err := buildButtons(cfg.Buttons)
	if err != nil {
		return err
	}
	defer buttonsClose()
	log.Info("hardware drivers ready",
		"sensor", cfg.Sensor.Driver,
		"heater", cfg.Heater.Driver,
		"buttons", len(buttons),
	)

	// Assemble the mashing orchestrator
	m := mashing.New(cfg.Mashing, log)
	m.SetName(cfg.Brewery.Name)
	m.SetRecorder(mashing.NewSQLiteHistory(db.DB))
	if influxClient != nil {
		m.SetSeriesLogger(&influxSeries{client: influxClient, session: m.SessionID})
	}
	for _, r := range cfg.Brewery.Rests {
		m.AddRest(mashing.NewRest(r.Name, r.Temperature, r.Duration, r.AutoContinue))
	}
	m.Init(ctx, poller, heater, buttons...)
	defer m.Close()
	log.Info("mashing orchestrator ready", "rests", len(cfg.Brewery.Rests))

	// Expose the control surface over MQTT
	if mqttClient != nil {
		svc := remote.New(m, mqttClient, log)
		if startErr := svc.Start(); startErr != nil {
			return fmt.Errorf("starting remote service: %w", startErr)
		}
		log.Info("remote control ready")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("BrewControl stopped")
	return nil
}

// buildSensor creates the configured temperature sensor behind a
// background poller.
func buildSensor(cfg config.SensorConfig, log *logging.Logger) (*sensor.Poller, error) {
	var s sensor.Sensor
	switch cfg.Driver {
	case "ds18b20":
		s = sensor.NewDS18B20(cfg.DeviceID)
	case "fake":
		s = sensor.NewFake(20.0)
	default:
		return nil, fmt.Errorf("unsupported sensor driver %q", cfg.Driver)
	}
	return sensor.NewPoller(s, cfg.PollInterval, log), nil
}

// buildHeater creates the configured heater actuator. The returned
// close function is nil for drivers without resources to release.
func buildHeater(cfg config.HeaterConfig) (actuator.Actuator, func(), error) {
	switch cfg.Driver {
	case "gpio":
		h, err := actuator.NewGPIO(cfg.Chip, cfg.Pin, cfg.ActiveLow)
		if err != nil {
			return nil, nil, fmt.Errorf("opening heater relay: %w", err)
		}
		return h, func() { h.Close() }, nil
	case "fake":
		return actuator.NewFake(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported heater driver %q", cfg.Driver)
	}
}

// buildButtons opens every configured GPIO button. An empty pin list
// is valid; the process is then controlled over MQTT only.
func buildButtons(cfg config.ButtonsConfig) ([]button.Button, func(), error) {
	var (
		buttons []button.Button
		gpios   []*button.GPIO
	)
	closeAll := func() {
		for _, b := range gpios {
			b.Close()
		}
	}

	for _, pin := range cfg.Pins {
		b, err := button.NewGPIO(cfg.Chip, pin, cfg.DebouncePeriod)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("opening button on pin %d: %w", pin, err)
		}
		gpios = append(gpios, b)
		buttons = append(buttons, b)
	}
	return buttons, closeAll, nil
}

// influxSeries adapts the InfluxDB client to the orchestrator's
// telemetry interface, tagging every point with the current session.
type influxSeries struct {
	client  *influxdb.Client
	session func() string
}

// Reset flushes points from the previous run.
func (s *influxSeries) Reset() error {
	s.client.Flush()
	return nil
}

func (s *influxSeries) LogTemperature(value float64) {
	s.client.WriteTemperature(s.session(), value)
}

func (s *influxSeries) LogDutyCycle(rest string, percent int) {
	s.client.WriteDutyCycle(s.session(), rest, percent)
}

func (s *influxSeries) LogRestState(rest, state string) {
	s.client.WriteRestState(s.session(), rest, state)
}

// getConfigPath returns the configuration file path.
// Uses BREWCONTROL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BREWCONTROL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// Nil clients (disabled subsystems) are skipped.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
