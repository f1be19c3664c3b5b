package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("BREWCONTROL_CONFIG")
	defer os.Setenv("BREWCONTROL_CONFIG", originalEnv)

	os.Setenv("BREWCONTROL_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_SimulatedRig starts a fully simulated rig (fake sensor, fake
// heater, no MQTT, no InfluxDB) and shuts it down on context timeout.
func TestRun_SimulatedRig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
brewery:
  name: test-rig
  rests:
    - name: maltose
      temperature: 63.0
      duration: 30m

sensor:
  driver: fake
  poll_interval: 100ms

heater:
  driver: fake

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("BREWCONTROL_CONFIG")
	defer os.Setenv("BREWCONTROL_CONFIG", originalEnv)
	os.Setenv("BREWCONTROL_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() error = %v", err)
	}
}

// TestRun_UnsupportedDriver verifies run fails before touching hardware
// when the heater driver is unknown.
func TestRun_UnsupportedDriver(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
brewery:
  name: test-rig

sensor:
  driver: fake

heater:
  driver: steam-engine

database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"

mqtt:
  enabled: false

influxdb:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("BREWCONTROL_CONFIG")
	defer os.Setenv("BREWCONTROL_CONFIG", originalEnv)
	os.Setenv("BREWCONTROL_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with an unsupported heater driver")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("BREWCONTROL_CONFIG")
	defer os.Setenv("BREWCONTROL_CONFIG", originalEnv)

	os.Unsetenv("BREWCONTROL_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("BREWCONTROL_CONFIG")
	defer os.Setenv("BREWCONTROL_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("BREWCONTROL_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
