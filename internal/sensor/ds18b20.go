package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// w1Dir is the sysfs directory where the 1-wire subsystem exposes devices.
const w1Dir = "/sys/bus/w1/devices"

// DS18B20 reads a Dallas DS18B20 1-wire temperature probe via sysfs.
//
// The kernel's w1_therm driver exposes each probe as a text file:
//
//	4b 01 4b 46 7f ff 05 10 d8 : crc=d8 YES
//	4b 01 4b 46 7f ff 05 10 d8 t=20687
//
// The first line ends in YES when the CRC check passed; the second
// carries the temperature in milli-degrees. A read takes one conversion
// period (~750 ms at full resolution), so this driver is always used
// behind a Poller.
type DS18B20 struct {
	path string
	id   string
}

// NewDS18B20 creates a driver for the probe with the given 1-wire ID
// (e.g. "28-000006b4e9a1").
func NewDS18B20(id string) *DS18B20 {
	return &DS18B20{
		path: filepath.Join(w1Dir, id, "w1_slave"),
		id:   id,
	}
}

// Read returns the probe temperature in °C.
func (s *DS18B20) Read() (float64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("reading probe %s: %w", s.id, err)
	}
	return parseW1Slave(string(data))
}

// Quantity returns the measured physical quantity.
func (s *DS18B20) Quantity() string {
	return "°C"
}

// parseW1Slave extracts the temperature from a w1_slave file.
func parseW1Slave(data string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(data), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("malformed w1_slave data: %d lines", len(lines))
	}

	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, fmt.Errorf("probe CRC check failed")
	}

	_, raw, ok := strings.Cut(lines[1], "t=")
	if !ok {
		return 0, fmt.Errorf("malformed w1_slave data: no t= field")
	}

	milli, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing temperature %q: %w", raw, err)
	}

	return float64(milli) / 1000, nil
}
