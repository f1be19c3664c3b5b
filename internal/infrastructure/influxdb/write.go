package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteTemperature records a mash temperature sample for a brew session.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - sessionID: Brew session identifier
//   - value: Temperature in the sensor's physical unit (°C)
func (c *Client) WriteTemperature(sessionID string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"mash_temperature",
		map[string]string{
			"session_id": sessionID,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDutyCycle records the heater duty cycle chosen for one control
// interval of a rest.
//
// Parameters:
//   - sessionID: Brew session identifier
//   - rest: Name of the rest being executed
//   - percent: Percent of the control interval the heater is on (0-100)
func (c *Client) WriteDutyCycle(sessionID string, rest string, percent int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"heater_duty",
		map[string]string{
			"session_id": sessionID,
			"rest":       rest,
		},
		map[string]interface{}{
			"percent": percent,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRestState records a rest lifecycle transition.
//
// Parameters:
//   - sessionID: Brew session identifier
//   - rest: Name of the rest
//   - state: The state entered (heating, active, ...)
func (c *Client) WriteRestState(sessionID string, rest string, state string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"rest_state",
		map[string]string{
			"session_id": sessionID,
			"rest":       rest,
		},
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// Flush forces all pending writes to be sent immediately.
//
// Normally writes are batched; call this at the end of a run to make
// sure the tail of the series is stored.
func (c *Client) Flush() {
	if c.writeAPI != nil {
		c.writeAPI.Flush()
	}
}
