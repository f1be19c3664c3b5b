package sensor

// Sensor reads the mash temperature.
//
// Read blocks for at most one conversion; callers that need a
// non-blocking latest value should go through a Poller.
type Sensor interface {
	// Read returns the current temperature in the sensor's unit.
	Read() (float64, error)

	// Quantity returns the physical quantity the sensor measures,
	// e.g. "°C". Used for labelling the temperature series.
	Quantity() string
}
